package main

import "github.com/ponyo877/codesh/cli/cmd"

func main() {
	cmd.Execute()
}
