/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"
)

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Generates a new session token",
	Long: `Generates an opaque session token with enough entropy to avoid
collisions. Anyone holding the token can join the session; there is no
server-side access control.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
		token := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
		fmt.Println(token.String())
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}
