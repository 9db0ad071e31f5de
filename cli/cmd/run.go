/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ponyo877/codesh/cli/runner"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [source_file]",
	Short: "Executes a source file on the remote execution service",
	Long: `Submits a source file to the configured code execution service and
polls until the run finishes, then prints the output. Configure the service
with --runner / --runner-key or the config file.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runnerURL := viper.GetString(runnerURLKey)
		if runnerURL == "" {
			fmt.Fprintln(os.Stderr, "Error: no execution service configured, set --runner or runner_url in the config file")
			os.Exit(1)
		}

		source, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading source file: %v\n", err)
			os.Exit(1)
		}
		languageID, _ := cmd.Flags().GetInt("language-id")
		stdin, _ := cmd.Flags().GetString("stdin")

		client := runner.NewClient(runnerURL, viper.GetString(runnerAPIKeyKey))
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		result, err := client.Run(ctx, runner.Submission{
			LanguageID: languageID,
			SourceCode: string(source),
			Stdin:      stdin,
		}, 2*time.Second)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Execution failed: %v\n", err)
			os.Exit(1)
		}

		switch result.Status.ID {
		case runner.StatusAccepted:
			fmt.Print(result.Stdout)
		case runner.StatusCompileError:
			fmt.Fprintln(os.Stderr, "Compilation error:")
			fmt.Fprintln(os.Stderr, result.CompileOutput)
			os.Exit(1)
		case runner.StatusTimeLimit:
			fmt.Fprintln(os.Stderr, "Time limit exceeded")
			os.Exit(1)
		default:
			fmt.Fprintf(os.Stderr, "%s\n", result.Status.Description)
			if result.Stderr != "" {
				fmt.Fprintln(os.Stderr, result.Stderr)
			}
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().IntP("language-id", "l", 63, "Language identifier understood by the execution service")
	runCmd.Flags().StringP("stdin", "i", "", "Standard input passed to the program")
}
