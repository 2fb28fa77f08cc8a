// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bitbucket-stats",
	Short: "A CLI tool to aggregate Bitbucket workspace activity.",
	Long: `bitbucket-stats fetches commits, pull requests and diffstats for every
repository in a Bitbucket workspace, aggregates them per repository and
month, and renders CSV tables, charts and an HTML/PDF report.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
}
