/*
Copyright © 2026 Sam Thambad
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/samthambad/naviin/internal/bootstrap"
)

// consoleCmd represents the interactive console command
var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "interactive portfolio session",
	Long: `Starts the line-oriented command console with the order monitor
running in the background against the same portfolio.

The console loads the portfolio into memory at start and saves it back
after every mutation, so it must not run alongside the order monitor
worker: each process would hold its own copy and the last saver wins.`,
	Run: bootstrap.StartConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}
