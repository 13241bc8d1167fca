/*
Copyright © 2026 Sam Thambad
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/samthambad/naviin/internal/bootstrap"
)

// orderMonitorWorkerCmd represents the headless execution engine command
var orderMonitorWorkerCmd = &cobra.Command{
	Use:   "order-monitor-worker",
	Short: "run the conditional order execution engine",
	Long: `Polls live prices on an interval, executes triggered conditional
orders, persists the portfolio and publishes one event per execution.

The worker loads the portfolio into memory at start and saves it back on
every execution, so it must not run alongside the console: each process
would hold its own copy and the last saver wins.`,
	Run: bootstrap.StartOrderMonitorWorker,
}

func init() {
	rootCmd.AddCommand(orderMonitorWorkerCmd)
}
