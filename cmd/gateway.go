/*
Copyright © 2026 Sam Thambad
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/samthambad/naviin/internal/bootstrap"
)

// gatewayCmd represents the http gateway command
var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "serve the portfolio http api",
	Long: `Serves portfolio summary, holdings, trades and open orders over
HTTP, accepts conditional order placement and streams watchlist quotes
over a websocket.`,
	Run: bootstrap.StartGateway,
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
}
