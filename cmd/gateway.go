/*
Copyright © 2026 perpsim authors
*/
package cmd

import (
	"github.com/perpsim/perpsim/internal/bootstrap"
	"github.com/spf13/cobra"
)

// gatewayCmd represents the gateway command
var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the HTTP gateway",
	Long: `Serves the HTTP API in front of a running engine. Order, cancel and
leverage requests are queued through redis command slots; the snapshot
endpoint reads the latest published engine state.`,
	Run: bootstrap.StartGateway,
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
}
