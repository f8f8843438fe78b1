/*
Copyright © 2026 perpsim authors
*/
package cmd

import (
	"github.com/perpsim/perpsim/internal/bootstrap"
	"github.com/spf13/cobra"
)

// cancelOrderCmd represents the cancelOrder command
var cancelOrderCmd = &cobra.Command{
	Use:   "cancel-order",
	Short: "Queue a cancel for an open order",
	Long:  `Queues a cancel request for an order still waiting in the engine queue.`,
	Run:   bootstrap.StartCancelOrder,
}

func init() {
	rootCmd.AddCommand(cancelOrderCmd)
	cancelOrderCmd.Flags().String("symbol", "", "trading symbol, overrides config")
	cancelOrderCmd.Flags().Int64("id", 0, "order id to cancel")
}
