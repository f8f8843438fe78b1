/*
Copyright © 2026 perpsim authors
*/
package cmd

import (
	"github.com/perpsim/perpsim/internal/bootstrap"
	"github.com/spf13/cobra"
)

// submitOrderCmd represents the submitOrder command
var submitOrderCmd = &cobra.Command{
	Use:   "submit-order",
	Short: "Queue an order for a running engine",
	Long: `Queues an order through the redis command slot. Without --price the
order is a market order; with --price it is a limit order that waits in
the engine queue until the price reaches the limit.`,
	Run: bootstrap.StartSubmitOrder,
}

func init() {
	rootCmd.AddCommand(submitOrderCmd)
	submitOrderCmd.Flags().String("symbol", "", "trading symbol, overrides config")
	submitOrderCmd.Flags().String("side", "", "order side BUY|SELL")
	submitOrderCmd.Flags().String("quantity", "", "order quantity in base asset")
	submitOrderCmd.Flags().String("price", "", "limit price, omit for a market order")
}
