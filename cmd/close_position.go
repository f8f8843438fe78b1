/*
Copyright © 2026 perpsim authors
*/
package cmd

import (
	"github.com/perpsim/perpsim/internal/bootstrap"
	"github.com/spf13/cobra"
)

// closePositionCmd represents the closePosition command
var closePositionCmd = &cobra.Command{
	Use:   "close-position",
	Short: "Queue an order closing the open position",
	Long: `Reads the latest snapshot and queues an opposite-side order for the
full position quantity. With --price the close is a limit order.`,
	Run: bootstrap.StartClosePosition,
}

func init() {
	rootCmd.AddCommand(closePositionCmd)
	closePositionCmd.Flags().String("symbol", "", "trading symbol, overrides config")
	closePositionCmd.Flags().String("price", "", "limit price, omit for a market close")
}
