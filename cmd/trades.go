/*
Copyright © 2026 perpsim authors
*/
package cmd

import (
	"github.com/perpsim/perpsim/internal/bootstrap"
	"github.com/spf13/cobra"
)

// tradesCmd represents the trades command
var tradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "Print recent trade history",
	Long:  `Prints the most recent trade history rows persisted by the worker.`,
	Run:   bootstrap.StartTrades,
}

func init() {
	rootCmd.AddCommand(tradesCmd)
	tradesCmd.Flags().String("symbol", "", "trading symbol, overrides config")
	tradesCmd.Flags().Uint64("limit", 20, "maximum rows to print")
}
