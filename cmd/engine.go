/*
Copyright © 2026 perpsim authors
*/
package cmd

import (
	"github.com/perpsim/perpsim/internal/bootstrap"
	"github.com/spf13/cobra"
)

// engineCmd represents the engine command
var engineCmd = &cobra.Command{
	Use:   "engine",
	Short: "Run the matching and settlement engine",
	Long: `Runs the tick loop: subscribes to the price feed, ingests commands
from redis, checks liquidation, matches queued orders and publishes a
state snapshot once per tick.`,
	Run: bootstrap.StartEngine,
}

func init() {
	rootCmd.AddCommand(engineCmd)
	engineCmd.Flags().String("symbol", "", "trading symbol, overrides config")
	engineCmd.Flags().Int64("balance", 0, "starting balance in quote asset, overrides config")
	engineCmd.Flags().String("fee", "", "taker fee rate as a fraction, overrides config")
}
