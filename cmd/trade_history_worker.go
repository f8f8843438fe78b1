/*
Copyright © 2026 perpsim authors
*/
package cmd

import (
	"github.com/perpsim/perpsim/internal/bootstrap"
	"github.com/spf13/cobra"
)

// tradeHistoryWorkerCmd represents the tradeHistoryWorker command
var tradeHistoryWorkerCmd = &cobra.Command{
	Use:   "trade-history-worker",
	Short: "Consume trade events and persist them",
	Long: `Consumes trade events published by the engine and persists them to
postgres. Failed inserts are retried through the stream up to the
configured retry limit.`,
	Run: bootstrap.StartTradeHistoryWorker,
}

func init() {
	rootCmd.AddCommand(tradeHistoryWorkerCmd)
}
