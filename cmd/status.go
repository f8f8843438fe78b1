/*
Copyright © 2026 perpsim authors
*/
package cmd

import (
	"github.com/perpsim/perpsim/internal/bootstrap"
	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the latest engine snapshot",
	Long:  `Prints the latest state snapshot published by a running engine.`,
	Run:   bootstrap.StartStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().String("symbol", "", "trading symbol, overrides config")
}
