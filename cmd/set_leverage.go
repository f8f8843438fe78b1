/*
Copyright © 2026 perpsim authors
*/
package cmd

import (
	"github.com/perpsim/perpsim/internal/bootstrap"
	"github.com/spf13/cobra"
)

// setLeverageCmd represents the setLeverage command
var setLeverageCmd = &cobra.Command{
	Use:   "set-leverage",
	Short: "Queue a leverage change",
	Long:  `Queues a leverage change. The engine applies it only while the position is flat.`,
	Run:   bootstrap.StartSetLeverage,
}

func init() {
	rootCmd.AddCommand(setLeverageCmd)
	setLeverageCmd.Flags().String("symbol", "", "trading symbol, overrides config")
	setLeverageCmd.Flags().Int64("leverage", 1, "leverage multiplier, minimum 1")
}
