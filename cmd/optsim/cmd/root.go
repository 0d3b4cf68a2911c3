package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "optsim",
	Short: "An intraday index options backtesting engine",
	Long: `Optsim replays synchronized underlying and option bars through an
intraday pullback strategy and a full position lifecycle.

It provides tools for:
  - Backtesting an EMA pullback strategy on minute bars
  - Black-Scholes implied volatility and greeks gating at entry
  - Slippage and Indian market transaction cost modeling
  - Partial profit taking, breakeven and trailing stops
  - Journaling executions and equity to SQLite or CSV

Complete documentation is available at https://github.com/raviyer/optsim`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
