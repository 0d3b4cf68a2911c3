package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/raviyer/optsim/sim"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a previously saved backtest report",
	Long: `Report reloads a JSON report produced by 'optsim backtest --out' and
prints the human readable summary.

Example:
  optsim report -f report.json`,
	RunE: runReport,
}

var reportPath string

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&reportPath, "file", "f", "", "path to saved report JSON (required)")
	reportCmd.MarkFlagRequired("file")
}

func runReport(cmd *cobra.Command, args []string) error {
	r, err := sim.LoadReport(reportPath)
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}

	sim.PrintReport(os.Stdout, r)
	return nil
}
