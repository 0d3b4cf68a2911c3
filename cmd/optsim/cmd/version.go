package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the optsim CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("optsim version %s\n", version)
		fmt.Println("An intraday index options backtesting engine")
		fmt.Println("https://github.com/raviyer/optsim")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
