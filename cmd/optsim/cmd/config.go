package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raviyer/optsim/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage configuration files for backtests.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  optsim config init --output backtest.yaml
  optsim config validate --file backtest.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with default settings.

Example:
  optsim config init --output backtest.yaml`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check if a configuration file is valid and can be loaded.

Example:
  optsim config validate --file backtest.yaml`,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "backtest.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Created default configuration: %s\n", configInitOutput)
	fmt.Println("\nEdit the file and run with:")
	fmt.Printf("  optsim backtest --bars data.json --config %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Printf("✓ Configuration valid: %s\n", configValidatePath)
	fmt.Printf("  Capital: %.2f, lots: %.0f\n", cfg.Backtest.InitialCapital, cfg.Backtest.LotSize)
	fmt.Printf("  Sessions: %v\n", cfg.Strategy.Sessions)
	fmt.Printf("  Stop/Target: %.0f%% / %.0f%%\n", cfg.Risk.StopLossPct, cfg.Risk.TargetPct)
	journalType := cfg.Journal.Type
	if journalType == "" {
		journalType = "none"
	}
	fmt.Printf("  Journal: %s\n", journalType)
	return nil
}
