package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete backtest configuration
type Config struct {
	Backtest BacktestConfig `json:"backtest" yaml:"backtest"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Risk     RiskConfig     `json:"risk" yaml:"risk"`
	Costs    CostsConfig    `json:"costs" yaml:"costs"`
	Slippage SlippageConfig `json:"slippage" yaml:"slippage"`
	Greeks   GreeksConfig   `json:"greeks" yaml:"greeks"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
}

// BacktestConfig contains run-level parameters
type BacktestConfig struct {
	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital"`
	LotSize        float64 `json:"lot_size" yaml:"lot_size"`
	// StrikeOffset shifts the selected strike away from the money, in
	// strike steps. 0 means at-the-money.
	StrikeOffset int `json:"strike_offset" yaml:"strike_offset"`
}

// StrategyConfig contains signal generation parameters
type StrategyConfig struct {
	FastTrendPeriod  int     `json:"fast_trend_period" yaml:"fast_trend_period"`
	SlowTrendPeriod  int     `json:"slow_trend_period" yaml:"slow_trend_period"`
	AggregateRatio   int     `json:"aggregate_ratio" yaml:"aggregate_ratio"`
	FastPullPeriod   int     `json:"fast_pull_period" yaml:"fast_pull_period"`
	SlowPullPeriod   int     `json:"slow_pull_period" yaml:"slow_pull_period"`
	RSIPeriod        int     `json:"rsi_period" yaml:"rsi_period"`
	RSIBullThreshold float64 `json:"rsi_bull_threshold" yaml:"rsi_bull_threshold"`
	RSIBearThreshold float64 `json:"rsi_bear_threshold" yaml:"rsi_bear_threshold"`
	TolerancePoints  float64 `json:"tolerance_points" yaml:"tolerance_points"`
	ATRPeriod        int     `json:"atr_period" yaml:"atr_period"`
	ATRToleranceFrac float64 `json:"atr_tolerance_frac" yaml:"atr_tolerance_frac"`
	VolumeSurgeMult  float64 `json:"volume_surge_mult" yaml:"volume_surge_mult"`
	VolumeLookback   int     `json:"volume_lookback" yaml:"volume_lookback"`
	MinCandles       int     `json:"min_candles" yaml:"min_candles"`
	// Sessions are intraday trading windows in HH:MM-HH:MM form,
	// e.g. "09:35-11:30".
	Sessions []string `json:"sessions" yaml:"sessions"`
}

// RiskConfig contains position management parameters. StopLossPct and
// TargetPct are premium percentages (30 means a 30% stop); the partial
// fraction and trailing buffer are plain fractions.
type RiskConfig struct {
	StopLossPct       float64 `json:"stop_loss_pct" yaml:"stop_loss_pct"`
	TargetPct         float64 `json:"target_pct" yaml:"target_pct"`
	PartialFraction   float64 `json:"partial_fraction" yaml:"partial_fraction"`
	TrailingBufferPct float64 `json:"trailing_buffer_pct" yaml:"trailing_buffer_pct"`
	TrailEMAPeriod    int     `json:"trail_ema_period" yaml:"trail_ema_period"`
	FlattenTime       string  `json:"flatten_time" yaml:"flatten_time"`
	HardExitTime      string  `json:"hard_exit_time" yaml:"hard_exit_time"`
}

// CostsConfig contains transaction cost parameters
type CostsConfig struct {
	BrokeragePerOrder  float64 `json:"brokerage_per_order" yaml:"brokerage_per_order"`
	STTPct             float64 `json:"stt_pct" yaml:"stt_pct"`
	ExchangeChargesPct float64 `json:"exchange_charges_pct" yaml:"exchange_charges_pct"`
	GSTPct             float64 `json:"gst_pct" yaml:"gst_pct"`
}

// SlippageConfig contains fill price impact parameters
type SlippageConfig struct {
	Enabled         bool    `json:"enabled" yaml:"enabled"`
	BaseImpactPct   float64 `json:"base_impact_pct" yaml:"base_impact_pct"`
	VolumeImpactPct float64 `json:"volume_impact_pct" yaml:"volume_impact_pct"`
	MaxImpactPct    float64 `json:"max_impact_pct" yaml:"max_impact_pct"`
	FallbackVolume  float64 `json:"fallback_volume" yaml:"fallback_volume"`
}

// GreeksConfig contains entry gating parameters
type GreeksConfig struct {
	Enabled        bool    `json:"enabled" yaml:"enabled"`
	MinDelta       float64 `json:"min_delta" yaml:"min_delta"`
	MaxDelta       float64 `json:"max_delta" yaml:"max_delta"`
	MaxIVPct       float64 `json:"max_iv_pct" yaml:"max_iv_pct"`
	RiskFreeRate   float64 `json:"risk_free_rate" yaml:"risk_free_rate"`
	DefaultTTEDays float64 `json:"default_tte_days" yaml:"default_tte_days"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type           string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	ExecutionsFile string `json:"executions_file,omitempty" yaml:"executions_file,omitempty"`
	EquityFile     string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath         string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoadFromFile loads configuration from a file (JSON or YAML based on content)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("backtest.initial_capital must be positive")
	}
	if c.Backtest.LotSize <= 0 {
		return fmt.Errorf("backtest.lot_size must be positive")
	}
	if c.Backtest.StrikeOffset < 0 {
		return fmt.Errorf("backtest.strike_offset must not be negative")
	}
	if c.Strategy.FastTrendPeriod <= 0 || c.Strategy.SlowTrendPeriod <= c.Strategy.FastTrendPeriod {
		return fmt.Errorf("strategy trend periods must satisfy 0 < fast < slow")
	}
	if c.Strategy.FastPullPeriod <= 0 || c.Strategy.SlowPullPeriod <= c.Strategy.FastPullPeriod {
		return fmt.Errorf("strategy pullback periods must satisfy 0 < fast < slow")
	}
	if c.Strategy.AggregateRatio <= 0 {
		return fmt.Errorf("strategy.aggregate_ratio must be positive")
	}
	if c.Strategy.RSIPeriod <= 0 {
		return fmt.Errorf("strategy.rsi_period must be positive")
	}
	if c.Strategy.RSIBullThreshold <= c.Strategy.RSIBearThreshold {
		return fmt.Errorf("strategy.rsi_bull_threshold must be above rsi_bear_threshold")
	}
	for _, s := range c.Strategy.Sessions {
		if _, err := ParseWindow(s); err != nil {
			return fmt.Errorf("strategy.sessions: %w", err)
		}
	}
	if c.Risk.StopLossPct <= 0 || c.Risk.StopLossPct >= 100 {
		return fmt.Errorf("risk.stop_loss_pct must be between 0 and 100")
	}
	if c.Risk.TargetPct <= 0 {
		return fmt.Errorf("risk.target_pct must be positive")
	}
	if c.Risk.PartialFraction <= 0 || c.Risk.PartialFraction >= 1 {
		return fmt.Errorf("risk.partial_fraction must be in (0, 1)")
	}
	if c.Risk.FlattenTime != "" {
		if _, err := ParseDayTime(c.Risk.FlattenTime); err != nil {
			return fmt.Errorf("risk.flatten_time: %w", err)
		}
	}
	if c.Risk.HardExitTime != "" {
		if _, err := ParseDayTime(c.Risk.HardExitTime); err != nil {
			return fmt.Errorf("risk.hard_exit_time: %w", err)
		}
	}
	if c.Costs.BrokeragePerOrder < 0 || c.Costs.STTPct < 0 || c.Costs.ExchangeChargesPct < 0 || c.Costs.GSTPct < 0 {
		return fmt.Errorf("cost rates must not be negative")
	}
	if c.Slippage.Enabled && c.Slippage.MaxImpactPct <= 0 {
		return fmt.Errorf("slippage.max_impact_pct must be positive when slippage is enabled")
	}
	if c.Greeks.Enabled {
		if c.Greeks.MinDelta < 0 || c.Greeks.MaxDelta <= c.Greeks.MinDelta {
			return fmt.Errorf("greeks delta band must satisfy 0 <= min < max")
		}
		if c.Greeks.MaxIVPct <= 0 {
			return fmt.Errorf("greeks.max_iv_pct must be positive")
		}
		if c.Greeks.DefaultTTEDays <= 0 {
			return fmt.Errorf("greeks.default_tte_days must be positive")
		}
	}
	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.ExecutionsFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal executions_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Backtest: BacktestConfig{
			InitialCapital: 100000,
			LotSize:        50,
			StrikeOffset:   0,
		},
		Strategy: StrategyConfig{
			FastTrendPeriod:  20,
			SlowTrendPeriod:  50,
			AggregateRatio:   3,
			FastPullPeriod:   9,
			SlowPullPeriod:   21,
			RSIPeriod:        14,
			RSIBullThreshold: 55,
			RSIBearThreshold: 45,
			TolerancePoints:  5.0,
			ATRPeriod:        14,
			ATRToleranceFrac: 0.25,
			VolumeSurgeMult:  1.2,
			VolumeLookback:   10,
			MinCandles:       100,
			Sessions:         []string{"09:35-11:30", "13:45-15:10"},
		},
		Risk: RiskConfig{
			StopLossPct:       30,
			TargetPct:         50,
			PartialFraction:   0.50,
			TrailingBufferPct: 0.04,
			TrailEMAPeriod:    9,
			FlattenTime:       "15:10",
			HardExitTime:      "15:20",
		},
		Costs: CostsConfig{
			BrokeragePerOrder:  20,
			STTPct:             0.0005,
			ExchangeChargesPct: 0.00035,
			GSTPct:             0.18,
		},
		Slippage: SlippageConfig{
			Enabled:         true,
			BaseImpactPct:   0.0005,
			VolumeImpactPct: 0.001,
			MaxImpactPct:    0.01,
			FallbackVolume:  5000,
		},
		Greeks: GreeksConfig{
			Enabled:        true,
			MinDelta:       0.35,
			MaxDelta:       0.70,
			MaxIVPct:       80,
			RiskFreeRate:   0.065,
			DefaultTTEDays: 5,
		},
		Journal: JournalConfig{
			Type: "none",
		},
	}
}
