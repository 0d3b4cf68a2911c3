package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/raviyer/optsim/config"
	"github.com/raviyer/optsim/greeks"
	"github.com/raviyer/optsim/journal"
	"github.com/raviyer/optsim/market"
	"github.com/raviyer/optsim/sim"
	"github.com/raviyer/optsim/strategies"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay a bar dataset through the pullback strategy",
	Long: `Backtest replays synchronized underlying and option bars through the
EMA pullback strategy and the position lifecycle, then prints a report.

Bar data is read from a JSON dataset (bars plus optional contracts and
expiry) or a CSV of rows:

  timestamp_ms,u_open,u_high,u_low,u_close,u_volume,o_open,o_high,o_low,o_close,o_volume

Example:
  optsim backtest --bars data/nifty.json --db runs.sqlite --out report.json`,
	RunE: runBacktest,
}

var (
	btBarsPath   string
	btConfigPath string
	btDBPath     string
	btCSVPrefix  string
	btOutPath    string
	btCapital    float64
	btLotSize    float64
	btExpiry     string
	btNoGreeks   bool
	btNoSlippage bool
	btQuiet      bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btBarsPath, "bars", "b", "", "path to bar data (.json dataset or .csv rows) (required)")
	backtestCmd.Flags().StringVarP(&btConfigPath, "config", "c", "", "path to config file (defaults used when empty)")
	backtestCmd.Flags().StringVarP(&btDBPath, "db", "d", "", "journal executions and equity to a SQLite DB at this path")
	backtestCmd.Flags().StringVar(&btCSVPrefix, "csv", "", "journal to <prefix>_executions.csv and <prefix>_equity.csv")
	backtestCmd.Flags().StringVarP(&btOutPath, "out", "o", "", "save the full report as JSON at this path")
	backtestCmd.Flags().Float64Var(&btCapital, "capital", 0, "override initial capital")
	backtestCmd.Flags().Float64Var(&btLotSize, "lots", 0, "override quantity per entry")
	backtestCmd.Flags().StringVar(&btExpiry, "expiry", "", "option expiry date YYYY-MM-DD (overrides dataset)")
	backtestCmd.Flags().BoolVar(&btNoGreeks, "no-greeks", false, "disable greeks gating at entry")
	backtestCmd.Flags().BoolVar(&btNoSlippage, "no-slippage", false, "disable slippage on fills")
	backtestCmd.Flags().BoolVarP(&btQuiet, "quiet", "q", false, "suppress per-trade logging")

	backtestCmd.MarkFlagRequired("bars")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if btConfigPath != "" {
		loaded, err := config.LoadFromFile(btConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if btCapital > 0 {
		cfg.Backtest.InitialCapital = btCapital
	}
	if btLotSize > 0 {
		cfg.Backtest.LotSize = btLotSize
	}
	if btNoGreeks {
		cfg.Greeks.Enabled = false
	}
	if btNoSlippage {
		cfg.Slippage.Enabled = false
	}

	feed, contracts, expiry, err := openFeed(btBarsPath)
	if err != nil {
		return fmt.Errorf("open bars: %w", err)
	}
	if btExpiry != "" {
		expiry = btExpiry
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	j, err := openJournal(cfg)
	if err != nil {
		return err
	}
	if j != nil {
		defer j.Close()
		engine.SetJournal(j)
	}

	if !btQuiet {
		log := logrus.New()
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		engine.SetObserver(sim.NewLogObserver(log))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Running backtest\n")
	fmt.Printf("  Bars: %s\n", btBarsPath)
	if expiry != "" {
		fmt.Printf("  Expiry: %s\n", expiry)
	}
	fmt.Printf("  Capital: %.2f, lots: %.0f\n\n", cfg.Backtest.InitialCapital, cfg.Backtest.LotSize)

	report, err := engine.Run(ctx, feed, contracts, expiry)
	if err != nil && report == nil {
		return fmt.Errorf("run: %w", err)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "interrupted, results are partial: %v\n\n", err)
	}

	sim.PrintReport(os.Stdout, report)

	if btOutPath != "" {
		if err := report.Save(btOutPath); err != nil {
			return err
		}
		fmt.Printf("\nReport saved: %s\n", btOutPath)
	}
	return nil
}

// openFeed picks the parser by extension: .csv is the flat row format,
// anything else the JSON dataset.
func openFeed(path string) (market.BarFeed, []market.Contract, string, error) {
	if strings.HasSuffix(strings.ToLower(path), ".csv") {
		feed, err := market.NewCSVBarsFeed(path)
		if err != nil {
			return nil, nil, "", err
		}
		return feed, nil, "", nil
	}

	ds, err := market.LoadDataset(path)
	if err != nil {
		return nil, nil, "", err
	}
	return market.NewSliceFeed(ds.Bars), ds.Contracts, ds.Expiry, nil
}

func buildEngine(cfg *config.Config) (*sim.Engine, error) {
	windows, err := config.ParseWindows(cfg.Strategy.Sessions)
	if err != nil {
		return nil, err
	}

	strat, err := strategies.NewPullback(strategies.PullbackConfig{
		FastTrendPeriod:  cfg.Strategy.FastTrendPeriod,
		SlowTrendPeriod:  cfg.Strategy.SlowTrendPeriod,
		AggregateRatio:   cfg.Strategy.AggregateRatio,
		FastPullPeriod:   cfg.Strategy.FastPullPeriod,
		SlowPullPeriod:   cfg.Strategy.SlowPullPeriod,
		RSIPeriod:        cfg.Strategy.RSIPeriod,
		RSIBullThreshold: cfg.Strategy.RSIBullThreshold,
		RSIBearThreshold: cfg.Strategy.RSIBearThreshold,
		TolerancePoints:  cfg.Strategy.TolerancePoints,
		ATRPeriod:        cfg.Strategy.ATRPeriod,
		ATRToleranceFrac: cfg.Strategy.ATRToleranceFrac,
		VolumeSurgeMult:  cfg.Strategy.VolumeSurgeMult,
		VolumeLookback:   cfg.Strategy.VolumeLookback,
		MinCandles:       cfg.Strategy.MinCandles,
		SessionWindows:   windows,
	})
	if err != nil {
		return nil, fmt.Errorf("strategy: %w", err)
	}

	bookCfg := sim.BookConfig{
		StopLossPct:       cfg.Risk.StopLossPct,
		TargetPct:         cfg.Risk.TargetPct,
		PartialFraction:   cfg.Risk.PartialFraction,
		TrailingBufferPct: cfg.Risk.TrailingBufferPct,
		TrailEMAPeriod:    cfg.Risk.TrailEMAPeriod,
	}
	if cfg.Risk.FlattenTime != "" {
		if bookCfg.FlattenTime, err = config.ParseDayTime(cfg.Risk.FlattenTime); err != nil {
			return nil, err
		}
	}
	if cfg.Risk.HardExitTime != "" {
		if bookCfg.HardExitTime, err = config.ParseDayTime(cfg.Risk.HardExitTime); err != nil {
			return nil, err
		}
	}

	var slip sim.SlippageModel
	if cfg.Slippage.Enabled {
		slip = sim.SlippageModel{
			BaseImpactPct:   cfg.Slippage.BaseImpactPct,
			VolumeImpactPct: cfg.Slippage.VolumeImpactPct,
			MaxImpactPct:    cfg.Slippage.MaxImpactPct,
			FallbackVolume:  cfg.Slippage.FallbackVolume,
		}
	}

	costs := sim.CostModel{
		BrokeragePerOrder:  cfg.Costs.BrokeragePerOrder,
		STTPct:             cfg.Costs.STTPct,
		ExchangeChargesPct: cfg.Costs.ExchangeChargesPct,
		GSTPct:             cfg.Costs.GSTPct,
	}

	book, err := sim.NewBook(bookCfg, slip, costs)
	if err != nil {
		return nil, fmt.Errorf("book: %w", err)
	}

	gre := greeks.NewEngine()
	if cfg.Greeks.RiskFreeRate > 0 {
		gre.RiskFreeRate = cfg.Greeks.RiskFreeRate
	}

	engCfg := sim.EngineConfig{
		InitialCapital: cfg.Backtest.InitialCapital,
		LotSize:        cfg.Backtest.LotSize,
		EnableGreeks:   cfg.Greeks.Enabled,
		MinDelta:       cfg.Greeks.MinDelta,
		MaxDelta:       cfg.Greeks.MaxDelta,
		MaxIVPct:       cfg.Greeks.MaxIVPct,
		DefaultTTEDays: cfg.Greeks.DefaultTTEDays,
	}
	if engCfg.DefaultTTEDays == 0 {
		engCfg.DefaultTTEDays = 5
	}

	selector := sim.StrikeSelector{Offset: cfg.Backtest.StrikeOffset}

	return sim.NewEngine(engCfg, strat, book, gre, selector)
}

// openJournal builds the journal from config, with the --db and --csv
// flags taking precedence.
func openJournal(cfg *config.Config) (journal.Journal, error) {
	switch {
	case btDBPath != "":
		return journal.NewSQLite(btDBPath)
	case btCSVPrefix != "":
		return journal.NewCSV(btCSVPrefix+"_executions.csv", btCSVPrefix+"_equity.csv")
	}

	switch cfg.Journal.Type {
	case "sqlite":
		return journal.NewSQLite(cfg.Journal.DBPath)
	case "csv":
		return journal.NewCSV(cfg.Journal.ExecutionsFile, cfg.Journal.EquityFile)
	}
	return nil, nil
}
