package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/StatArbTrader/pairs-bot/internal/alpaca"
	"github.com/StatArbTrader/pairs-bot/internal/cache"
	"github.com/StatArbTrader/pairs-bot/internal/config"
)

var (
	// Global instances
	cfg        *config.Config
	client     *alpaca.Client
	priceCache *cache.Cache
	logger     *zap.Logger

	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pairs-bot",
	Short: "Statistical arbitrage bot for one cointegrated equity pair",
	Long: `pairs-bot trades the spread between two historically correlated
equities on Alpaca. It validates the pair with an Engle-Granger
cointegration test, enters when the spread z-score stretches past the
entry threshold, and exits when the spread reverts.`,
	PersistentPreRunE: initializeApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogger)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is environment only)")
}

// initLogger builds the shared logger: default INFO, DEBUG if DEBUG env is truthy
func initLogger() {
	verbose := false
	if v := os.Getenv("DEBUG"); v == "true" || v == "1" || v == "yes" {
		verbose = true
	}

	zcfg := zap.NewProductionConfig()
	zcfg.EncoderConfig.TimeKey = "time"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	var err error
	logger, err = zcfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
}

// initializeApp sets up the dependencies every subcommand needs
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	client = alpaca.NewClient(cfg)
	priceCache = cache.NewCache(cfg.PriceStaleAfter)

	mode := "PAPER"
	if cfg.LiveTrading {
		mode = "LIVE"
	}
	logger.Info("pairs-bot initialized",
		zap.String("pair", cfg.PairName()),
		zap.String("mode", mode),
	)

	return nil
}

// checkLiveMode requires an interactive confirmation before trading real money
func checkLiveMode() error {
	if cfg.LiveTrading {
		fmt.Println("WARNING: You are in LIVE trading mode!")
		fmt.Print("Type 'confirm-live' to proceed: ")

		var confirm string
		fmt.Scanln(&confirm)

		if confirm != "confirm-live" {
			return fmt.Errorf("live trading not confirmed")
		}
	}
	return nil
}
