package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/StatArbTrader/pairs-bot/internal/engine"
	"github.com/StatArbTrader/pairs-bot/internal/executor"
	"github.com/StatArbTrader/pairs-bot/internal/metrics"
	"github.com/StatArbTrader/pairs-bot/internal/position"
	"github.com/StatArbTrader/pairs-bot/internal/reconcile"
	"github.com/StatArbTrader/pairs-bot/internal/strategy"
	"github.com/StatArbTrader/pairs-bot/internal/websocket"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading loop until interrupted",
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	if err := checkLiveMode(); err != nil {
		return err
	}

	store, err := position.NewFileStore(cfg.StatePath)
	if err != nil {
		return err
	}
	machine, err := position.NewMachine(store, cfg.SymbolA, cfg.SymbolB, logger)
	if err != nil {
		return err
	}

	m, registry := metrics.New()
	metrics.Serve(cfg.MetricsAddr, registry, logger)

	stream := websocket.NewStreamClient(cfg, priceCache, logger)
	if err := stream.Connect(); err != nil {
		// The stream only improves sizing prices; REST lookups still work.
		logger.Warn("trade stream unavailable, falling back to REST prices for sizing", zap.Error(err))
	}
	defer stream.Close()

	eng := engine.New(cfg, client,
		executor.New(client, logger),
		machine,
		reconcile.New(client, machine, logger),
		strategy.NewEvaluator(cfg.EntryThreshold, cfg.ExitThreshold, cfg.CointGate, logger),
		priceCache, m, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return eng.Run(ctx)
}
