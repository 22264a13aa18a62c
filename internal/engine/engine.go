package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/StatArbTrader/pairs-bot/internal/cache"
	"github.com/StatArbTrader/pairs-bot/internal/config"
	"github.com/StatArbTrader/pairs-bot/internal/executor"
	"github.com/StatArbTrader/pairs-bot/internal/metrics"
	"github.com/StatArbTrader/pairs-bot/internal/models"
	"github.com/StatArbTrader/pairs-bot/internal/position"
	"github.com/StatArbTrader/pairs-bot/internal/reconcile"
	"github.com/StatArbTrader/pairs-bot/internal/stats"
	"github.com/StatArbTrader/pairs-bot/internal/strategy"
)

// Broker is the brokerage and market data surface the engine needs. The
// Alpaca client satisfies it; tests script it.
type Broker interface {
	GetAccount(ctx context.Context) (*models.Account, error)
	GetDailyCloses(ctx context.Context, symbol string, lookbackDays int) (stats.PriceSeries, error)
	GetLatestTrade(ctx context.Context, symbol string) (*models.Trade, error)
	GetPosition(ctx context.Context, symbol string) (*models.Position, bool, error)
	PlaceOrder(ctx context.Context, req *models.OrderRequest) (*models.Order, error)
}

// Engine runs the decision loop: one cycle per poll interval, each cycle a
// straight-line pass from market data to statistics to decision to orders.
// Cycles never overlap; cancellation is honored between cycles.
type Engine struct {
	cfg        *config.Config
	broker     Broker
	exec       *executor.Executor
	machine    *position.Machine
	reconciler *reconcile.Reconciler
	evaluator  *strategy.Evaluator
	prices     *cache.Cache
	metrics    *metrics.Metrics
	logger     *zap.Logger
	cycleCount int
}

// New wires an engine from its parts.
func New(cfg *config.Config, broker Broker, exec *executor.Executor, machine *position.Machine,
	reconciler *reconcile.Reconciler, evaluator *strategy.Evaluator, prices *cache.Cache,
	m *metrics.Metrics, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:        cfg,
		broker:     broker,
		exec:       exec,
		machine:    machine,
		reconciler: reconciler,
		evaluator:  evaluator,
		prices:     prices,
		metrics:    m,
		logger:     logger,
	}
}

// Run reconciles once, then cycles until the context is canceled. An
// orphaned broker position aborts the run: trading on top of unknown
// exposure is never safe.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.reconciler.Run(ctx); err != nil {
		return fmt.Errorf("startup reconciliation: %w", err)
	}
	e.metrics.Reconciliations.Inc()

	e.logger.Info("engine started",
		zap.String("pair", e.cfg.PairName()),
		zap.Duration("poll_interval", e.cfg.PollInterval),
		zap.Bool("paper", e.cfg.IsPaperTrading()),
	)

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := e.Cycle(ctx); err != nil {
			var orphan *reconcile.OrphanedPositionError
			if errors.As(err, &orphan) {
				return err
			}
			e.logger.Error("cycle failed", zap.Error(err))
			e.metrics.CycleErrors.Inc()
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping", zap.Error(ctx.Err()))
			return nil
		case <-ticker.C:
		}
	}
}

// Cycle performs one full decision pass. Data and statistical failures skip
// the cycle; the position is never touched on a failed pass.
func (e *Engine) Cycle(ctx context.Context) error {
	started := time.Now()
	defer func() {
		e.metrics.CycleDuration.Observe(time.Since(started).Seconds())
		e.metrics.CyclesTotal.Inc()
	}()

	e.cycleCount++
	if e.cfg.ReconcileEvery > 0 && e.cycleCount%e.cfg.ReconcileEvery == 0 {
		if err := e.reconciler.Run(ctx); err != nil {
			return err
		}
		e.metrics.Reconciliations.Inc()
	}

	seriesA, err := e.broker.GetDailyCloses(ctx, e.cfg.SymbolA, e.cfg.LookbackDays)
	if err != nil {
		return fmt.Errorf("fetch %s history: %w", e.cfg.SymbolA, err)
	}
	seriesB, err := e.broker.GetDailyCloses(ctx, e.cfg.SymbolB, e.cfg.LookbackDays)
	if err != nil {
		return fmt.Errorf("fetch %s history: %w", e.cfg.SymbolB, err)
	}

	sample, err := stats.ComputeSpread(seriesA, seriesB, e.cfg.SpreadLookback)
	if err != nil {
		var insufficient *stats.InsufficientDataError
		if errors.As(err, &insufficient) {
			e.logger.Warn("not enough aligned history this cycle",
				zap.Int("have", insufficient.Have),
				zap.Int("need", insufficient.Need),
			)
			return nil
		}
		return err
	}
	e.metrics.Spread.Set(sample.Spread)
	e.metrics.ZScore.Set(sample.ZScore)

	state := e.machine.Current()

	// The cointegration test only gates entries, so skip the expense while a
	// position is open.
	var verdict stats.CointegrationVerdict
	if state.Mode == position.Flat {
		verdict, err = stats.TestCointegration(seriesA, seriesB)
		if err != nil {
			var statErr *stats.StatisticalTestError
			if errors.As(err, &statErr) {
				e.logger.Warn("cointegration test failed, holding", zap.Error(err))
				return nil
			}
			return err
		}
		e.metrics.CointPValue.Set(verdict.PValue)
	}

	decision := e.evaluator.Evaluate(state.Mode, sample.ZScore, verdict)

	fields := []zap.Field{
		zap.String("pair", e.cfg.PairName()),
		zap.String("mode", string(state.Mode)),
		zap.Float64("spread", sample.Spread),
		zap.Float64("z_score", sample.ZScore),
		zap.String("decision", string(decision)),
	}
	// The verdict only exists when the test ran; logging the zero value would
	// read as a failed test in the audit trail.
	if state.Mode == position.Flat {
		fields = append(fields,
			zap.Float64("p_value", verdict.PValue),
			zap.Bool("cointegrated", verdict.IsCointegrated),
		)
	}
	e.logger.Info("cycle decision", fields...)
	e.metrics.Decisions.WithLabelValues(string(decision)).Inc()

	switch decision {
	case strategy.EnterLongSpread:
		return e.enter(ctx, position.LongSpread, sample.ZScore, seriesA, seriesB)
	case strategy.EnterShortSpread:
		return e.enter(ctx, position.ShortSpread, sample.ZScore, seriesA, seriesB)
	case strategy.Exit:
		return e.exit(ctx)
	default:
		e.metrics.SetPositionMode(string(state.Mode))
		return nil
	}
}

func (e *Engine) enter(ctx context.Context, direction position.Mode, entryZ float64,
	seriesA, seriesB stats.PriceSeries) error {

	account, err := e.broker.GetAccount(ctx)
	if err != nil {
		return fmt.Errorf("fetch account: %w", err)
	}

	priceA := e.legPrice(ctx, e.cfg.SymbolA, seriesA)
	priceB := e.legPrice(ctx, e.cfg.SymbolB, seriesB)

	result, err := e.exec.Enter(ctx, e.cfg.SymbolA, e.cfg.SymbolB, direction,
		account.Equity, priceA, priceB, e.cfg.RiskFraction)
	if err != nil {
		e.metrics.OrderFailures.Inc()

		var tooSmall *executor.PositionTooSmallError
		if errors.As(err, &tooSmall) {
			e.logger.Warn("entry skipped, budget below one share", zap.Error(err))
			return nil
		}
		// Partial fills and rejections leave the state machine untouched;
		// reconciliation repairs whatever exposure remains.
		return fmt.Errorf("entry execution: %w", err)
	}

	e.countLegs(result)
	if err := e.machine.CommitEntry(direction, entryZ, time.Now().UTC()); err != nil {
		return fmt.Errorf("commit entry: %w", err)
	}
	e.metrics.SetPositionMode(string(direction))
	return nil
}

func (e *Engine) exit(ctx context.Context) error {
	result, err := e.exec.Exit(ctx, e.cfg.SymbolA, e.cfg.SymbolB)
	if err != nil {
		e.metrics.OrderFailures.Inc()
		// The position stays open in local state until the broker confirms a
		// flat book; the next cycle retries the exit.
		return fmt.Errorf("exit execution: %w", err)
	}

	e.countLegs(result)
	if err := e.machine.CommitExit(time.Now().UTC()); err != nil {
		return fmt.Errorf("commit exit: %w", err)
	}
	e.metrics.SetPositionMode(string(position.Flat))
	return nil
}

// legPrice prefers a fresh streamed trade, then the latest trade over REST,
// and finally the latest daily close already fetched for the statistics.
func (e *Engine) legPrice(ctx context.Context, symbol string, series stats.PriceSeries) decimal.Decimal {
	if e.prices != nil {
		if price, ok := e.prices.LatestPrice(symbol); ok {
			return price
		}
	}
	if trade, err := e.broker.GetLatestTrade(ctx, symbol); err == nil && !trade.Price.IsZero() {
		return trade.Price
	}
	if len(series) == 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(series[len(series)-1].Price)
}

func (e *Engine) countLegs(result *executor.ExecutionResult) {
	for _, leg := range []executor.LegResult{result.LegA, result.LegB} {
		if leg.OrderID != "" {
			e.metrics.OrdersPlaced.WithLabelValues(string(leg.Side)).Inc()
		}
	}
}
