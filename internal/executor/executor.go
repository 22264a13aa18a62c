package executor

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/StatArbTrader/pairs-bot/internal/models"
	"github.com/StatArbTrader/pairs-bot/internal/position"
)

// Broker is the slice of the brokerage surface the executor needs.
type Broker interface {
	PlaceOrder(ctx context.Context, req *models.OrderRequest) (*models.Order, error)
	// GetPosition returns the open position for a symbol, or found=false when
	// the broker reports none.
	GetPosition(ctx context.Context, symbol string) (*models.Position, bool, error)
}

// LegResult records the outcome of one leg of a pairs order.
type LegResult struct {
	Symbol  string
	Side    models.OrderSide
	Qty     decimal.Decimal
	OrderID string
	Err     error
}

// ExecutionResult reports both legs of an entry or exit.
type ExecutionResult struct {
	LegA LegResult
	LegB LegResult
}

// PositionTooSmallError reports a computed leg quantity below one whole
// unit. No orders are placed.
type PositionTooSmallError struct {
	Symbol string
	Budget decimal.Decimal
	Price  decimal.Decimal
}

func (e *PositionTooSmallError) Error() string {
	return fmt.Sprintf("position budget $%s buys no whole share of %s at $%s",
		e.Budget.StringFixed(2), e.Symbol, e.Price.StringFixed(2))
}

// PartialFillError reports a two-leg order where one leg was placed and the
// other rejected. The state machine must not advance on it; the placed leg
// is unwound best-effort and reconciliation cleans up on the next start.
type PartialFillError struct {
	Placed    LegResult
	Failed    LegResult
	Unwound   bool
	UnwindErr error
}

func (e *PartialFillError) Error() string {
	msg := fmt.Sprintf("partial pairs order: %s %s placed, %s %s failed: %v",
		e.Placed.Side, e.Placed.Symbol, e.Failed.Side, e.Failed.Symbol, e.Failed.Err)
	if e.Unwound {
		return msg + " (placed leg unwound)"
	}
	if e.UnwindErr != nil {
		return fmt.Sprintf("%s (unwind also failed: %v)", msg, e.UnwindErr)
	}
	return msg
}

// Executor turns entry/exit decisions into coordinated two-leg market
// orders. The two orders have no atomicity at the brokerage, so entry runs
// as a saga: leg A, then leg B, with a compensating close of leg A when leg
// B is rejected.
type Executor struct {
	broker Broker
	logger *zap.Logger
	runID  string
	seq    uint64
}

var one = decimal.NewFromInt(1)

// New creates an executor. Client order IDs are tagged with a per-run UUID
// so broker-side order history can be tied back to a process run.
func New(broker Broker, logger *zap.Logger) *Executor {
	return &Executor{
		broker: broker,
		logger: logger,
		runID:  uuid.NewString()[:8],
	}
}

// Enter opens a two-leg spread position. Each leg is sized as
// floor(equity * riskFraction / price) whole shares; a leg below one share
// aborts with PositionTooSmallError before any order is placed.
func (x *Executor) Enter(ctx context.Context, symbolA, symbolB string, direction position.Mode,
	equity, priceA, priceB decimal.Decimal, riskFraction float64) (*ExecutionResult, error) {

	if priceA.IsZero() || priceB.IsZero() {
		return nil, fmt.Errorf("missing prices for %s/%s", symbolA, symbolB)
	}

	budget := equity.Mul(decimal.NewFromFloat(riskFraction))
	qtyA := budget.Div(priceA).Floor()
	qtyB := budget.Div(priceB).Floor()

	if qtyA.LessThan(one) {
		return nil, &PositionTooSmallError{Symbol: symbolA, Budget: budget, Price: priceA}
	}
	if qtyB.LessThan(one) {
		return nil, &PositionTooSmallError{Symbol: symbolB, Budget: budget, Price: priceB}
	}

	sideA, sideB := models.Buy, models.Sell
	if direction == position.ShortSpread {
		sideA, sideB = models.Sell, models.Buy
	}

	x.logger.Info("executing pairs entry",
		zap.String("direction", string(direction)),
		zap.String("leg_a", fmt.Sprintf("%s %s x%s", sideA, symbolA, qtyA)),
		zap.String("leg_b", fmt.Sprintf("%s %s x%s", sideB, symbolB, qtyB)),
		zap.String("budget", budget.StringFixed(2)),
	)

	result := &ExecutionResult{
		LegA: LegResult{Symbol: symbolA, Side: sideA, Qty: qtyA},
		LegB: LegResult{Symbol: symbolB, Side: sideB, Qty: qtyB},
	}

	orderA, err := x.submit(ctx, symbolA, qtyA, sideA, "a")
	if err != nil {
		result.LegA.Err = err
		return result, fmt.Errorf("leg A order %s %s: %w", sideA, symbolA, err)
	}
	result.LegA.OrderID = orderA.ID

	orderB, err := x.submit(ctx, symbolB, qtyB, sideB, "b")
	if err != nil {
		result.LegB.Err = err
		partial := &PartialFillError{Placed: result.LegA, Failed: result.LegB}
		x.unwind(ctx, partial, symbolA, qtyA, sideA)
		return result, partial
	}
	result.LegB.OrderID = orderB.ID

	return result, nil
}

// Exit closes whatever live broker quantity exists for each leg. A leg that
// is already flat is success: the desired end state holds. One closed leg
// and one rejected close is still a PartialFillError so the caller keeps
// the position state until the broker is actually flat.
func (x *Executor) Exit(ctx context.Context, symbolA, symbolB string) (*ExecutionResult, error) {
	result := &ExecutionResult{
		LegA: LegResult{Symbol: symbolA},
		LegB: LegResult{Symbol: symbolB},
	}

	closeErrA := x.closeLeg(ctx, &result.LegA, "a")
	closeErrB := x.closeLeg(ctx, &result.LegB, "b")

	switch {
	case closeErrA == nil && closeErrB == nil:
		return result, nil
	case closeErrA != nil && closeErrB != nil:
		return result, fmt.Errorf("both exit legs failed: %s: %v; %s: %v", symbolA, closeErrA, symbolB, closeErrB)
	case closeErrA != nil:
		return result, &PartialFillError{Placed: result.LegB, Failed: result.LegA}
	default:
		return result, &PartialFillError{Placed: result.LegA, Failed: result.LegB}
	}
}

func (x *Executor) closeLeg(ctx context.Context, leg *LegResult, tag string) error {
	pos, found, err := x.broker.GetPosition(ctx, leg.Symbol)
	if err != nil {
		leg.Err = err
		return err
	}
	if !found || pos.Qty.IsZero() {
		x.logger.Info("exit leg already flat", zap.String("symbol", leg.Symbol))
		return nil
	}

	side := models.Sell
	if pos.Qty.IsNegative() {
		side = models.Buy
	}
	qty := pos.Qty.Abs()

	order, err := x.submit(ctx, leg.Symbol, qty, side, "close-"+tag)
	if err != nil {
		leg.Err = err
		return err
	}

	leg.Side = side
	leg.Qty = qty
	leg.OrderID = order.ID
	return nil
}

// unwind submits the compensating order for a placed entry leg. Best
// effort: a failed unwind is recorded on the error and left to
// reconciliation.
func (x *Executor) unwind(ctx context.Context, partial *PartialFillError, symbol string, qty decimal.Decimal, side models.OrderSide) {
	opposite := models.Sell
	if side == models.Sell {
		opposite = models.Buy
	}

	x.logger.Error("pairs entry leg rejected, unwinding placed leg",
		zap.String("placed_symbol", symbol),
		zap.String("failed_symbol", partial.Failed.Symbol),
		zap.Error(partial.Failed.Err),
	)

	if _, err := x.submit(ctx, symbol, qty, opposite, "unwind"); err != nil {
		partial.UnwindErr = err
		x.logger.Error("unwind order failed, exposure requires reconciliation",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		return
	}
	partial.Unwound = true
}

func (x *Executor) submit(ctx context.Context, symbol string, qty decimal.Decimal, side models.OrderSide, tag string) (*models.Order, error) {
	seq := atomic.AddUint64(&x.seq, 1)
	req := &models.OrderRequest{
		Symbol:        symbol,
		Qty:           &qty,
		Side:          side,
		Type:          models.Market,
		TimeInForce:   models.Day,
		ClientOrderID: fmt.Sprintf("pairs-%s-%d-%s", x.runID, seq, tag),
	}
	return x.broker.PlaceOrder(ctx, req)
}
