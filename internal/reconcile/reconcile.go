package reconcile

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/StatArbTrader/pairs-bot/internal/models"
	"github.com/StatArbTrader/pairs-bot/internal/position"
)

// PositionLister is the broker surface reconciliation needs.
type PositionLister interface {
	GetPositions(ctx context.Context) ([]*models.Position, error)
}

// OrphanedPositionError reports live broker exposure that the persisted state
// does not know about. The bot must not trade through it; a human closes or
// adopts the position.
type OrphanedPositionError struct {
	Symbol string
	Qty    decimal.Decimal
}

func (e *OrphanedPositionError) Error() string {
	return fmt.Sprintf("broker holds %s %s but local state is flat; manual intervention required",
		e.Qty, e.Symbol)
}

// Reconciler compares persisted position state against broker-reported
// positions and repairs the divergences it can. The broker is ground truth.
type Reconciler struct {
	broker  PositionLister
	machine *position.Machine
	logger  *zap.Logger
}

func New(broker PositionLister, machine *position.Machine, logger *zap.Logger) *Reconciler {
	return &Reconciler{broker: broker, machine: machine, logger: logger}
}

// Run performs one reconciliation pass. It is idempotent: a second pass over
// an already-consistent state changes nothing.
//
// Divergences:
//   - state open, broker flat on both legs: the state is stale (a crash
//     between order fill and persistence, or a manual close). Reset to flat.
//   - state flat, broker holding either leg: refuse to continue with an
//     OrphanedPositionError.
//   - state open, broker holding at least one leg: consistent enough; a
//     half-open book is left for the next exit to close, but a leg whose
//     sign contradicts the persisted mode is reported.
func (r *Reconciler) Run(ctx context.Context) error {
	state := r.machine.Current()

	positions, err := r.broker.GetPositions(ctx)
	if err != nil {
		return fmt.Errorf("reconcile %s: %w", state.SymbolA+"/"+state.SymbolB, err)
	}

	qtyA, qtyB := decimal.Zero, decimal.Zero
	for _, pos := range positions {
		switch pos.Symbol {
		case state.SymbolA:
			qtyA = pos.Qty
		case state.SymbolB:
			qtyB = pos.Qty
		}
	}

	brokerFlat := qtyA.IsZero() && qtyB.IsZero()

	switch {
	case state.Open() && brokerFlat:
		r.logger.Warn("persisted position has no broker exposure, resetting to flat",
			zap.String("persisted_mode", string(state.Mode)),
		)
		if err := r.machine.ForceFlat(); err != nil {
			return fmt.Errorf("reset stale position state: %w", err)
		}
		return nil

	case !state.Open() && !brokerFlat:
		orphan := &OrphanedPositionError{Symbol: state.SymbolA, Qty: qtyA}
		if qtyA.IsZero() {
			orphan = &OrphanedPositionError{Symbol: state.SymbolB, Qty: qtyB}
		}
		r.logger.Error("broker reports exposure unknown to local state",
			zap.String("symbol", orphan.Symbol),
			zap.String("qty", orphan.Qty.String()),
		)
		return orphan

	default:
		if state.Open() {
			r.checkDirection(state, qtyA, qtyB)
		}
		r.logger.Debug("position state consistent with broker",
			zap.String("mode", string(state.Mode)),
			zap.String("qty_a", qtyA.String()),
			zap.String("qty_b", qtyB.String()),
		)
		return nil
	}
}

// checkDirection flags held legs whose sign contradicts the persisted mode.
// LONG_SPREAD expects a positive A leg and a negative B leg, SHORT_SPREAD the
// reverse. A zero leg is half-open and left for the next exit.
func (r *Reconciler) checkDirection(state position.State, qtyA, qtyB decimal.Decimal) {
	wantANegative := state.Mode == position.ShortSpread

	mismatch := false
	if !qtyA.IsZero() && qtyA.IsNegative() != wantANegative {
		mismatch = true
	}
	if !qtyB.IsZero() && qtyB.IsNegative() == wantANegative {
		mismatch = true
	}

	if mismatch {
		r.logger.Warn("broker book direction does not match persisted mode",
			zap.String("mode", string(state.Mode)),
			zap.String("qty_a", qtyA.String()),
			zap.String("qty_b", qtyB.String()),
		)
	}
}
