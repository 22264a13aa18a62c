package position

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Machine owns the pair position state. Transitions happen only through
// CommitEntry/CommitExit after the executor confirms both legs, or through
// ForceFlat during a reconciliation pass; every transition is persisted
// before it is considered committed.
type Machine struct {
	store  Store
	state  State
	logger *zap.Logger
}

// NewMachine loads the persisted state for the configured pair, or starts
// flat when none exists. Persisted state for a different pair is discarded:
// trading one pair against another pair's entry record would be meaningless.
func NewMachine(store Store, symbolA, symbolB string, logger *zap.Logger) (*Machine, error) {
	state, found, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load position state: %w", err)
	}

	if !found {
		state = NewFlat(symbolA, symbolB)
	} else if state.SymbolA != symbolA || state.SymbolB != symbolB {
		logger.Warn("persisted state is for a different pair, starting flat",
			zap.String("persisted_pair", state.SymbolA+"/"+state.SymbolB),
			zap.String("configured_pair", symbolA+"/"+symbolB),
		)
		state = NewFlat(symbolA, symbolB)
	}

	return &Machine{store: store, state: state, logger: logger}, nil
}

// Current returns a copy of the current state.
func (m *Machine) Current() State {
	return m.state
}

// CommitEntry records a confirmed two-leg entry and persists the new state.
func (m *Machine) CommitEntry(direction Mode, entryZ float64, at time.Time) error {
	if m.state.Mode != Flat {
		return fmt.Errorf("cannot enter %s from %s", direction, m.state.Mode)
	}
	if direction != LongSpread && direction != ShortSpread {
		return fmt.Errorf("invalid entry direction %s", direction)
	}

	next := m.state
	next.Mode = direction
	next.EntryZScore = &entryZ
	next.EntryTime = &at
	if err := m.store.Save(next); err != nil {
		return fmt.Errorf("persist entry: %w", err)
	}

	m.state = next
	m.logger.Info("position opened",
		zap.String("mode", string(direction)),
		zap.Float64("entry_z_score", entryZ),
	)
	return nil
}

// CommitExit records a confirmed two-leg close and persists the flat state.
func (m *Machine) CommitExit(at time.Time) error {
	if !m.state.Open() {
		return fmt.Errorf("cannot exit from %s", m.state.Mode)
	}

	next := NewFlat(m.state.SymbolA, m.state.SymbolB)
	if err := m.store.Save(next); err != nil {
		return fmt.Errorf("persist exit: %w", err)
	}

	previous := m.state.Mode
	m.state = next
	m.logger.Info("position closed", zap.String("previous_mode", string(previous)))
	return nil
}

// ForceFlat resets the state during reconciliation when the broker reports
// no exposure. It is the only transition not driven by an order.
func (m *Machine) ForceFlat() error {
	if m.state.Mode == Flat {
		return nil
	}

	next := NewFlat(m.state.SymbolA, m.state.SymbolB)
	if err := m.store.Save(next); err != nil {
		return fmt.Errorf("persist forced reset: %w", err)
	}
	m.state = next
	return nil
}
