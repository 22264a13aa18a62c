package position

import (
	"time"
)

// Mode is the pair position mode.
type Mode string

const (
	Flat        Mode = "FLAT"
	LongSpread  Mode = "LONG_SPREAD"  // long A, short B
	ShortSpread Mode = "SHORT_SPREAD" // short A, long B
)

// State is the persisted pair position record. It is written back to the
// store immediately after every confirmed broker action and reloaded on the
// next run.
type State struct {
	Mode        Mode       `json:"mode"`
	EntryZScore *float64   `json:"entry_z_score"`
	EntryTime   *time.Time `json:"entry_time"`
	SymbolA     string     `json:"symbol_a"`
	SymbolB     string     `json:"symbol_b"`
}

// NewFlat returns the initial state for a pair.
func NewFlat(symbolA, symbolB string) State {
	return State{Mode: Flat, SymbolA: symbolA, SymbolB: symbolB}
}

// Open reports whether the state carries live exposure.
func (s State) Open() bool {
	return s.Mode == LongSpread || s.Mode == ShortSpread
}
