package position

import (
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("NewFileStore() failed: %v", err)
	}
	return store
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)

	entryZ := 2.5
	entryTime := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
	want := State{
		Mode:        ShortSpread,
		EntryZScore: &entryZ,
		EntryTime:   &entryTime,
		SymbolA:     "KO",
		SymbolB:     "PEP",
	}

	if err := store.Save(want); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	got, found, err := store.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if !found {
		t.Fatal("Expected persisted state to be found")
	}
	if got.Mode != want.Mode || got.SymbolA != want.SymbolA || got.SymbolB != want.SymbolB {
		t.Errorf("Round trip mismatch: got %+v", got)
	}
	if got.EntryZScore == nil || *got.EntryZScore != entryZ {
		t.Errorf("Expected entry z-score %v, got %v", entryZ, got.EntryZScore)
	}
	if got.EntryTime == nil || !got.EntryTime.Equal(entryTime) {
		t.Errorf("Expected entry time %v, got %v", entryTime, got.EntryTime)
	}
}

func TestFileStoreMissingFile(t *testing.T) {
	store := newTestStore(t)

	_, found, err := store.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if found {
		t.Error("Expected no state for fresh store")
	}
}

func TestMachineStartsFlat(t *testing.T) {
	machine, err := NewMachine(newTestStore(t), "KO", "PEP", zap.NewNop())
	if err != nil {
		t.Fatalf("NewMachine() failed: %v", err)
	}

	state := machine.Current()
	if state.Mode != Flat {
		t.Errorf("Expected FLAT initial mode, got %s", state.Mode)
	}
	if state.SymbolA != "KO" || state.SymbolB != "PEP" {
		t.Errorf("Unexpected pair %s/%s", state.SymbolA, state.SymbolB)
	}
}

func TestMachineDiscardsOtherPairState(t *testing.T) {
	store := newTestStore(t)
	entryZ := 2.1
	if err := store.Save(State{Mode: LongSpread, EntryZScore: &entryZ, SymbolA: "NVDA", SymbolB: "AMD"}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	machine, err := NewMachine(store, "KO", "PEP", zap.NewNop())
	if err != nil {
		t.Fatalf("NewMachine() failed: %v", err)
	}
	if machine.Current().Mode != Flat {
		t.Errorf("Expected flat state for new pair, got %s", machine.Current().Mode)
	}
}

func TestMachineEntryExitCycle(t *testing.T) {
	store := newTestStore(t)
	machine, err := NewMachine(store, "KO", "PEP", zap.NewNop())
	if err != nil {
		t.Fatalf("NewMachine() failed: %v", err)
	}

	now := time.Now().UTC()
	if err := machine.CommitEntry(ShortSpread, 2.5, now); err != nil {
		t.Fatalf("CommitEntry() failed: %v", err)
	}

	state := machine.Current()
	if state.Mode != ShortSpread {
		t.Errorf("Expected SHORT_SPREAD, got %s", state.Mode)
	}
	if state.EntryZScore == nil || *state.EntryZScore != 2.5 {
		t.Errorf("Expected entry z-score 2.5, got %v", state.EntryZScore)
	}

	// Entry must have been persisted before the commit returned.
	persisted, found, err := store.Load()
	if err != nil || !found {
		t.Fatalf("Expected persisted state, got found=%v err=%v", found, err)
	}
	if persisted.Mode != ShortSpread {
		t.Errorf("Expected persisted SHORT_SPREAD, got %s", persisted.Mode)
	}

	if err := machine.CommitExit(now.Add(time.Hour)); err != nil {
		t.Fatalf("CommitExit() failed: %v", err)
	}
	state = machine.Current()
	if state.Mode != Flat {
		t.Errorf("Expected FLAT after exit, got %s", state.Mode)
	}
	if state.EntryZScore != nil || state.EntryTime != nil {
		t.Errorf("Expected cleared entry fields, got %+v", state)
	}
}

func TestMachineGuardsTransitions(t *testing.T) {
	machine, err := NewMachine(newTestStore(t), "KO", "PEP", zap.NewNop())
	if err != nil {
		t.Fatalf("NewMachine() failed: %v", err)
	}

	if err := machine.CommitExit(time.Now()); err == nil {
		t.Error("Expected error exiting from FLAT")
	}
	if err := machine.CommitEntry(Flat, 0, time.Now()); err == nil {
		t.Error("Expected error entering with FLAT direction")
	}

	if err := machine.CommitEntry(LongSpread, -2.2, time.Now()); err != nil {
		t.Fatalf("CommitEntry() failed: %v", err)
	}
	if err := machine.CommitEntry(ShortSpread, 2.2, time.Now()); err == nil {
		t.Error("Expected error entering while already in a position")
	}
}

func TestMachineForceFlat(t *testing.T) {
	store := newTestStore(t)
	machine, err := NewMachine(store, "KO", "PEP", zap.NewNop())
	if err != nil {
		t.Fatalf("NewMachine() failed: %v", err)
	}

	if err := machine.CommitEntry(LongSpread, -2.3, time.Now()); err != nil {
		t.Fatalf("CommitEntry() failed: %v", err)
	}
	if err := machine.ForceFlat(); err != nil {
		t.Fatalf("ForceFlat() failed: %v", err)
	}
	if machine.Current().Mode != Flat {
		t.Errorf("Expected FLAT after forced reset, got %s", machine.Current().Mode)
	}

	// Idempotent on an already-flat machine.
	if err := machine.ForceFlat(); err != nil {
		t.Errorf("ForceFlat() on flat state failed: %v", err)
	}

	persisted, _, err := store.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if persisted.Mode != Flat {
		t.Errorf("Expected persisted FLAT, got %s", persisted.Mode)
	}
}
