package position

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists the pair position state across runs.
type Store interface {
	// Load returns the persisted state and whether one existed.
	Load() (State, bool, error)
	Save(State) error
}

const stateDirName = ".pairs-bot"
const stateFileName = "position_state.json"

// FileStore keeps the state as a small JSON record on disk.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store. An empty path defaults to
// ~/.pairs-bot/position_state.json.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve state path: %w", err)
		}
		path = filepath.Join(home, stateDirName, stateFileName)
	}
	return &FileStore{path: path}, nil
}

func (f *FileStore) Load() (State, bool, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{}, false, nil
		}
		return State{}, false, fmt.Errorf("read state file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, false, fmt.Errorf("parse state file: %w", err)
	}
	return state, true, nil
}

func (f *FileStore) Save(state State) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return os.WriteFile(f.path, data, 0o644)
}
