package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/199ocero/PolymarketBTC15mAssistant/internal/domain"
	"github.com/199ocero/PolymarketBTC15mAssistant/internal/ports"
)

// PaperStateStore persists domain.PaperState as a single flat JSON file,
// rewritten atomically (write-to-temp + rename) after every
// state-changing operation, per spec §4.9 — no journal, no SQL table:
// "the simplicity is intentional and acceptable for a paper trader."
type PaperStateStore struct {
	path string
	mu   sync.Mutex
}

var _ ports.PaperStateStore = (*PaperStateStore)(nil)

// NewPaperStateStore returns a store backed by the file at path.
func NewPaperStateStore(path string) *PaperStateStore {
	return &PaperStateStore{path: path}
}

// Load reads the JSON state file. A missing file is not an error: it
// returns the zero-value PaperState, which the caller seeds with
// domain.DefaultPaperState(startingBalance), per spec §4.9/§7's
// "load errors → default state".
func (s *PaperStateStore) Load(_ context.Context) (domain.PaperState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return domain.PaperState{}, nil
	}
	if err != nil {
		return domain.PaperState{}, fmt.Errorf("storage.PaperStateStore.Load: %w", err)
	}

	var state domain.PaperState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.PaperState{}, fmt.Errorf("storage.PaperStateStore.Load: unmarshal: %w", err)
	}
	return state, nil
}

// Save rewrites the entire state file atomically: marshal to a temp
// file in the same directory, then os.Rename over the real path. A
// crash mid-write leaves either the old file or the new one intact,
// never a half-written one.
func (s *PaperStateStore) Save(_ context.Context, state domain.PaperState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("storage.PaperStateStore.Save: marshal: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "paperstate-*.tmp")
	if err != nil {
		return fmt.Errorf("storage.PaperStateStore.Save: create temp: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("storage.PaperStateStore.Save: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("storage.PaperStateStore.Save: close temp: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("storage.PaperStateStore.Save: rename: %w", err)
	}
	return nil
}
