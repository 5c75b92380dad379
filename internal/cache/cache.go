// Package cache skips stages whose source text has not changed since a
// successful run. The store is a single JSON file mapping "stack/NNN" to a
// content hash and the last gate outcome. Every store error is fail-open:
// the engine proceeds as if no cache existed.
package cache

import (
	"encoding/hex"
	"os"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/stagesmith/stagesmith/internal/stack"
	"github.com/stagesmith/stagesmith/internal/workspace"
)

// Outcome records how a stage's test gate ended. A stage with no configured
// gate records success.
type Outcome string

const (
	Success Outcome = "success"
	Failure Outcome = "failure"
)

// Entry is one cached stage result.
type Entry struct {
	Hash    string  `json:"hash"`
	Outcome Outcome `json:"outcome"`
}

// Store is the stage cache backed by one JSON file.
type Store struct {
	path    string
	entries map[string]Entry
	logger  *zap.Logger
}

// Open loads the store at path. A missing file is an empty cache; an
// unreadable or malformed file is logged and likewise treated as empty, so
// every stage reprocesses.
func Open(path string, logger *zap.Logger) *Store {
	s := &Store{path: path, entries: make(map[string]Entry), logger: logger}

	entries := make(map[string]Entry)
	err := workspace.ReadJSON(path, &entries)
	switch {
	case err == nil:
		s.entries = entries
	case os.IsNotExist(err):
		// first run
	default:
		logger.Warn("cache store unreadable, proceeding without cache",
			zap.String("path", path), zap.Error(err))
	}
	return s
}

// Hash returns the hex blake3 digest of a stage's source text. The hash
// covers only the textual content, pre context expansion, so edits to
// referenced context files never force reprocessing.
func Hash(text string) string {
	sum := blake3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ShouldSkip reports whether the stage can be skipped: a cached entry with a
// matching hash and a prior success outcome.
func (s *Store) ShouldSkip(st stack.Stage, sourceText string) bool {
	entry, ok := s.entries[st.Key()]
	return ok && entry.Outcome == Success && entry.Hash == Hash(sourceText)
}

// Record stores the stage outcome and persists the store. Persistence errors
// are logged and ignored.
func (s *Store) Record(st stack.Stage, sourceText string, outcome Outcome) {
	s.entries[st.Key()] = Entry{Hash: Hash(sourceText), Outcome: outcome}
	if err := workspace.WriteJSON(s.path, s.entries); err != nil {
		s.logger.Warn("persisting cache store", zap.String("path", s.path), zap.Error(err))
	}
}

// Entries returns a copy of the in-memory store for inspection.
func (s *Store) Entries() map[string]Entry {
	out := make(map[string]Entry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// Clear deletes the entire backing store. Missing store is not an error.
func Clear(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
