// Package writer materializes generated files into the two output targets:
// the immutable per-stage snapshot and the mutable current tree.
package writer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/stagesmith/stagesmith/internal/protocol"
	"github.com/stagesmith/stagesmith/internal/stack"
	"github.com/stagesmith/stagesmith/internal/workspace"
)

// ErrOverwrite is returned when the no-overwrite guard trips. The whole
// batch is rejected; no file is written.
var ErrOverwrite = errors.New("target path already exists in current tree")

// Writer persists a stage's parsed file set.
type Writer struct {
	ws          *workspace.Workspace
	noOverwrite bool
	logger      *zap.Logger
}

// New creates a Writer. With noOverwrite set, a batch containing any path
// that already exists in the current tree is rejected wholesale.
func New(ws *workspace.Workspace, noOverwrite bool, logger *zap.Logger) *Writer {
	return &Writer{ws: ws, noOverwrite: noOverwrite, logger: logger}
}

// Write persists every file to the stage snapshot and the current tree.
// Paths are canonicalized first; a path escaping the current tree fails the
// stage before anything is written. A repeated path within the batch is
// overwritten in encounter order, so the last record wins in both targets.
//
// A reprocessed stage replaces its previous snapshot wholesale; within one
// run the snapshot is never touched again.
func (w *Writer) Write(files []protocol.File, st stack.Stage) error {
	snapDir := w.ws.SnapshotDir(st.Stack, st.Sequence)

	// Resolve everything up front so validation failures and the overwrite
	// guard reject the batch before any partial write.
	type target struct {
		current  string
		snapshot string
		content  string
	}
	targets := make([]target, 0, len(files))
	for _, f := range files {
		current, err := w.ws.CurrentPath(f.Path)
		if err != nil {
			return fmt.Errorf("generated path rejected: %w", err)
		}
		snapshot, err := workspace.UnderRoot(snapDir, f.Path)
		if err != nil {
			return fmt.Errorf("generated path rejected: %w", err)
		}
		targets = append(targets, target{current: current, snapshot: snapshot, content: f.Content})
	}

	if w.noOverwrite {
		for i, tgt := range targets {
			if _, err := os.Stat(tgt.current); err == nil {
				return fmt.Errorf("%w: %s", ErrOverwrite, files[i].Path)
			}
		}
	}

	if err := os.RemoveAll(snapDir); err != nil {
		return fmt.Errorf("reset snapshot %s: %w", snapDir, err)
	}

	for i, tgt := range targets {
		for _, path := range []string{tgt.snapshot, tgt.current} {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("mkdir for %s: %w", files[i].Path, err)
			}
			if err := os.WriteFile(path, []byte(tgt.content), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", files[i].Path, err)
			}
		}
		w.logger.Debug("wrote file", zap.String("stage", st.Key()), zap.String("path", files[i].Path))
	}
	return nil
}
