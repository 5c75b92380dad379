// Package workspace defines the on-disk layout of a stagesmith working
// directory. Every component receives a Workspace rooted at an injected
// path; there is no process-wide state.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Layout under the root:
//
//	stacks/<name>/          stage files + plugins/ (input, never written)
//	current/                mutable merged output tree, last write wins
//	stages/<stack>-<NNN>/   immutable per-stage snapshots
//	runs/<ulid>/            per-run artifacts (assembled prompts, raw replies)
//	cache.json              stage cache store
//	history.db              event log
//	stagesmith.yaml         config file
type Workspace struct {
	root string
}

// New returns a Workspace rooted at root. The path is made absolute so that
// later working-directory changes cannot redirect writes.
func New(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root %q: %w", root, err)
	}
	return &Workspace{root: abs}, nil
}

// Init creates the output directories.
func (w *Workspace) Init() error {
	for _, dir := range []string{w.CurrentDir(), w.SnapshotsDir(), w.RunsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return nil
}

func (w *Workspace) Root() string         { return w.root }
func (w *Workspace) StacksDir() string    { return filepath.Join(w.root, "stacks") }
func (w *Workspace) CurrentDir() string   { return filepath.Join(w.root, "current") }
func (w *Workspace) SnapshotsDir() string { return filepath.Join(w.root, "stages") }
func (w *Workspace) RunsDir() string      { return filepath.Join(w.root, "runs") }
func (w *Workspace) CachePath() string    { return filepath.Join(w.root, "cache.json") }
func (w *Workspace) HistoryPath() string  { return filepath.Join(w.root, "history.db") }
func (w *Workspace) ConfigPath() string   { return filepath.Join(w.root, "stagesmith.yaml") }

// SnapshotDir returns the immutable snapshot directory for one stage.
func (w *Workspace) SnapshotDir(stackName string, sequence int) string {
	return filepath.Join(w.SnapshotsDir(), fmt.Sprintf("%s-%03d", stackName, sequence))
}

// RunDir returns the artifact directory for one pipeline run.
func (w *Workspace) RunDir(runID string) string {
	return filepath.Join(w.RunsDir(), runID)
}

// CurrentPath resolves a relative path against the current tree, rejecting
// paths that escape it.
func (w *Workspace) CurrentPath(rel string) (string, error) {
	return UnderRoot(w.CurrentDir(), rel)
}

// ReadCurrent reads a file from the current tree by relative path.
func (w *Workspace) ReadCurrent(rel string) (string, error) {
	path, err := w.CurrentPath(rel)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// UnderRoot joins rel onto root and verifies the cleaned result stays inside
// root. Absolute paths and ".." escapes are rejected.
func UnderRoot(root, rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("path %q is absolute, must be relative", rel)
	}
	joined := filepath.Join(root, filepath.FromSlash(rel))
	cleanRoot := filepath.Clean(root)
	if joined != cleanRoot && !strings.HasPrefix(joined, cleanRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes %s", rel, root)
	}
	return joined, nil
}
