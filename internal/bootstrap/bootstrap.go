// Package bootstrap drives the self-upgrading loop: stages run one sequence
// number at a time in fresh processes, and each iteration execs whatever
// engine binary the previous stages left in the current tree. A crash in a
// generated version cannot take the loop down with it.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/stagesmith/stagesmith/internal/config"
	"github.com/stagesmith/stagesmith/internal/stack"
	"github.com/stagesmith/stagesmith/internal/workspace"
)

// BinaryRelPath is where a regenerated engine binary lives inside the
// current tree. The loop execs this path when it exists.
const BinaryRelPath = "bin/stagesmith"

// Loop runs the bootstrap cycle.
type Loop struct {
	ws       *workspace.Workspace
	cfg      *config.Config
	logger   *zap.Logger
	progress io.Writer
}

// New creates a Loop.
func New(ws *workspace.Workspace, cfg *config.Config, logger *zap.Logger) *Loop {
	return &Loop{ws: ws, cfg: cfg, logger: logger}
}

// SetProgress sets a writer for live progress output.
func (l *Loop) SetProgress(w io.Writer) {
	l.progress = w
}

func (l *Loop) logf(format string, args ...interface{}) {
	if l.progress != nil {
		fmt.Fprintf(l.progress, "→ "+format+"\n", args...)
	}
}

// Run seeds the current tree, then processes every sequence number from 1 to
// the highest discovered, each in a fresh process. It returns the exit
// status to propagate: 0 on completion, the first failing stage's status
// otherwise.
func (l *Loop) Run(ctx context.Context) (int, error) {
	if err := l.seed(); err != nil {
		return 1, err
	}

	all := stack.Discover(l.ws.StacksDir(), l.cfg.Stacks, l.logger)
	if err := stack.Validate(all, l.cfg.Stacks); err != nil {
		return 1, err
	}
	maxSeq := stack.MaxSequence(all)
	l.logf("bootstrap: %d stage(s), highest sequence %d", len(all), maxSeq)

	for seq := 1; seq <= maxSeq; seq++ {
		binary, regenerated := l.resolveBinary()
		l.logf("bootstrap: sequence %d via %s", seq, binary)
		if regenerated {
			l.logger.Info("using regenerated engine binary", zap.String("path", binary))
		}

		code, err := l.runSequence(ctx, binary, seq)
		if err != nil {
			return 1, fmt.Errorf("sequence %d: %w", seq, err)
		}
		if code != 0 {
			l.logf("bootstrap: sequence %d failed with exit %d, halting", seq, code)
			return code, nil
		}
	}
	l.logf("bootstrap: complete")
	return 0, nil
}

// seed copies the baseline implementation into the current tree before any
// stage runs. Files already present are kept: the current tree's state wins.
func (l *Loop) seed() error {
	if l.cfg.SeedDir == "" {
		return nil
	}
	if _, err := os.Stat(l.cfg.SeedDir); err != nil {
		return fmt.Errorf("seed dir: %w", err)
	}
	l.logf("bootstrap: seeding current tree from %s", l.cfg.SeedDir)
	if err := workspace.CopyTree(l.cfg.SeedDir, l.ws.CurrentDir()); err != nil {
		return fmt.Errorf("seed current tree: %w", err)
	}
	return nil
}

// resolveBinary picks the engine binary for the next iteration: the one the
// pipeline regenerated into the current tree when present and executable,
// otherwise the binary this process started from. The second return reports
// whether the regenerated one was chosen.
func (l *Loop) resolveBinary() (string, bool) {
	candidate := filepath.Join(l.ws.CurrentDir(), filepath.FromSlash(BinaryRelPath))
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() && info.Mode()&0o111 != 0 {
		return candidate, true
	}
	self, err := os.Executable()
	if err != nil {
		// Last resort; exec will resolve it against PATH.
		return "stagesmith", false
	}
	return self, false
}

// runSequence executes one stage-processing cycle as a child process with
// inherited stdio and returns its exit code.
func (l *Loop) runSequence(ctx context.Context, binary string, seq int) (int, error) {
	args := []string{
		"run",
		"--workdir", l.ws.Root(),
		"--start", strconv.Itoa(seq),
		"--end", strconv.Itoa(seq),
	}
	args = append(args, l.passthroughFlags()...)

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = l.ws.Root()
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("exec %s: %w", binary, err)
	}
	return 0, nil
}

// passthroughFlags forwards the full effective configuration. Flags beat
// every other layer in the child's own resolution, so the child sees exactly
// the options this process resolved, no matter which layer supplied them.
// SeedDir stays behind: seeding happens once, here.
func (l *Loop) passthroughFlags() []string {
	flags := []string{
		"--stacks", strings.Join(l.cfg.Stacks, ","),
		"--model", l.cfg.Model,
		"--temperature", strconv.FormatFloat(float64(l.cfg.Temperature), 'g', -1, 32),
		"--max-tokens", strconv.Itoa(l.cfg.MaxTokens),
		"--backend-url", l.cfg.BackendURL,
		"--api-key-env", l.cfg.APIKeyEnv,
		"--retries", strconv.Itoa(l.cfg.Retries),
		"--retry-backoff", l.cfg.RetryBackoff.String(),
		"--plugin-timeout", l.cfg.PluginTimeout.String(),
		"--test-command", l.cfg.TestCommand,
		"--history-db", l.cfg.HistoryDB,
	}
	if l.cfg.DryRun {
		flags = append(flags, "--dry-run")
	}
	if l.cfg.NoOverwrite {
		flags = append(flags, "--no-overwrite")
	}
	if l.cfg.Verbose {
		flags = append(flags, "--verbose")
	}
	return flags
}
