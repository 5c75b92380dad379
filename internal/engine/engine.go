// Package engine executes the stage cycle: skip check, payload assembly,
// backend call, reply parsing, dual-target write, test gate, cache record.
// Stages run strictly sequentially; a later stage's context may depend on an
// earlier stage's output, so the sequential contract is the concurrency
// control.
package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/stagesmith/stagesmith/internal/assemble"
	"github.com/stagesmith/stagesmith/internal/backend"
	"github.com/stagesmith/stagesmith/internal/cache"
	"github.com/stagesmith/stagesmith/internal/config"
	"github.com/stagesmith/stagesmith/internal/gate"
	"github.com/stagesmith/stagesmith/internal/history"
	"github.com/stagesmith/stagesmith/internal/protocol"
	"github.com/stagesmith/stagesmith/internal/stack"
	"github.com/stagesmith/stagesmith/internal/workspace"
	"github.com/stagesmith/stagesmith/internal/writer"
)

// Engine drives one pipeline run.
type Engine struct {
	ws       *workspace.Workspace
	cfg      *config.Config
	store    *cache.Store
	builder  *assemble.Builder
	gen      backend.Generator
	writer   *writer.Writer
	gate     *gate.Gate
	hist     *history.DB // nil when history is unavailable
	logger   *zap.Logger
	progress io.Writer // live progress output; nil = silent
	runID    string
}

// New wires an Engine from its collaborators. hist may be nil.
func New(
	ws *workspace.Workspace,
	cfg *config.Config,
	store *cache.Store,
	builder *assemble.Builder,
	gen backend.Generator,
	w *writer.Writer,
	g *gate.Gate,
	hist *history.DB,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		ws:      ws,
		cfg:     cfg,
		store:   store,
		builder: builder,
		gen:     gen,
		writer:  w,
		gate:    g,
		hist:    hist,
		logger:  logger,
		runID:   ulid.Make().String(),
	}
}

// SetProgress sets a writer for live progress output (e.g. os.Stderr).
func (e *Engine) SetProgress(w io.Writer) {
	e.progress = w
}

// RunID returns this engine's run identifier.
func (e *Engine) RunID() string {
	return e.runID
}

// logf prints a progress line if a progress writer is configured.
func (e *Engine) logf(format string, args ...interface{}) {
	if e.progress != nil {
		fmt.Fprintf(e.progress, "  → "+format+"\n", args...)
	}
}

// event records a history row best-effort.
func (e *Engine) event(st *stack.Stage, event, detail string) {
	if e.hist == nil {
		return
	}
	stackName, seq := "", 0
	if st != nil {
		stackName, seq = st.Stack, st.Sequence
	}
	if err := e.hist.LogEvent(e.runID, stackName, seq, event, detail); err != nil {
		e.logger.Warn("recording history event", zap.String("event", event), zap.Error(err))
	}
}

// StageResult captures the outcome of one stage.
type StageResult struct {
	Stage    string        `json:"stage"`
	Sequence int           `json:"sequence"`
	Outcome  string        `json:"outcome"` // "success", "skipped", "fail"
	Files    int           `json:"files"`
	Duration time.Duration `json:"duration"`
}

// Run discovers, filters, and processes stages in order. It stops at the
// first stage-fatal error and returns it; an overall-empty discovery is a
// run-level error. A range that filters everything out is not.
func (e *Engine) Run(ctx context.Context) error {
	all := stack.Discover(e.ws.StacksDir(), e.cfg.Stacks, e.logger)
	if err := stack.Validate(all, e.cfg.Stacks); err != nil {
		return err
	}

	stages := stack.InRange(all, e.cfg.Start, e.cfg.End)
	if len(stages) == 0 {
		e.logf("no stages in range [%d,%d], nothing to do", e.cfg.Start, e.cfg.End)
		return nil
	}

	e.event(nil, "run_started", fmt.Sprintf("%d stages", len(stages)))
	for _, st := range stages {
		res, err := e.RunStage(ctx, st)
		if err != nil {
			e.event(&st, "stage_failed", err.Error())
			e.event(nil, "run_failed", "")
			return fmt.Errorf("stage %s: %w", st.Key(), err)
		}
		switch res.Outcome {
		case "skipped":
			e.event(&st, "stage_skipped", "cache hit")
		default:
			e.event(&st, "stage_completed", fmt.Sprintf("%d files", res.Files))
		}
	}
	e.event(nil, "run_completed", "")
	return nil
}

// RunStage executes the full cycle for one stage. A returned error is
// stage-fatal: backend exhaustion, a write guard trip, or a failed gate.
func (e *Engine) RunStage(ctx context.Context, st stack.Stage) (*StageResult, error) {
	start := time.Now()
	res := &StageResult{Stage: st.Stack, Sequence: st.Sequence}
	e.logf("stage %s: processing %s", st.Key(), filepath.Base(st.Path))

	raw, err := os.ReadFile(st.Path)
	if err != nil {
		return nil, fmt.Errorf("read stage file: %w", err)
	}
	sourceText := string(raw)

	if e.store.ShouldSkip(st, sourceText) {
		e.logf("stage %s: unchanged since last success — skipped", st.Key())
		res.Outcome = "skipped"
		res.Duration = time.Since(start)
		return res, nil
	}

	payload, err := e.builder.Build(ctx, st, sourceText)
	if err != nil {
		return nil, fmt.Errorf("assemble payload: %w", err)
	}
	e.logf("stage %s: payload assembled (%d bytes)", st.Key(), len(payload.Prompt))
	e.saveArtifact(st, "prompt.txt", payload.Prompt)

	reply, err := e.gen.Generate(ctx, payload.System, payload.Prompt, backend.ModelOptions{
		Model:       e.cfg.Model,
		Temperature: e.cfg.Temperature,
		MaxTokens:   e.cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	e.saveArtifact(st, "reply.txt", reply)

	files := protocol.Parse(reply)
	if len(files) == 0 {
		e.logger.Warn("backend reply contained no files", zap.String("stage", st.Key()))
		e.logf("stage %s: reply contained no files", st.Key())
	} else {
		if err := e.writer.Write(files, st); err != nil {
			return nil, fmt.Errorf("write files: %w", err)
		}
		e.logf("stage %s: wrote %d file(s)", st.Key(), len(files))
	}
	res.Files = len(files)

	passed, code, err := e.gate.Check(ctx, e.ws.CurrentDir())
	if err != nil {
		return nil, err
	}
	if !passed {
		e.store.Record(st, sourceText, cache.Failure)
		e.event(&st, "gate_failed", fmt.Sprintf("exit %d", code))
		return nil, fmt.Errorf("test gate failed with exit code %d", code)
	}

	e.store.Record(st, sourceText, cache.Success)
	res.Outcome = "success"
	res.Duration = time.Since(start)
	e.logf("stage %s: done (%s)", st.Key(), res.Duration.Round(time.Millisecond))
	return res, nil
}

// saveArtifact keeps a per-run copy of prompts and replies for debugging.
// Best-effort; failures are logged and ignored.
func (e *Engine) saveArtifact(st stack.Stage, name, content string) {
	path := filepath.Join(e.ws.RunDir(e.runID), fmt.Sprintf("%s-%03d", st.Stack, st.Sequence), name)
	if err := workspace.WriteAtomic(path, []byte(content)); err != nil {
		e.logger.Warn("saving run artifact", zap.String("path", path), zap.Error(err))
	}
}
