package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/stagesmith/stagesmith/internal/assemble"
	"github.com/stagesmith/stagesmith/internal/backend"
	"github.com/stagesmith/stagesmith/internal/cache"
	"github.com/stagesmith/stagesmith/internal/config"
	"github.com/stagesmith/stagesmith/internal/gate"
	"github.com/stagesmith/stagesmith/internal/stack"
	"github.com/stagesmith/stagesmith/internal/workspace"
	"github.com/stagesmith/stagesmith/internal/writer"
)

// fakeGen replays scripted replies and records the prompts it saw.
type fakeGen struct {
	replies []string
	prompts []string
}

func (f *fakeGen) Generate(_ context.Context, _, prompt string, _ backend.ModelOptions) (string, error) {
	f.prompts = append(f.prompts, prompt)
	i := len(f.prompts) - 1
	if i >= len(f.replies) {
		return "", fmt.Errorf("unexpected call %d", i)
	}
	return f.replies[i], nil
}

// fakeRunner returns a fixed exit code per call.
type fakeRunner struct {
	codes []int
	calls int
}

func (f *fakeRunner) Run(_ context.Context, _, _ string) (int, error) {
	code := 0
	if f.calls < len(f.codes) {
		code = f.codes[f.calls]
	}
	f.calls++
	return code, nil
}

type fixture struct {
	ws  *workspace.Workspace
	cfg *config.Config
	gen *fakeGen
}

func newFixture(t *testing.T, stages map[string]string) *fixture {
	t.Helper()
	ws, err := workspace.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Init(); err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(ws.StacksDir(), "core")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, content := range stages {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := config.Defaults()
	cfg.Workdir = ws.Root()
	return &fixture{ws: ws, cfg: &cfg, gen: &fakeGen{}}
}

func (fx *fixture) engine(t *testing.T, g *gate.Gate) *Engine {
	t.Helper()
	logger := zap.NewNop()
	if g == nil {
		g = gate.New("")
	}
	return New(
		fx.ws,
		fx.cfg,
		cache.Open(fx.ws.CachePath(), logger),
		assemble.NewBuilder(fx.ws, fx.cfg, logger),
		fx.gen,
		writer.New(fx.ws, fx.cfg.NoOverwrite, logger),
		g,
		nil,
		logger,
	)
}

func reply(path, content string) string {
	return fmt.Sprintf("Path: %s\n```\n%s\n```\n", path, content)
}

func TestRunWritesAndChains(t *testing.T) {
	fx := newFixture(t, map[string]string{
		"001_first.md":  "Write the base file.",
		"002_second.md": "Extend it.\nContext: base.txt",
	})
	fx.gen.replies = []string{
		reply("base.txt", "base content"),
		reply("more.txt", "more content"),
	}

	if err := fx.engine(t, nil).Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	// Stage 2's payload saw stage 1's output through the current tree.
	if len(fx.gen.prompts) != 2 {
		t.Fatalf("prompts = %d, want 2", len(fx.gen.prompts))
	}
	if !strings.Contains(fx.gen.prompts[1], "base content") {
		t.Errorf("stage 2 prompt missing stage 1 output:\n%s", fx.gen.prompts[1])
	}

	for _, rel := range []string{"base.txt", "more.txt"} {
		if _, err := os.Stat(filepath.Join(fx.ws.CurrentDir(), rel)); err != nil {
			t.Errorf("current tree missing %s: %v", rel, err)
		}
	}
}

func TestSecondRunSkipsUnchangedStages(t *testing.T) {
	fx := newFixture(t, map[string]string{"001_only.md": "Generate."})
	fx.gen.replies = []string{reply("out.txt", "v1"), reply("out.txt", "SHOULD NOT HAPPEN")}

	e := fx.engine(t, nil)
	if err := e.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	// Fresh engine, same cache file: the stage must be skipped.
	if err := fx.engine(t, nil).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(fx.gen.prompts) != 1 {
		t.Errorf("backend called %d times, want 1 (second run cached)", len(fx.gen.prompts))
	}
	data, _ := os.ReadFile(filepath.Join(fx.ws.CurrentDir(), "out.txt"))
	if string(data) != "v1" {
		t.Errorf("out.txt = %q, want untouched v1", data)
	}
}

func TestEditedStageReprocesses(t *testing.T) {
	fx := newFixture(t, map[string]string{"001_only.md": "Generate."})
	fx.gen.replies = []string{reply("out.txt", "v1"), reply("out.txt", "v2")}

	if err := fx.engine(t, nil).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	stagePath := filepath.Join(fx.ws.StacksDir(), "core", "001_only.md")
	if err := os.WriteFile(stagePath, []byte("Generate differently."), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := fx.engine(t, nil).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(filepath.Join(fx.ws.CurrentDir(), "out.txt"))
	if string(data) != "v2" {
		t.Errorf("out.txt = %q, want v2 after edit", data)
	}
}

func TestGateFailureHaltsRun(t *testing.T) {
	fx := newFixture(t, map[string]string{
		"001_first.md":  "One.",
		"002_second.md": "Two.",
	})
	fx.gen.replies = []string{reply("a.txt", "a"), reply("b.txt", "b")}

	g := &gate.Gate{Command: "run-tests", Runner: &fakeRunner{codes: []int{1}}}
	err := fx.engine(t, g).Run(context.Background())
	if err == nil {
		t.Fatal("Run succeeded despite gate failure")
	}
	if !strings.Contains(err.Error(), "core/001") {
		t.Errorf("err = %v, want failing stage named", err)
	}
	// Stage 2 never ran.
	if len(fx.gen.prompts) != 1 {
		t.Errorf("backend called %d times, want 1", len(fx.gen.prompts))
	}
	// A failed stage is not skipped on the next run.
	fx.gen.replies = append(fx.gen.replies[:1], reply("a.txt", "retry"), reply("b.txt", "b"))
	if err := fx.engine(t, nil).Run(context.Background()); err != nil {
		t.Fatalf("rerun error: %v", err)
	}
	if len(fx.gen.prompts) != 3 {
		t.Errorf("backend calls = %d, want 3 (failed stage reprocessed)", len(fx.gen.prompts))
	}
}

func TestEmptyReplyIsWarningNotError(t *testing.T) {
	fx := newFixture(t, map[string]string{"001_only.md": "Generate."})
	fx.gen.replies = []string{"I have nothing structured to say."}

	if err := fx.engine(t, nil).Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v, want success with warning", err)
	}
}

func TestEmptyDiscoveryIsRunLevelError(t *testing.T) {
	fx := newFixture(t, map[string]string{})
	err := fx.engine(t, nil).Run(context.Background())
	if err == nil {
		t.Fatal("Run succeeded with no stages anywhere")
	}
	if !errors.Is(err, stack.ErrNoStages) {
		t.Errorf("Run error = %v, want ErrNoStages", err)
	}
}

func TestEmptyRangeIsFine(t *testing.T) {
	fx := newFixture(t, map[string]string{"001_only.md": "Generate."})
	fx.cfg.Start, fx.cfg.End = 7, 9
	if err := fx.engine(t, nil).Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v, want nil for empty range", err)
	}
	if len(fx.gen.prompts) != 0 {
		t.Errorf("backend called for out-of-range stages")
	}
}

func TestRunSavesArtifacts(t *testing.T) {
	fx := newFixture(t, map[string]string{"001_only.md": "Generate."})
	fx.gen.replies = []string{reply("out.txt", "v1")}

	e := fx.engine(t, nil)
	if err := e.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	artifactDir := filepath.Join(fx.ws.RunDir(e.RunID()), "core-001")
	for _, name := range []string{"prompt.txt", "reply.txt"} {
		if _, err := os.Stat(filepath.Join(artifactDir, name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}
}
