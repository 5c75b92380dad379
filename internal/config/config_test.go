package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"
)

func strp(s string) *string               { return &s }
func intp(n int) *int                     { return &n }
func boolp(b bool) *bool                  { return &b }
func durp(d time.Duration) *time.Duration { return &d }
func floatp(f float32) *float32           { return &f }

func TestResolvePrecedence(t *testing.T) {
	defaults := Defaults()
	cli := Layer{Stacks: []string{"tests"}}
	env := Layer{Stacks: []string{"core", "tests"}}
	file := Layer{Stacks: []string{"core"}}

	cfg, _ := Resolve(cli, env, file, defaults)
	if !reflect.DeepEqual(cfg.Stacks, []string{"tests"}) {
		t.Errorf("Stacks = %v, want [tests] (CLI wins)", cfg.Stacks)
	}

	cfg, _ = Resolve(Layer{}, env, file, defaults)
	if !reflect.DeepEqual(cfg.Stacks, []string{"core", "tests"}) {
		t.Errorf("Stacks = %v, want [core tests] (env wins)", cfg.Stacks)
	}

	cfg, _ = Resolve(Layer{}, Layer{}, file, defaults)
	if !reflect.DeepEqual(cfg.Stacks, []string{"core"}) {
		t.Errorf("Stacks = %v, want [core] (file wins)", cfg.Stacks)
	}

	cfg, _ = Resolve(Layer{}, Layer{}, Layer{}, defaults)
	if !reflect.DeepEqual(cfg.Stacks, defaults.Stacks) {
		t.Errorf("Stacks = %v, want defaults %v", cfg.Stacks, defaults.Stacks)
	}
}

func TestResolveFieldsFallThroughIndependently(t *testing.T) {
	cli := Layer{Model: strp("gpt-4o")}
	env := Layer{Retries: intp(5)}
	file := Layer{TestCommand: strp("go test ./...")}

	cfg, warnings := Resolve(cli, env, file, Defaults())
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if cfg.Model != "gpt-4o" {
		t.Errorf("Model = %q, want gpt-4o (CLI)", cfg.Model)
	}
	if cfg.Retries != 5 {
		t.Errorf("Retries = %d, want 5 (env)", cfg.Retries)
	}
	if cfg.TestCommand != "go test ./..." {
		t.Errorf("TestCommand = %q, want from file", cfg.TestCommand)
	}
	// Untouched fields keep their defaults.
	if cfg.PluginTimeout != 30*time.Second {
		t.Errorf("PluginTimeout = %s, want default 30s", cfg.PluginTimeout)
	}
}

func TestResolveCorrectsInvalidNumerics(t *testing.T) {
	cli := Layer{
		Retries:       intp(-3),
		PluginTimeout: durp(-time.Second),
		RetryBackoff:  durp(0),
	}
	cfg, warnings := Resolve(cli, Layer{}, Layer{}, Defaults())
	if cfg.Retries != Defaults().Retries {
		t.Errorf("Retries = %d, want corrected to default %d", cfg.Retries, Defaults().Retries)
	}
	if cfg.PluginTimeout != Defaults().PluginTimeout {
		t.Errorf("PluginTimeout = %s, want corrected to default", cfg.PluginTimeout)
	}
	if cfg.RetryBackoff != Defaults().RetryBackoff {
		t.Errorf("RetryBackoff = %s, want corrected to default", cfg.RetryBackoff)
	}
	if len(warnings) != 3 {
		t.Errorf("warnings = %v, want 3 entries", warnings)
	}
}

func TestResolveSamplingOptions(t *testing.T) {
	file := Layer{Temperature: floatp(0.7), MaxTokens: intp(1024)}
	env := Layer{Temperature: floatp(0.2)}
	cfg, _ := Resolve(Layer{}, env, file, Defaults())
	if cfg.Temperature != 0.2 {
		t.Errorf("Temperature = %g, want 0.2 from env layer", cfg.Temperature)
	}
	if cfg.MaxTokens != 1024 {
		t.Errorf("MaxTokens = %d, want 1024 from file layer", cfg.MaxTokens)
	}

	// Negative values fall back to "unset" with a warning each.
	cfg, warnings := Resolve(Layer{Temperature: floatp(-1), MaxTokens: intp(-5)}, Layer{}, Layer{}, Defaults())
	if cfg.Temperature != 0 || cfg.MaxTokens != 0 {
		t.Errorf("corrected = (%g, %d), want (0, 0)", cfg.Temperature, cfg.MaxTokens)
	}
	if len(warnings) != 2 {
		t.Errorf("warnings = %v, want 2 entries", warnings)
	}
}

func TestResolveEndBelowStart(t *testing.T) {
	cfg, warnings := Resolve(Layer{Start: intp(5), End: intp(2)}, Layer{}, Layer{}, Defaults())
	if cfg.End != 0 {
		t.Errorf("End = %d, want 0 (ignored)", cfg.End)
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v, want 1 entry", warnings)
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" core , tests ,, docs")
	want := []string{"core", "tests", "docs"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitList = %v, want %v", got, want)
	}
	if SplitList("  ") != nil {
		t.Errorf("SplitList(blank) = %v, want nil", SplitList("  "))
	}
}

func TestEnvLayer(t *testing.T) {
	vars := map[string]string{
		"STAGESMITH_STACKS":         "core,tests",
		"STAGESMITH_START":          "3",
		"STAGESMITH_DRY_RUN":        "true",
		"STAGESMITH_PLUGIN_TIMEOUT": "45s",
		"STAGESMITH_TEMPERATURE":    "0.5",
		"STAGESMITH_RETRIES":        "banana",
	}
	layer, warnings := EnvLayer(func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	})
	if !reflect.DeepEqual(layer.Stacks, []string{"core", "tests"}) {
		t.Errorf("Stacks = %v", layer.Stacks)
	}
	if layer.Start == nil || *layer.Start != 3 {
		t.Errorf("Start = %v, want 3", layer.Start)
	}
	if layer.DryRun == nil || !*layer.DryRun {
		t.Errorf("DryRun = %v, want true", layer.DryRun)
	}
	if layer.PluginTimeout == nil || *layer.PluginTimeout != 45*time.Second {
		t.Errorf("PluginTimeout = %v, want 45s", layer.PluginTimeout)
	}
	if layer.Temperature == nil || *layer.Temperature != 0.5 {
		t.Errorf("Temperature = %v, want 0.5", layer.Temperature)
	}
	// Unparseable integer is a warning, not a value.
	if layer.Retries != nil {
		t.Errorf("Retries = %v, want nil", layer.Retries)
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v, want 1 entry", warnings)
	}
}

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeTestConfig(t, `
stacks: "core, tests"
model: gpt-4o
retries: 4
plugin_timeout: "10s"
retry_backoff: 5
dry_run: true
`)
	layer := LoadFile(path, zap.NewNop())
	if !reflect.DeepEqual(layer.Stacks, []string{"core", "tests"}) {
		t.Errorf("Stacks = %v", layer.Stacks)
	}
	if layer.Model == nil || *layer.Model != "gpt-4o" {
		t.Errorf("Model = %v", layer.Model)
	}
	if layer.Retries == nil || *layer.Retries != 4 {
		t.Errorf("Retries = %v", layer.Retries)
	}
	if layer.PluginTimeout == nil || *layer.PluginTimeout != 10*time.Second {
		t.Errorf("PluginTimeout = %v", layer.PluginTimeout)
	}
	// Bare numbers are seconds.
	if layer.RetryBackoff == nil || *layer.RetryBackoff != 5*time.Second {
		t.Errorf("RetryBackoff = %v", layer.RetryBackoff)
	}
	if layer.DryRun == nil || !*layer.DryRun {
		t.Errorf("DryRun = %v", layer.DryRun)
	}
}

func TestLoadFileStacksAcceptsBothForms(t *testing.T) {
	// Flow style.
	layer := LoadFile(writeTestConfig(t, "stacks: [core, tests]\nmodel: gpt-4o\n"), zap.NewNop())
	if !reflect.DeepEqual(layer.Stacks, []string{"core", "tests"}) {
		t.Errorf("flow-style Stacks = %v, want [core tests]", layer.Stacks)
	}
	if layer.Model == nil || *layer.Model != "gpt-4o" {
		t.Errorf("Model = %v, other keys must survive a list-form stacks", layer.Model)
	}

	// Block style.
	layer = LoadFile(writeTestConfig(t, "stacks:\n  - core\n  - tests\n"), zap.NewNop())
	if !reflect.DeepEqual(layer.Stacks, []string{"core", "tests"}) {
		t.Errorf("block-style Stacks = %v, want [core tests]", layer.Stacks)
	}
}

func TestLoadFileMalformedDegradesToEmpty(t *testing.T) {
	path := writeTestConfig(t, "stacks: [unclosed\n  nonsense: {{")
	layer := LoadFile(path, zap.NewNop())
	if !reflect.DeepEqual(layer, Layer{}) {
		t.Errorf("malformed config produced non-empty layer: %+v", layer)
	}
}

func TestLoadFileMissingIsEmpty(t *testing.T) {
	layer := LoadFile(filepath.Join(t.TempDir(), FileName), zap.NewNop())
	if !reflect.DeepEqual(layer, Layer{}) {
		t.Errorf("missing config produced non-empty layer: %+v", layer)
	}
}
