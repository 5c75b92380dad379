package cache

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/stagesmith/stagesmith/internal/stack"
)

var testStage = stack.Stage{Stack: "core", Sequence: 1, Path: "001_x.md"}

func TestSkipOnMatchingSuccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	s := Open(path, zap.NewNop())

	if s.ShouldSkip(testStage, "prompt text") {
		t.Error("empty cache skipped a stage")
	}

	s.Record(testStage, "prompt text", Success)
	if !s.ShouldSkip(testStage, "prompt text") {
		t.Error("unchanged successful stage not skipped")
	}
	if s.ShouldSkip(testStage, "edited prompt text") {
		t.Error("edited stage was skipped")
	}
}

func TestNoSkipAfterFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	s := Open(path, zap.NewNop())

	s.Record(testStage, "prompt text", Failure)
	if s.ShouldSkip(testStage, "prompt text") {
		t.Error("failed stage was skipped")
	}
}

func TestPersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	Open(path, zap.NewNop()).Record(testStage, "prompt text", Success)

	s := Open(path, zap.NewNop())
	if !s.ShouldSkip(testStage, "prompt text") {
		t.Error("cache entry lost across reopen")
	}
}

func TestMalformedStoreFailsOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := Open(path, zap.NewNop())
	if s.ShouldSkip(testStage, "prompt text") {
		t.Error("malformed cache caused a skip")
	}
	if len(s.Entries()) != 0 {
		t.Errorf("Entries = %v, want empty", s.Entries())
	}

	// The store still accepts new records.
	s.Record(testStage, "prompt text", Success)
	if !s.ShouldSkip(testStage, "prompt text") {
		t.Error("record after malformed load did not take")
	}
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	Open(path, zap.NewNop()).Record(testStage, "prompt text", Success)

	if err := Clear(path); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("store file still present after Clear")
	}
	if err := Clear(path); err != nil {
		t.Errorf("Clear of missing store: %v", err)
	}
}

func TestHashIsContentOnly(t *testing.T) {
	if Hash("a") == Hash("b") {
		t.Error("distinct content hashed equal")
	}
	if Hash("same") != Hash("same") {
		t.Error("hash not deterministic")
	}
}
