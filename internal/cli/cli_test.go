package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func pipelineCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test", Run: func(*cobra.Command, []string) {}}
	cmd.Flags().Bool("verbose", false, "")
	addPipelineFlags(cmd)
	return cmd
}

func TestLayerFromFlagsOnlySetFlagsParticipate(t *testing.T) {
	cmd := pipelineCommand()
	if err := cmd.ParseFlags([]string{"--stacks", "core, tests", "--retries", "5"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}

	layer := layerFromFlags(cmd)
	if len(layer.Stacks) != 2 || layer.Stacks[0] != "core" || layer.Stacks[1] != "tests" {
		t.Errorf("Stacks = %v, want [core tests]", layer.Stacks)
	}
	if layer.Retries == nil || *layer.Retries != 5 {
		t.Errorf("Retries = %v, want 5", layer.Retries)
	}
	if layer.Model != nil {
		t.Errorf("Model = %v, want nil for an unset flag", *layer.Model)
	}
	if layer.Start != nil {
		t.Errorf("Start = %v, want nil for an unset flag", *layer.Start)
	}
}

func TestLayerFromFlagsDurations(t *testing.T) {
	cmd := pipelineCommand()
	if err := cmd.ParseFlags([]string{"--retry-backoff", "3s", "--plugin-timeout", "1m"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}

	layer := layerFromFlags(cmd)
	if layer.RetryBackoff == nil || *layer.RetryBackoff != 3*time.Second {
		t.Errorf("RetryBackoff = %v, want 3s", layer.RetryBackoff)
	}
	if layer.PluginTimeout == nil || *layer.PluginTimeout != time.Minute {
		t.Errorf("PluginTimeout = %v, want 1m", layer.PluginTimeout)
	}
}

func TestLayerFromFlagsWithoutPipelineFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "bare", Run: func(*cobra.Command, []string) {}}
	cmd.Flags().Bool("verbose", false, "")
	if err := cmd.ParseFlags([]string{"--verbose"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}

	layer := layerFromFlags(cmd)
	if layer.Verbose == nil || !*layer.Verbose {
		t.Errorf("Verbose = %v, want true", layer.Verbose)
	}
	if layer.Stacks != nil {
		t.Errorf("Stacks = %v, want nil", layer.Stacks)
	}
}

func TestExitCode(t *testing.T) {
	if got := ExitCode(nil); got != 0 {
		t.Errorf("ExitCode(nil) = %d, want 0", got)
	}
	if got := ExitCode(errors.New("boom")); got != 1 {
		t.Errorf("ExitCode(plain error) = %d, want 1", got)
	}
	if got := ExitCode(exitError{code: 7}); got != 7 {
		t.Errorf("ExitCode(exitError{7}) = %d, want 7", got)
	}
}
