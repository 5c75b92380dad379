// Package gate runs the configured test command after a stage's files are
// written. The command decides whether the pipeline continues; no command
// configured means the gate always passes.
package gate

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// CommandRunner abstracts command execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, dir string, command string) (exitCode int, err error)
}

// ExecRunner implements CommandRunner by shelling out with inherited
// standard streams, so test output lands in the user's terminal.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir string, command string) (int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("exec: %w", err)
	}
	return 0, nil
}

// Gate wraps a test command. An empty command is an always-pass gate.
type Gate struct {
	Command string
	Runner  CommandRunner
}

// New builds a Gate that shells out for real.
func New(command string) *Gate {
	return &Gate{Command: command, Runner: ExecRunner{}}
}

// Check runs the gate in dir. It returns whether the gate passed, the exit
// code, and an error only when the command could not be started at all.
func (g *Gate) Check(ctx context.Context, dir string) (bool, int, error) {
	if g.Command == "" {
		return true, 0, nil
	}
	code, err := g.Runner.Run(ctx, dir, g.Command)
	if err != nil {
		return false, code, fmt.Errorf("run test command %q: %w", g.Command, err)
	}
	return code == 0, code, nil
}
