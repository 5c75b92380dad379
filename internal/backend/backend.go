// Package backend abstracts the text-generation service behind a single
// generate call. The engine never talks HTTP directly; it holds a Generator
// and the rest is this package's problem.
package backend

import "context"

// ModelOptions carries the per-request model configuration.
type ModelOptions struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// Generator produces text for a system instruction and user prompt.
// Implementations own their retry policy; a returned error means retries
// are exhausted and the stage is fatal.
type Generator interface {
	Generate(ctx context.Context, system, prompt string, opts ModelOptions) (string, error)
}
