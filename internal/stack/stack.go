// Package stack discovers and orders the numbered stage files that make up
// a pipeline run. A stack is a directory of NNN_description prompt files
// plus an optional plugins/ subdirectory.
package stack

import "fmt"

// Stage identifies one numbered prompt file within a stack. Descriptors are
// produced by a directory scan and never mutated afterwards.
type Stage struct {
	Stack    string // stack name (directory basename)
	Sequence int    // parsed from the NNN_ filename prefix
	Path     string // absolute path to the stage file
}

// Key returns the stable "stack/NNN" identifier used by the cache store and
// the event log.
func (s Stage) Key() string {
	return fmt.Sprintf("%s/%03d", s.Stack, s.Sequence)
}

func (s Stage) String() string {
	return s.Key()
}
