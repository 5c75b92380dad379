// Package plugin loads stack-scoped content and behavior that is injected
// into a stage's payload before generation. Two kinds exist: static text
// fragments appended verbatim, and dynamic Go fragments interpreted at
// runtime. Plugins are discovered by directory scan and invoked through a
// uniform interface; a failing plugin never takes the stage down with it.
package plugin

import "context"

// Context is the record handed to a dynamic plugin invocation.
type Context struct {
	Stack    string
	Sequence int
	Prompt   string            // assembled payload so far
	Workdir  string            // current output tree; plugins may read and write it
	Config   map[string]string // flattened effective configuration
}

// Plugin is one registered capability. Execute returns text to append to the
// stage payload; an empty string means the plugin contributed only side
// effects. Execute must honor ctx cancellation as its deadline.
type Plugin interface {
	Name() string
	Execute(ctx context.Context, pc Context) (string, error)
}

// Set holds the plugins discovered for one stack, already ordered.
type Set struct {
	Static  []Plugin
	Dynamic []Plugin
}
