package plugin

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// scriptPlugin interprets a Go fragment with yaegi instead of compiling it.
// The fragment must declare package main and define
//
//	func Run(ctx map[string]string) (string, error)
//
// Only stdlib symbols are available to the script.
type scriptPlugin struct {
	name string
	path string
}

func (p *scriptPlugin) Name() string { return p.name }

// Execute evaluates the script and races its Run function against ctx. If
// the context expires first the invocation counts as failed; the goroutine
// running the script is abandoned, not forcibly terminated.
func (p *scriptPlugin) Execute(ctx context.Context, pc Context) (string, error) {
	src, err := os.ReadFile(p.path)
	if err != nil {
		return "", fmt.Errorf("read plugin %s: %w", p.name, err)
	}

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)

	go func() {
		out, err := p.run(string(src), pc)
		done <- result{out, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("plugin %s: %w", p.name, r.err)
		}
		return r.out, nil
	case <-ctx.Done():
		return "", fmt.Errorf("plugin %s: %w", p.name, ctx.Err())
	}
}

func (p *scriptPlugin) run(src string, pc Context) (out string, err error) {
	// An interpreted fragment can panic; keep that inside the plugin.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	i := interp.New(interp.Options{})
	if uerr := i.Use(stdlib.Symbols); uerr != nil {
		return "", fmt.Errorf("load stdlib symbols: %w", uerr)
	}
	if _, eerr := i.Eval(src); eerr != nil {
		return "", fmt.Errorf("evaluate: %w", eerr)
	}

	v, eerr := i.Eval("main.Run")
	if eerr != nil {
		return "", fmt.Errorf("Run function not found: %w", eerr)
	}
	runFunc, ok := v.Interface().(func(map[string]string) (string, error))
	if !ok {
		return "", fmt.Errorf("Run has wrong signature, want func(map[string]string) (string, error)")
	}

	return runFunc(p.contextMap(pc))
}

// contextMap flattens the plugin context into the map the script receives.
func (p *scriptPlugin) contextMap(pc Context) map[string]string {
	m := map[string]string{
		"stack":    pc.Stack,
		"sequence": strconv.Itoa(pc.Sequence),
		"prompt":   pc.Prompt,
		"workdir":  pc.Workdir,
	}
	for k, v := range pc.Config {
		m[k] = v
	}
	return m
}
