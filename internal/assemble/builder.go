// Package assemble turns a stage file into the request payload sent to the
// generation backend: the stage's own text with its Context: directive
// expanded from the current output tree, followed by the stack's plugin
// contributions.
package assemble

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/stagesmith/stagesmith/internal/config"
	"github.com/stagesmith/stagesmith/internal/plugin"
	"github.com/stagesmith/stagesmith/internal/stack"
	"github.com/stagesmith/stagesmith/internal/workspace"
)

// systemInstruction tells the backend how to announce generated files so the
// protocol parser can extract them.
const systemInstruction = `You are a code generator in an automated pipeline.
For every file you produce, announce it exactly as:

Path: relative/path/to/file
` + "```" + `
<full file content>
` + "```" + `

Emit complete files only, no diffs or elisions. Text outside these blocks is ignored.`

const contextDirective = "Context:"

// Payload is a fully assembled backend request.
type Payload struct {
	System string
	Prompt string
}

// Builder assembles stage payloads. Context files are read from the
// workspace's current tree; plugins come from the stage's stack.
type Builder struct {
	ws     *workspace.Workspace
	cfg    *config.Config
	logger *zap.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(ws *workspace.Workspace, cfg *config.Config, logger *zap.Logger) *Builder {
	return &Builder{ws: ws, cfg: cfg, logger: logger}
}

// Build assembles the payload for one stage from its raw source text:
// expand the Context: directive, append static plugin fragments, then run
// dynamic plugins under the per-plugin timeout. Plugin failures are logged
// and their contribution dropped; they never abort the stage.
func (b *Builder) Build(ctx context.Context, st stack.Stage, rawText string) (*Payload, error) {
	prompt := b.expandContext(st, rawText)

	set, err := plugin.Load(stack.PluginsDir(b.ws.StacksDir(), st.Stack))
	if err != nil {
		return nil, fmt.Errorf("load plugins for stack %s: %w", st.Stack, err)
	}

	for _, p := range set.Static {
		out, err := p.Execute(ctx, plugin.Context{})
		if err != nil {
			b.logger.Warn("static plugin failed, skipping",
				zap.String("stage", st.Key()), zap.String("plugin", p.Name()), zap.Error(err))
			continue
		}
		prompt = appendFragment(prompt, out)
	}

	for _, p := range set.Dynamic {
		pc := plugin.Context{
			Stack:    st.Stack,
			Sequence: st.Sequence,
			Prompt:   prompt,
			Workdir:  b.ws.CurrentDir(),
			Config:   b.configMap(),
		}
		pctx, cancel := context.WithTimeout(ctx, b.cfg.PluginTimeout)
		out, err := p.Execute(pctx, pc)
		cancel()
		if err != nil {
			b.logger.Warn("dynamic plugin failed, skipping",
				zap.String("stage", st.Key()), zap.String("plugin", p.Name()), zap.Error(err))
			continue
		}
		prompt = appendFragment(prompt, out)
	}

	return &Payload{System: systemInstruction, Prompt: prompt}, nil
}

// expandContext splices the files named by a single Context: directive into
// the payload in place of the directive line. Unreadable files degrade to a
// warning and are skipped.
func (b *Builder) expandContext(st stack.Stage, text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if !strings.HasPrefix(strings.TrimSpace(line), contextDirective) {
			continue
		}
		list := strings.TrimPrefix(strings.TrimSpace(line), contextDirective)
		var blocks []string
		for _, ref := range config.SplitList(list) {
			content, err := b.ws.ReadCurrent(ref)
			if err != nil {
				b.logger.Warn("context file unreadable, skipping",
					zap.String("stage", st.Key()), zap.String("file", ref), zap.Error(err))
				continue
			}
			blocks = append(blocks, fmt.Sprintf("--- %s ---\n%s\n--- end %s ---", ref, content, ref))
		}
		lines[i] = strings.Join(blocks, "\n\n")
		break // only the first directive is honored
	}
	return strings.Join(lines, "\n")
}

// configMap flattens the effective configuration for dynamic plugins.
func (b *Builder) configMap() map[string]string {
	return map[string]string{
		"model":          b.cfg.Model,
		"temperature":    strconv.FormatFloat(float64(b.cfg.Temperature), 'g', -1, 32),
		"max_tokens":     strconv.Itoa(b.cfg.MaxTokens),
		"dry_run":        strconv.FormatBool(b.cfg.DryRun),
		"retries":        strconv.Itoa(b.cfg.Retries),
		"plugin_timeout": b.cfg.PluginTimeout.String(),
		"test_command":   b.cfg.TestCommand,
		"stacks":         strings.Join(b.cfg.Stacks, ","),
	}
}

func appendFragment(prompt, fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return prompt
	}
	return strings.TrimRight(prompt, "\n") + "\n\n" + strings.TrimRight(fragment, "\n") + "\n"
}
