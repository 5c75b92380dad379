package plugin

import (
	"context"
	"fmt"
	"os"
)

// staticPlugin appends a text fragment verbatim.
type staticPlugin struct {
	name string
	path string
}

func (p *staticPlugin) Name() string { return p.name }

func (p *staticPlugin) Execute(_ context.Context, _ Context) (string, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return "", fmt.Errorf("read static plugin %s: %w", p.name, err)
	}
	return string(data), nil
}
