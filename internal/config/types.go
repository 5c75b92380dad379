package config

import (
	"strings"
	"time"
)

// Config is the effective configuration after layer resolution.
// Workdir is resolved before the layers (the config file lives under it)
// and is therefore CLI-or-default only.
type Config struct {
	Stacks        []string
	Start         int
	End           int
	Model         string
	Temperature   float32 // 0 leaves the backend's default in place
	MaxTokens     int     // 0 means no explicit cap
	BackendURL    string
	APIKeyEnv     string
	DryRun        bool
	Retries       int
	RetryBackoff  time.Duration
	PluginTimeout time.Duration
	TestCommand   string
	NoOverwrite   bool
	SeedDir       string
	HistoryDB     string
	Verbose       bool
	Workdir       string
}

// Layer is one configuration source. A nil field means the source does not
// define that option and resolution falls through to the next layer.
// Stacks is replaced wholesale by the highest layer that defines it,
// never concatenated.
type Layer struct {
	Stacks        []string
	Start         *int
	End           *int
	Model         *string
	Temperature   *float32
	MaxTokens     *int
	BackendURL    *string
	APIKeyEnv     *string
	DryRun        *bool
	Retries       *int
	RetryBackoff  *time.Duration
	PluginTimeout *time.Duration
	TestCommand   *string
	NoOverwrite   *bool
	SeedDir       *string
	HistoryDB     *string
	Verbose       *bool
}

// Defaults returns the built-in configuration layer.
func Defaults() Config {
	return Config{
		Stacks:        []string{"core"},
		Model:         "gpt-4o-mini",
		APIKeyEnv:     "OPENAI_API_KEY",
		Retries:       2,
		RetryBackoff:  2 * time.Second,
		PluginTimeout: 30 * time.Second,
	}
}

// SplitList normalizes a comma-separated list value: elements are trimmed
// and empty elements dropped. Returns nil for a blank input.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
