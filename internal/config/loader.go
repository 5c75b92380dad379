package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// FileName is the config file stagesmith looks for at the workdir root.
const FileName = "stagesmith.yaml"

// fileConfig mirrors the YAML config file. Keys follow the CLI flag names
// with dashes replaced by underscores. Pointer fields distinguish "absent"
// from zero values so the layer falls through correctly.
type fileConfig struct {
	Stacks        stackList `yaml:"stacks"` // list or comma-separated string
	Start         *int      `yaml:"start"`
	End           *int      `yaml:"end"`
	Model         *string   `yaml:"model"`
	Temperature   *float32  `yaml:"temperature"`
	MaxTokens     *int      `yaml:"max_tokens"`
	BackendURL    *string   `yaml:"backend_url"`
	APIKeyEnv     *string   `yaml:"api_key_env"`
	DryRun        *bool     `yaml:"dry_run"`
	Retries       *int      `yaml:"retries"`
	RetryBackoff  *string   `yaml:"retry_backoff"`
	PluginTimeout *string   `yaml:"plugin_timeout"`
	TestCommand   *string   `yaml:"test_command"`
	NoOverwrite   *bool     `yaml:"no_overwrite"`
	SeedDir       *string   `yaml:"seed_dir"`
	HistoryDB     *string   `yaml:"history_db"`
	Verbose       *bool     `yaml:"verbose"`
}

// stackList accepts either a YAML sequence of names or the comma-separated
// scalar form the env layer uses.
type stackList []string

func (s *stackList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		var out []string
		for _, item := range items {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		*s = out
		return nil
	case yaml.ScalarNode:
		var raw string
		if err := value.Decode(&raw); err != nil {
			return err
		}
		*s = SplitList(raw)
		return nil
	default:
		return fmt.Errorf("stacks: want a list or a comma-separated string")
	}
}

// LoadFile reads the config file at path into a Layer. A missing file is an
// empty layer. A malformed file also degrades to an empty layer — the error
// is logged, never fatal, so resolution can proceed with env and defaults.
func LoadFile(path string, logger *zap.Logger) Layer {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Error("reading config file", zap.String("path", path), zap.Error(err))
		}
		return Layer{}
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		logger.Error("config file is malformed, ignoring it", zap.String("path", path), zap.Error(err))
		return Layer{}
	}

	layer, warnings := fc.layer()
	for _, w := range warnings {
		logger.Warn("config file", zap.String("path", path), zap.String("problem", w))
	}
	return layer
}

// layer converts the parsed file into a Layer, reporting unparseable
// duration strings as warnings.
func (fc *fileConfig) layer() (Layer, []string) {
	var warnings []string
	layer := Layer{
		Start:       fc.Start,
		End:         fc.End,
		Model:       fc.Model,
		Temperature: fc.Temperature,
		MaxTokens:   fc.MaxTokens,
		BackendURL:  fc.BackendURL,
		APIKeyEnv:   fc.APIKeyEnv,
		DryRun:      fc.DryRun,
		Retries:     fc.Retries,
		TestCommand: fc.TestCommand,
		NoOverwrite: fc.NoOverwrite,
		SeedDir:     fc.SeedDir,
		HistoryDB:   fc.HistoryDB,
		Verbose:     fc.Verbose,
	}
	if len(fc.Stacks) > 0 {
		layer.Stacks = []string(fc.Stacks)
	}
	if fc.RetryBackoff != nil {
		if d, err := parseDuration(*fc.RetryBackoff); err == nil {
			layer.RetryBackoff = &d
		} else {
			warnings = append(warnings, fmt.Sprintf("retry_backoff: %v", err))
		}
	}
	if fc.PluginTimeout != nil {
		if d, err := parseDuration(*fc.PluginTimeout); err == nil {
			layer.PluginTimeout = &d
		} else {
			warnings = append(warnings, fmt.Sprintf("plugin_timeout: %v", err))
		}
	}
	return layer, warnings
}

// parseDuration accepts either a Go duration string ("30s") or a bare
// number of seconds.
func parseDuration(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}
