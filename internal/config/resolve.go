package config

import (
	"fmt"
	"time"
)

// Resolve merges the four configuration layers into an effective Config.
// Precedence per field: CLI > env > file > defaults. It is a pure function:
// the caller reads flags, environment, and the config file and hands them in
// as already-parsed layers.
//
// Resolution always succeeds. Invalid numeric values are corrected to their
// defaults and reported in the returned warnings rather than failing.
func Resolve(cli, env, file Layer, defaults Config) (Config, []string) {
	cfg := defaults
	var warnings []string

	if v := pickList(cli.Stacks, env.Stacks, file.Stacks); v != nil {
		cfg.Stacks = v
	}
	if v := pickInt(cli.Start, env.Start, file.Start); v != nil {
		cfg.Start = *v
	}
	if v := pickInt(cli.End, env.End, file.End); v != nil {
		cfg.End = *v
	}
	if v := pickString(cli.Model, env.Model, file.Model); v != nil {
		cfg.Model = *v
	}
	if v := pickFloat32(cli.Temperature, env.Temperature, file.Temperature); v != nil {
		cfg.Temperature = *v
	}
	if v := pickInt(cli.MaxTokens, env.MaxTokens, file.MaxTokens); v != nil {
		cfg.MaxTokens = *v
	}
	if v := pickString(cli.BackendURL, env.BackendURL, file.BackendURL); v != nil {
		cfg.BackendURL = *v
	}
	if v := pickString(cli.APIKeyEnv, env.APIKeyEnv, file.APIKeyEnv); v != nil {
		cfg.APIKeyEnv = *v
	}
	if v := pickBool(cli.DryRun, env.DryRun, file.DryRun); v != nil {
		cfg.DryRun = *v
	}
	if v := pickInt(cli.Retries, env.Retries, file.Retries); v != nil {
		cfg.Retries = *v
	}
	if v := pickDuration(cli.RetryBackoff, env.RetryBackoff, file.RetryBackoff); v != nil {
		cfg.RetryBackoff = *v
	}
	if v := pickDuration(cli.PluginTimeout, env.PluginTimeout, file.PluginTimeout); v != nil {
		cfg.PluginTimeout = *v
	}
	if v := pickString(cli.TestCommand, env.TestCommand, file.TestCommand); v != nil {
		cfg.TestCommand = *v
	}
	if v := pickBool(cli.NoOverwrite, env.NoOverwrite, file.NoOverwrite); v != nil {
		cfg.NoOverwrite = *v
	}
	if v := pickString(cli.SeedDir, env.SeedDir, file.SeedDir); v != nil {
		cfg.SeedDir = *v
	}
	if v := pickString(cli.HistoryDB, env.HistoryDB, file.HistoryDB); v != nil {
		cfg.HistoryDB = *v
	}
	if v := pickBool(cli.Verbose, env.Verbose, file.Verbose); v != nil {
		cfg.Verbose = *v
	}

	warnings = append(warnings, validate(&cfg, defaults)...)
	return cfg, warnings
}

// validate corrects out-of-range numeric fields back to their defaults.
func validate(cfg *Config, defaults Config) []string {
	var warnings []string

	if cfg.Retries < 0 {
		warnings = append(warnings, fmt.Sprintf("retries %d is negative, using default %d", cfg.Retries, defaults.Retries))
		cfg.Retries = defaults.Retries
	}
	if cfg.RetryBackoff <= 0 {
		warnings = append(warnings, fmt.Sprintf("retry-backoff %s is not positive, using default %s", cfg.RetryBackoff, defaults.RetryBackoff))
		cfg.RetryBackoff = defaults.RetryBackoff
	}
	if cfg.PluginTimeout <= 0 {
		warnings = append(warnings, fmt.Sprintf("plugin-timeout %s is not positive, using default %s", cfg.PluginTimeout, defaults.PluginTimeout))
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	if cfg.Start < 0 {
		warnings = append(warnings, fmt.Sprintf("start %d is negative, using 0", cfg.Start))
		cfg.Start = 0
	}
	if cfg.End < 0 {
		warnings = append(warnings, fmt.Sprintf("end %d is negative, using 0", cfg.End))
		cfg.End = 0
	}
	if cfg.End > 0 && cfg.Start > 0 && cfg.End < cfg.Start {
		warnings = append(warnings, fmt.Sprintf("end %d is below start %d, ignoring end", cfg.End, cfg.Start))
		cfg.End = 0
	}
	if cfg.Temperature < 0 {
		warnings = append(warnings, fmt.Sprintf("temperature %g is negative, using the backend default", cfg.Temperature))
		cfg.Temperature = 0
	}
	if cfg.MaxTokens < 0 {
		warnings = append(warnings, fmt.Sprintf("max-tokens %d is negative, using no cap", cfg.MaxTokens))
		cfg.MaxTokens = 0
	}
	return warnings
}

func pickList(layers ...[]string) []string {
	for _, l := range layers {
		if l != nil {
			return l
		}
	}
	return nil
}

func pickString(layers ...*string) *string {
	for _, l := range layers {
		if l != nil {
			return l
		}
	}
	return nil
}

func pickInt(layers ...*int) *int {
	for _, l := range layers {
		if l != nil {
			return l
		}
	}
	return nil
}

func pickBool(layers ...*bool) *bool {
	for _, l := range layers {
		if l != nil {
			return l
		}
	}
	return nil
}

func pickFloat32(layers ...*float32) *float32 {
	for _, l := range layers {
		if l != nil {
			return l
		}
	}
	return nil
}

func pickDuration(layers ...*time.Duration) *time.Duration {
	for _, l := range layers {
		if l != nil {
			return l
		}
	}
	return nil
}
