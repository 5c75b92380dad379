package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix is prepended to every recognized environment variable name.
const EnvPrefix = "STAGESMITH_"

// EnvLayer builds the environment configuration layer from a lookup function
// (usually os.LookupEnv). Unparseable values are reported as warnings and the
// field is left undefined so resolution falls through to the next layer.
func EnvLayer(lookup func(string) (string, bool)) (Layer, []string) {
	var layer Layer
	var warnings []string

	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return "", false
		}
		return strings.TrimSpace(v), true
	}

	if v, ok := get("STACKS"); ok {
		layer.Stacks = SplitList(v)
	}
	intVar := func(name string, dst **int) {
		v, ok := get(name)
		if !ok {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s%s: %q is not an integer", EnvPrefix, name, v))
			return
		}
		*dst = &n
	}
	boolVar := func(name string, dst **bool) {
		v, ok := get(name)
		if !ok {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s%s: %q is not a boolean", EnvPrefix, name, v))
			return
		}
		*dst = &b
	}
	durVar := func(name string, dst **time.Duration) {
		v, ok := get(name)
		if !ok {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s%s: %q is not a duration", EnvPrefix, name, v))
			return
		}
		*dst = &d
	}
	floatVar := func(name string, dst **float32) {
		v, ok := get(name)
		if !ok {
			return
		}
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s%s: %q is not a number", EnvPrefix, name, v))
			return
		}
		f32 := float32(f)
		*dst = &f32
	}
	strVar := func(name string, dst **string) {
		if v, ok := get(name); ok {
			*dst = &v
		}
	}

	intVar("START", &layer.Start)
	intVar("END", &layer.End)
	strVar("MODEL", &layer.Model)
	floatVar("TEMPERATURE", &layer.Temperature)
	intVar("MAX_TOKENS", &layer.MaxTokens)
	strVar("BACKEND_URL", &layer.BackendURL)
	strVar("API_KEY_ENV", &layer.APIKeyEnv)
	boolVar("DRY_RUN", &layer.DryRun)
	intVar("RETRIES", &layer.Retries)
	durVar("RETRY_BACKOFF", &layer.RetryBackoff)
	durVar("PLUGIN_TIMEOUT", &layer.PluginTimeout)
	strVar("TEST_COMMAND", &layer.TestCommand)
	boolVar("NO_OVERWRITE", &layer.NoOverwrite)
	strVar("SEED_DIR", &layer.SeedDir)
	strVar("HISTORY_DB", &layer.HistoryDB)
	boolVar("VERBOSE", &layer.Verbose)

	return layer, warnings
}
