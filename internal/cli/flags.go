package cli

import (
	"github.com/spf13/cobra"

	"github.com/stagesmith/stagesmith/internal/config"
)

// addPipelineFlags registers the flags shared by commands that resolve the
// full pipeline configuration.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().String("stacks", "", "comma-separated stack names, in merge order")
	cmd.Flags().Int("start", 0, "first sequence number to process")
	cmd.Flags().Int("end", 0, "last sequence number to process (0 means no upper bound)")
	cmd.Flags().Bool("dry-run", false, "use the canned offline backend instead of the API")
	cmd.Flags().String("model", "", "backend model name")
	cmd.Flags().Float32("temperature", 0, "sampling temperature (0 leaves the backend default)")
	cmd.Flags().Int("max-tokens", 0, "per-request completion token cap (0 means no cap)")
	cmd.Flags().String("backend-url", "", "backend base URL (empty uses the default API endpoint)")
	cmd.Flags().String("api-key-env", "", "environment variable holding the backend API key")
	cmd.Flags().Int("retries", -1, "retries per backend request after the first attempt")
	cmd.Flags().Duration("retry-backoff", 0, "initial retry backoff, doubled per attempt")
	cmd.Flags().Duration("plugin-timeout", 0, "per-plugin execution timeout")
	cmd.Flags().String("test-command", "", "shell command gating each stage (empty disables the gate)")
	cmd.Flags().Bool("no-overwrite", false, "fail a stage instead of overwriting existing files")
	cmd.Flags().String("seed-dir", "", "seed tree copied into current/ by bootstrap")
	cmd.Flags().String("history-db", "", "path to the event log database")
}

// layerFromFlags builds the CLI configuration layer. Only flags the user
// actually set participate; everything else falls through.
func layerFromFlags(cmd *cobra.Command) config.Layer {
	var layer config.Layer
	flags := cmd.Flags()

	if flags.Changed("verbose") {
		v, _ := flags.GetBool("verbose")
		layer.Verbose = &v
	}
	if flags.Lookup("stacks") == nil {
		return layer
	}
	if flags.Changed("stacks") {
		v, _ := flags.GetString("stacks")
		layer.Stacks = config.SplitList(v)
	}
	if flags.Changed("start") {
		v, _ := flags.GetInt("start")
		layer.Start = &v
	}
	if flags.Changed("end") {
		v, _ := flags.GetInt("end")
		layer.End = &v
	}
	if flags.Changed("dry-run") {
		v, _ := flags.GetBool("dry-run")
		layer.DryRun = &v
	}
	if flags.Changed("model") {
		v, _ := flags.GetString("model")
		layer.Model = &v
	}
	if flags.Changed("temperature") {
		v, _ := flags.GetFloat32("temperature")
		layer.Temperature = &v
	}
	if flags.Changed("max-tokens") {
		v, _ := flags.GetInt("max-tokens")
		layer.MaxTokens = &v
	}
	if flags.Changed("backend-url") {
		v, _ := flags.GetString("backend-url")
		layer.BackendURL = &v
	}
	if flags.Changed("api-key-env") {
		v, _ := flags.GetString("api-key-env")
		layer.APIKeyEnv = &v
	}
	if flags.Changed("retries") {
		v, _ := flags.GetInt("retries")
		layer.Retries = &v
	}
	if flags.Changed("retry-backoff") {
		v, _ := flags.GetDuration("retry-backoff")
		layer.RetryBackoff = &v
	}
	if flags.Changed("plugin-timeout") {
		v, _ := flags.GetDuration("plugin-timeout")
		layer.PluginTimeout = &v
	}
	if flags.Changed("test-command") {
		v, _ := flags.GetString("test-command")
		layer.TestCommand = &v
	}
	if flags.Changed("no-overwrite") {
		v, _ := flags.GetBool("no-overwrite")
		layer.NoOverwrite = &v
	}
	if flags.Changed("seed-dir") {
		v, _ := flags.GetString("seed-dir")
		layer.SeedDir = &v
	}
	if flags.Changed("history-db") {
		v, _ := flags.GetString("history-db")
		layer.HistoryDB = &v
	}
	return layer
}
