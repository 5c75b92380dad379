package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration after layer resolution",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "workdir:        %s\n", cfg.Workdir)
		fmt.Fprintf(out, "stacks:         %s\n", strings.Join(cfg.Stacks, ", "))
		fmt.Fprintf(out, "start:          %d\n", cfg.Start)
		fmt.Fprintf(out, "end:            %d\n", cfg.End)
		fmt.Fprintf(out, "model:          %s\n", cfg.Model)
		fmt.Fprintf(out, "temperature:    %g\n", cfg.Temperature)
		fmt.Fprintf(out, "max_tokens:     %d\n", cfg.MaxTokens)
		fmt.Fprintf(out, "backend_url:    %s\n", cfg.BackendURL)
		fmt.Fprintf(out, "api_key_env:    %s\n", cfg.APIKeyEnv)
		fmt.Fprintf(out, "dry_run:        %t\n", cfg.DryRun)
		fmt.Fprintf(out, "retries:        %d\n", cfg.Retries)
		fmt.Fprintf(out, "retry_backoff:  %s\n", cfg.RetryBackoff)
		fmt.Fprintf(out, "plugin_timeout: %s\n", cfg.PluginTimeout)
		fmt.Fprintf(out, "test_command:   %s\n", cfg.TestCommand)
		fmt.Fprintf(out, "no_overwrite:   %t\n", cfg.NoOverwrite)
		fmt.Fprintf(out, "seed_dir:       %s\n", cfg.SeedDir)
		fmt.Fprintf(out, "history_db:     %s\n", cfg.HistoryDB)
		return nil
	},
}

func init() {
	addPipelineFlags(configCmd)
}
