package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stagesmith/stagesmith/internal/cache"
	"github.com/stagesmith/stagesmith/internal/stack"
)

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "List discovered stages and their cache status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ws, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		stages := stack.Discover(ws.StacksDir(), cfg.Stacks, logger)
		if len(stages) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no stages found")
			return nil
		}

		store := cache.Open(ws.CachePath(), logger)
		entries := store.Entries()

		out := cmd.OutOrStdout()
		for _, st := range stages {
			status := "pending"
			if entry, ok := entries[st.Key()]; ok {
				data, err := os.ReadFile(st.Path)
				switch {
				case err != nil:
					status = "unreadable"
				case entry.Hash != cache.Hash(string(data)):
					status = "changed"
				case entry.Outcome == cache.Success:
					status = "cached"
				default:
					status = "failed"
				}
			}
			fmt.Fprintf(out, "%-24s %-10s %s\n", st.Key(), status, filepath.Base(st.Path))
		}
		return nil
	},
}

func init() {
	addPipelineFlags(stagesCmd)
}
