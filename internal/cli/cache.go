package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/stagesmith/stagesmith/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the stage cache",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print recorded cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, ws, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		store := cache.Open(ws.CachePath(), logger)
		entries := store.Entries()
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "cache is empty")
			return nil
		}

		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := cmd.OutOrStdout()
		for _, k := range keys {
			e := entries[k]
			fmt.Fprintf(out, "%-24s %-8s %s\n", k, e.Outcome, e.Hash)
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop all cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, ws, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		if err := cache.Clear(ws.CachePath()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
