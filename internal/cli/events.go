package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stagesmith/stagesmith/internal/history"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent pipeline events from the history log",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ws, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		histPath := ws.HistoryPath()
		if cfg.HistoryDB != "" {
			histPath = cfg.HistoryDB
		}
		db, err := history.Open(histPath)
		if err != nil {
			return fmt.Errorf("open event log: %w", err)
		}
		defer db.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		events, err := db.RecentEvents(limit)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no events recorded")
			return nil
		}

		out := cmd.OutOrStdout()
		for _, ev := range events {
			target := "-"
			if ev.Stack != "" {
				target = fmt.Sprintf("%s/%03d", ev.Stack, ev.Sequence)
			}
			fmt.Fprintf(out, "%s  %-26s %-16s %-15s %s\n",
				ev.Timestamp, ev.RunID, ev.Event, target, ev.Detail)
		}
		return nil
	},
}

func init() {
	addPipelineFlags(eventsCmd)
	eventsCmd.Flags().Int("limit", 50, "maximum number of events to show, newest first")
}
