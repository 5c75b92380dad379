package cli

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stagesmith/stagesmith/internal/assemble"
	"github.com/stagesmith/stagesmith/internal/backend"
	"github.com/stagesmith/stagesmith/internal/cache"
	"github.com/stagesmith/stagesmith/internal/config"
	"github.com/stagesmith/stagesmith/internal/engine"
	"github.com/stagesmith/stagesmith/internal/gate"
	"github.com/stagesmith/stagesmith/internal/history"
	"github.com/stagesmith/stagesmith/internal/workspace"
	"github.com/stagesmith/stagesmith/internal/writer"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process the configured stage range",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ws, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		if clear, _ := cmd.Flags().GetBool("clear-cache"); clear {
			if err := cache.Clear(ws.CachePath()); err != nil {
				return err
			}
			logger.Info("cache cleared", zap.String("path", ws.CachePath()))
		}

		eng, cleanup, err := buildEngine(cfg, ws, logger)
		if err != nil {
			return err
		}
		defer cleanup()
		eng.SetProgress(os.Stderr)

		return eng.Run(cmd.Context())
	},
}

func init() {
	addPipelineFlags(runCmd)
	runCmd.Flags().Bool("clear-cache", false, "drop the stage cache before running")
}

// buildEngine wires the engine's collaborators from the resolved config.
// The returned cleanup closes the history database.
func buildEngine(cfg *config.Config, ws *workspace.Workspace, logger *zap.Logger) (*engine.Engine, func(), error) {
	if err := ws.Init(); err != nil {
		return nil, nil, err
	}

	store := cache.Open(ws.CachePath(), logger)
	builder := assemble.NewBuilder(ws, cfg, logger)
	w := writer.New(ws, cfg.NoOverwrite, logger)
	g := gate.New(cfg.TestCommand)

	var gen backend.Generator
	if cfg.DryRun {
		gen = backend.DryRun{}
	} else {
		apiKey := os.Getenv(cfg.APIKeyEnv)
		gen = backend.NewClient(cfg.BackendURL, apiKey, cfg.Retries, cfg.RetryBackoff, logger)
	}

	// History is best effort. A broken event log never blocks a run.
	histPath := ws.HistoryPath()
	if cfg.HistoryDB != "" {
		histPath = cfg.HistoryDB
	}
	hist, err := history.Open(histPath)
	if err != nil {
		logger.Warn("event log unavailable", zap.String("path", histPath), zap.Error(err))
		hist = nil
	}
	cleanup := func() {
		if hist != nil {
			hist.Close()
		}
	}

	return engine.New(ws, cfg, store, builder, gen, w, g, hist, logger), cleanup, nil
}
