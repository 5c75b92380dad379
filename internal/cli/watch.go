package cli

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const watchDebounce = 500 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the pipeline whenever a stack file changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ws, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		defer watcher.Close()

		for _, name := range cfg.Stacks {
			dir := filepath.Join(ws.StacksDir(), name)
			if err := watcher.Add(dir); err != nil {
				logger.Warn("cannot watch stack", zap.String("stack", name), zap.Error(err))
				continue
			}
			plugins := filepath.Join(dir, "plugins")
			if info, err := os.Stat(plugins); err == nil && info.IsDir() {
				if err := watcher.Add(plugins); err != nil {
					logger.Warn("cannot watch plugins", zap.String("stack", name), zap.Error(err))
				}
			}
		}

		runOnce := func() {
			eng, cleanup, err := buildEngine(cfg, ws, logger)
			if err != nil {
				logger.Error("engine setup failed", zap.Error(err))
				return
			}
			defer cleanup()
			eng.SetProgress(os.Stderr)
			if err := eng.Run(cmd.Context()); err != nil {
				logger.Error("run failed", zap.Error(err))
			}
		}

		// Initial pass, then rebuild on every settled burst of changes.
		runOnce()

		var timer *time.Timer
		var pending <-chan time.Time
		for {
			select {
			case <-cmd.Context().Done():
				return nil
			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				logger.Debug("stack change", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
				if timer == nil {
					timer = time.NewTimer(watchDebounce)
					pending = timer.C
				} else {
					if !timer.Stop() {
						<-timer.C
					}
					timer.Reset(watchDebounce)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				logger.Warn("watcher error", zap.Error(err))
			case <-pending:
				timer = nil
				pending = nil
				runOnce()
			}
		}
	},
}

func init() {
	addPipelineFlags(watchCmd)
}
