package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/stagesmith/stagesmith/internal/bootstrap"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Run the pipeline one sequence at a time with the regenerated binary",
	Long: `bootstrap seeds the current tree, then processes each sequence number in a
fresh child process. If an earlier sequence regenerated current/bin/stagesmith,
later sequences run under that binary, so the pipeline rebuilds itself as it
goes. The loop halts at the first failing sequence and exits with the child's
status.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ws, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		if err := ws.Init(); err != nil {
			return err
		}

		loop := bootstrap.New(ws, cfg, logger)
		loop.SetProgress(os.Stderr)

		code, err := loop.Run(cmd.Context())
		if err != nil {
			return err
		}
		if code != 0 {
			return exitError{code: code}
		}
		return nil
	},
}

func init() {
	addPipelineFlags(bootstrapCmd)
}
