package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stagesmith/stagesmith/internal/config"
	"github.com/stagesmith/stagesmith/internal/workspace"
)

var version = "dev"

// SetVersion sets the version string reported by the version command.
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "stagesmith",
	Short: "stagesmith — a staged, prompt-driven code generation pipeline",
	Long: `stagesmith reads ordered stage prompts from stacks, sends them to a
generation backend, and materializes the structured replies into a versioned
output tree. Unchanged stages are skipped via a content-hash cache, and the
bootstrap loop can re-run the pipeline with the engine binary the pipeline
itself regenerated.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("workdir", ".", "working directory holding stacks/, current/, and the config file")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(bootstrapCmd)
	rootCmd.AddCommand(stagesCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

// exitError carries a child process exit status up to main.
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// ExitCode maps an Execute error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if ee, ok := err.(exitError); ok {
		return ee.code
	}
	return 1
}

// newLogger builds the diagnostic logger. Progress trace output goes
// through the engine's progress writer, not through here.
func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// setup resolves the effective configuration for a command: CLI flags over
// environment over the workdir config file over defaults.
func setup(cmd *cobra.Command) (*config.Config, *workspace.Workspace, *zap.Logger, error) {
	workdir, _ := cmd.Flags().GetString("workdir")
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := newLogger(verbose)

	ws, err := workspace.New(workdir)
	if err != nil {
		return nil, nil, nil, err
	}

	cliLayer := layerFromFlags(cmd)
	envLayer, envWarnings := config.EnvLayer(os.LookupEnv)
	fileLayer := config.LoadFile(ws.ConfigPath(), logger)

	cfg, warnings := config.Resolve(cliLayer, envLayer, fileLayer, config.Defaults())
	cfg.Workdir = ws.Root()
	for _, w := range append(envWarnings, warnings...) {
		logger.Warn("configuration", zap.String("problem", w))
	}
	return &cfg, ws, logger, nil
}
