package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"repofix/internal/gateway/config"
	"repofix/internal/logging"
)

// cli carries what every subcommand needs once PersistentPreRunE has run.
type cli struct {
	cfg    *config.Config
	logger *zap.Logger

	logLevel string
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "repofix",
		Short: "Send a project to a code model and get the fixed project back as a zip",
		Long: `repofix uploads a set of source files together with free-text
instructions to a code-generation model, applies the files the model
rewrote and packages the result as fixed_repo.zip.

Configuration comes from .env, an optional YAML file named by
REPOFIX_CONFIG and the environment (GEMINI_API_KEY, LLM_MODEL, ...).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if c.logLevel != "" {
				cfg.Log.Level = c.logLevel
			}
			logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			c.cfg = cfg
			c.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	root.AddCommand(newServeCmd(c), newFixCmd(c))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
