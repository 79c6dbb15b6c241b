package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OldStager01/forecast-autoscaler/internal/logger"
	"github.com/OldStager01/forecast-autoscaler/pkg/config"
)

// app carries the flags shared by every subcommand.
type app struct {
	configPath string
}

// @title Forecast Autoscaler API
// @version 1.0
// @description Status, cycle history and manual triggers for the forecast-driven node pool autoscaler.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the token from /auth/login.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "autoscaler",
		Short: "Forecast-driven node pool autoscaler",
		Long: `Runs decision cycles that forecast activity from stored models and
resize a node pool when the predicted completion time leaves the target band.

Without a subcommand a single cycle is run, which suits a cron-style job.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOnce(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to config file")

	root.AddCommand(
		newRunCmd(a),
		newServeCmd(a),
		newMigrateCmd(a),
		newPushCmd(a),
		newPruneCmd(a),
		newTokenCmd(a),
		newHashPasswordCmd(),
	)
	return root
}

// loadConfig reads and validates the config, then configures logging from it.
func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := a.loadUnvalidated()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadUnvalidated is used by commands that only need a slice of the config.
func (a *app) loadUnvalidated() (*config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	return cfg, nil
}
