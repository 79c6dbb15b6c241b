package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/OldStager01/forecast-autoscaler/internal/logger"
	"github.com/OldStager01/forecast-autoscaler/internal/simulator"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		pattern  string
		logLevel string
	)
	cfg := simulator.Config{Generator: simulator.DefaultGeneratorConfig()}

	cmd := &cobra.Command{
		Use:   "simulator",
		Short: "Serve a synthetic artifact bucket for local runs",
		Long: `Publishes a generated activity dataset and matching models over HTTP in
the layout read by the http storage provider. Activity can be reshaped at
runtime through /pattern and /spike.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Setup(logLevel, "development")
			logger.Info("Starting artifact simulator")

			sim, err := simulator.New(cfg)
			if err != nil {
				return fmt.Errorf("failed to create simulator: %w", err)
			}
			if pattern != "" {
				if err := sim.SetPattern(cmd.Context(), simulator.ParsePattern(pattern, cfg.Generator.Seed)); err != nil {
					return err
				}
			}

			if err := sim.Start(); err != nil {
				return fmt.Errorf("failed to start simulator: %w", err)
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			<-sigChan

			logger.Info("Shutting down simulator")
			return sim.Stop()
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&cfg.Port, "port", "p", 9000, "simulator server port")
	flags.StringVar(&cfg.Container, "container", "artifacts", "container name served under /{container}/")
	flags.StringVar(&cfg.Token, "token", "", "bearer token required on every request")
	flags.IntVar(&cfg.Samples, "samples", 168, "number of dataset samples to publish")
	flags.Int64Var(&cfg.Generator.Seed, "seed", 1, "random seed for variance and the random pattern")
	flags.StringVar(&pattern, "pattern", "", "initial activity pattern")
	flags.StringVar(&logLevel, "log-level", "info", "log level")
	return cmd
}
