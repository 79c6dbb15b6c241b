package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/OldStager01/forecast-autoscaler/api"
	"github.com/OldStager01/forecast-autoscaler/internal/auth"
	"github.com/OldStager01/forecast-autoscaler/internal/events"
	"github.com/OldStager01/forecast-autoscaler/internal/forecast"
	"github.com/OldStager01/forecast-autoscaler/internal/logger"
	"github.com/OldStager01/forecast-autoscaler/internal/metrics"
	"github.com/OldStager01/forecast-autoscaler/internal/orchestrator"
	"github.com/OldStager01/forecast-autoscaler/internal/store"
	"github.com/OldStager01/forecast-autoscaler/pkg/config"
	"github.com/OldStager01/forecast-autoscaler/pkg/database"
	"github.com/OldStager01/forecast-autoscaler/pkg/database/queries"
	"github.com/OldStager01/forecast-autoscaler/pkg/models"
	"github.com/OldStager01/forecast-autoscaler/pkg/validation"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a single decision cycle and exit",
		Long: `Runs one decision cycle against the configured cluster and prints the
cycle record as JSON. The exit code is non-zero when the cycle fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOnce(cmd)
		},
	}
}

func (a *app) runOnce(cmd *cobra.Command) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	o, db, err := buildOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	if err := o.Start(); err != nil {
		return fmt.Errorf("failed to start orchestrator: %w", err)
	}
	defer o.Stop()

	record, err := o.RunOnce(ctx)
	if record != nil {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(record); encErr != nil {
			logger.Warnf("Failed to print cycle record: %v", encErr)
		}
	}
	return err
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run cycles on a schedule and serve the operator API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	o, db, err := buildOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	if err := o.Start(); err != nil {
		return fmt.Errorf("failed to start orchestrator: %w", err)
	}
	defer o.Stop()

	if err := o.StartScheduler(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	errChan := make(chan error, 1)
	var server *api.Server
	var metricsServer *http.Server

	if cfg.API.Enabled {
		server = api.NewServer(cfg.API, o, api.Options{
			DB:        db,
			Metrics:   metrics.Get(),
			WebSocket: &cfg.WebSocket,
		})
		go func() {
			logger.Infof("API server listening on port %d", cfg.API.Port)
			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	} else if cfg.Prometheus.Enabled {
		metricsServer = metrics.StartServer(cfg.Prometheus.Port)
	}

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	timeout := cfg.App.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics shutdown error: %w", err)
		}
	}

	logger.Info("Autoscaler stopped gracefully")
	return nil
}

// buildOrchestrator wires the configured cluster, artifact store and optional
// history database into an orchestrator. The returned DB may be nil.
func buildOrchestrator(ctx context.Context, cfg *config.Config) (*orchestrator.Orchestrator, *database.DB, error) {
	controller, err := newController(cfg)
	if err != nil {
		return nil, nil, err
	}

	artifacts, err := newStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	db, history, err := openHistory(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	var cycleStore events.CycleStore
	if history != nil {
		cycleStore = history
	}

	o, err := orchestrator.New(cfg, controller, artifacts, cycleStore, metrics.Get())
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, nil, err
	}
	return o, db, nil
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations for the cycle history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadUnvalidated()
			if err != nil {
				return err
			}

			db, err := database.New(cfg.Database.ToDBConfig())
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			logger.Info("Running database migrations")
			if err := migrate(cmd.Context(), cfg, db); err != nil {
				return err
			}
			logger.Info("Migrations completed successfully")
			return nil
		},
	}
}

func newPruneCmd(a *app) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete cycle history older than the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadUnvalidated()
			if err != nil {
				return err
			}

			retention := olderThan
			if retention <= 0 {
				retention = cfg.Database.Retention
			}
			if retention <= 0 {
				return errors.New("no retention configured; set database.retention or --older-than")
			}

			db, err := database.New(cfg.Database.ToDBConfig())
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			cutoff := time.Now().UTC().Add(-retention)
			deleted, err := queries.NewCycleRepository(db.DB).DeleteBefore(cmd.Context(), cutoff)
			if err != nil {
				return fmt.Errorf("prune failed: %w", err)
			}

			logger.WithFields(map[string]interface{}{
				"cutoff":  cutoff.Format(time.RFC3339),
				"deleted": deleted,
			}).Info("Pruned cycle history")
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "override database.retention")
	return cmd
}

func newPushCmd(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Upload a dataset and models to the artifact store",
		Long: `Reads the dataset and model files named by the artifacts section of the
config from a local directory, checks that each one decodes, and uploads them
to the configured artifact store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadUnvalidated()
			if err != nil {
				return err
			}

			artifacts, err := newStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close(artifacts)

			session, err := artifacts.Authenticate(cmd.Context())
			if err != nil {
				return err
			}

			n, err := pushArtifacts(cmd.Context(), afero.NewOsFs(), dir, session, orchestrator.ArtifactKeys(cfg.Artifacts))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d artifacts to %s\n", n, cfg.Storage.Container)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "directory holding the artifact files")
	return cmd
}

// pushArtifacts validates every artifact file under dir before uploading any
// of them, so a bad file never leaves the store half updated.
func pushArtifacts(ctx context.Context, fsys afero.Fs, dir string, session store.Session, keys forecast.ArtifactKeys) (int, error) {
	type upload struct {
		key  string
		data []byte
	}

	var uploads []upload

	data, err := afero.ReadFile(fsys, filepath.Join(dir, keys.Dataset))
	if err != nil {
		return 0, fmt.Errorf("read dataset: %w", err)
	}
	if _, err := forecast.DecodeDataset(data); err != nil {
		return 0, fmt.Errorf("dataset %s: %w", keys.Dataset, err)
	}
	uploads = append(uploads, upload{keys.Dataset, data})

	roles := append(append([]models.Role{}, models.ActivityRoles...), models.RoleCompletionTime)
	for _, role := range roles {
		key := keys.ModelKeys()[role]
		data, err := afero.ReadFile(fsys, filepath.Join(dir, key))
		if err != nil {
			return 0, fmt.Errorf("read %s model: %w", role, err)
		}
		if _, err := forecast.DecodeModel(data); err != nil {
			return 0, fmt.Errorf("%s model %s: %w", role, key, err)
		}
		uploads = append(uploads, upload{key, data})
	}

	for _, u := range uploads {
		if err := session.Put(ctx, u.key, u.data); err != nil {
			return 0, err
		}
		logger.WithField("key", u.key).Info("Uploaded artifact")
	}
	return len(uploads), nil
}

func newTokenCmd(a *app) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator token for the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadUnvalidated()
			if err != nil {
				return err
			}
			if cfg.API.JWTSecret == "" {
				return errors.New("api.jwt_secret is not set")
			}
			if username == "" {
				username = cfg.API.OperatorUsername
			}
			if username == "" {
				return errors.New("no username; pass --username or set api.operator_username")
			}

			duration := cfg.API.JWTDuration
			if duration <= 0 {
				duration = 24 * time.Hour
			}
			token, err := auth.NewService(cfg.API.JWTSecret, duration, cfg.API.JWTIssuer).GenerateToken(username)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "token subject")
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for api.operator_password_hash",
		Long: `Hashes the given password, or the first line of stdin when no argument
is given, for use as api.operator_password_hash.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if err := validation.ValidatePassword(password); err != nil {
				return err
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
