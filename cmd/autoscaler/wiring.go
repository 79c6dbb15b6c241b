package main

import (
	"context"
	"fmt"

	"github.com/OldStager01/forecast-autoscaler/internal/cluster"
	"github.com/OldStager01/forecast-autoscaler/internal/logger"
	"github.com/OldStager01/forecast-autoscaler/internal/store"
	"github.com/OldStager01/forecast-autoscaler/pkg/config"
	"github.com/OldStager01/forecast-autoscaler/pkg/database"
	"github.com/OldStager01/forecast-autoscaler/pkg/database/queries"
)

func newController(cfg *config.Config) (cluster.Controller, error) {
	switch cfg.Cluster.Provider {
	case config.ClusterProviderAKS:
		return cluster.NewAKSController(cluster.AKSConfig{
			SubscriptionID: cfg.Cluster.SubscriptionID,
			ResourceGroup:  cfg.Cluster.ResourceGroup,
			ClusterName:    cfg.Cluster.Name,
			TenantID:       cfg.Cluster.TenantID,
			ClientID:       cfg.Cluster.ClientID,
			ClientSecret:   cfg.Cluster.ClientSecret,
		})
	case config.ClusterProviderSimulator:
		return cluster.NewSimulatorController(cluster.SimulatorConfig{
			ClusterID:     cfg.Cluster.Name,
			NodePool:      cfg.Cluster.Simulator.NodePool,
			InitialNodes:  cfg.Cluster.Simulator.InitialNodes,
			ProvisionTime: cfg.Cluster.Simulator.ProvisionTime,
		}), nil
	default:
		return nil, fmt.Errorf("unknown cluster provider %q", cfg.Cluster.Provider)
	}
}

func newStore(cfg *config.Config) (store.Store, error) {
	s := cfg.Storage
	switch s.Provider {
	case config.StorageProviderAzureBlob:
		return store.NewAzureBlobStore(store.AzureBlobConfig{
			AccountName: s.AccountName,
			AccountKey:  s.AccountKey,
			Container:   s.Container,
			ServiceURL:  s.ServiceURL,
		})
	case config.StorageProviderHTTP:
		return store.NewHTTPStore(store.HTTPStoreConfig{
			Endpoint:  s.Endpoint,
			Container: s.Container,
			Token:     s.Token,
			Timeout:   s.Timeout,
		})
	case config.StorageProviderFilesystem:
		return store.NewFSStore(s.RootDir, s.Container)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", s.Provider)
	}
}

// openHistory connects to the history database and applies migrations. It
// returns nils when history is disabled.
func openHistory(ctx context.Context, cfg *config.Config) (*database.DB, *queries.CycleRepository, error) {
	if !cfg.Database.Enabled {
		logger.Info("Cycle history disabled")
		return nil, nil, nil
	}

	db, err := database.New(cfg.Database.ToDBConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrate(ctx, cfg, db); err != nil {
		db.Close()
		return nil, nil, err
	}

	return db, queries.NewCycleRepository(db.DB), nil
}

func migrate(ctx context.Context, cfg *config.Config, db *database.DB) error {
	timeout := cfg.Database.MigrationTimeout
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := database.NewMigrator(db).Run(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
