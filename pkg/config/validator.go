package config

import (
	"errors"
	"fmt"

	"github.com/OldStager01/forecast-autoscaler/pkg/apperrors"
	"github.com/OldStager01/forecast-autoscaler/pkg/validation"
)

// Validate checks the configuration before any network call. All problems are
// reported together as one ConfigurationError.
func (c *Config) Validate() error {
	var errs []error

	// App validation
	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, fmt.Errorf("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, fmt.Errorf("app.log_level must be one of: debug, info, warn, error"))
	}

	errs = append(errs, c.validateCluster()...)
	errs = append(errs, c.validateStorage()...)

	// Artifact keys
	for _, field := range []struct{ name, value string }{
		{"artifacts.dataset", c.Artifacts.Dataset},
		{"artifacts.admin_model", c.Artifacts.AdminModel},
		{"artifacts.config_model", c.Artifacts.ConfigModel},
		{"artifacts.end_user_model", c.Artifacts.EndUserModel},
		{"artifacts.completion_time_model", c.Artifacts.CompletionTime},
	} {
		if field.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", field.name))
		}
	}

	// Forecast validation
	if c.Forecast.Windows.Admin <= 0 || c.Forecast.Windows.Config <= 0 || c.Forecast.Windows.EndUser <= 0 {
		errs = append(errs, errors.New("forecast.windows must all be positive"))
	}

	// Policy validation
	if c.Policy.Threshold < 0 {
		errs = append(errs, errors.New("policy.threshold must be >= 0"))
	}
	if c.Policy.ScaleIncrement <= 0 {
		errs = append(errs, errors.New("policy.scale_increment must be positive"))
	}
	if c.Policy.MinNodes <= 0 {
		errs = append(errs, errors.New("policy.min_nodes must be positive"))
	}
	if c.Policy.FloorMode != "symmetric" && c.Policy.FloorMode != "scale_up_only" {
		errs = append(errs, errors.New("policy.floor_mode must be one of: symmetric, scale_up_only"))
	}

	// Schedule validation
	if c.Schedule.Interval <= 0 {
		errs = append(errs, errors.New("schedule.interval must be positive"))
	}
	if c.Schedule.CycleTimeout <= 0 {
		errs = append(errs, errors.New("schedule.cycle_timeout must be positive"))
	}
	if c.Schedule.CycleTimeout > c.Schedule.Interval {
		errs = append(errs, errors.New("schedule.cycle_timeout must not exceed schedule.interval"))
	}
	if c.Schedule.ResizeTimeout <= 0 {
		errs = append(errs, errors.New("schedule.resize_timeout must be positive"))
	}

	// Database validation
	if c.Database.Enabled {
		switch c.Database.Driver {
		case "postgres":
			if c.Database.Host == "" {
				errs = append(errs, errors.New("database.host is required"))
			}
			if c.Database.Port <= 0 || c.Database.Port > 65535 {
				errs = append(errs, errors.New("database.port must be between 1 and 65535"))
			}
			if c.Database.Name == "" {
				errs = append(errs, errors.New("database.name is required"))
			}
		case "sqlite":
			if c.Database.Path == "" {
				errs = append(errs, errors.New("database.path is required for sqlite"))
			}
		default:
			errs = append(errs, errors.New("database.driver must be one of: postgres, sqlite"))
		}
	}

	// API validation
	if c.API.Enabled {
		if c.API.Port <= 0 || c.API.Port > 65535 {
			errs = append(errs, errors.New("api.port must be between 1 and 65535"))
		}
		if c.App.Mode == "production" && c.API.JWTSecret == "change-me-in-production" {
			errs = append(errs, errors.New("api.jwt_secret must be changed in production"))
		}
		if c.API.CORS.AllowCredentials && allowsAnyOrigin(c.API.CORS.AllowedOrigins) {
			errs = append(errs, errors.New("api.cors.allow_credentials requires explicit api.cors.allowed_origins"))
		}
	}

	if len(errs) > 0 {
		return apperrors.Configuration("config.Validate", "config validation failed", errors.Join(errs...))
	}

	return nil
}

func (c *Config) validateCluster() []error {
	var errs []error

	switch c.Cluster.Provider {
	case ClusterProviderAKS:
		required := []struct{ name, value string }{
			{"cluster.subscription_id", c.Cluster.SubscriptionID},
			{"cluster.resource_group", c.Cluster.ResourceGroup},
			{"cluster.name", c.Cluster.Name},
			{"cluster.tenant_id", c.Cluster.TenantID},
			{"cluster.client_id", c.Cluster.ClientID},
			{"cluster.client_secret", c.Cluster.ClientSecret},
		}
		for _, field := range required {
			if field.value == "" {
				errs = append(errs, fmt.Errorf("%s is required", field.name))
			}
		}
	case ClusterProviderSimulator:
		if c.Cluster.Simulator.InitialNodes < 0 {
			errs = append(errs, errors.New("cluster.simulator.initial_nodes must be >= 0"))
		}
		if pool := c.Cluster.Simulator.NodePool; pool != "" {
			if err := validation.ValidateNodePoolName(pool); err != nil {
				errs = append(errs, fmt.Errorf("cluster.simulator.node_pool: %w", err))
			}
		}
	default:
		errs = append(errs, errors.New("cluster.provider must be one of: aks, simulator"))
	}

	if c.Cluster.Name != "" {
		if err := validation.ValidateClusterName(c.Cluster.Name); err != nil {
			errs = append(errs, fmt.Errorf("cluster.name: %w", err))
		}
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	if c.Storage.Container == "" {
		errs = append(errs, errors.New("storage.container is required"))
	}

	switch c.Storage.Provider {
	case StorageProviderAzureBlob:
		if c.Storage.AccountName == "" {
			errs = append(errs, errors.New("storage.account_name is required"))
		}
		if c.Storage.AccountKey == "" {
			errs = append(errs, errors.New("storage.account_key is required"))
		}
	case StorageProviderHTTP:
		if c.Storage.Endpoint == "" {
			errs = append(errs, errors.New("storage.endpoint is required"))
		}
	case StorageProviderFilesystem:
		if c.Storage.RootDir == "" {
			errs = append(errs, errors.New("storage.root_dir is required"))
		}
	default:
		errs = append(errs, errors.New("storage.provider must be one of: azblob, http, filesystem"))
	}

	return errs
}

// allowsAnyOrigin reports whether origins is empty (the default is "*") or
// contains the wildcard.
func allowsAnyOrigin(origins []string) bool {
	if len(origins) == 0 {
		return true
	}
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
