package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// legacyEnv maps keys to the environment variable names used by the batch job deployment.
var legacyEnv = map[string]string{
	"cluster.client_id":       "SP_APP_ID",
	"cluster.client_secret":   "SP_APP_SECRET",
	"cluster.tenant_id":       "TENANT_ID",
	"cluster.resource_group":  "AKS_RG",
	"cluster.name":            "AKS_NAME",
	"cluster.subscription_id": "AZURE_SUBSCRIPTION_ID",
	"storage.account_name":    "STORAGE_ACCT_NAME",
	"storage.account_key":     "STORAGE_ACCT_KEY",
	"storage.container":       "STORAGE_BLOB_NAME",
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/autoscaler")
	}

	v.SetEnvPrefix("AUTOSCALER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AUTOSCALER_* wins over the legacy name when both are set
	for key, legacy := range legacyEnv {
		envKey := "AUTOSCALER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "forecast-autoscaler")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", "30s")

	// Cluster defaults
	v.SetDefault("cluster.provider", ClusterProviderAKS)
	v.SetDefault("cluster.simulator.node_pool", "agentpool")
	v.SetDefault("cluster.simulator.initial_nodes", 2)
	v.SetDefault("cluster.simulator.provision_time", "0s")

	// Storage defaults
	v.SetDefault("storage.provider", StorageProviderAzureBlob)
	v.SetDefault("storage.timeout", "30s")

	// Artifact keys
	v.SetDefault("artifacts.dataset", "log_data.json")
	v.SetDefault("artifacts.admin_model", "admin_users.json")
	v.SetDefault("artifacts.config_model", "config_users.json")
	v.SetDefault("artifacts.end_user_model", "end_users.json")
	v.SetDefault("artifacts.completion_time_model", "avg_completion_time.json")

	// Forecast defaults
	v.SetDefault("forecast.windows.admin", 5)
	v.SetDefault("forecast.windows.config", 7)
	v.SetDefault("forecast.windows.end_user", 21)
	v.SetDefault("forecast.shared_end_user_model", false)

	// Policy defaults
	v.SetDefault("policy.sla", 50.0)
	v.SetDefault("policy.threshold", 20.0)
	v.SetDefault("policy.scale_increment", 1)
	v.SetDefault("policy.min_nodes", 2)
	v.SetDefault("policy.floor_mode", "symmetric")

	// Schedule defaults
	v.SetDefault("schedule.interval", "5m")
	v.SetDefault("schedule.cycle_timeout", "4m")
	v.SetDefault("schedule.resize_timeout", "30m")
	v.SetDefault("schedule.circuit_breaker.max_failures", 3)
	v.SetDefault("schedule.circuit_breaker.timeout", "15m")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.path", "autoscaler.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "autoscaler")
	v.SetDefault("database.user", "admin")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.migration_timeout", "1m")
	v.SetDefault("database.retention", "720h")

	// API defaults
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "15s")
	v.SetDefault("api.idle_timeout", "60s")
	v.SetDefault("api.rate_limit", 100)
	v.SetDefault("api.jwt_secret", "change-me-in-production")
	v.SetDefault("api.jwt_duration", "24h")
	v.SetDefault("api.jwt_issuer", "forecast-autoscaler")
	v.SetDefault("api.default_limit", 20)
	v.SetDefault("api.max_limit", 200)
	v.SetDefault("api.swagger_enabled", true)

	// WebSocket defaults
	v.SetDefault("websocket.max_connections", 100)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.write_timeout", "10s")
	v.SetDefault("websocket.pong_timeout", "60s")
	v.SetDefault("websocket.max_message_size", 512)
	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.broadcast_buffer", 256)
	v.SetDefault("websocket.client_buffer", 256)

	// Prometheus defaults
	v.SetDefault("prometheus.enabled", false)
	v.SetDefault("prometheus.port", 9090)

	// Events defaults
	v.SetDefault("events.buffer_size", 100)
}
