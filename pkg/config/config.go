package config

import (
	"time"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Cluster    ClusterConfig    `mapstructure:"cluster"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Artifacts  ArtifactsConfig  `mapstructure:"artifacts"`
	Forecast   ForecastConfig   `mapstructure:"forecast"`
	Policy     PolicyConfig     `mapstructure:"policy"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
	Database   DatabaseConfig   `mapstructure:"database"`
	API        APIConfig        `mapstructure:"api"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Events     EventsConfig     `mapstructure:"events"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Mode            string        `mapstructure:"mode"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

const (
	ClusterProviderAKS       = "aks"
	ClusterProviderSimulator = "simulator"
)

type ClusterConfig struct {
	Provider       string             `mapstructure:"provider"`
	SubscriptionID string             `mapstructure:"subscription_id"`
	ResourceGroup  string             `mapstructure:"resource_group"`
	Name           string             `mapstructure:"name"`
	TenantID       string             `mapstructure:"tenant_id"`
	ClientID       string             `mapstructure:"client_id"`
	ClientSecret   string             `mapstructure:"client_secret"`
	Simulator      SimulatorPoolConfig `mapstructure:"simulator"`
}

// SimulatorPoolConfig describes the in-memory cluster used by the simulator provider.
type SimulatorPoolConfig struct {
	NodePool      string        `mapstructure:"node_pool"`
	InitialNodes  int           `mapstructure:"initial_nodes"`
	ProvisionTime time.Duration `mapstructure:"provision_time"`
}

const (
	StorageProviderAzureBlob  = "azblob"
	StorageProviderHTTP       = "http"
	StorageProviderFilesystem = "filesystem"
)

type StorageConfig struct {
	Provider    string        `mapstructure:"provider"`
	AccountName string        `mapstructure:"account_name"`
	AccountKey  string        `mapstructure:"account_key"`
	Container   string        `mapstructure:"container"`
	ServiceURL  string        `mapstructure:"service_url"`
	Endpoint    string        `mapstructure:"endpoint"`
	Token       string        `mapstructure:"token"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RootDir     string        `mapstructure:"root_dir"`
}

type ArtifactsConfig struct {
	Dataset        string `mapstructure:"dataset"`
	AdminModel     string `mapstructure:"admin_model"`
	ConfigModel    string `mapstructure:"config_model"`
	EndUserModel   string `mapstructure:"end_user_model"`
	CompletionTime string `mapstructure:"completion_time_model"`
}

type ForecastConfig struct {
	Windows            WindowsConfig `mapstructure:"windows"`
	SharedEndUserModel bool          `mapstructure:"shared_end_user_model"`
}

type WindowsConfig struct {
	Admin   int `mapstructure:"admin"`
	Config  int `mapstructure:"config"`
	EndUser int `mapstructure:"end_user"`
}

type PolicyConfig struct {
	SLA            float64 `mapstructure:"sla"`
	Threshold      float64 `mapstructure:"threshold"`
	ScaleIncrement int     `mapstructure:"scale_increment"`
	MinNodes       int     `mapstructure:"min_nodes"`
	FloorMode      string  `mapstructure:"floor_mode"`
}

type ScheduleConfig struct {
	Interval       time.Duration        `mapstructure:"interval"`
	CycleTimeout   time.Duration        `mapstructure:"cycle_timeout"`
	ResizeTimeout  time.Duration        `mapstructure:"resize_timeout"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type DatabaseConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Driver           string        `mapstructure:"driver"`
	Path             string        `mapstructure:"path"`
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	Name             string        `mapstructure:"name"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	MaxConnections   int           `mapstructure:"max_connections"`
	SSLMode          string        `mapstructure:"ssl_mode"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime  time.Duration `mapstructure:"conn_max_idle_time"`
	PingTimeout      time.Duration `mapstructure:"ping_timeout"`
	MigrationTimeout time.Duration `mapstructure:"migration_timeout"`
	Retention        time.Duration `mapstructure:"retention"`
}

type APIConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	RateLimit    int           `mapstructure:"rate_limit"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	JWTDuration  time.Duration `mapstructure:"jwt_duration"`
	JWTIssuer    string        `mapstructure:"jwt_issuer"`
	// OperatorUsername and OperatorPasswordHash (bcrypt) enable POST /auth/login.
	OperatorUsername     string     `mapstructure:"operator_username"`
	OperatorPasswordHash string     `mapstructure:"operator_password_hash"`
	DefaultLimit         int        `mapstructure:"default_limit"`
	MaxLimit             int        `mapstructure:"max_limit"`
	CORS                 CORSConfig `mapstructure:"cors"`
	// SwaggerEnabled serves the OpenAPI document and UI under /swagger.
	SwaggerEnabled bool `mapstructure:"swagger_enabled"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type WebSocketConfig struct {
	MaxConnections  int           `mapstructure:"max_connections"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	BroadcastBuffer int           `mapstructure:"broadcast_buffer"`
	ClientBuffer    int           `mapstructure:"client_buffer"`
}

type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}
