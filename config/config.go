package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/nodegate/nodegate/utils"
)

// Config represents the complete application configuration
type Config struct {
	Environment   string
	Server        ServerConfig
	Router        RouterConfig
	Monitor       MonitorConfig
	Latency       LatencyConfig
	Providers     ProvidersConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// RouterConfig holds health-check and failover configuration
type RouterConfig struct {
	HealthCheckInterval       time.Duration
	FailoverTimeout           time.Duration
	MaxRetries                int
	UnhealthyLatencyThreshold time.Duration
	BackoffBase               time.Duration
	BackoffMax                time.Duration
}

// MonitorConfig holds the redundancy monitor configuration
type MonitorConfig struct {
	Interval          time.Duration
	WarningThreshold  int
	CriticalThreshold int
}

// LatencyConfig holds latency tracer configuration
type LatencyConfig struct {
	MaxSamplesPerStage int
	TargetTotalUs      float64
}

// ProvidersConfig holds the upstream provider roster
type ProvidersConfig struct {
	RPC    []RPCProviderConfig
	Relays []RelayProviderConfig
}

// RPCProviderConfig describes one JSON-RPC node provider
type RPCProviderConfig struct {
	Name      string `validate:"required"`
	Endpoint  string `validate:"required,url"`
	Priority  int    `validate:"gte=0"`
	RateLimit int    `validate:"gte=0"`
}

// RelayProviderConfig describes one paymaster relay provider
type RelayProviderConfig struct {
	Name           string `validate:"required"`
	Endpoint       string `validate:"required,url"`
	Priority       int    `validate:"gte=0"`
	RateLimit      int    `validate:"gte=0"`
	FeeBps         int    `validate:"gt=0,lte=10000"`
	APIKey         string
	SupportsBundle bool
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or console
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Router: RouterConfig{
			HealthCheckInterval:       getEnvAsDuration("HEALTH_CHECK_INTERVAL", 30*time.Second),
			FailoverTimeout:           getEnvAsDuration("FAILOVER_TIMEOUT", 5*time.Second),
			MaxRetries:                getEnvAsInt("MAX_RETRIES", 5),
			UnhealthyLatencyThreshold: getEnvAsDuration("UNHEALTHY_LATENCY_THRESHOLD", 500*time.Millisecond),
			BackoffBase:               getEnvAsDuration("BACKOFF_BASE", 100*time.Millisecond),
			BackoffMax:                getEnvAsDuration("BACKOFF_MAX", 2*time.Second),
		},
		Monitor: MonitorConfig{
			Interval:          getEnvAsDuration("MONITOR_INTERVAL", time.Minute),
			WarningThreshold:  getEnvAsInt("MONITOR_WARNING_THRESHOLD", 3),
			CriticalThreshold: getEnvAsInt("MONITOR_CRITICAL_THRESHOLD", 2),
		},
		Latency: LatencyConfig{
			MaxSamplesPerStage: getEnvAsInt("LATENCY_MAX_SAMPLES", 10000),
			TargetTotalUs:      getEnvAsFloat("LATENCY_TARGET_TOTAL_US", 300),
		},
		Providers: ProvidersConfig{
			RPC:    loadRPCProviders(),
			Relays: loadRelayProviders(),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Router.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1")
	}
	if c.Router.HealthCheckInterval <= 0 {
		return fmt.Errorf("health check interval must be positive")
	}
	if c.Router.FailoverTimeout <= 0 {
		return fmt.Errorf("failover timeout must be positive")
	}
	if c.Monitor.CriticalThreshold > c.Monitor.WarningThreshold {
		return fmt.Errorf("monitor critical threshold must not exceed warning threshold")
	}
	if len(c.Providers.RPC) == 0 && len(c.Providers.Relays) == 0 {
		return fmt.Errorf("at least one upstream provider must be configured")
	}

	for _, p := range c.Providers.RPC {
		if err := utils.ValidateStruct(p); err != nil {
			return fmt.Errorf("rpc provider %q: %w", p.Name, err)
		}
	}
	for _, p := range c.Providers.Relays {
		if err := utils.ValidateStruct(p); err != nil {
			return fmt.Errorf("relay provider %q: %w", p.Name, err)
		}
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// loadRPCProviders builds the RPC provider roster. The default roster keys
// each endpoint off its own env var; providers without an endpoint are
// skipped, so a single configured node is enough to run.
func loadRPCProviders() []RPCProviderConfig {
	defaults := []struct {
		name      string
		envKey    string
		fallback  string
		priority  int
		rateLimit int
	}{
		{"alchemy", "ETH_RPC_URL_ALCHEMY", "", 1, 3000},
		{"infura", "ETH_RPC_URL_INFURA", "", 2, 100},
		{"ankr", "ETH_RPC_URL_ANKR", "https://rpc.ankr.com/eth", 3, 50},
		{"quicknode", "ETH_RPC_URL_QUICKNODE", "", 4, 250},
	}

	var out []RPCProviderConfig
	for _, d := range defaults {
		endpoint := getEnv(d.envKey, d.fallback)
		if endpoint == "" {
			continue
		}
		out = append(out, RPCProviderConfig{
			Name:      d.name,
			Endpoint:  endpoint,
			Priority:  d.priority,
			RateLimit: d.rateLimit,
		})
	}
	return out
}

// loadRelayProviders builds the paymaster relay roster with the deployed
// fee markups.
func loadRelayProviders() []RelayProviderConfig {
	defaults := []struct {
		name           string
		envKey         string
		fallback       string
		apiKeyEnv      string
		priority       int
		rateLimit      int
		feeBps         int
		supportsBundle bool
	}{
		{"pimlico", "PAYMASTER_URL_PIMLICO", "https://api.pimlico.io/v2/ethereum/rpc", "PAYMASTER_API_KEY_PIMLICO", 1, 1000, 110, true},
		{"gelato", "PAYMASTER_URL_GELATO", "https://relay.gelato.digital/rpc", "PAYMASTER_API_KEY_GELATO", 2, 800, 105, true},
		{"candide", "PAYMASTER_URL_CANDIDE", "https://mainnet.bundler.candide.dev", "PAYMASTER_API_KEY_CANDIDE", 3, 600, 115, false},
	}

	var out []RelayProviderConfig
	for _, d := range defaults {
		endpoint := getEnv(d.envKey, d.fallback)
		if endpoint == "" {
			continue
		}
		out = append(out, RelayProviderConfig{
			Name:           d.name,
			Endpoint:       endpoint,
			Priority:       d.priority,
			RateLimit:      d.rateLimit,
			FeeBps:         d.feeBps,
			APIKey:         getEnv(d.apiKeyEnv, ""),
			SupportsBundle: d.supportsBundle,
		})
	}
	return out
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
