// Package config loads layered configuration (defaults, optional config
// file, environment overrides) the way the teacher's payment-watchdog
// services do, via github.com/spf13/viper.
package config

import "github.com/spf13/viper"

// StreamBusConfig configures the Redis/Valkey-family stream connection.
type StreamBusConfig struct {
	URL            string `mapstructure:"url"`
	DefaultBlockMs int    `mapstructure:"default_block_ms"`
	DefaultCount   int64  `mapstructure:"default_count"`
	MaxLen         int64  `mapstructure:"max_len"`
}

// ProcessorConfig configures the stateful processing pipeline.
type ProcessorConfig struct {
	MaxVehiclesPerCity      int  `mapstructure:"max_vehicles_per_city"`
	MaxVehicleAgeMs         int  `mapstructure:"max_vehicle_age_ms"`
	CleanupIntervalMs       int  `mapstructure:"cleanup_interval_ms"`
	MaxRetries              int  `mapstructure:"max_retries"`
	RetryBaseDelayMs        int  `mapstructure:"retry_base_delay_ms"`
	RetryMaxDelayMs         int  `mapstructure:"retry_max_delay_ms"`
	CircuitBreakerThreshold int  `mapstructure:"circuit_breaker_threshold"`
	CircuitBreakerTimeoutMs int  `mapstructure:"circuit_breaker_timeout_ms"`
	EnableMetrics           bool `mapstructure:"enable_metrics"`
	EnableDetailedLogging   bool `mapstructure:"enable_detailed_logging"`
}

// ScopeStoreConfig configures scope/frame TTL behavior.
type ScopeStoreConfig struct {
	DefaultTTLMs int `mapstructure:"default_ttl_ms"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Config holds all configuration for the service.
type Config struct {
	StreamBus  StreamBusConfig  `mapstructure:"streambus"`
	Processor  ProcessorConfig  `mapstructure:"processor"`
	ScopeStore ScopeStoreConfig `mapstructure:"scope_store"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
}

// Load reads configuration from an optional config file and environment
// variables, falling back to the documented defaults from spec §6.
func Load() (*Config, error) {
	viper.SetDefault("streambus.url", "redis://localhost:6379/0")
	viper.SetDefault("streambus.default_block_ms", 5000)
	viper.SetDefault("streambus.default_count", 100)
	viper.SetDefault("streambus.max_len", 10000)

	viper.SetDefault("processor.max_vehicles_per_city", 10000)
	viper.SetDefault("processor.max_vehicle_age_ms", 5*60*1000)
	viper.SetDefault("processor.cleanup_interval_ms", 60*1000)
	viper.SetDefault("processor.max_retries", 3)
	viper.SetDefault("processor.retry_base_delay_ms", 1000)
	viper.SetDefault("processor.retry_max_delay_ms", 10000)
	viper.SetDefault("processor.circuit_breaker_threshold", 5)
	viper.SetDefault("processor.circuit_breaker_timeout_ms", 30000)
	viper.SetDefault("processor.enable_metrics", true)
	viper.SetDefault("processor.enable_detailed_logging", false)

	viper.SetDefault("scope_store.default_ttl_ms", 120000)

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.host", "0.0.0.0")

	viper.SetDefault("log.level", "info")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/app/config")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	viper.AutomaticEnv()
	for key, env := range map[string]string{
		"streambus.url":                     "STREAMBUS_URL",
		"streambus.default_block_ms":        "STREAMBUS_DEFAULT_BLOCK_MS",
		"streambus.default_count":           "STREAMBUS_DEFAULT_COUNT",
		"streambus.max_len":                 "STREAMBUS_MAX_LEN",
		"processor.max_vehicles_per_city":   "PROCESSOR_MAX_VEHICLES_PER_CITY",
		"processor.max_vehicle_age_ms":      "PROCESSOR_MAX_VEHICLE_AGE_MS",
		"processor.cleanup_interval_ms":     "PROCESSOR_CLEANUP_INTERVAL_MS",
		"processor.max_retries":             "PROCESSOR_MAX_RETRIES",
		"processor.retry_base_delay_ms":     "PROCESSOR_RETRY_BASE_DELAY_MS",
		"processor.retry_max_delay_ms":      "PROCESSOR_RETRY_MAX_DELAY_MS",
		"processor.circuit_breaker_threshold": "PROCESSOR_CIRCUIT_BREAKER_THRESHOLD",
		"processor.circuit_breaker_timeout_ms": "PROCESSOR_CIRCUIT_BREAKER_TIMEOUT_MS",
		"scope_store.default_ttl_ms":        "SCOPE_STORE_DEFAULT_TTL_MS",
		"server.port":                       "SERVER_PORT",
		"server.host":                       "SERVER_HOST",
		"log.level":                         "LOG_LEVEL",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
