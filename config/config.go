package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jwalitptl/clinicstore/pkg/messaging/redis"
	"github.com/jwalitptl/clinicstore/pkg/stable"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// StorageConfig locates the durable memory space. An empty Path keeps
// everything in process memory.
type StorageConfig struct {
	Path       string `mapstructure:"path"`
	BucketSize int64  `mapstructure:"bucket_size"`
	Durability string `mapstructure:"durability"`
	// FlushInterval is how often an async store is synced.
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	Channel      string        `mapstructure:"channel"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type ValidationConfig struct {
	// StrictPatientContact also rejects patients without contact details.
	StrictPatientContact bool `mapstructure:"strict_patient_contact"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool   `mapstructure:"prometheus_enabled"`
	MetricsPath       string `mapstructure:"metrics_path"`
	Namespace         string `mapstructure:"namespace"`
}

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Log        LogConfig        `mapstructure:"log"`
	Redis      RedisConfig      `mapstructure:"redis"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Validation ValidationConfig `mapstructure:"validation"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

const envPrefix = "CLINIC"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.max_header_bytes", 1<<20)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.request_timeout", 5*time.Second)

	v.SetDefault("storage.path", "data/clinic.mem")
	v.SetDefault("storage.bucket_size", stable.DefaultBucketSize)
	v.SetDefault("storage.durability", stable.DurabilitySync.String())
	v.SetDefault("storage.flush_interval", time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.channel", "clinic.records")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 0)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 50.0)
	v.SetDefault("rate_limit.burst", 100)

	v.SetDefault("validation.strict_patient_contact", false)

	v.SetDefault("monitoring.prometheus_enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")
	v.SetDefault("monitoring.namespace", "clinicstore")
}

// LoadConfig reads the YAML file at path, if any, and applies CLINIC_
// environment overrides such as CLINIC_STORAGE_PATH. With an empty path the
// usual locations are searched and a missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the store cannot open with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Storage.BucketSize <= 0 {
		return fmt.Errorf("invalid storage.bucket_size %d", c.Storage.BucketSize)
	}
	if _, err := stable.ParseDurability(c.Storage.Durability); err != nil {
		return fmt.Errorf("invalid storage.durability: %w", err)
	}
	if c.Storage.Durability == stable.DurabilityAsync.String() && c.Storage.FlushInterval <= 0 {
		return fmt.Errorf("storage.flush_interval must be positive with async durability")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate_limit requires positive requests_per_second and burst")
	}
	if !strings.HasPrefix(c.Monitoring.MetricsPath, "/") {
		return fmt.Errorf("monitoring.metrics_path must start with /")
	}
	return nil
}

// StableOptions converts the storage settings for stable.NewManager.
func (c *StorageConfig) StableOptions() (stable.Options, error) {
	d, err := stable.ParseDurability(c.Durability)
	if err != nil {
		return stable.Options{}, err
	}
	return stable.Options{BucketSize: c.BucketSize, Durability: d}, nil
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}
