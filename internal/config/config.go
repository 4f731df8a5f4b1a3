package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Inbound   InboundConfig   `mapstructure:"inbound"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
}

// APIConfig holds REST API server configuration.
type APIConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	PoolMin        int32         `mapstructure:"pool_min"`
	PoolMax        int32         `mapstructure:"pool_max"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// DispatchConfig holds batch dispatcher configuration.
type DispatchConfig struct {
	Interval          time.Duration `mapstructure:"interval"`
	BatchSize         int32         `mapstructure:"batch_size"`
	MaxRetries        int32         `mapstructure:"max_retries"`
	SendTimeout       time.Duration `mapstructure:"send_timeout"`
	ProcessingTimeout time.Duration `mapstructure:"processing_timeout"`
	RateLimitDelay    time.Duration `mapstructure:"rate_limit_delay"`
}

// ProviderConfig holds email vendor configuration.
type ProviderConfig struct {
	// Name selects the active vendor: "sendgrid", "resend", or "stdout".
	Name           string        `mapstructure:"name"`
	APIKey         string        `mapstructure:"api_key"`
	Endpoint       string        `mapstructure:"endpoint"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// RedisConfig holds Redis connection configuration for rate limiting.
// An empty Addr disables Redis-backed features.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// InboundConfig holds inbound mail attachment storage configuration.
type InboundConfig struct {
	StoreType  string `mapstructure:"store_type"` // "local" or "s3"
	StorePath  string `mapstructure:"store_path"`
	S3Bucket   string `mapstructure:"s3_bucket"`
	S3Prefix   string `mapstructure:"s3_prefix"`
	S3Endpoint string `mapstructure:"s3_endpoint"`
	S3Region   string `mapstructure:"s3_region"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	Output    string `mapstructure:"output"` // stdout (default) or file
	FilePath  string `mapstructure:"file_path"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
	MaxFiles  int    `mapstructure:"max_files"`
}

// RateLimitConfig holds per-tenant send quota configuration.
type RateLimitConfig struct {
	DefaultMonthlyLimit int `mapstructure:"default_monthly_limit"`
}

// BootstrapConfig holds first-boot tenant seeding configuration.
// Seeding is skipped when APIKey is empty.
type BootstrapConfig struct {
	TenantName string `mapstructure:"tenant_name"`
	APIKey     string `mapstructure:"api_key"`
	Domain     string `mapstructure:"domain"`
}

// Load reads configuration from the given config directory path.
// It looks for a file named "config.yaml" in that directory.
// Environment variables with prefix MAILROOM_ override file values.
// For example, MAILROOM_DATABASE_URL overrides database.url.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	v.SetEnvPrefix("MAILROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", 30*time.Second)
	v.SetDefault("api.write_timeout", 30*time.Second)

	v.SetDefault("database.pool_min", 2)
	v.SetDefault("database.pool_max", 10)
	v.SetDefault("database.connect_timeout", 10*time.Second)

	v.SetDefault("dispatch.interval", time.Minute)
	v.SetDefault("dispatch.batch_size", 50)
	v.SetDefault("dispatch.max_retries", 3)
	v.SetDefault("dispatch.send_timeout", 30*time.Second)
	v.SetDefault("dispatch.processing_timeout", 5*time.Minute)
	v.SetDefault("dispatch.rate_limit_delay", time.Minute)

	v.SetDefault("provider.name", "stdout")
	v.SetDefault("provider.request_timeout", 30*time.Second)

	v.SetDefault("inbound.store_type", "local")
	v.SetDefault("inbound.store_path", "data/attachments")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("rate_limit.default_monthly_limit", 10000)
}
