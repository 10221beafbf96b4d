// Package config centralizes how IntakeDesk reads environment variables and
// flags and exposes them as strongly typed Go values.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config represents runtime configuration shared by the API server, the
// archive worker and the operator CLI.
type Config struct {
	Address     string
	APIBaseURL  string
	LogLevel    string
	AppHash     string
	MaxFileSize int64

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3UseSSL        bool
	S3Region        string
	RawBucket       string
	ProcessedBucket string

	WorkerConcurrency int
	ShutdownTimeout   time.Duration
}

const (
	// EnvPrefix is prepended to every key, so "api_url" is read from
	// INTAKE_API_URL.
	EnvPrefix = "INTAKE"

	defaultAddress         = ":8001"
	defaultAPIBaseURL      = "http://localhost:8001"
	defaultLogLevel        = "info"
	defaultMaxFileSize     = 25 << 20 // 25 MiB
	defaultRegion          = "us-east-1"
	defaultRawBucket       = "intake-raw"
	defaultProcessedBucket = "intake-processed"
	defaultWorkerCount     = 2
	defaultShutdownTimeout = 5 * time.Second
)

// flagKeys maps CLI flag names onto configuration keys.
var flagKeys = map[string]string{
	"api":       "api_url",
	"address":   "address",
	"log-level": "log_level",
}

// Load reads configuration from flags, environment variables and defaults, in
// that order of precedence. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("address", defaultAddress)
	v.SetDefault("api_url", defaultAPIBaseURL)
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("git_hash", "")
	v.SetDefault("max_file_bytes", defaultMaxFileSize)
	v.SetDefault("database_url", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("s3_endpoint", "")
	v.SetDefault("s3_access_key", "")
	v.SetDefault("s3_secret_key", "")
	v.SetDefault("s3_use_ssl", false)
	v.SetDefault("s3_region", defaultRegion)
	v.SetDefault("raw_bucket", defaultRawBucket)
	v.SetDefault("processed_bucket", defaultProcessedBucket)
	v.SetDefault("workers", defaultWorkerCount)
	v.SetDefault("shutdown_timeout", defaultShutdownTimeout)

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		Address:           v.GetString("address"),
		APIBaseURL:        strings.TrimRight(v.GetString("api_url"), "/"),
		LogLevel:          strings.ToLower(v.GetString("log_level")),
		AppHash:           v.GetString("git_hash"),
		MaxFileSize:       v.GetInt64("max_file_bytes"),
		DatabaseURL:       v.GetString("database_url"),
		RedisAddr:         v.GetString("redis_addr"),
		RedisPassword:     v.GetString("redis_password"),
		RedisDB:           v.GetInt("redis_db"),
		S3Endpoint:        v.GetString("s3_endpoint"),
		S3AccessKey:       v.GetString("s3_access_key"),
		S3SecretKey:       v.GetString("s3_secret_key"),
		S3UseSSL:          v.GetBool("s3_use_ssl"),
		S3Region:          v.GetString("s3_region"),
		RawBucket:         v.GetString("raw_bucket"),
		ProcessedBucket:   v.GetString("processed_bucket"),
		WorkerConcurrency: v.GetInt("workers"),
		ShutdownTimeout:   v.GetDuration("shutdown_timeout"),
	}
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = defaultWorkerCount
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = defaultMaxFileSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks values that have no sensible fallback.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api url %q must be absolute", c.APIBaseURL)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	return nil
}

// ArchiveEnabled reports whether uploads should be archived to object storage
// and post-processed by the worker. The document rows live in Postgres, so a
// database is required as well.
func (c *Config) ArchiveEnabled() bool {
	return c.S3Endpoint != "" && c.RedisAddr != "" && c.DatabaseURL != ""
}
