// Package config handles configuration loading and defaults.
//
// Values are resolved in priority order:
//  1. Defaults
//  2. Config file (TOML, path from CONFIG_FILE)
//  3. Environment variables
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Default values.
const (
	DefaultPort              = 5000
	DefaultFrontendURL       = "http://localhost:5173"
	DefaultDBDriver          = "sqlite"
	DefaultDBDSN             = "tasks.db"
	DefaultRedisAddr         = "localhost:6379"
	DefaultRateLimitRequests = 100
	DefaultRateLimitWrites   = 30
	DefaultRateLimitWindow   = time.Minute
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "console"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config holds the full application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Redis     RedisConfig     `toml:"redis"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Log       LogConfig       `toml:"log"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port            int           `toml:"port"`
	FrontendURL     string        `toml:"frontend_url"` // allowed CORS origin
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

// DatabaseConfig selects and configures the task store.
type DatabaseConfig struct {
	Driver string `toml:"driver"` // sqlite, postgres or mysql
	DSN    string `toml:"dsn"`
	Debug  bool   `toml:"debug"`
}

// RedisConfig configures the Redis client used by the rate limiter.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// RateLimitConfig configures per-client request limiting. Reads and writes
// draw from separate quotas over the same window.
type RateLimitConfig struct {
	Enabled       bool          `toml:"enabled"`
	Requests      int           `toml:"requests"`       // GET, HEAD, OPTIONS
	WriteRequests int           `toml:"write_requests"` // POST, PUT, PATCH, DELETE
	Window        time.Duration `toml:"window"`
}

// LogConfig configures the application logger.
type LogConfig struct {
	Level      string `toml:"level"`  // debug, info, warn, error
	Format     string `toml:"format"` // console or json
	File       string `toml:"file"`   // empty logs to stdout only
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Default returns a config populated with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			FrontendURL:     DefaultFrontendURL,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Database: DatabaseConfig{
			Driver: DefaultDBDriver,
			DSN:    DefaultDBDSN,
		},
		Redis: RedisConfig{
			Addr: DefaultRedisAddr,
		},
		RateLimit: RateLimitConfig{
			Requests:      DefaultRateLimitRequests,
			WriteRequests: DefaultRateLimitWrites,
			Window:        DefaultRateLimitWindow,
		},
		Log: LogConfig{
			Level:      DefaultLogLevel,
			Format:     DefaultLogFormat,
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// Load builds the configuration from defaults, the optional TOML file at path
// and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadFromEnv overrides config from environment variables.
func loadFromEnv(cfg *Config) error {
	var errs []error

	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: invalid int %q", key, v))
				return
			}
			*dst = n
		}
	}
	setBool := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: invalid bool %q", key, v))
				return
			}
			*dst = b
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: invalid duration %q", key, v))
				return
			}
			*dst = d
		}
	}

	setInt("PORT", &cfg.Server.Port)
	setString("FRONTEND_URL", &cfg.Server.FrontendURL)
	setDuration("SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	setString("DB_DRIVER", &cfg.Database.Driver)
	setString("DB_DSN", &cfg.Database.DSN)
	setBool("DB_DEBUG", &cfg.Database.Debug)

	setString("REDIS_ADDR", &cfg.Redis.Addr)
	setString("REDIS_PASSWORD", &cfg.Redis.Password)
	setInt("REDIS_DB", &cfg.Redis.DB)

	setBool("RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)
	setInt("RATE_LIMIT_REQUESTS", &cfg.RateLimit.Requests)
	setInt("RATE_LIMIT_WRITE_REQUESTS", &cfg.RateLimit.WriteRequests)
	setDuration("RATE_LIMIT_WINDOW", &cfg.RateLimit.Window)

	setString("LOG_LEVEL", &cfg.Log.Level)
	setString("LOG_FORMAT", &cfg.Log.Format)
	setString("LOG_FILE", &cfg.Log.File)

	return errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}

	switch strings.ToLower(c.Database.Driver) {
	case DriverSQLite, DriverPostgres, DriverMySQL:
	default:
		errs = append(errs, fmt.Errorf("database.driver must be one of sqlite, postgres, mysql, got %q", c.Database.Driver))
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Requests <= 0 {
			errs = append(errs, errors.New("rate_limit.requests must be positive"))
		}
		if c.RateLimit.WriteRequests <= 0 {
			errs = append(errs, errors.New("rate_limit.write_requests must be positive"))
		}
		if c.RateLimit.Window <= 0 {
			errs = append(errs, errors.New("rate_limit.window must be positive"))
		}
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required when rate limiting is enabled"))
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
