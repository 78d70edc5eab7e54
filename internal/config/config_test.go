package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultFrontendURL, cfg.Server.FrontendURL)
	assert.Equal(t, DefaultShutdownTimeout, cfg.Server.ShutdownTimeout)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, DefaultDBDSN, cfg.Database.DSN)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, DefaultRateLimitRequests, cfg.RateLimit.Requests)
	assert.Equal(t, DefaultRateLimitWrites, cfg.RateLimit.WriteRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
port = 8080
frontend_url = "https://tasks.example.com"

[database]
driver = "postgres"
dsn = "host=localhost user=tasks dbname=tasks"

[rate_limit]
enabled = true
requests = 20
write_requests = 5
window = "30s"

[log]
format = "json"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port, "env overrides file")
	assert.Equal(t, "https://tasks.example.com", cfg.Server.FrontendURL)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 20, cfg.RateLimit.Requests)
	assert.Equal(t, 5, cfg.RateLimit.WriteRequests)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, DefaultRedisAddr, cfg.Redis.Addr, "unset keys keep defaults")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("DB_DEBUG", "maybe")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "DB_DEBUG")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr []string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: []string{"server.port"},
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Database.Driver = "oracle" },
			wantErr: []string{"database.driver"},
		},
		{
			name: "rate limit settings checked only when enabled",
			mutate: func(c *Config) {
				c.RateLimit.Requests = 0
			},
		},
		{
			name: "enabled rate limit needs positive settings",
			mutate: func(c *Config) {
				c.RateLimit.Enabled = true
				c.RateLimit.Requests = 0
				c.RateLimit.WriteRequests = -1
				c.RateLimit.Window = 0
			},
			wantErr: []string{"rate_limit.requests", "rate_limit.write_requests", "rate_limit.window"},
		},
		{
			name: "errors are reported together",
			mutate: func(c *Config) {
				c.Log.Level = "verbose"
				c.Log.Format = "xml"
				c.Database.DSN = " "
			},
			wantErr: []string{"log.level", "log.format", "database.dsn"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}
