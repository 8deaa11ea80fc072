package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
telegram:
  token: "123:abc"
  run_mode: polling
database:
  driver: sqlite
  path: /tmp/books.db
storage:
  endpoint: storage.example.com
  bucket: books
catalog:
  page_size: 5
rate_limit:
  exclude_updates: [" Callback "]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 5, cfg.Catalog.PageSize)
	assert.Equal(t, 30*time.Minute, cfg.Catalog.SessionTTL)
	assert.Equal(t, 10, cfg.Catalog.LeaderboardTop)
	assert.Equal(t, int64(50*1024*1024), cfg.Storage.MaxSendBytes)
	assert.Equal(t, "us-east-1", cfg.Storage.Region)
	assert.Equal(t, "cache", cfg.Storage.CacheDir)
	assert.Equal(t, []string{UpdateCallback}, cfg.RateLimit.ExcludeUpdates)
	assert.Equal(t, 1, cfg.RateLimit.Burst)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("CATALOG_PAGE_SIZE", "20")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CATALOG_SESSION_TTL", "5m")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Catalog.PageSize)
	assert.Equal(t, 5*time.Minute, cfg.Catalog.SessionTTL)
	assert.True(t, cfg.Redis.Enabled())
}

func TestNormalizeRejects(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Telegram: TelegramConfig{Token: "t"},
			Database: DatabaseConfig{Driver: DriverPostgres, Host: "db"},
			Storage:  StorageConfig{Endpoint: "s3", Bucket: "b"},
		}
	}
	require.NoError(t, Normalize(valid()))

	cases := map[string]func(*Config){
		"token":     func(c *Config) { c.Telegram.Token = "" },
		"run mode":  func(c *Config) { c.Telegram.RunMode = "push" },
		"webhook":   func(c *Config) { c.Telegram.RunMode = RunModeWebhook },
		"exclude":   func(c *Config) { c.RateLimit.ExcludeUpdates = []string{"poll"} },
		"driver":    func(c *Config) { c.Database.Driver = "mysql" },
		"pg host":   func(c *Config) { c.Database.Host = "" },
		"endpoint":  func(c *Config) { c.Storage.Endpoint = "" },
		"bucket":    func(c *Config) { c.Storage.Bucket = " " },
		"long poll": func(c *Config) { c.Telegram.LongPollTimeoutSeconds = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			assert.Error(t, Normalize(cfg))
		})
	}
	assert.Error(t, Normalize(nil))
}

func TestNormalizePostgresDefaults(t *testing.T) {
	cfg := &Config{
		Telegram: TelegramConfig{Token: "t"},
		Database: DatabaseConfig{Host: "db"},
		Storage:  StorageConfig{Endpoint: "s3", Bucket: "b", PublicBaseURL: " https://cdn.example.com/ "},
	}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 5, cfg.Database.MaxConnections)
	assert.Equal(t, "https://cdn.example.com", cfg.Storage.PublicBaseURL)
}
