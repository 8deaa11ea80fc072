package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateInlineQuery identifies inline query updates for rate limit exclusions.
	UpdateInlineQuery = "inline_query"
)

// RateLimitConfig holds settings for rate limiting.
// IntervalMS is the average spacing between updates of one user, Burst the
// number of updates allowed back to back.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
// - "inline_query": inline query updates
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	Burst          int      `yaml:"burst" envconfig:"RATE_LIMIT_BURST"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

const (
	// DriverPostgres selects the lib/pq backed store.
	DriverPostgres = "postgres"
	// DriverSQLite selects the embedded SQLite store.
	DriverSQLite = "sqlite3"
)

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver         string `yaml:"driver" envconfig:"DB_DRIVER"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	Path           string `yaml:"path" envconfig:"DB_PATH"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// RedisConfig configures the optional Redis backend. Empty Addr disables it.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
}

// Enabled reports whether a Redis address is configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// StorageConfig configures the remote book storage and the local file cache.
type StorageConfig struct {
	Endpoint      string `yaml:"endpoint" envconfig:"STORAGE_ENDPOINT"`
	AccessKey     string `yaml:"access_key" envconfig:"STORAGE_ACCESS_KEY"`
	SecretKey     string `yaml:"secret_key" envconfig:"STORAGE_SECRET_KEY"`
	Bucket        string `yaml:"bucket" envconfig:"STORAGE_BUCKET"`
	UseSSL        bool   `yaml:"use_ssl" envconfig:"STORAGE_USE_SSL"`
	Region        string `yaml:"region" envconfig:"STORAGE_REGION"`
	PublicBaseURL string `yaml:"public_base_url" envconfig:"STORAGE_PUBLIC_BASE_URL"`
	// PresignExpiry is used for public links when PublicBaseURL is empty.
	PresignExpiry time.Duration `yaml:"presign_expiry" envconfig:"STORAGE_PRESIGN_EXPIRY"`
	MaxSendBytes  int64         `yaml:"max_send_bytes" envconfig:"STORAGE_MAX_SEND_BYTES"`
	CacheDir      string        `yaml:"cache_dir" envconfig:"STORAGE_CACHE_DIR"`
}

// CatalogConfig tunes the search and browse workflow.
type CatalogConfig struct {
	PageSize       int           `yaml:"page_size" envconfig:"CATALOG_PAGE_SIZE"`
	SessionTTL     time.Duration `yaml:"session_ttl" envconfig:"CATALOG_SESSION_TTL"`
	PageRefTTL     time.Duration `yaml:"page_ref_ttl" envconfig:"CATALOG_PAGE_REF_TTL"`
	LeaderboardTop int           `yaml:"leaderboard_top" envconfig:"CATALOG_LEADERBOARD_TOP"`
	SeedFile       string        `yaml:"seed_file" envconfig:"CATALOG_SEED_FILE"`
}

// HealthConfig configures the HTTP probe server. Empty Listen disables it.
type HealthConfig struct {
	Listen string `yaml:"listen" envconfig:"HEALTH_LISTEN"`
}

// Config aggregates the application configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Storage   StorageConfig   `yaml:"storage"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Health    HealthConfig    `yaml:"health"`
}

const (
	defaultPageSize       = 10
	defaultSessionTTL     = 30 * time.Minute
	defaultPageRefTTL     = 24 * time.Hour
	defaultLeaderboardTop = 10
	defaultMaxSendBytes   = 50 * 1024 * 1024
	defaultPresignExpiry  = 24 * time.Hour
	defaultCacheDir       = "cache"
	defaultStorageRegion  = "us-east-1"
	defaultSQLitePath     = "books.db"
)

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" || rm == "polling" {
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	allowed := map[string]struct{}{
		UpdateCallback:    {},
		UpdateMessage:     {},
		UpdateInlineQuery: {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message, inline_query", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 1
	}

	if err := normalizeDatabase(&cfg.Database); err != nil {
		return err
	}
	if err := normalizeStorage(&cfg.Storage); err != nil {
		return err
	}
	normalizeCatalog(&cfg.Catalog)
	return nil
}

func normalizeDatabase(db *DatabaseConfig) error {
	driver := strings.ToLower(strings.TrimSpace(db.Driver))
	if driver == "" {
		driver = DriverPostgres
	}
	if driver == "sqlite" {
		driver = DriverSQLite
	}
	switch driver {
	case DriverPostgres:
		if strings.TrimSpace(db.Host) == "" {
			return fmt.Errorf("database.host is required for the postgres driver")
		}
		if db.Port == "" {
			db.Port = "5432"
		}
		if db.SSLMode == "" {
			db.SSLMode = "disable"
		}
	case DriverSQLite:
		if strings.TrimSpace(db.Path) == "" {
			db.Path = defaultSQLitePath
		}
	default:
		return fmt.Errorf("invalid database.driver %q; allowed: postgres, sqlite3", db.Driver)
	}
	db.Driver = driver
	if db.MaxConnections <= 0 {
		db.MaxConnections = 5
	}
	return nil
}

func normalizeStorage(s *StorageConfig) error {
	if strings.TrimSpace(s.Endpoint) == "" {
		return fmt.Errorf("storage.endpoint is required")
	}
	if strings.TrimSpace(s.Bucket) == "" {
		return fmt.Errorf("storage.bucket is required")
	}
	if strings.TrimSpace(s.Region) == "" {
		s.Region = defaultStorageRegion
	}
	if s.MaxSendBytes <= 0 {
		s.MaxSendBytes = defaultMaxSendBytes
	}
	if s.PresignExpiry <= 0 {
		s.PresignExpiry = defaultPresignExpiry
	}
	if strings.TrimSpace(s.CacheDir) == "" {
		s.CacheDir = defaultCacheDir
	}
	s.PublicBaseURL = strings.TrimRight(strings.TrimSpace(s.PublicBaseURL), "/")
	return nil
}

func normalizeCatalog(c *CatalogConfig) {
	if c.PageSize <= 0 {
		c.PageSize = defaultPageSize
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = defaultSessionTTL
	}
	if c.PageRefTTL <= 0 {
		c.PageRefTTL = defaultPageRefTTL
	}
	if c.LeaderboardTop <= 0 {
		c.LeaderboardTop = defaultLeaderboardTop
	}
}
