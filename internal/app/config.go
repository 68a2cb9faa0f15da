package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/medportal/medportal/internal/platform/cache"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":3000"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"60s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	APIBaseURL      string        `envconfig:"API_BASE_URL" default:"http://localhost:8080/api"`
	UpstreamTimeout time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"15s"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"24h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	// PGDSN is optional; audit logging is disabled without it.
	PGDSN            string        `envconfig:"PG_DSN"`
	AuditRetention   time.Duration `envconfig:"AUDIT_RETENTION" default:"2160h"`
	AuditCleanupCron string        `envconfig:"AUDIT_CLEANUP_CRON" default:"0 3 * * *"`

	// WorkerMetricsAddr is where the worker binary serves /metrics.
	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`

	PermissionCacheTTL  time.Duration `envconfig:"PERMISSION_CACHE_TTL" default:"30s"`
	PermissionCacheSize int           `envconfig:"PERMISSION_CACHE_SIZE" default:"64"`
	PermissionFanOut    int           `envconfig:"PERMISSION_FAN_OUT" default:"4"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`
	UploadMaxBytes     int64    `envconfig:"UPLOAD_MAX_BYTES" default:"20971520"`
	DefaultLang        string   `envconfig:"DEFAULT_LANG" default:"mn"`
}

// LoadConfig reads configuration from environment variables. Values from a
// .env file in the working directory are applied first without overriding
// variables that are already set.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret must be provided")
	}
	if cfg.CSRFSecret == "" {
		return nil, errors.New("csrf secret must be provided")
	}
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return nil, errors.New("api base url must be provided")
	}
	if cfg.UploadMaxBytes <= 0 {
		return nil, errors.New("upload limit must be positive")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// AuditEnabled reports whether a database is configured for the audit trail.
func (c *Config) AuditEnabled() bool {
	return c != nil && strings.TrimSpace(c.PGDSN) != ""
}

// Redis returns the connection options shared by sessions and the job queue.
func (c *Config) Redis() cache.Options {
	return cache.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// AuditCron is the schedule of the audit retention job.
func (c *Config) AuditCron() string {
	if c == nil || strings.TrimSpace(c.AuditCleanupCron) == "" {
		return "0 3 * * *"
	}
	return c.AuditCleanupCron
}

// Level parses LogLevel, defaulting to info.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if c == nil || level.UnmarshalText([]byte(c.LogLevel)) != nil {
		return slog.LevelInfo
	}
	return level
}
