// Package config loads the back-office client settings from the environment,
// reading a local .env first when one exists.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	APIBaseURL string `mapstructure:"API_BASE_URL"`
	// APIToken is a static bearer token for scripts; when set the session
	// endpoint is not consulted.
	APIToken      string        `mapstructure:"API_TOKEN"`
	HTTPTimeout   time.Duration `mapstructure:"HTTP_TIMEOUT"`
	TokenPath     string        `mapstructure:"SESSION_TOKEN_PATH"`
	SessionPath   string        `mapstructure:"SESSION_DELETE_PATH"`
	SignInPath    string        `mapstructure:"SIGN_IN_PATH"`
	LogLevel      string        `mapstructure:"LOG_LEVEL"`
	LogBackend    string        `mapstructure:"LOG_BACKEND"`
	StaleTime     time.Duration `mapstructure:"STALE_TIME"`
	GCTime        time.Duration `mapstructure:"GC_TIME"`
	SlowFetch     time.Duration `mapstructure:"SLOW_FETCH"`
	HookQueueSize int           `mapstructure:"HOOK_QUEUE_SIZE"`

	// --- snapshot store ---
	SnapshotEnabled  bool          `mapstructure:"SNAPSHOT_ENABLED"`
	SnapshotProvider string        `mapstructure:"SNAPSHOT_PROVIDER"`
	SnapshotCodec    string        `mapstructure:"SNAPSHOT_CODEC"`
	SnapshotTTL      time.Duration `mapstructure:"SNAPSHOT_TTL"`
	SnapshotMaxBytes int           `mapstructure:"SNAPSHOT_MAX_BYTES"`
	RedisAddr        string        `mapstructure:"REDIS_ADDR"`
	RedisPassword    string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB          int           `mapstructure:"REDIS_DB"`
}

var defaults = map[string]any{
	"APP_ENV":             "development",
	"HTTP_TIMEOUT":        "30s",
	"SESSION_TOKEN_PATH":  "/auth/session/token",
	"SESSION_DELETE_PATH": "/auth/session",
	"SIGN_IN_PATH":        "/sign-in",
	"LOG_LEVEL":           "info",
	"LOG_BACKEND":         "zap",
	"STALE_TIME":          "30s",
	"GC_TIME":             "5m",
	"SLOW_FETCH":          "2s",
	"HOOK_QUEUE_SIZE":     256,
	"SNAPSHOT_ENABLED":    false,
	"SNAPSHOT_PROVIDER":   "memory",
	"SNAPSHOT_CODEC":      "json",
	"SNAPSHOT_TTL":        "24h",
	"SNAPSHOT_MAX_BYTES":  1 << 20,
	"REDIS_ADDR":          "localhost:6379",
	"REDIS_DB":            0,
}

var keys = []string{
	"APP_ENV", "API_BASE_URL", "API_TOKEN", "HTTP_TIMEOUT",
	"SESSION_TOKEN_PATH", "SESSION_DELETE_PATH", "SIGN_IN_PATH",
	"LOG_LEVEL", "LOG_BACKEND", "STALE_TIME", "GC_TIME", "SLOW_FETCH", "HOOK_QUEUE_SIZE",
	"SNAPSHOT_ENABLED", "SNAPSHOT_PROVIDER", "SNAPSHOT_CODEC", "SNAPSHOT_TTL", "SNAPSHOT_MAX_BYTES",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
}

// Load reads ".env" (if present) and the environment.
func Load() (*Config, error) { return LoadFrom(".env") }

// LoadFrom is Load with an explicit env file; "" skips it. Variables already
// set in the environment win over the file.
func LoadFrom(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("config: load %s: %w", envFile, err)
			}
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigError names the offending setting.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

func (c *Config) Validate() error {
	var errs []error
	bad := func(field, msg string) { errs = append(errs, &ConfigError{Field: field, Message: msg}) }

	if c.APIBaseURL == "" {
		bad("API_BASE_URL", "is required")
	} else if u, err := url.Parse(c.APIBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		bad("API_BASE_URL", "must be an absolute http(s) URL")
	}
	if c.HTTPTimeout <= 0 {
		bad("HTTP_TIMEOUT", "must be greater than 0")
	}
	if c.StaleTime < 0 {
		bad("STALE_TIME", "must be non-negative")
	}
	if c.GCTime < 0 {
		bad("GC_TIME", "must be non-negative")
	}
	if !oneOf(c.LogLevel, "debug", "info", "warn", "error") {
		bad("LOG_LEVEL", "must be one of debug, info, warn, error")
	}
	if !oneOf(c.LogBackend, "zap", "logrus", "slog") {
		bad("LOG_BACKEND", "must be one of zap, logrus, slog")
	}
	if c.HookQueueSize < 0 {
		bad("HOOK_QUEUE_SIZE", "must be non-negative")
	}
	if c.SnapshotEnabled {
		if !oneOf(c.SnapshotProvider, "memory", "bigcache", "ristretto", "redis") {
			bad("SNAPSHOT_PROVIDER", "must be one of memory, bigcache, ristretto, redis")
		}
		if !oneOf(c.SnapshotCodec, "json", "cbor", "msgpack") {
			bad("SNAPSHOT_CODEC", "must be one of json, cbor, msgpack")
		}
		if c.SnapshotTTL <= 0 {
			bad("SNAPSHOT_TTL", "must be greater than 0")
		}
		if c.SnapshotMaxBytes < 0 {
			bad("SNAPSHOT_MAX_BYTES", "must be non-negative")
		}
		if c.SnapshotProvider == "redis" && c.RedisAddr == "" {
			bad("REDIS_ADDR", "is required for the redis snapshot provider")
		}
	}
	return errors.Join(errs...)
}

func oneOf(s string, allowed ...string) bool {
	for _, a := range allowed {
		if strings.EqualFold(s, a) {
			return true
		}
	}
	return false
}

func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  AppEnv: %s\n", c.AppEnv)
	fmt.Fprintf(&sb, "  APIBaseURL: %s\n", c.APIBaseURL)
	fmt.Fprintf(&sb, "  APIToken: %s\n", mask(c.APIToken))
	fmt.Fprintf(&sb, "  HTTPTimeout: %s\n", c.HTTPTimeout)
	fmt.Fprintf(&sb, "  TokenPath: %s\n", c.TokenPath)
	fmt.Fprintf(&sb, "  SessionPath: %s\n", c.SessionPath)
	fmt.Fprintf(&sb, "  SignInPath: %s\n", c.SignInPath)
	fmt.Fprintf(&sb, "  Log: %s/%s\n", c.LogBackend, c.LogLevel)
	fmt.Fprintf(&sb, "  StaleTime: %s\n", c.StaleTime)
	fmt.Fprintf(&sb, "  GCTime: %s\n", c.GCTime)

	// snapshot
	fmt.Fprintf(&sb, "  SnapshotEnabled: %v\n", c.SnapshotEnabled)
	if c.SnapshotEnabled {
		fmt.Fprintf(&sb, "  Snapshot: %s/%s ttl=%s\n", c.SnapshotProvider, c.SnapshotCodec, c.SnapshotTTL)
		fmt.Fprintf(&sb, "  RedisAddr: %s\n", c.RedisAddr)
		fmt.Fprintf(&sb, "  RedisPassword: %s\n", mask(c.RedisPassword))
	}
	return sb.String()
}

func mask(s string) string {
	if s == "" {
		return "(empty)"
	}
	return "********"
}
