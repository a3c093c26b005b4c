package config

import (
	"fmt"
	"strings"
	"time"

	pkgconfig "github.com/kartikbazzad/bunbase/lookup/pkg/config"
	"github.com/kartikbazzad/bunbase/lookup/pkg/logger"

	"github.com/kartikbazzad/bunbase/lookup/internal/storage"
)

// EnvPrefix prefixes every environment variable read by the service.
const EnvPrefix = "LOOKUP_"

// Config is the full service configuration.
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Data        DataConfig      `mapstructure:"data"`
	Users       UsersConfig     `mapstructure:"users"`
	Query       QueryConfig     `mapstructure:"query"`
	Session     SessionConfig   `mapstructure:"session"`
	Storage     storage.Config  `mapstructure:"storage"`
	Log         logger.Config   `mapstructure:"log"`
	RateLimit   RateLimitConfig `mapstructure:"ratelimit"`
	Authz       AuthzConfig     `mapstructure:"authz"`
}

// ServerConfig configures the HTTP listener and static assets.
type ServerConfig struct {
	Port       string `mapstructure:"port"`
	CORSOrigin string `mapstructure:"corsorigin"`
	PublicDir  string `mapstructure:"publicdir"`
	ViewsDir   string `mapstructure:"viewsdir"`
	Mode       string `mapstructure:"mode"` // gin mode: release, debug, test
}

// DataConfig locates the dataset. A non-empty Bucket selects object storage.
type DataConfig struct {
	Path         string        `mapstructure:"path"`
	Bucket       string        `mapstructure:"bucket"`
	Object       string        `mapstructure:"object"`
	PollInterval time.Duration `mapstructure:"pollinterval"`
	Debounce     time.Duration `mapstructure:"debounce"`
}

// UsersConfig locates the users file.
type UsersConfig struct {
	Path string `mapstructure:"path"`
}

// QueryConfig tunes the query engine.
type QueryConfig struct {
	DefaultLimit  int      `mapstructure:"defaultlimit"`
	MaxLimit      int      `mapstructure:"maxlimit"`
	DateFields    []string `mapstructure:"datefields"`
	FilterFields  []string `mapstructure:"filterfields"`
	ExportColumns []string `mapstructure:"exportcolumns"`
	Locale        string   `mapstructure:"locale"`
}

// SessionConfig configures login sessions.
type SessionConfig struct {
	TTL    time.Duration `mapstructure:"ttl"`
	Secure *bool         `mapstructure:"secure"`
}

// RateLimitConfig limits login attempts per client IP.
type RateLimitConfig struct {
	LoginPerMinute int `mapstructure:"loginperminute"`
	Burst          int `mapstructure:"burst"`
}

// AuthzConfig optionally overrides the embedded authorization policy.
type AuthzConfig struct {
	PolicyPath string `mapstructure:"policypath"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Environment: "development",
		Server: ServerConfig{
			Port:       "3000",
			CORSOrigin: "http://localhost:3000",
			PublicDir:  "public",
			ViewsDir:   "views",
			Mode:       "release",
		},
		Data: DataConfig{
			Path:         "data.json",
			Object:       "data.json",
			PollInterval: 30 * time.Second,
			Debounce:     250 * time.Millisecond,
		},
		Users: UsersConfig{Path: "users.json"},
		Query: QueryConfig{
			DefaultLimit: 50,
			DateFields:   []string{"Submit date"},
			FilterFields: []string{"Sheet"},
			Locale:       "vi",
		},
		Session:   SessionConfig{TTL: 24 * time.Hour},
		Log:       logger.Config{Level: "INFO", Format: "json"},
		RateLimit: RateLimitConfig{LoginPerMinute: 30, Burst: 15},
	}
}

// Load reads file (optional) and LOOKUP_* environment variables over the defaults.
func Load(file string) (Config, error) {
	cfg := Default()
	if err := pkgconfig.Load(file, EnvPrefix, &cfg); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Query.DateFields = cleanList(c.Query.DateFields)
	c.Query.FilterFields = cleanList(c.Query.FilterFields)
	c.Query.ExportColumns = cleanList(c.Query.ExportColumns)
}

// cleanList trims entries and drops empty ones. A single comma-joined entry
// (as set from an environment variable) is split.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if c.Data.Bucket != "" && c.Storage.Endpoint == "" {
		return fmt.Errorf("data.bucket requires storage.endpoint")
	}
	if c.Data.Bucket == "" && c.Data.Path == "" {
		return fmt.Errorf("data.path or data.bucket is required")
	}
	if c.Query.DefaultLimit < 0 || c.Query.MaxLimit < 0 {
		return fmt.Errorf("query limits must not be negative")
	}
	if c.RateLimit.LoginPerMinute <= 0 {
		return fmt.Errorf("ratelimit.loginperminute must be positive")
	}
	return nil
}

// CookieSecure returns whether session cookies carry the Secure flag.
// Defaults to false for development, true for production.
func (c Config) CookieSecure() bool {
	if c.Session.Secure != nil {
		return *c.Session.Secure
	}
	return c.Environment == "production"
}

// UsesObjectStorage reports whether the dataset is read from a bucket.
func (c Config) UsesObjectStorage() bool {
	return c.Data.Bucket != ""
}
