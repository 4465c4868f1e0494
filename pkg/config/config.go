// Package config loads the gateway configuration from an optional TOML file
// and the process environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pelletier/go-toml/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/github-orgs-gateway/pkg/logging"
)

// Environment variables read after the file.
const (
	EnvAPIKey    = "API_KEY"
	EnvPort      = "PORT"
	EnvBaseURL   = "GITHUB_API_URL"
	EnvRedisURL  = "REDIS_URL"
	EnvLogLevel  = "LOG_LEVEL"
	EnvUserAgent = "USER_AGENT"
)

// Config provides all configuration for the gateway.
type Config struct {
	// Server configures the inbound HTTP listener.
	Server ServerConfig `toml:"Server"`
	// Upstream configures the GitHub API client and the pagination driver.
	Upstream UpstreamConfig `toml:"Upstream"`
	// Redis configures the rate limit state store.
	Redis RedisConfig `toml:"Redis"`
	// Logging configures the global logger.
	Logging LoggingConfig `toml:"Logging"`
}

// ServerConfig configures the inbound HTTP listener.
type ServerConfig struct {
	// Port is the TCP port to listen on.
	Port int `toml:"Port"`
	// RequestTimeout bounds each inbound request (in seconds). 0 disables it.
	RequestTimeout int64 `toml:"RequestTimeout"`
	// ShutdownTimeout bounds graceful shutdown (in seconds).
	ShutdownTimeout int64 `toml:"ShutdownTimeout"`
	// RateLimit configures the inbound rate limiter.
	RateLimit RateLimitConfig `toml:"RateLimit"`
}

// RateLimitConfig configures the inbound rate limiter.
type RateLimitConfig struct {
	// Enabled turns the limiter on.
	Enabled bool `toml:"Enabled"`
	// Limit is the number of requests allowed per period and client IP.
	Limit int64 `toml:"Limit"`
	// Period is the window length (in seconds).
	Period int64 `toml:"Period"`
}

// UpstreamConfig configures the GitHub API client and the pagination driver.
type UpstreamConfig struct {
	// BaseURL of the GitHub REST API.
	BaseURL string `toml:"BaseURL"`
	// UserAgent sent on every upstream request.
	UserAgent string `toml:"UserAgent"`
	// APIVersion sent as X-GitHub-Api-Version.
	APIVersion string `toml:"APIVersion"`
	// Token is the upstream credential. It is only read from API_KEY.
	Token string `toml:"-"`
	// Timeout bounds a whole upstream request (in seconds). 0 disables it.
	Timeout int64 `toml:"Timeout"`
	// PageTimeout bounds each page fetch of a traversal (in seconds). 0 uses the driver default.
	PageTimeout int64 `toml:"PageTimeout"`
	// MaxPages fails traversals needing more pages. 0 means unlimited.
	MaxPages int `toml:"MaxPages"`
}

// RedisConfig configures the rate limit state store.
type RedisConfig struct {
	// URL is a redis:// URL. Empty disables Redis.
	URL string `toml:"URL"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"Level"`
	// Pretty enables console output instead of JSON.
	Pretty bool `toml:"Pretty"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3000,
			RequestTimeout:  60,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				Enabled: false,
				Limit:   10,
				Period:  1,
			},
		},
		Upstream: UpstreamConfig{
			BaseURL:     "https://api.github.com",
			UserAgent:   "github-orgs-gateway/1.0",
			APIVersion:  "2022-11-28",
			Timeout:     30,
			PageTimeout: 15,
			MaxPages:    0,
		},
		Logging: LoggingConfig{
			Level: string(logging.LevelInfo),
		},
	}
}

// Load reads the TOML file at path (skipped when empty), applies the
// environment and validates the result.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	return LoadFromBytes(data, os.LookupEnv)
}

// LoadFromBytes parses TOML over the defaults, applies lookup as the
// environment and validates the result.
func LoadFromBytes(data []byte, lookup func(string) (string, bool)) (*Config, error) {
	config := Default()
	if len(data) > 0 {
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config: %w", err)
		}
	}

	if err := config.applyEnv(lookup); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}

	if v, ok := lookup(EnvAPIKey); ok {
		c.Upstream.Token = v
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup(EnvBaseURL); ok && v != "" {
		c.Upstream.BaseURL = v
	}
	if v, ok := lookup(EnvRedisURL); ok {
		c.Redis.URL = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup(EnvUserAgent); ok && v != "" {
		c.Upstream.UserAgent = v
	}
	return nil
}

// Validate performs validation on the configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server),
		validation.Field(&c.Upstream),
		validation.Field(&c.Redis),
		validation.Field(&c.Logging),
	)
}

// Validate implements validation.Validatable.
func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&s.RequestTimeout, validation.Min(0)),
		validation.Field(&s.ShutdownTimeout, validation.Min(0)),
		validation.Field(&s.RateLimit),
	)
}

// Validate implements validation.Validatable.
func (r RateLimitConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Limit, validation.When(r.Enabled, validation.Required, validation.Min(1))),
		validation.Field(&r.Period, validation.When(r.Enabled, validation.Required, validation.Min(1))),
	)
}

// Validate implements validation.Validatable.
func (u UpstreamConfig) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.BaseURL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&u.UserAgent, validation.Required),
		validation.Field(&u.Timeout, validation.Min(0)),
		validation.Field(&u.PageTimeout, validation.Min(0)),
		validation.Field(&u.MaxPages, validation.Min(0)),
	)
}

// Validate implements validation.Validatable.
func (r RedisConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.URL, validation.By(redisURL)),
	)
}

// Validate implements validation.Validatable.
func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.By(logLevel)),
	)
}

// RedisEnabled reports whether a Redis URL is configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.URL != ""
}

// RequestTimeoutDuration returns Server.RequestTimeout as a duration.
func (c *Config) RequestTimeoutDuration() time.Duration {
	return seconds(c.Server.RequestTimeout)
}

// ShutdownTimeoutDuration returns Server.ShutdownTimeout as a duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return seconds(c.Server.ShutdownTimeout)
}

// UpstreamTimeoutDuration returns Upstream.Timeout as a duration.
func (c *Config) UpstreamTimeoutDuration() time.Duration {
	return seconds(c.Upstream.Timeout)
}

// PageTimeoutDuration returns Upstream.PageTimeout as a duration.
func (c *Config) PageTimeoutDuration() time.Duration {
	return seconds(c.Upstream.PageTimeout)
}

// RateLimitPeriodDuration returns Server.RateLimit.Period as a duration.
func (c *Config) RateLimitPeriodDuration() time.Duration {
	return seconds(c.Server.RateLimit.Period)
}

func seconds(v int64) time.Duration {
	return time.Duration(v) * time.Second
}

func absoluteURL(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return errors.New("must be a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return errors.New("must be an absolute http(s) URL")
	}
	return nil
}

func redisURL(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := redis.ParseURL(s); err != nil {
		return errors.New("must be a valid redis URL")
	}
	return nil
}

func logLevel(value interface{}) error {
	s, _ := value.(string)
	if _, err := logging.ParseLevel(logging.LogLevel(s)); err != nil {
		return errors.New("must be one of debug, info, warn, error")
	}
	return nil
}
