// Package config loads the process configuration.
//
// Sources are layered, later ones overriding earlier ones:
//
//  1. struct defaults (Default),
//  2. an optional YAML file (CONFIG_PATH, else ./config.yaml when present),
//  3. environment variables prefixed DEVCOMPASS_, where the first
//     underscore after the prefix separates section from key:
//     DEVCOMPASS_SERVER_PORT -> server.port,
//     DEVCOMPASS_CACHE_BADGER_PATH -> cache.badger_path.
//
// A .env file in the working directory is loaded into the environment
// before any of that happens.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/sakif/devcompass/internal/model"
)

const (
	EnvPrefix         = "DEVCOMPASS_"
	ConfigPathEnvVar  = "CONFIG_PATH"
	DefaultConfigPath = "config.yaml"

	CacheBackendMemory = "memory"
	CacheBackendBadger = "badger"

	minJWTSecretLength = 16
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Cache    CacheConfig    `koanf:"cache"`
	Upstream UpstreamConfig `koanf:"upstream"`
	Auth     AuthConfig     `koanf:"auth"`
	Insight  InsightConfig  `koanf:"insight"`
	Ingest   IngestConfig   `koanf:"ingest"`
	Log      LogConfig      `koanf:"log"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// RateLimit is requests per RateWindow per client IP on /api.
	RateLimit  int           `koanf:"rate_limit"`
	RateWindow time.Duration `koanf:"rate_window"`
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

type CacheConfig struct {
	Backend    string        `koanf:"backend"`
	Capacity   int           `koanf:"capacity"`
	BadgerPath string        `koanf:"badger_path"`
	TTLGithub  time.Duration `koanf:"ttl_github"`
	TTLCF      time.Duration `koanf:"ttl_codeforces"`
	TTLLC      time.Duration `koanf:"ttl_leetcode"`
	TTLAtCoder time.Duration `koanf:"ttl_atcoder"`
}

// TTLs returns the per-platform stats lifetimes.
func (c CacheConfig) TTLs() map[model.Platform]time.Duration {
	return map[model.Platform]time.Duration{
		model.PlatformGitHub:     c.TTLGithub,
		model.PlatformCodeforces: c.TTLCF,
		model.PlatformLeetCode:   c.TTLLC,
		model.PlatformAtCoder:    c.TTLAtCoder,
	}
}

type UpstreamConfig struct {
	CodeforcesURL string        `koanf:"codeforces_url"`
	LeetCodeURL   string        `koanf:"leetcode_url"`
	GithubURL     string        `koanf:"github_url"`
	AtCoderURL    string        `koanf:"atcoder_url"`
	KenkooooURL   string        `koanf:"kenkoooo_url"`
	GithubToken   string        `koanf:"github_token"`
	UserAgent     string        `koanf:"user_agent"`
	Timeout       time.Duration `koanf:"timeout"`
	GithubTimeout time.Duration `koanf:"github_timeout"`

	RetryAttempts  int           `koanf:"retry_attempts"`
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`
	RetryMaxDelay  time.Duration `koanf:"retry_max_delay"`

	BreakerMinRequests  uint32        `koanf:"breaker_min_requests"`
	BreakerFailureRatio float64       `koanf:"breaker_failure_ratio"`
	BreakerOpenTimeout  time.Duration `koanf:"breaker_open_timeout"`

	// RateLimit is outbound requests per second per provider.
	RateLimit float64 `koanf:"rate_limit"`
	Burst     int     `koanf:"burst"`
}

type AuthConfig struct {
	// JWTSecret signs access tokens. Empty means a random per-process
	// secret, so sessions do not survive a restart.
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
	// GitHub sign-in is enabled when GithubClientID is set.
	GithubClientID     string `koanf:"github_client_id"`
	GithubClientSecret string `koanf:"github_client_secret"`
	GithubCallbackURL  string `koanf:"github_callback_url"`
	CookieSecure       bool   `koanf:"cookie_secure"`
}

type InsightConfig struct {
	WebhookURL string `koanf:"webhook_url"`
	// WebhookSecret is sent as the x-secret-key header when set.
	WebhookSecret string        `koanf:"webhook_secret"`
	Cooldown      time.Duration `koanf:"cooldown"`
	Timeout       time.Duration `koanf:"timeout"`
}

type IngestConfig struct {
	NeetcodeList string `koanf:"neetcode_list"`
	StriverList  string `koanf:"striver_list"`
	Workers      int    `koanf:"workers"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimit:       120,
			RateWindow:      time.Minute,
		},
		Database: DatabaseConfig{Path: "data/devcompass.db"},
		Cache: CacheConfig{
			Backend:    CacheBackendMemory,
			Capacity:   1000,
			BadgerPath: "data/cache",
			TTLGithub:  2 * time.Hour,
			TTLCF:      2 * time.Hour,
			TTLLC:      2 * time.Hour,
			TTLAtCoder: 2 * time.Hour,
		},
		Upstream: UpstreamConfig{
			UserAgent:           "devcompass/1.0",
			Timeout:             10 * time.Second,
			GithubTimeout:       20 * time.Second,
			RetryAttempts:       3,
			RetryBaseDelay:      time.Second,
			RetryMaxDelay:       30 * time.Second,
			BreakerMinRequests:  10,
			BreakerFailureRatio: 0.6,
			BreakerOpenTimeout:  2 * time.Minute,
			RateLimit:           4,
			Burst:               4,
		},
		Auth: AuthConfig{
			TokenTTL:          24 * time.Hour,
			GithubCallbackURL: "http://localhost:8080/auth/github/callback",
		},
		Insight: InsightConfig{
			Cooldown: time.Hour,
			Timeout:  60 * time.Second,
		},
		Ingest: IngestConfig{Workers: 4},
		Log:    LogConfig{Level: "info", Format: "json"},
	}
}

// Load builds the configuration from defaults, the config file and the
// environment, then validates it.
func Load() (Config, error) {
	// A missing .env is the normal case outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: loading .env: %w", err)
	}
	return LoadFrom(configPath())
}

// LoadFrom is Load without .env handling, reading the YAML file at path
// when path is not empty.
func LoadFrom(path string) (Config, error) {
	k := koanf.New(".")

	defaults := Default()
	if err := k.Load(structs.Provider(&defaults, "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("config: loading defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: loading %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("config: loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func configPath() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	if _, err := os.Stat(DefaultConfigPath); err == nil {
		return DefaultConfigPath
	}
	return ""
}

// envKey maps DEVCOMPASS_CACHE_BADGER_PATH to cache.badger_path.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	case c.Database.Path == "":
		return errors.New("config: database.path is required")
	case c.Cache.Capacity <= 0:
		return fmt.Errorf("config: cache.capacity must be positive, got %d", c.Cache.Capacity)
	case c.Cache.Backend != CacheBackendMemory && c.Cache.Backend != CacheBackendBadger:
		return fmt.Errorf("config: unknown cache.backend %q", c.Cache.Backend)
	case c.Cache.Backend == CacheBackendBadger && c.Cache.BadgerPath == "":
		return errors.New("config: cache.badger_path is required for the badger backend")
	case c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < minJWTSecretLength:
		return fmt.Errorf("config: auth.jwt_secret must be at least %d characters", minJWTSecretLength)
	case c.Auth.GithubClientID != "" && c.Auth.GithubClientSecret == "":
		return errors.New("config: auth.github_client_secret is required with auth.github_client_id")
	case c.Insight.Cooldown < 0:
		return errors.New("config: insight.cooldown must not be negative")
	}
	return nil
}
