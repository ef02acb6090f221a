// Package config loads application configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"stocky_backend/internal/feature/candles/domain/entity"
)

// Cache backends.
const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
	CacheBackendNone   = "none"
)

// knownProviders lists the provider names accepted in Providers.Order.
var knownProviders = map[string]bool{
	string(entity.SourcePolygon):    true,
	string(entity.SourceFinnhub):    true,
	string(entity.SourceTwelveData): true,
}

// Config holds all application configuration.
type Config struct {
	HTTP struct {
		Addr        string   `yaml:"addr"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"http"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		URL            string        `yaml:"url"`
		Host           string        `yaml:"host"`
		Port           string        `yaml:"port"`
		Password       string        `yaml:"password"`
		DB             int           `yaml:"db"`
		ConnectTimeout time.Duration `yaml:"connect_timeout"`
	} `yaml:"redis"`
	Cache struct {
		Backend         string        `yaml:"backend"`
		TTL             time.Duration `yaml:"ttl"`
		BreakerFailures int           `yaml:"breaker_failures"`
		BreakerReset    time.Duration `yaml:"breaker_reset"`
	} `yaml:"cache"`
	Providers struct {
		Order             []string `yaml:"order"`
		EmptyResultPolicy string   `yaml:"empty_result_policy"`
	} `yaml:"providers"`
	Warm struct {
		Symbols       []string `yaml:"symbols"`
		Resolutions   []string `yaml:"resolutions"`
		LookbackDays  int      `yaml:"lookback_days"`
		Schedule      string   `yaml:"schedule"`
		RatePerMinute int      `yaml:"rate_per_minute"`
	} `yaml:"warm"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error; an empty path
// skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// applyEnv overrides file values with environment variables.
func applyEnv(cfg *Config) error {
	setString(&cfg.HTTP.Addr, "HTTP_ADDR")
	setList(&cfg.HTTP.CORSOrigins, "CORS_ORIGINS")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	setString(&cfg.Redis.URL, "REDIS_URL")
	setString(&cfg.Redis.Host, "REDIS_HOST")
	setString(&cfg.Redis.Port, "REDIS_PORT")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")

	setString(&cfg.Cache.Backend, "CACHE_BACKEND")
	setList(&cfg.Providers.Order, "PROVIDER_ORDER")
	setString(&cfg.Providers.EmptyResultPolicy, "EMPTY_RESULT_POLICY")

	setList(&cfg.Warm.Symbols, "WARM_SYMBOLS")
	setList(&cfg.Warm.Resolutions, "WARM_RESOLUTIONS")
	setString(&cfg.Warm.Schedule, "WARM_SCHEDULE")

	var errs []error
	errs = append(errs,
		setInt(&cfg.Redis.DB, "REDIS_DB"),
		setDuration(&cfg.Cache.TTL, "CACHE_TTL"),
		setInt(&cfg.Warm.LookbackDays, "WARM_LOOKBACK_DAYS"),
		setInt(&cfg.Warm.RatePerMinute, "WARM_RATE_PER_MINUTE"),
	)
	return errors.Join(errs...)
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == "" {
		cfg.Redis.Port = "6379"
	}
	if cfg.Redis.ConnectTimeout == 0 {
		cfg.Redis.ConnectTimeout = 10 * time.Second
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = CacheBackendRedis
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = time.Hour
	}
	if cfg.Cache.BreakerFailures == 0 {
		cfg.Cache.BreakerFailures = 5
	}
	if cfg.Cache.BreakerReset == 0 {
		cfg.Cache.BreakerReset = 30 * time.Second
	}
	if len(cfg.Providers.Order) == 0 {
		cfg.Providers.Order = []string{
			string(entity.SourcePolygon),
			string(entity.SourceFinnhub),
			string(entity.SourceTwelveData),
		}
	}
	if cfg.Providers.EmptyResultPolicy == "" {
		cfg.Providers.EmptyResultPolicy = "fallback"
	}
	if len(cfg.Warm.Resolutions) == 0 {
		cfg.Warm.Resolutions = []string{string(entity.DefaultResolution)}
	}
	if cfg.Warm.LookbackDays == 0 {
		cfg.Warm.LookbackDays = 30
	}
	if cfg.Warm.RatePerMinute == 0 {
		cfg.Warm.RatePerMinute = 8
	}
}

// Validate checks that every field holds a supported value.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case CacheBackendRedis, CacheBackendMemory, CacheBackendNone:
	default:
		return fmt.Errorf("cache.backend must be one of redis, memory, none: got %q", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	seen := map[string]bool{}
	for _, p := range c.Providers.Order {
		if !knownProviders[p] {
			return fmt.Errorf("providers.order: unknown provider %q", p)
		}
		if seen[p] {
			return fmt.Errorf("providers.order: duplicate provider %q", p)
		}
		seen[p] = true
	}
	switch strings.ToLower(c.Providers.EmptyResultPolicy) {
	case "fallback", "accept":
	default:
		return fmt.Errorf("providers.empty_result_policy must be fallback or accept: got %q", c.Providers.EmptyResultPolicy)
	}
	for _, r := range c.Warm.Resolutions {
		if _, err := entity.ParseResolution(r); err != nil {
			return fmt.Errorf("warm.resolutions: %w", err)
		}
	}
	if c.Warm.LookbackDays < 0 {
		return fmt.Errorf("warm.lookback_days must not be negative")
	}
	if c.Warm.RatePerMinute < 0 {
		return fmt.Errorf("warm.rate_per_minute must not be negative")
	}
	return nil
}

// WarmResolutions returns the parsed warm resolutions. Call Validate first.
func (c *Config) WarmResolutions() []entity.Resolution {
	out := make([]entity.Resolution, 0, len(c.Warm.Resolutions))
	for _, r := range c.Warm.Resolutions {
		if res, err := entity.ParseResolution(r); err == nil {
			out = append(out, res)
		}
	}
	return out
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setList splits a comma separated variable, dropping blanks.
func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*dst = out
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// plain integers are seconds
		secs, aerr := strconv.Atoi(v)
		if aerr != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		d = time.Duration(secs) * time.Second
	}
	*dst = d
	return nil
}
