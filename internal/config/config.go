// Package config loads the wordauth server configuration through viper.
//
// Precedence, lowest first: built-in defaults, the config file, WORDAUTH_*
// environment variables, then command-line flags bound by the caller.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/wordleapi/wordauth"
)

// EnvPrefix is prepended to every environment key, e.g. WORDAUTH_JWT_SECRET.
const EnvPrefix = "WORDAUTH"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Config is the server configuration.
type Config struct {
	Listen   string   `mapstructure:"listen"`
	SeedFile string   `mapstructure:"seed_file"`
	JWT      JWT      `mapstructure:"jwt"`
	Store    Store    `mapstructure:"store"`
	Password Password `mapstructure:"password"`
	Audit    Audit    `mapstructure:"audit"`
	Metrics  Metrics  `mapstructure:"metrics"`
	Log      Log      `mapstructure:"log"`
}

type JWT struct {
	Secret              string `mapstructure:"secret"`
	Issuer              string `mapstructure:"issuer"`
	Audience            string `mapstructure:"audience"`
	ExpirationInMinutes int    `mapstructure:"expiration_in_minutes"`
}

type Store struct {
	Driver      string `mapstructure:"driver"`
	RedisAddr   string `mapstructure:"redis_addr"`
	RedisPrefix string `mapstructure:"redis_prefix"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	Migrate     bool   `mapstructure:"migrate"`
}

type Password struct {
	Memory      uint32 `mapstructure:"memory"`
	Time        uint32 `mapstructure:"time"`
	Parallelism uint8  `mapstructure:"parallelism"`
	MinBytes    int    `mapstructure:"min_bytes"`
	MaxBytes    int    `mapstructure:"max_bytes"`
}

type Audit struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size"`
}

type Metrics struct {
	Enabled bool `mapstructure:"enabled"`
	// OTel routes engine series through an OpenTelemetry MeterProvider.
	OTel bool `mapstructure:"otel"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// NewViper returns a viper instance with defaults and environment binding set.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers a default for every key. Keys without a default are
// invisible to Unmarshal when they come only from the environment.
func SetDefaults(v *viper.Viper) {
	engine := wordauth.DefaultConfig()

	v.SetDefault("listen", ":8080")
	v.SetDefault("seed_file", "")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("jwt.audience", "")
	v.SetDefault("jwt.expiration_in_minutes", 0)

	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_prefix", "{wordauth}:")
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("store.migrate", true)

	v.SetDefault("password.memory", engine.Password.Memory)
	v.SetDefault("password.time", engine.Password.Time)
	v.SetDefault("password.parallelism", engine.Password.Parallelism)
	v.SetDefault("password.min_bytes", engine.Password.MinPasswordBytes)
	v.SetDefault("password.max_bytes", engine.Password.MaxPasswordBytes)

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.buffer_size", engine.Audit.BufferSize)

	v.SetDefault("metrics.enabled", engine.Metrics.Enabled)
	v.SetDefault("metrics.otel", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads path when non-empty, then unmarshals and validates.
func Load(v *viper.Viper, path string) (Config, error) {
	cfg, err := Decode(v, path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode is Load without validation, for commands that only need part of
// the configuration.
func Decode(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate checks server-level settings and the derived engine settings.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return errors.New("listen address is required")
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverRedis:
		if c.Store.RedisAddr == "" {
			return errors.New("store.redis_addr is required for the redis driver")
		}
	case DriverPostgres:
		if c.Store.PostgresDSN == "" {
			return errors.New("store.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}

	engine := c.Engine()
	return engine.Validate()
}

// Engine converts c into the engine configuration.
func (c Config) Engine() wordauth.Config {
	cfg := wordauth.DefaultConfig()

	cfg.JWT.Secret = []byte(c.JWT.Secret)
	cfg.JWT.Issuer = c.JWT.Issuer
	cfg.JWT.Audience = c.JWT.Audience
	cfg.JWT.ExpirationInMinutes = c.JWT.ExpirationInMinutes

	cfg.Password.Memory = c.Password.Memory
	cfg.Password.Time = c.Password.Time
	cfg.Password.Parallelism = c.Password.Parallelism
	cfg.Password.MinPasswordBytes = c.Password.MinBytes
	cfg.Password.MaxPasswordBytes = c.Password.MaxBytes

	cfg.Audit.Enabled = c.Audit.Enabled
	cfg.Audit.BufferSize = c.Audit.BufferSize

	cfg.Metrics.Enabled = c.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = c.Metrics.Enabled

	return cfg
}
