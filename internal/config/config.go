// Package config loads runtime configuration from config/gigledger.yaml with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr         string   `yaml:"addr"`
	CORSOrigins  []string `yaml:"cors_origins"`
	RatePerSec   int      `yaml:"rate_per_sec"`
	RateBurst    int      `yaml:"rate_burst"`
	JWTSecret    string   `yaml:"jwt_secret"`
	MetricsAddr  string   `yaml:"metrics_addr"`
	ReadTimeout  int      `yaml:"read_timeout_seconds"`
	WriteTimeout int      `yaml:"write_timeout_seconds"`
}

// DatabaseConfig controls the postgres connection. An empty DSN selects the
// in-memory store.
type DatabaseConfig struct {
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_seconds"`
}

// RedisConfig controls the cache backend. An empty Addr selects the
// in-process cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// CheckoutConfig points at the payment provider.
type CheckoutConfig struct {
	ProviderURL string `yaml:"provider_url"`
	ProviderKey string `yaml:"provider_key"`
}

// DigestConfig controls the weekly summary mailer.
type DigestConfig struct {
	Schedule string `yaml:"schedule"`
	SMTPAddr string `yaml:"smtp_addr"`
	From     string `yaml:"from"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the full runtime configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Checkout CheckoutConfig `yaml:"checkout"`
	Digest   DigestConfig   `yaml:"digest"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":8080",
			CORSOrigins: []string{"*"},
			RatePerSec:  20,
			RateBurst:   40,
		},
		Database: DatabaseConfig{
			MaxOpenConns: 20,
			MaxIdleConns: 5,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads config/gigledger.yaml if present, then applies environment
// overrides. A missing file is not an error.
func Load() (*Config, error) {
	return LoadFromPath(filepath.Join("config", "gigledger.yaml"))
}

// LoadFromPath loads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Addr, "HTTP_ADDR")
	setString(&c.Server.JWTSecret, "JWT_SECRET")
	setString(&c.Database.DSN, "DATABASE_DSN")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setInt(&c.Redis.DB, "REDIS_DB")
	setString(&c.Checkout.ProviderURL, "CHECKOUT_PROVIDER_URL")
	setString(&c.Checkout.ProviderKey, "CHECKOUT_PROVIDER_KEY")
	setString(&c.Digest.Schedule, "DIGEST_SCHEDULE")
	setString(&c.Digest.SMTPAddr, "SMTP_ADDR")
	setString(&c.Digest.From, "SMTP_FROM")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")

	if raw := strings.TrimSpace(os.Getenv("CORS_ORIGINS")); raw != "" {
		origins := strings.Split(raw, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		c.Server.CORSOrigins = origins
	}
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.JWTSecret == "" {
		return fmt.Errorf("server.jwt_secret is required (or set JWT_SECRET)")
	}
	if c.Server.RatePerSec <= 0 {
		c.Server.RatePerSec = 20
	}
	if c.Server.RateBurst <= 0 {
		c.Server.RateBurst = c.Server.RatePerSec * 2
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}
