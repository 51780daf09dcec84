package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

const minSecretLen = 32

// Config holds the shop's runtime settings.
type Config struct {
	Port string `yaml:"port"`

	// Data files, loaded once at startup
	CatalogPath   string `yaml:"catalog_path"`
	CustomersPath string `yaml:"customers_path"`
	BcryptCost    int    `yaml:"bcrypt_cost"`

	Session SessionConfig `yaml:"session"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

type SessionConfig struct {
	Secret       string `yaml:"secret"`
	TTL          string `yaml:"ttl"`
	CookieName   string `yaml:"cookie_name"`
	SecureCookie bool   `yaml:"secure_cookie"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

func DefaultConfig() *Config {
	return &Config{
		Port:          "8080",
		CatalogPath:   "data/melons.txt",
		CustomersPath: "data/customers.txt",
		BcryptCost:    10,
		Session: SessionConfig{
			TTL:        "24h",
			CookieName: "ubermelon_session",
		},
		Metrics: MetricsConfig{Enabled: true},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads path over the defaults (an empty path skips the file), then
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	setString(&c.Port, "PORT")
	setString(&c.CatalogPath, "CATALOG_PATH")
	setString(&c.CustomersPath, "CUSTOMERS_PATH")
	setString(&c.Session.Secret, "SESSION_SECRET")
	setString(&c.Session.TTL, "SESSION_TTL")
	setString(&c.Session.CookieName, "SESSION_COOKIE")
	setString(&c.Metrics.Token, "METRICS_TOKEN")
	setString(&c.Logging.Level, "LOG_LEVEL")

	if v := os.Getenv("BCRYPT_COST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BCRYPT_COST: %w", err)
		}
		c.BcryptCost = n
	}
	if err := setBool(&c.Session.SecureCookie, "COOKIE_SECURE"); err != nil {
		return err
	}
	return setBool(&c.Metrics.Enabled, "METRICS_ENABLED")
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.CatalogPath == "" {
		errs = append(errs, errors.New("catalog_path is required"))
	}
	if c.CustomersPath == "" {
		errs = append(errs, errors.New("customers_path is required"))
	}
	if len(c.Session.Secret) < minSecretLen {
		errs = append(errs, fmt.Errorf("session secret is required and must be at least %d chars", minSecretLen))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("bcrypt_cost must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost))
	}
	if _, err := c.SessionTTL(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Config) SessionTTL() (time.Duration, error) {
	d, err := time.ParseDuration(c.Session.TTL)
	if err != nil {
		return 0, fmt.Errorf("session ttl: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("session ttl must be positive, got %s", d)
	}
	return d, nil
}

func (c *Config) Addr() string { return ":" + c.Port }

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}
