// Package app wires configuration, infrastructure, and the conversational
// engine into a runnable Telegram application.
package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/kmwangi/ethpesa/core/config"
	coredatabase "github.com/kmwangi/ethpesa/core/database"
)

// PaymentConfig points at the STK push provider.
type PaymentConfig struct {
	URL string `yaml:"url" envconfig:"PAYMENT_URL"`
	Key string `yaml:"key" envconfig:"PAYMENT_KEY"`
}

// RatesConfig selects the exchange-rate provider and the priced pair.
type RatesConfig struct {
	URL   string `yaml:"url" envconfig:"RATES_URL"`
	Asset string `yaml:"asset" envconfig:"RATES_ASSET"`
	Fiat  string `yaml:"fiat" envconfig:"RATES_FIAT"`
}

// Session backends.
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// RedisConfig holds connection settings for the Redis session backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"SESSION_REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"SESSION_REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"SESSION_REDIS_DB"`
}

// SessionConfig selects how conversation state is stored. The memory backend
// loses in-flight sessions on restart; users mid-deposit restart the flow.
type SessionConfig struct {
	Backend string      `yaml:"backend" envconfig:"SESSION_BACKEND"`
	TTLMin  int         `yaml:"ttl_minutes" envconfig:"SESSION_TTL_MINUTES"`
	Redis   RedisConfig `yaml:"redis"`
}

// Config aggregates the core bot settings with the wallet-specific sections.
type Config struct {
	Core     coreconfig.Config   `yaml:",inline"`
	Database coredatabase.Config `yaml:"database"`
	Payment  PaymentConfig       `yaml:"payment"`
	Rates    RatesConfig         `yaml:"rates"`
	Session  SessionConfig       `yaml:"session"`
}

// CoreConfig exposes the embedded core configuration for the shared runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Core
}

// LoadConfig reads configuration from a YAML file and environment variables,
// then validates it. Missing required settings are fatal: the process must
// not serve traffic without the bot token, the payment credential, and a
// reachable account store.
func LoadConfig(path string) (*Config, error) {
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

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	if err := normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func normalize(cfg *Config) error {
	if strings.TrimSpace(cfg.Payment.URL) == "" {
		return fmt.Errorf("payment.url is required")
	}
	if strings.TrimSpace(cfg.Payment.Key) == "" {
		return fmt.Errorf("payment.key is required")
	}
	if strings.TrimSpace(cfg.Database.Name) == "" {
		return fmt.Errorf("database.name is required")
	}
	if strings.TrimSpace(cfg.Database.User) == "" {
		return fmt.Errorf("database.user is required")
	}
	if strings.TrimSpace(cfg.Database.Host) == "" {
		cfg.Database.Host = "localhost"
	}
	if strings.TrimSpace(cfg.Database.Port) == "" {
		cfg.Database.Port = "5432"
	}
	if strings.TrimSpace(cfg.Database.SSLMode) == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxConnections <= 0 {
		cfg.Database.MaxConnections = 10
	}

	if strings.TrimSpace(cfg.Rates.Asset) == "" {
		cfg.Rates.Asset = "ethereum"
	}
	if strings.TrimSpace(cfg.Rates.Fiat) == "" {
		cfg.Rates.Fiat = "kes"
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Session.Backend))
	if backend == "" {
		backend = SessionBackendMemory
	}
	switch backend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if strings.TrimSpace(cfg.Session.Redis.Addr) == "" {
			return fmt.Errorf("session.redis.addr is required when session.backend is 'redis'")
		}
	default:
		return fmt.Errorf("invalid session.backend %q; allowed: memory, redis", cfg.Session.Backend)
	}
	cfg.Session.Backend = backend

	return nil
}
