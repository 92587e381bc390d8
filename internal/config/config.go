// Package config loads the process configuration from a YAML file.
package config

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/veldt-dev/veldt/pkg/extension"
)

// StoreKind selects the storage backend.
type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreRedis  StoreKind = "redis"
)

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// StoreConfig selects and configures the storage backend.
type StoreConfig struct {
	Type  StoreKind   `yaml:"type"`
	Redis RedisConfig `yaml:"redis"`
}

// Config is the full process configuration.
type Config struct {
	// Listen is the address the HTTP server binds to.
	Listen string `yaml:"listen"`
	// BaseURL is the externally visible URL the session resource's
	// endpoint templates derive from.
	BaseURL string `yaml:"base_url"`
	// Store selects the storage backend.
	Store StoreConfig `yaml:"store"`
	// CoreCapabilities are the advertised and enforced server limits.
	CoreCapabilities extension.CoreLimits `yaml:"core_capabilities"`
}

// Default returns the configuration used when no file is given: memory
// store, localhost binding, RFC-suggested limits.
func Default() Config {
	return Config{
		Listen:           ":8888",
		BaseURL:          "http://localhost:8888",
		Store:            StoreConfig{Type: StoreMemory},
		CoreCapabilities: extension.DefaultCoreLimits(),
	}
}

// Load reads and validates a configuration file. A missing path returns
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	switch c.Store.Type {
	case StoreMemory:
	case StoreRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("store type redis requires redis.addr")
		}
	default:
		return fmt.Errorf("unknown store type %q", c.Store.Type)
	}
	return nil
}
