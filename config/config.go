// Package config loads storefront settings from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Cart    CartConfig    `yaml:"cart"`
	Catalog CatalogConfig `yaml:"catalog"`
	Order   OrderConfig   `yaml:"order"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// CartConfig selects the key-value backend for cart snapshots:
// "redis", "sqlite" or "memory".
type CartConfig struct {
	Store      string `yaml:"store"`
	RedisHost  string `yaml:"redis_host"`
	RedisPort  string `yaml:"redis_port"`
	SQLitePath string `yaml:"sqlite_path"`
	TTL        string `yaml:"ttl"`
}

// CatalogConfig reads the catalog from a database when Driver is set,
// otherwise from the YAML seed in File.
type CatalogConfig struct {
	Driver         string `yaml:"driver"` // postgres, sqlite3
	DSN            string `yaml:"dsn"`
	File           string `yaml:"file"`
	PageSize       int    `yaml:"page_size"`
	RevealCooldown string `yaml:"reveal_cooldown"`
}

type OrderConfig struct {
	WhatsAppPhone string `yaml:"whatsapp_phone"`
	LogHandoffs   bool   `yaml:"log_handoffs"`
}

type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "10000"},
		Cart: CartConfig{
			Store:      "memory",
			RedisHost:  "localhost",
			RedisPort:  "6379",
			SQLitePath: "data/carts.db",
			TTL:        "24h",
		},
		Catalog: CatalogConfig{
			File:           "data/pieces.yaml",
			PageSize:       50,
			RevealCooldown: "300ms",
		},
		Order: OrderConfig{WhatsAppPhone: "50252054584"},
	}
}

// Load reads path (if non-empty and present), then applies environment
// overrides and validates.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("CART_STORE"); v != "" {
		c.Cart.Store = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Cart.RedisHost = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		c.Cart.RedisPort = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		c.Catalog.Driver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Catalog.DSN = v
		if c.Catalog.Driver == "" {
			c.Catalog.Driver = "postgres"
		}
	}
	if v := os.Getenv("CATALOG_FILE"); v != "" {
		c.Catalog.File = v
	}
	if v := os.Getenv("WHATSAPP_PHONE"); v != "" {
		c.Order.WhatsAppPhone = v
	}
	if v := os.Getenv("DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.Debug = b
		}
	}
}

func (c *Config) Validate() error {
	switch c.Cart.Store {
	case "redis", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown cart store %q", c.Cart.Store)
	}
	switch c.Catalog.Driver {
	case "", "postgres", "sqlite3":
	default:
		return fmt.Errorf("unknown catalog driver %q", c.Catalog.Driver)
	}
	if c.Catalog.Driver != "" && c.Catalog.DSN == "" {
		return fmt.Errorf("catalog driver %s needs a dsn", c.Catalog.Driver)
	}
	if c.Catalog.Driver == "" && c.Catalog.File == "" {
		return fmt.Errorf("catalog needs a driver or a file")
	}
	if c.Catalog.PageSize <= 0 {
		return fmt.Errorf("catalog page_size must be positive, got %d", c.Catalog.PageSize)
	}
	if _, err := time.ParseDuration(c.Cart.TTL); err != nil {
		return fmt.Errorf("invalid cart ttl %q: %w", c.Cart.TTL, err)
	}
	if _, err := time.ParseDuration(c.Catalog.RevealCooldown); err != nil {
		return fmt.Errorf("invalid reveal_cooldown %q: %w", c.Catalog.RevealCooldown, err)
	}
	if c.Order.WhatsAppPhone == "" {
		return fmt.Errorf("order whatsapp_phone is required")
	}
	return nil
}

func (c *Config) CartTTL() time.Duration {
	d, _ := time.ParseDuration(c.Cart.TTL)
	return d
}

func (c *Config) RevealCooldown() time.Duration {
	d, _ := time.ParseDuration(c.Catalog.RevealCooldown)
	return d
}

func (c *Config) RedisAddr() string {
	return c.Cart.RedisHost + ":" + c.Cart.RedisPort
}
