package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	CartBackendMemory = "memory"
	CartBackendSQLite = "sqlite"
	CartBackendRedis  = "redis"
)

type Config struct {
	HTTP struct {
		Port           int     `yaml:"port"`
		RateLimitRPS   float64 `yaml:"rate_limit_rps"`
		RateLimitBurst int     `yaml:"rate_limit_burst"`
		MaxRangeDays   int     `yaml:"max_range_days"`
	} `yaml:"http"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Cart struct {
		Backend    string `yaml:"backend"`
		StorageKey string `yaml:"storage_key"`
		TTLHours   int    `yaml:"ttl_hours"`
	} `yaml:"cart"`

	Catalog struct {
		Path          string `yaml:"path"`
		ReloadSeconds int    `yaml:"reload_seconds"`
		// AllowDrop lets a reload remove day slots still referenced by stored rows.
		AllowDrop bool `yaml:"allow_drop"`
	} `yaml:"catalog"`

	Session struct {
		IdleMinutes    int `yaml:"idle_minutes"`
		CleanupMinutes int `yaml:"cleanup_minutes"`
	} `yaml:"session"`

	Cache struct {
		OccupancyTTLSeconds int `yaml:"occupancy_ttl_seconds"`
	} `yaml:"cache"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Backup BackupConfig `yaml:"backup"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// Load reads the YAML config at path, expanding ${ENV_VAR} placeholders. Variables from a
// .env file in the working directory are loaded first if the file exists.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.RateLimitRPS == 0 {
		c.HTTP.RateLimitRPS = 20
	}
	if c.HTTP.RateLimitBurst == 0 {
		c.HTTP.RateLimitBurst = 40
	}
	if c.HTTP.MaxRangeDays == 0 {
		c.HTTP.MaxRangeDays = 90
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/skibook.db"
	}
	if c.Cart.Backend == "" {
		c.Cart.Backend = CartBackendSQLite
	}
	if c.Cart.StorageKey == "" {
		c.Cart.StorageKey = "raven-cart-storage"
	}
	if c.Catalog.Path == "" {
		c.Catalog.Path = "configs/day_slots.yaml"
	}
	if c.Session.IdleMinutes == 0 {
		c.Session.IdleMinutes = 60
	}
	if c.Session.CleanupMinutes == 0 {
		c.Session.CleanupMinutes = 5
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Backup.Path == "" {
		c.Backup.Path = "data/backups"
	}
}

// Validate checks settings that have no sensible default.
func (c *Config) Validate() error {
	switch c.Cart.Backend {
	case CartBackendMemory, CartBackendSQLite:
	case CartBackendRedis:
		if c.Redis.Address == "" {
			return fmt.Errorf("cart.backend redis requires redis.address")
		}
	default:
		return fmt.Errorf("cart.backend: unknown backend '%s'", c.Cart.Backend)
	}
	if c.HTTP.RateLimitRPS < 0 || c.HTTP.RateLimitBurst < 0 {
		return fmt.Errorf("http: rate limit values must not be negative")
	}
	if c.HTTP.MaxRangeDays < 0 {
		return fmt.Errorf("http.max_range_days must not be negative")
	}
	if c.Session.IdleMinutes < 0 || c.Session.CleanupMinutes < 0 {
		return fmt.Errorf("session: minutes must not be negative")
	}
	return nil
}

// CatalogReloadInterval is zero when hot reload is disabled.
func (c *Config) CatalogReloadInterval() time.Duration {
	if c.Catalog.ReloadSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Catalog.ReloadSeconds) * time.Second
}

func (c *Config) OccupancyCacheTTL() time.Duration {
	if c.Cache.OccupancyTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Cache.OccupancyTTLSeconds) * time.Second
}

func (c *Config) CartTTL() time.Duration {
	if c.Cart.TTLHours <= 0 {
		return 0
	}
	return time.Duration(c.Cart.TTLHours) * time.Hour
}

func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

// SessionIdle is how long an untouched selection session or cart stays in memory.
func (c *Config) SessionIdle() time.Duration {
	return time.Duration(c.Session.IdleMinutes) * time.Minute
}

func (c *Config) SessionCleanupInterval() time.Duration {
	return time.Duration(c.Session.CleanupMinutes) * time.Minute
}
