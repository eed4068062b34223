package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Billing    BillingConfig    `yaml:"billing"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Registry   RegistryConfig   `yaml:"registry"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are present.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// BillingConfig holds the charge policy enforced when a session is closed.
type BillingConfig struct {
	RoundingUnit           int64 `yaml:"rounding_unit"`
	MinimumCharge          int64 `yaml:"minimum_charge"`
	CatalogCacheTTLSeconds int   `yaml:"catalog_cache_ttl_seconds"`
}

// CatalogConfig seeds facilities and tariff plans at startup.
type CatalogConfig struct {
	Facilities []FacilitySeed `yaml:"facilities"`
	Tariffs    []TariffSeed   `yaml:"tariffs"`
}

// FacilitySeed describes one parking facility.
type FacilitySeed struct {
	ID               int64  `yaml:"id"`
	Name             string `yaml:"name"`
	Capacity         int    `yaml:"capacity"`
	FallbackTariffID *int64 `yaml:"fallback_tariff_id"`
}

// TariffSeed describes one tariff plan.
type TariffSeed struct {
	ID            int64  `yaml:"id"`
	Name          string `yaml:"name"`
	BillingMode   string `yaml:"billing_mode"`
	RatePerMinute int64  `yaml:"rate_per_minute"`
	RatePerHour   int64  `yaml:"rate_per_hour"`
	RatePerDay    int64  `yaml:"rate_per_day"`
	PeriodDays    int    `yaml:"period_days"`
}

// RegistryConfig holds the upstream vehicle registry sync configuration.
type RegistryConfig struct {
	Enabled         bool              `yaml:"enabled"`
	IntervalSeconds int               `yaml:"interval_seconds"`
	Interval        time.Duration     `yaml:"-"` // Ignored by YAML parser
	URL             string            `yaml:"url"`
	Headers         map[string]string `yaml:"headers"`
	PageSize        int               `yaml:"page_size"`
	HTTPProxy       string            `yaml:"http_proxy"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	EnablePostgresDDL      bool   `yaml:"enable_postgres_ddl"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	switch cfg.Database.Driver {
	case "":
		cfg.Database.Driver = "postgres"
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	if cfg.Billing.RoundingUnit <= 0 {
		cfg.Billing.RoundingUnit = 50
	}
	if cfg.Billing.MinimumCharge < 0 {
		return fmt.Errorf("billing.minimum_charge must not be negative")
	}
	if cfg.Billing.MinimumCharge == 0 {
		cfg.Billing.MinimumCharge = 100
	}
	if cfg.Billing.CatalogCacheTTLSeconds <= 0 {
		cfg.Billing.CatalogCacheTTLSeconds = 60
	}

	if cfg.Registry.IntervalSeconds <= 0 {
		cfg.Registry.IntervalSeconds = 300
	}
	cfg.Registry.Interval = time.Duration(cfg.Registry.IntervalSeconds) * time.Second
	if cfg.Registry.PageSize <= 0 {
		cfg.Registry.PageSize = 100
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	for _, f := range cfg.Catalog.Facilities {
		if f.Capacity <= 0 {
			return fmt.Errorf("facility %d (%s): capacity must be positive", f.ID, f.Name)
		}
	}
	return nil
}
