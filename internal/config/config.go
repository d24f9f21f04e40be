// Package config loads the pipeline configuration from an optional TOML
// file with environment-variable overrides for deployment knobs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full pipeline configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Remote  RemoteConfig  `toml:"remote"`
	Sync    SyncConfig    `toml:"sync"`
	Billing BillingConfig `toml:"billing"`
}

// ServerConfig configures the local HTTP surface.
type ServerConfig struct {
	ListenAddr string `toml:"listen_addr"`
	JWTSecret  string `toml:"jwt_secret"`
}

// StorageConfig configures the durable local store.
type StorageConfig struct {
	DBPath        string `toml:"db_path"`
	SchemaVersion int    `toml:"schema_version"`
	RetentionDays int    `toml:"retention_days"`
	MaxBills      int    `toml:"max_bills"`
}

// RemoteConfig points at the remote billing API.
type RemoteConfig struct {
	BaseURL string `toml:"base_url"`

	// ProbeIntervalSeconds is how often connectivity is probed.
	ProbeIntervalSeconds int `toml:"probe_interval_seconds"`
}

// SyncConfig tunes the drain and refresh cadences.
type SyncConfig struct {
	// IntervalSeconds is the fixed polling interval between drains.
	IntervalSeconds int `toml:"interval_seconds"`

	// OfflineRefreshSeconds is the offline cache re-read interval.
	OfflineRefreshSeconds int `toml:"offline_refresh_seconds"`
}

// BillingConfig carries settlement policy values.
type BillingConfig struct {
	// TaxPercent is the fixed tax rate applied at settlement. It is
	// policy, not user input.
	TaxPercent float64 `toml:"tax_percent"`
}

// Default returns the configuration used when no file or overrides exist.
func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
		Storage: StorageConfig{
			DBPath:        "./data/tillsync.db",
			SchemaVersion: 1,
			RetentionDays: 7,
			MaxBills:      100,
		},
		Remote: RemoteConfig{
			BaseURL:              "http://localhost:9000",
			ProbeIntervalSeconds: 10,
		},
		Sync: SyncConfig{
			IntervalSeconds:       60,
			OfflineRefreshSeconds: 30,
		},
		Billing: BillingConfig{
			TaxPercent: 18,
		},
	}
}

// Load reads path (if it exists) over the defaults, then applies env
// overrides. A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	overrideString(&cfg.Server.ListenAddr, "TILLSYNC_LISTEN_ADDR")
	overrideString(&cfg.Server.JWTSecret, "TILLSYNC_JWT_SECRET")
	overrideString(&cfg.Storage.DBPath, "TILLSYNC_DB_PATH")
	overrideString(&cfg.Remote.BaseURL, "TILLSYNC_REMOTE_URL")
	overrideFloat(&cfg.Billing.TaxPercent, "TILLSYNC_TAX_PERCENT")

	return cfg, nil
}

// ProbeInterval returns the connectivity probe cadence.
func (c Config) ProbeInterval() time.Duration {
	return time.Duration(c.Remote.ProbeIntervalSeconds) * time.Second
}

// SyncInterval returns the fixed drain polling cadence.
func (c Config) SyncInterval() time.Duration {
	return time.Duration(c.Sync.IntervalSeconds) * time.Second
}

// OfflineRefreshInterval returns the offline cache re-read cadence.
func (c Config) OfflineRefreshInterval() time.Duration {
	return time.Duration(c.Sync.OfflineRefreshSeconds) * time.Second
}

// Retention returns the cache retention window.
func (c Config) Retention() time.Duration {
	return time.Duration(c.Storage.RetentionDays) * 24 * time.Hour
}

func overrideString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func overrideFloat(dst *float64, key string) {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			*dst = f
		}
	}
}
