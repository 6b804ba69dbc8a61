// Package config loads runtime settings from a YAML file and the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the CLI and the HTTP server.
type Config struct {
	// Database is the SQLite file path. ":memory:" keeps tasks in memory.
	Database string `yaml:"database"`

	// Catalog is an optional YAML or CUE asset catalog. Empty means the
	// built-in demonstration catalog.
	Catalog string `yaml:"catalog"`

	// Debounce is how long a repeated QR code is suppressed.
	Debounce time.Duration `yaml:"debounce"`

	// BulkTick and BulkStep set the simulated bulk scan cadence.
	BulkTick time.Duration `yaml:"bulk_tick"`
	BulkStep int           `yaml:"bulk_step"`

	// RequireChecklist refuses completion while required items are open.
	RequireChecklist bool `yaml:"require_checklist"`

	// ReconcileMissing removes a missing asset when it is later scanned.
	ReconcileMissing bool `yaml:"reconcile_missing"`

	// Listen is the HTTP listen address for "serve".
	Listen string `yaml:"listen"`
}

// Environment variables that override file values.
const (
	EnvDatabase         = "ASSETAUDIT_DB"
	EnvCatalog          = "ASSETAUDIT_CATALOG"
	EnvDebounce         = "ASSETAUDIT_DEBOUNCE"
	EnvBulkTick         = "ASSETAUDIT_BULK_TICK"
	EnvBulkStep         = "ASSETAUDIT_BULK_STEP"
	EnvRequireChecklist = "ASSETAUDIT_REQUIRE_CHECKLIST"
	EnvReconcileMissing = "ASSETAUDIT_RECONCILE_MISSING"
	EnvListen           = "ASSETAUDIT_LISTEN"
)

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Database:         "assetaudit.db",
		Debounce:         2 * time.Second,
		BulkTick:         100 * time.Millisecond,
		BulkStep:         2,
		RequireChecklist: false,
		ReconcileMissing: true,
		Listen:           ":8080",
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults without consulting the environment.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := cfg.decode(data); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // reject typos like "require_checklists"
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from the environment. lookup is os.LookupEnv
// outside tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDatabase); ok {
		c.Database = v
	}
	if v, ok := lookup(EnvCatalog); ok {
		c.Catalog = v
	}
	if v, ok := lookup(EnvListen); ok {
		c.Listen = v
	}
	if v, ok := lookup(EnvDebounce); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDebounce, err)
		}
		c.Debounce = d
	}
	if v, ok := lookup(EnvBulkTick); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvBulkTick, err)
		}
		c.BulkTick = d
	}
	if v, ok := lookup(EnvBulkStep); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvBulkStep, err)
		}
		c.BulkStep = n
	}
	if v, ok := lookup(EnvRequireChecklist); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRequireChecklist, err)
		}
		c.RequireChecklist = b
	}
	if v, ok := lookup(EnvReconcileMissing); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvReconcileMissing, err)
		}
		c.ReconcileMissing = b
	}
	return nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.Debounce <= 0 {
		return fmt.Errorf("debounce must be positive, got %s", c.Debounce)
	}
	if c.BulkTick <= 0 {
		return fmt.Errorf("bulk_tick must be positive, got %s", c.BulkTick)
	}
	if c.BulkStep < 1 || c.BulkStep > 100 {
		return fmt.Errorf("bulk_step must be in 1..100, got %d", c.BulkStep)
	}
	if c.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	return nil
}
