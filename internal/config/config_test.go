package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2*time.Second, cfg.Debounce)
	assert.Equal(t, 100*time.Millisecond, cfg.BulkTick)
	assert.Equal(t, 2, cfg.BulkStep)
	assert.False(t, cfg.RequireChecklist)
	assert.True(t, cfg.ReconcileMissing)
}

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
database: /var/lib/audit.db
debounce: 1500ms
require_checklist: true
`))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/audit.db", cfg.Database)
	assert.Equal(t, 1500*time.Millisecond, cfg.Debounce)
	assert.True(t, cfg.RequireChecklist)
	assert.Equal(t, 2, cfg.BulkStep, "unset fields keep defaults")
	assert.Equal(t, ":8080", cfg.Listen)
}

func TestParse_EmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_RejectsUnknownField(t *testing.T) {
	_, err := Parse([]byte("require_checklists: true\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
		want string
	}{
		{"zero debounce", func(c *Config) { c.Debounce = 0 }, "debounce"},
		{"negative tick", func(c *Config) { c.BulkTick = -time.Second }, "bulk_tick"},
		{"step zero", func(c *Config) { c.BulkStep = 0 }, "bulk_step"},
		{"step over 100", func(c *Config) { c.BulkStep = 101 }, "bulk_step"},
		{"no database", func(c *Config) { c.Database = "" }, "database"},
		{"no listen", func(c *Config) { c.Listen = "" }, "listen"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mod(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvDatabase:         ":memory:",
		EnvCatalog:          "assets.cue",
		EnvDebounce:         "3s",
		EnvBulkTick:         "10ms",
		EnvBulkStep:         "5",
		EnvRequireChecklist: "true",
		EnvReconcileMissing: "false",
		EnvListen:           "127.0.0.1:9000",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))

	assert.Equal(t, Config{
		Database:         ":memory:",
		Catalog:          "assets.cue",
		Debounce:         3 * time.Second,
		BulkTick:         10 * time.Millisecond,
		BulkStep:         5,
		RequireChecklist: true,
		ReconcileMissing: false,
		Listen:           "127.0.0.1:9000",
	}, cfg)
}

func TestApplyEnv_BadValue(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		if k == EnvBulkStep {
			return "lots", true
		}
		return "", false
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvBulkStep)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assetaudit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: file.db\nbulk_step: 4\n"), 0o644))
	t.Setenv(EnvDatabase, "env.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.Database)
	assert.Equal(t, 4, cfg.BulkStep)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidAfterEnv(t *testing.T) {
	t.Setenv(EnvBulkStep, "0")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}
