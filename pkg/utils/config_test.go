package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"RESENAS_PORT", "PORT", "RESENAS_STORAGE_PATH", "RESENAS_STORAGE_DRIVER"} {
		t.Setenv(k, "")
	}

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "resenas.json", cfg.StoragePath)
	assert.Equal(t, DriverFile, cfg.Storage.Driver)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
port: 8081
storage_path: /tmp/from-file.json
storage:
  driver: sqlite3
  dsn: /tmp/resenas.db
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	t.Setenv("RESENAS_PORT", "9090")
	t.Setenv("RESENAS_STRICT_LOAD", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port, "env wins over file")
	assert.Equal(t, "/tmp/from-file.json", cfg.StoragePath)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "/tmp/resenas.db", cfg.Storage.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format, "unset keys keep defaults")
	assert.True(t, cfg.Storage.StrictLoad)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigBadPort(t *testing.T) {
	t.Setenv("RESENAS_PORT", "abc")
	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Port = 0 }},
		{"port too high", func(c *Config) { c.Port = 70000 }},
		{"empty path", func(c *Config) { c.StoragePath = " " }},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mongo" }},
		{"sql without dsn", func(c *Config) { c.Storage.Driver = DriverPostgres }},
		{"bad ratio", func(c *Config) { c.Tracing.SampleRatio = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
