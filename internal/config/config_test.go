package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
addr      = ":9000"
database  = "/var/lib/exchange/exchange.db"
admin_key = "file-key"
log_level = "debug"
cors_origins = ["https://example.com"]

upload {
  max_bytes = 1024
  per_hour  = 5
}

modpack {
  name    = "Friends Pack"
  version = "2.0"
  tags    = ["Species", "Gameplay"]
}

source "approved" {
  title       = "Approved"
  description = "Checked empires"
}

source "fresh" {
  title  = "Fresh uploads"
  status = "pending"
}
`

func writeConfig(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "exchange.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "/var/lib/exchange/exchange.db", cfg.DBPath)
	assert.Equal(t, "file-key", cfg.AdminKey)
	assert.Equal(t, []string{"https://example.com"}, cfg.CORSOrigins)
	assert.Equal(t, int64(1024), cfg.Upload.MaxBytes)
	assert.Equal(t, 5, cfg.Upload.PerHour)

	assert.Equal(t, "Friends Pack", cfg.ModPack.Name)
	assert.Equal(t, "random-empires", cfg.ModPack.ShortName, "unset fields keep defaults")
	assert.Equal(t, []string{"Species", "Gameplay"}, cfg.ModPack.Tags)

	require.Len(t, cfg.Sources, 2)
	fresh, ok := cfg.Source("fresh")
	require.True(t, ok)
	assert.Equal(t, "pending", fresh.Status)
	approved, ok := cfg.Source("approved")
	require.True(t, ok)
	assert.Equal(t, "approved", approved.Status, "status defaults to the source name")

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("EXCHANGE_ADDR", ":7000")
	t.Setenv("EXCHANGE_ADMIN_KEY", "env-key")
	t.Setenv("EXCHANGE_UPLOADS_PER_HOUR", "9")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, "env-key", cfg.AdminKey)
	assert.Equal(t, 9, cfg.Upload.PerHour)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Addr)
	assert.Equal(t, "data/exchange.db", cfg.DBPath)
	assert.Equal(t, int64(8<<20), cfg.Upload.MaxBytes)
	assert.Equal(t, "2.7.*", cfg.ModPack.SupportedVersion)
	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, "approved", cfg.Sources[0].Name)
	assert.Equal(t, "pending", cfg.Sources[1].Status)

	assert.Equal(t, cfg.Sources, Default().Sources)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.hcl"))
		assert.ErrorContains(t, err, "read config")
	})

	t.Run("bad syntax", func(t *testing.T) {
		_, err := Load(writeConfig(t, "addr = "))
		assert.ErrorContains(t, err, "decode config")
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := Load(writeConfig(t, "source \"x\" {\n  title = \"X\"\n  status = \"rejected\"\n}\n"))
		assert.ErrorContains(t, err, "unknown status")
	})

	t.Run("duplicate source", func(t *testing.T) {
		src := "source \"approved\" {\n  title = \"A\"\n}\nsource \"approved\" {\n  title = \"B\"\n}\n"
		_, err := Load(writeConfig(t, src))
		assert.ErrorContains(t, err, "duplicate source")
	})

	t.Run("bad log level", func(t *testing.T) {
		_, err := Load(writeConfig(t, "log_level = \"loud\"\n"))
		assert.ErrorContains(t, err, "log level")
	})
}
