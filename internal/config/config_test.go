package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denguewatch/denguewatch/internal/ingest"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaultsNeedDatabase(t *testing.T) {
	_, err := Load("", env(nil))
	assert.ErrorContains(t, err, "DATABASE_URL")

	cfg, err := Load("", env(map[string]string{"DENGUE_STORE": "memory"}))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 5, cfg.PageSize)
	assert.Equal(t, "development", cfg.LogMode)
	assert.Equal(t, ingest.PolicyRequireAll, cfg.ImportPolicy)
	assert.Equal(t, 20.0, cfg.WriteRate)
	assert.Equal(t, 40, cfg.WriteBurst)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "denguewatch.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
env         = "production"
listen_addr = ":9000"

database {
  url = "postgres://file@localhost/dengue"
}

assets {
  boundaries = "/data/regions.geojson"
}

dashboard {
  page_size     = 10
  import_policy = "best-effort"
  write_rate    = 0
}
`), 0o600))

	cfg, err := Load(path, env(map[string]string{"LISTEN_ADDR": ":7000"}))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.ListenAddr)
	assert.Equal(t, "postgres://file@localhost/dengue", cfg.DatabaseURL)
	assert.Equal(t, "/data/regions.geojson", cfg.BoundariesPath)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, ingest.PolicyBestEffort, cfg.ImportPolicy)
	assert.Equal(t, "production", cfg.LogMode)
	assert.Zero(t, cfg.WriteRate)
}

func TestLoadWriteLimitFromEnv(t *testing.T) {
	cfg, err := Load("", env(map[string]string{
		"DENGUE_STORE":       "memory",
		"DENGUE_WRITE_RATE":  "2.5",
		"DENGUE_WRITE_BURST": "5",
	}))
	require.NoError(t, err)
	assert.Equal(t, 2.5, cfg.WriteRate)
	assert.Equal(t, 5, cfg.WriteBurst)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string]map[string]string{
		"store":     {"DENGUE_STORE": "mongo"},
		"page size": {"DENGUE_STORE": "memory", "DENGUE_PAGE_SIZE": "0"},
		"policy":    {"DENGUE_STORE": "memory", "DENGUE_IMPORT_POLICY": "maybe"},
		"migrate":   {"DENGUE_STORE": "memory", "DENGUE_MIGRATE": "sometimes"},
		"rate":      {"DENGUE_STORE": "memory", "DENGUE_WRITE_RATE": "-1"},
		"burst":     {"DENGUE_STORE": "memory", "DENGUE_WRITE_BURST": "0"},
	}
	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load("", env(vars))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.hcl"), env(nil))
	assert.Error(t, err)
}
