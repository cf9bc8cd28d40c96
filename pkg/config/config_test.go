package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSetAndDefaults(t *testing.T) {
	cfg := New()

	assert.Empty(t, cfg.Get("database.host"))
	assert.Equal(t, "localhost", cfg.GetDefault("database.host", "localhost"))

	cfg.Set("database.host", "db.internal")
	assert.Equal(t, "db.internal", cfg.Get("database.host"))
	assert.Equal(t, "db.internal", cfg.GetDefault("database.host", "localhost"))
}

func TestUpdateAndGetAll(t *testing.T) {
	cfg := New()
	cfg.Update(map[string]string{
		"redis.host": "cache.internal",
		"redis.port": "6380",
	})

	all := cfg.GetAll()
	assert.Equal(t, "cache.internal", all["redis.host"])
	assert.Equal(t, "6380", all["redis.port"])

	// GetAll returns a copy, not the live map
	all["redis.host"] = "mutated"
	assert.Equal(t, "cache.internal", cfg.Get("redis.host"))
}

func TestLoadFileFlattensNestedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemaflow.yaml")
	content := []byte(`
database:
  host: db.internal
  port: 5433
redis:
  host: cache.internal
tenant: acme
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg := New()
	require.NoError(t, cfg.LoadFile(path))

	assert.Equal(t, "db.internal", cfg.Get("database.host"))
	assert.Equal(t, "5433", cfg.Get("database.port"))
	assert.Equal(t, "cache.internal", cfg.Get("redis.host"))
	assert.Equal(t, "acme", cfg.Get("tenant"))
}

func TestLoadFileMissingIsNotAnError(t *testing.T) {
	cfg := New()
	assert.NoError(t, cfg.LoadFile(filepath.Join(t.TempDir(), "absent.yaml")))
	assert.Empty(t, cfg.GetAll())
}

func TestLoadFileMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: [unclosed"), 0o600))

	cfg := New()
	assert.Error(t, cfg.LoadFile(path))
}
