package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/catalog")
	t.Setenv("JWT_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, StorageLocal, cfg.StorageDriver)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.False(t, cfg.IsProduction())
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("JWT_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DSN")
	assert.Contains(t, err.Error(), "JWT_KEY")
}

func TestValidateS3NeedsBucket(t *testing.T) {
	cfg := Config{DBDSN: "x", JWTKey: "y", StorageDriver: StorageS3, MaxUploadBytes: 1}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3_BUCKET")

	cfg.S3Bucket = "images"
	assert.NoError(t, cfg.Validate())

	cfg.StorageDriver = "ftp"
	assert.Error(t, cfg.Validate())
}

func TestLoadDotEnvOverridesEnvironment(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.env")
	second := filepath.Join(dir, "second.env")
	require.NoError(t, os.WriteFile(first, []byte("CATALOG_TEST_A=first\nCATALOG_TEST_B=first\n"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("CATALOG_TEST_B=second\n"), 0o600))

	t.Setenv("CATALOG_TEST_A", "env")
	t.Setenv("CATALOG_TEST_B", "env")

	loadDotEnv(filepath.Join(dir, "missing.env"), first, second)

	assert.Equal(t, "first", os.Getenv("CATALOG_TEST_A"))
	assert.Equal(t, "second", os.Getenv("CATALOG_TEST_B"))
}
