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
	t.Setenv("MATES_JWT_SECRET", "env-secret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
	assert.Equal(t, "local", cfg.Blob.Backend)
	assert.Equal(t, DefaultTokenTTL, cfg.TokenTTL())
	assert.Equal(t, DefaultBlobTimeout, cfg.BlobTimeout())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mates.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
host = "127.0.0.1"
port = 9090
jwt_secret = "file-secret"
token_ttl_hours = 2

[blob]
backend = "s3"
bucket = "mates-media"
region = "eu-west-1"
timeout_seconds = 5
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "file-secret", cfg.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL())
	assert.Equal(t, "s3", cfg.Blob.Backend)
	assert.Equal(t, "mates-media", cfg.Blob.Bucket)
	assert.Equal(t, 5*time.Second, cfg.BlobTimeout())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mates.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
port = 9090
jwt_secret = "file-secret"
`), 0o644))

	t.Setenv("MATES_PORT", "7070")
	t.Setenv("MATES_JWT_SECRET", "env-secret")
	t.Setenv("MATES_BLOB_LOCAL_ROOT", "/var/lib/mates/media")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "env-secret", cfg.JWTSecret)
	assert.Equal(t, "/var/lib/mates/media", cfg.Blob.LocalRoot)
}

func TestLoadValidation(t *testing.T) {
	_, err := Load("")
	require.Error(t, err, "missing jwt secret")

	t.Setenv("MATES_JWT_SECRET", "env-secret")

	t.Setenv("MATES_BLOB_BACKEND", "ftp")
	_, err = Load("")
	require.Error(t, err, "unknown blob backend")

	t.Setenv("MATES_BLOB_BACKEND", "s3")
	_, err = Load("")
	require.Error(t, err, "s3 backend without a bucket")

	t.Setenv("MATES_BLOB_BUCKET", "mates-media")
	_, err = Load("")
	require.NoError(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err, "a missing config file is not an error")
}
