package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestParseDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")

	cfg, err := Parse([]byte("jwt:\n  secret: " + secret + "\n"))
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, ":8080", cfg.API.Addr())
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL)
	assert.Equal(t, "sannu", cfg.NATS.SubjectPrefix)
	assert.Equal(t, int64(2<<20), cfg.Images.MaxBytes)
	assert.Zero(t, cfg.Sweep.Interval)
}

func TestParseValidation(t *testing.T) {
	_, err := Parse([]byte("jwt:\n  secret: short\n"))
	assert.ErrorContains(t, err, "jwt.secret")

	_, err = Parse([]byte("database:\n  driver: postgres\njwt:\n  secret: " + secret + "\n"))
	assert.ErrorContains(t, err, "database.dsn")

	_, err = Parse([]byte("database:\n  driver: mysql\njwt:\n  secret: " + secret + "\n"))
	assert.ErrorContains(t, err, "mysql")

	_, err = Parse([]byte("log:\n  format: xml\njwt:\n  secret: " + secret + "\n"))
	assert.ErrorContains(t, err, "log.format")
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  port: 9000
sweep:
  interval: 10m
  cleanup_images: true
jwt:
  secret: `+secret+`
`), 0o600))

	t.Setenv("DATABASE_URL", "postgres://sannu@localhost/sannu")
	t.Setenv("IMAGE_DIR", "/var/lib/sannu/images")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://sannu@localhost/sannu", cfg.Database.DSN)
	assert.Equal(t, "/var/lib/sannu/images", cfg.Images.Dir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9000, cfg.API.Port)
	assert.Equal(t, 10*time.Minute, cfg.Sweep.Interval)
	assert.True(t, cfg.Sweep.CleanupImages)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
