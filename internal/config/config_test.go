package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFromPathMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Server.Addr)
	require.Equal(t, "s3cret", cfg.Server.JWTSecret)
	require.Empty(t, cfg.Database.DSN)
}

func TestLoadFromPathParsesYAML(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	path := filepath.Join(t.TempDir(), "gigledger.yaml")
	raw := []byte("server:\n  addr: \":9090\"\ndatabase:\n  dsn: \"postgres://localhost/gig\"\nredis:\n  addr: \"localhost:6379\"\n")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Server.Addr)
	require.Equal(t, "postgres://localhost/gig", cfg.Database.DSN)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("HTTP_ADDR", ":7070")

	path := filepath.Join(t.TempDir(), "gigledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9090\"\n"), 0o600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, ":7070", cfg.Server.Addr)
}

func TestCORSOriginsFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CORS_ORIGINS", "https://app.example.com, https://staging.example.com")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, []string{"https://app.example.com", "https://staging.example.com"}, cfg.Server.CORSOrigins)
}

func TestMissingJWTSecretFails(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
