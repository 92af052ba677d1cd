package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":7000"
database:
  rqlite_dsn: "sqlite:///tmp/walletauth.db"
logging:
  level: warn
`), 0o600))

	env := envMap(map[string]string{
		"WALLETAUTH_LISTEN_ADDR": ":7100",
		"WALLETAUTH_LOG_LEVEL":   "debug",
	})

	cfg, got, err := loadConfig([]string{"-config", path, "-addr", ":7200"}, env, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, path, got)
	// flag beats env, env beats yaml, yaml beats defaults
	assert.Equal(t, ":7200", cfg.ListenAddr)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "sqlite:///tmp/walletauth.db", cfg.Database.RQLiteDSN)
}

func TestLoadConfigExplicitPathMustExist(t *testing.T) {
	_, _, err := loadConfig([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")}, envMap(nil), io.Discard)
	assert.Error(t, err)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	env := envMap(map[string]string{"WALLETAUTH_ENVIRONMENT": "production"})
	_, _, err := loadConfig([]string{"-config", writeEmpty(t)}, env, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}

func TestLoadConfigBadEnvValue(t *testing.T) {
	env := envMap(map[string]string{"WALLETAUTH_RATE_LIMIT_PER_MINUTE": "lots"})
	_, _, err := loadConfig([]string{"-config", writeEmpty(t)}, env, io.Discard)
	assert.Error(t, err)
}

func writeEmpty(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o600))
	return path
}
