package provado

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "ws://localhost:8000/rpc", cfg.Database.URL)
	assert.False(t, cfg.Production())
}

func TestLoadConfigFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "provado.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
jwtSecret: from-file
database:
  url: ws://db:8000/rpc
  namespace: staging
`), 0o600))

	t.Setenv("PORT", "9090")
	t.Setenv("SURREALDB_NS", "prod")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	// Environment wins over the file; untouched file values survive.
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "prod", cfg.Database.Namespace)
	assert.Equal(t, "ws://db:8000/rpc", cfg.Database.URL)
	assert.Equal(t, "from-file", cfg.JWTSecret)
}

func TestLoadConfigProductionRequiresSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestParseCommands(t *testing.T) {
	cmd, cfg, err := Parse([]string{"run"})
	require.NoError(t, err)
	assert.Equal(t, "run", cmd.Name())
	assert.Equal(t, "8080", cfg.Port)

	cmd, cfg, err = Parse([]string{"-port=9000", "migrate"})
	require.NoError(t, err)
	assert.Equal(t, "migrate", cmd.Name())
	assert.Equal(t, "9000", cfg.Port)

	_, _, err = Parse([]string{"frobnicate"})
	assert.Error(t, err)

	_, _, err = Parse(nil)
	assert.Error(t, err)
}
