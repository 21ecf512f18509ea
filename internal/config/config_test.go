package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
address: ":25565"
timeout: 30s
auth_secret: "test-secret"
auth_identity_url: "https://session.example.com/has-joined"
status:
  adapter: fixed
target_discovery:
  adapter: fixed
target_strategy:
  adapter: any
`

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "passage.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":25565", cfg.Address)
	require.Equal(t, "fixed", cfg.Status.Adapter)
}

func TestLoadRejectsMissingAuthSecret(t *testing.T) {
	path := writeTempConfig(t, `
address: ":25565"
timeout: 30s
status:
  adapter: fixed
target_discovery:
  adapter: fixed
target_strategy:
  adapter: any
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvOverrideWinsOverYAML(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)
	t.Setenv("PASSAGE_ADDRESS", ":9999")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.Address)
}

func TestResolveAuthSecretFromFile(t *testing.T) {
	dir := t.TempDir()
	secretPath := filepath.Join(dir, "secret")
	require.NoError(t, os.WriteFile(secretPath, []byte("from-file\n"), 0o600))

	cfg := &Config{AuthSecretFile: secretPath}
	secret, err := cfg.ResolveAuthSecret()
	require.NoError(t, err)
	require.Equal(t, "from-file", string(secret))
}
