package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pyplyn.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadAppliesDefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(60000), cfg.Global.UpdateConfigurationIntervalMillis)
	assert.Equal(t, SourceYAML, cfg.Global.ConfigSourceKind)
	assert.False(t, cfg.Hazelcast.Enabled)
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
global:
  connectors_path: /etc/pyplyn/connectors.json
  http_listen_addr: ":9090"
  config_source_kind: yaml
hazelcast:
  enabled: true
  backend: redis
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/etc/pyplyn/connectors.json", cfg.Global.ConnectorsPath)
	assert.Equal(t, ":9090", cfg.Global.HTTPListenAddr)
	assert.True(t, cfg.Hazelcast.Enabled)
	assert.Equal(t, "redis", cfg.Hazelcast.Backend)
}

func TestLoadRequiresConnectorsPath(t *testing.T) {
	// connectors_path has a default, so the file clears it explicitly.
	path := writeConfigFile(t, `
global:
  connectors_path: ""
  http_listen_addr: ":8080"
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsHazelcastEnabledWithoutBackend(t *testing.T) {
	path := writeConfigFile(t, `
global:
  connectors_path: /etc/pyplyn/connectors.json
hazelcast:
  enabled: true
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsPostgresSourceWithoutDSN(t *testing.T) {
	path := writeConfigFile(t, `
global:
  connectors_path: /etc/pyplyn/connectors.json
  config_source_kind: postgres
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsInvalidConfigSourceKind(t *testing.T) {
	path := writeConfigFile(t, `
global:
  connectors_path: /etc/pyplyn/connectors.json
  config_source_kind: nonsense
`)
	_, err := Load(path)
	assert.Error(t, err)
}
