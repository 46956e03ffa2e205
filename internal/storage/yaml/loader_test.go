package yaml

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o600))
}

func TestLoadReadsAllYAMLFilesInDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.yaml", `
- extracts:
    - kind: refocus
      endpointId: ep1
      name: cpu.load
      filteredName: cpu_load
      cacheMillis: 60000
  transforms:
    - kind: last_datapoint
  loads:
    - kind: refocus
      endpointId: ep1
      subject: cpu_load
  repeatIntervalMillis: 30000
`)
	writeFixture(t, dir, "b.yml", `
- extracts:
    - kind: refocus
      endpointId: ep2
      name: mem.used
      filteredName: mem_used
  transforms:
    - kind: threshold
      threshold: 90
      type: 0
  loads:
    - kind: influx
      endpointId: ep2
      measurement: mem_used
  repeatIntervalMillis: 15000
`)
	writeFixture(t, dir, "ignored.txt", "not yaml")

	l := New(dir)
	configs, err := l.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, configs, 2)

	assert.Equal(t, "a.yaml", configs[0].Source)
	assert.Equal(t, int64(30000), configs[0].RepeatIntervalMillis)
	assert.Equal(t, "b.yml", configs[1].Source)
	assert.Equal(t, int64(15000), configs[1].RepeatIntervalMillis)
}

func TestLoadRejectsUnrecognizedKind(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "bad.yaml", `
- extracts:
    - kind: bogus
  repeatIntervalMillis: 1000
`)

	l := New(dir)
	_, err := l.Load(context.Background())
	assert.Error(t, err)
}

func TestLoadOnMissingDirectoryFails(t *testing.T) {
	l := New("/nonexistent/path/for/pyplyn/tests")
	_, err := l.Load(context.Background())
	assert.Error(t, err)
}
