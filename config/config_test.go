package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFileParsesYAML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "prebake.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
entries: ["/entry.js"]
baseId: "file:///src/"
roots: ["/src"]
logLevel: "debug"
`), 0o644))

	cfg, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/entry.js"}, cfg.Entries)
	assert.Equal(t, "file:///src/", cfg.BaseID)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestApplyOverridesOnlyNonZeroFields(t *testing.T) {
	t.Parallel()
	base := Default()
	override := Config{LogLevel: "debug"}

	merged := base.Apply(override)
	assert.Equal(t, "debug", merged.LogLevel)
	assert.Equal(t, base.BaseID, merged.BaseID)
}

func TestFromEnvOverlaysLookupFunc(t *testing.T) {
	t.Parallel()
	env := map[string]string{"PREBAKE_LOG_LEVEL": "warn", "PREBAKE_BASE_ID": "file:///other/"}

	cfg, err := FromEnv(Default(), func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "file:///other/", cfg.BaseID)
}

func TestLoadMissingPathFallsBackToDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().BaseID, cfg.BaseID)
}
