package userconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderelay/relay/pkg/turns"
)

func TestConfig_Empty(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	config, err := loadFrom(configFile)
	require.NoError(t, err)
	assert.Empty(t, config.Database)
	assert.Nil(t, config.Window)
}

func TestConfig_LoadEmptyFile(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	require.NoError(t, os.WriteFile(configFile, []byte("# empty config\n"), 0o644))

	config, err := loadFrom(configFile)
	require.NoError(t, err)
	assert.Empty(t, config.Version)
}

func TestConfig_Malformed(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	require.NoError(t, os.WriteFile(configFile, []byte("window: [not a map]\n"), 0o644))

	_, err := loadFrom(configFile)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestConfig_SaveAndLoad(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	config := &Config{
		Database: "/tmp/relay-test.db",
		Window:   &HistoryWindow{InitialCount: 40, BatchSize: 10},
		Settings: &Settings{Theme: "light", HideToolOutput: true},
	}

	require.NoError(t, config.saveTo(configFile))

	loaded, err := loadFrom(configFile)
	require.NoError(t, err)

	assert.Equal(t, CurrentVersion, loaded.Version)
	assert.Equal(t, "/tmp/relay-test.db", loaded.Database)
	assert.Equal(t, 40, loaded.InitialCount())
	assert.Equal(t, 10, loaded.BatchSize())
	assert.Equal(t, "light", loaded.GetSettings().Theme)
	assert.True(t, loaded.GetSettings().HideToolOutput)
}

func TestConfig_WindowDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		window *HistoryWindow
	}{
		{"nil window", nil},
		{"zero values", &HistoryWindow{}},
		{"negative values", &HistoryWindow{InitialCount: -5, BatchSize: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			config := &Config{Window: tt.window}
			assert.Equal(t, turns.DefaultInitialCount, config.InitialCount())
			assert.Equal(t, turns.DefaultBatchSize, config.BatchSize())
		})
	}
}

func TestConfig_GetSettingsNil(t *testing.T) {
	t.Parallel()

	config := &Config{}

	// GetSettings should return an empty Settings struct, not nil
	settings := config.GetSettings()
	assert.NotNil(t, settings)
	assert.Empty(t, settings.Theme)
}

func TestConfig_AtomicWrite(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	config := &Config{Settings: &Settings{Theme: "dark"}}

	require.NoError(t, config.saveTo(configFile))

	loaded, err := loadFrom(configFile)
	require.NoError(t, err)
	assert.Equal(t, "dark", loaded.GetSettings().Theme)

	// Verify no temp files left behind
	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "config.yaml", entries[0].Name())
}

func TestConfig_Version(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	config := &Config{}
	require.NoError(t, config.saveTo(configFile))
	assert.Equal(t, CurrentVersion, config.Version)

	data, err := os.ReadFile(configFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "version: v1")
}
