package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hustledb/hustle/internal/config"
)

// Runs before any Initialize call in this package, so the package-level
// viper singleton is still nil and every accessor takes its nil-safe path.
func TestAccessorsAreNilSafeBeforeInitialize(t *testing.T) {
	assert.Equal(t, runtime.NumCPU(), config.Workers())
	assert.False(t, config.PinCPUs())
	assert.Equal(t, config.DefaultBlockCapacityBytes, config.BlockCapacityBytes())
	assert.Equal(t, 4096, config.TaskEventCapacity())
	assert.Equal(t, config.DefaultFilterMemory, config.FilterMemory())
	assert.Equal(t, config.DefaultFPRate, config.DefaultFalsePositiveRate())
	assert.Empty(t, config.AllSettings())
}

func TestInitializeSetsDefaults(t *testing.T) {
	require.NoError(t, config.Initialize(""))

	assert.Equal(t, config.DefaultBlockCapacityBytes, config.BlockCapacityBytes())
	assert.Equal(t, config.DefaultFilterMemory, config.FilterMemory())
	assert.Equal(t, config.DefaultFPRate, config.DefaultFalsePositiveRate())
	assert.False(t, config.PinCPUs())
	assert.NotEmpty(t, config.AllSettings())
}

func TestInitializeHonorsEnvOverride(t *testing.T) {
	t.Setenv("HUSTLE_WORKERS", "7")
	require.NoError(t, config.Initialize(""))

	assert.Equal(t, 7, config.Workers())
}

func TestInitializeReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hustle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("block_capacity_bytes: 2048\npin_cpus: true\n"), 0o600))

	require.NoError(t, config.Initialize(path))

	assert.Equal(t, 2048, config.BlockCapacityBytes())
	assert.True(t, config.PinCPUs())
}

func TestInitializeMissingConfigFileReturnsError(t *testing.T) {
	err := config.Initialize(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}
