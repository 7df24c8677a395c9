package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hustledb/hustle/internal/config"
)

func TestLoadLocalConfigMissingFileReturnsEmpty(t *testing.T) {
	lc := config.LoadLocalConfig(t.TempDir())
	assert.Zero(t, lc.BlockCapacityBytes)
	assert.Zero(t, lc.DefaultFPRate)
}

func TestLoadLocalConfigParsesFields(t *testing.T) {
	dir := t.TempDir()
	content := "block-capacity-bytes: 4096\ndefault-fp-rate: 0.01\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hustle.yaml"), []byte(content), 0o600))

	lc := config.LoadLocalConfig(dir)
	assert.Equal(t, 4096, lc.BlockCapacityBytes)
	assert.InDelta(t, 0.01, lc.DefaultFPRate, 1e-9)
}

func TestLoadLocalConfigMalformedReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hustle.yaml"), []byte("not: [valid: yaml"), 0o600))

	lc := config.LoadLocalConfig(dir)
	assert.Zero(t, lc.BlockCapacityBytes)
	assert.Zero(t, lc.DefaultFPRate)
}

func TestResolveBlockCapacityBytesFallsBackToProcessDefault(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, config.BlockCapacityBytes(), config.ResolveBlockCapacityBytes(dir))
}

func TestResolveBlockCapacityBytesUsesLocalOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hustle.yaml"), []byte("block-capacity-bytes: 777\n"), 0o600))

	assert.Equal(t, 777, config.ResolveBlockCapacityBytes(dir))
}

func TestResolveDefaultFPRateUsesLocalOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hustle.yaml"), []byte("default-fp-rate: 0.5\n"), 0o600))

	assert.InDelta(t, 0.5, config.ResolveDefaultFPRate(dir), 1e-9)
}
