package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LocalConfig is the subset of settings that can be overridden per table
// directory via a "hustle.yaml" file living alongside a table's persisted
// IPC files, read directly rather than through the global viper singleton.
// This matters when a table directory is inspected before (or instead of)
// a full config.Initialize() call — e.g. "hustle load" targeting a
// directory whose local overrides haven't been merged into the process-
// wide config yet.
type LocalConfig struct {
	BlockCapacityBytes int     `yaml:"block-capacity-bytes"`
	DefaultFPRate      float64 `yaml:"default-fp-rate"`
}

// LoadLocalConfig reads and parses "hustle.yaml" directly from dir. It
// returns an empty LocalConfig (not nil, not an error) if the file is
// absent or malformed, so callers can apply it unconditionally over
// Initialize()'s defaults.
func LoadLocalConfig(dir string) *LocalConfig {
	path := filepath.Join(dir, "hustle.yaml")
	data, err := os.ReadFile(path) // #nosec G304 -- path is joined from a caller-supplied table directory
	if err != nil {
		return &LocalConfig{}
	}
	var cfg LocalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return &LocalConfig{}
	}
	return &cfg
}

// ResolveBlockCapacityBytes returns dir's local override if set, else the
// process-wide configured default.
func ResolveBlockCapacityBytes(dir string) int {
	if lc := LoadLocalConfig(dir); lc.BlockCapacityBytes > 0 {
		return lc.BlockCapacityBytes
	}
	return BlockCapacityBytes()
}

// ResolveDefaultFPRate returns dir's local override if set, else the
// process-wide configured default.
func ResolveDefaultFPRate(dir string) float64 {
	if lc := LoadLocalConfig(dir); lc.DefaultFPRate > 0 {
		return lc.DefaultFPRate
	}
	return DefaultFalsePositiveRate()
}
