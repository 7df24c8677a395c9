// Package config holds the engine's runtime configuration (spec §6.4): a
// viper-backed singleton supporting defaults, environment overrides, and
// an optional config file, following the same nil-safe singleton pattern
// this module's teacher uses for its own config package.
package config

import (
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var v *viper.Viper

// Keys used both as viper lookup keys and as HUSTLE_-prefixed environment
// variable names (spec §6.4).
const (
	KeyWorkers           = "workers"
	KeyPinCPUs           = "pin_cpus"
	KeyBlockCapacity     = "block_capacity_bytes"
	KeyTaskEventCapacity = "task_event_capacity"
	KeyFilterMemory      = "filter_memory"
	KeyDefaultFPRate     = "default_fp_rate"
)

// DefaultBlockCapacityBytes is 2^20 (spec §6.4).
const DefaultBlockCapacityBytes = 1 << 20

// DefaultFilterMemory is the Bloom filter rolling-history window length
// (spec §4.7 / §6.4).
const DefaultFilterMemory = 10

// DefaultFPRate is LIP's default target false-positive rate (spec §4.7).
const DefaultFPRate = 1e-3

// Initialize builds the global viper instance: defaults first, then an
// optional config file at configPath (if non-empty), then HUSTLE_-prefixed
// environment variables, which take highest precedence.
func Initialize(configPath string) error {
	v = viper.New()
	v.SetEnvPrefix("hustle")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyWorkers, runtime.NumCPU())
	v.SetDefault(KeyPinCPUs, false)
	v.SetDefault(KeyBlockCapacity, DefaultBlockCapacityBytes)
	v.SetDefault(KeyTaskEventCapacity, 4096)
	v.SetDefault(KeyFilterMemory, DefaultFilterMemory)
	v.SetDefault(KeyDefaultFPRate, DefaultFPRate)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}
	return nil
}

// Workers returns the configured worker count.
func Workers() int {
	if v == nil {
		return runtime.NumCPU()
	}
	return v.GetInt(KeyWorkers)
}

// PinCPUs reports whether workers should be pinned to CPU cores.
func PinCPUs() bool {
	if v == nil {
		return false
	}
	return v.GetBool(KeyPinCPUs)
}

// BlockCapacityBytes returns the configured per-block byte capacity.
func BlockCapacityBytes() int {
	if v == nil {
		return DefaultBlockCapacityBytes
	}
	return v.GetInt(KeyBlockCapacity)
}

// TaskEventCapacity returns the per-worker profiler ring capacity.
func TaskEventCapacity() int {
	if v == nil {
		return 4096
	}
	return v.GetInt(KeyTaskEventCapacity)
}

// FilterMemory returns the Bloom filter rolling-history window length.
func FilterMemory() int {
	if v == nil {
		return DefaultFilterMemory
	}
	return v.GetInt(KeyFilterMemory)
}

// DefaultFalsePositiveRate returns LIP's configured target false-positive
// rate.
func DefaultFalsePositiveRate() float64 {
	if v == nil {
		return DefaultFPRate
	}
	return v.GetFloat64(KeyDefaultFPRate)
}

// AllSettings returns every resolved setting, or an empty map if
// Initialize has not run (nil-safe, matching the teacher's config
// package's defensive read path).
func AllSettings() map[string]interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	return v.AllSettings()
}

// pollInterval is unused by the engine itself but demonstrates the same
// accessor shape as the rest of this file for any future duration-typed
// setting.
func pollInterval() time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration("poll_interval")
}
