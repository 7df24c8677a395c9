// Command hustle drives the engine from the shell: loading tables,
// running a canned star-schema query, and benchmarking it (spec §4.17).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hustledb/hustle/internal/config"
	"github.com/hustledb/hustle/internal/scheduler"
	"github.com/hustledb/hustle/internal/telemetry"
)

var (
	// Version is overridden by ldflags at build time.
	Version = "0.1.0"

	configPath string
	jsonOutput bool
	profiling  bool

	sched            *scheduler.Scheduler
	telemetryCleanup func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "hustle",
	Short: "hustle - columnar analytical query engine",
	Long:  "hustle loads columnar tables and runs task-graph query plans over them.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := config.Initialize(configPath); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize config: %v\n", err)
		}

		cleanup, err := telemetry.Init(telemetry.Options{ServiceName: "hustle", PrettyPrint: false})
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize telemetry: %v\n", err)
		} else {
			telemetryCleanup = cleanup
		}

		sched = scheduler.New(scheduler.Options{
			NumWorkers:        config.Workers(),
			PinCPUs:           config.PinCPUs(),
			TaskEventCapacity: config.TaskEventCapacity(),
			Profiling:         profiling,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if telemetryCleanup != nil {
			_ = telemetryCleanup(context.Background())
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a hustle config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON output")
	rootCmd.PersistentFlags().BoolVar(&profiling, "profile", false, "record per-task profiling events")

	rootCmd.Flags().BoolP("version", "V", false, "print version information")
	rootCmd.Run = func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("hustle version %s\n", Version)
			return
		}
		_ = cmd.Help()
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
