// Package commands implements the sstablectl CLI commands.
package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/brookdb/brookdb/cmd/sstablectl/cmdutil"
	"github.com/brookdb/brookdb/internal/logger"
	"github.com/brookdb/brookdb/internal/telemetry"
)

// profilingShutdown stops any profiler started by a command's
// PersistentPreRunE. It is a no-op when profiling was never enabled.
var profilingShutdown = func() error { return nil }

// tracingShutdown stops the OTLP exporter started by a command's
// PersistentPreRunE. It is a no-op when tracing was never enabled.
var tracingShutdown = func(context.Context) error { return nil }

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sstablectl",
	Short: "Operational tooling for the SSTable storage layer",
	Long: `sstablectl is a small debugging and operations CLI for the SSTable
storage layer: put, get, rm, and inspect SSTable files against a configured
object-store backend (memory, local filesystem, or S3-compatible).

This is additive tooling for operators; it is not part of the storage
layer's library contract.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cmdutil.LoadConfig()
		if err != nil {
			return err
		}

		if err := logger.Init(logger.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		}); err != nil {
			return err
		}

		traceShutdown, err := telemetry.Init(cmd.Context(), telemetry.Config{
			Enabled:        cfg.Tracing.Enabled,
			ServiceName:    "sstablectl",
			ServiceVersion: Version,
			Endpoint:       cfg.Tracing.Endpoint,
			Insecure:       cfg.Tracing.Insecure,
			SampleRate:     1.0,
		})
		if err != nil {
			return err
		}
		tracingShutdown = traceShutdown

		profShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
			Enabled:        cfg.Profiling.Enabled,
			ServiceName:    cfg.Profiling.ServiceName,
			ServiceVersion: Version,
			Endpoint:       cfg.Profiling.Endpoint,
			ProfileTypes:   cfg.Profiling.ProfileTypes,
		})
		if err != nil {
			return err
		}
		profilingShutdown = profShutdown
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if err := profilingShutdown(); err != nil {
			return err
		}
		return tracingShutdown(cmd.Context())
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cmdutil.Flags.ConfigPath, "config", "",
		"path to sstablectl config file (default: "+sstablectlDefaultHint+")")

	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(versionCmd)
}

const sstablectlDefaultHint = "$XDG_CONFIG_HOME/sstablectl/config.yaml"

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	PrintErr(format, args...)
	os.Exit(1)
}
