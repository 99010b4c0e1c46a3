package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nimbusops/nimbusctl/pkg/telemetry"
)

var (
	// Global flags
	connectionPath string
	keyFilePath    string
	metricsListen  string
	traceEnabled   bool
	verbose        bool
	jsonOutput     bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nimbusctl",
		Short: "Nimbusctl - declarative configuration for the Nimbus delivery platform",
		Long: `Nimbusctl reconciles environment and pipeline configuration on the
Nimbus cloud delivery platform against a local desired-state file.

Features:
  - Plan/apply workflow for variables, certificates and domains
  - Busy-resource coordination with poll-and-wait (or CI bypass)
  - Reversible secret encryption for values committed to git
  - Structured per-entity outcome reporting
  - Resource listing and environment log tailing`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg := telemetry.DefaultConfig(version)
			if verbose {
				cfg.Logging.Level = "debug"
			}
			if jsonOutput {
				cfg.Logging.Format = "json"
			}
			log.Logger = telemetry.NewLogger(cfg.Logging)
		},
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&connectionPath, "connection", "c", "nimbus.json", "connection config file path")
	rootCmd.PersistentFlags().StringVar(&keyFilePath, "key-file", "", "encryption key file (overrides NIMBUS_CRYPTKEY)")
	rootCmd.PersistentFlags().StringVar(&metricsListen, "metrics-listen", "", "serve /metrics on this address for the duration of the run")
	rootCmd.PersistentFlags().BoolVar(&traceEnabled, "trace", false, "export spans for this invocation to stdout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "log in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newVarsCommand())
	rootCmd.AddCommand(newCertsCommand())
	rootCmd.AddCommand(newDomainsCommand())
	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newLogsCommand())
	rootCmd.AddCommand(newEncryptCommand())
	rootCmd.AddCommand(newDecryptCommand())

	return rootCmd
}
