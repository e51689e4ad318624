// =============================================================================
// Trial Balance Reporter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (trial-balance)
//   ├── serveCmd   (trial-balance serve)
//   ├── processCmd (trial-balance process)
//   ├── optionsCmd (trial-balance options)
//   └── versionCmd (trial-balance version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading the configuration before any subcommand runs
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/ginjaninja78/trial-balance/internal/config"
	"github.com/ginjaninja78/trial-balance/internal/logging"
	"github.com/ginjaninja78/trial-balance/internal/report"
	"github.com/ginjaninja78/trial-balance/internal/source"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// appConfig and logger are set by the root command before a subcommand runs.
var (
	appConfig *config.Config
	logger    *logrus.Logger
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "trial-balance",
	Short: "Trial balance reporter - ledger balances by company, month and category",

	Long: `Trial balance reporter fetches a ledger export, a chart-of-accounts mapping
and a statement template, and computes opening and closing balances per
account for a selected year, month and company.

Key Features:
  - Opening balances from every earlier period
  - Category totals appended to the statement template
  - Net income and expense over configurable account ranges
  - Web page with downloads, or one-shot CLI runs

Example Usage:
  trial-balance serve                                   # Serve the report page
  trial-balance process --year 2024 --month enero       # Write both workbooks
  trial-balance options --config ./my.yaml              # List selectable values`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		appConfig = cfg
		logger = logging.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel, verbose)
		return nil
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newBuilder wires a fetcher and a report builder from the loaded
// configuration.
func newBuilder() (*report.Builder, *source.Fetcher, error) {
	fetcher := source.NewFetcher(appConfig.Sources.Timeout, appConfig.Cache, logger)
	builder, err := report.New(appConfig, fetcher, logger)
	if err != nil {
		return nil, nil, err
	}
	return builder, fetcher, nil
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the configuration file; built-in defaults apply when it does not exist",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}
