// =============================================================================
// Invoice Batch Generator - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (invoicer)
//   ├── generateCmd      (invoicer generate)
//   ├── validateRowsCmd  (invoicer validate-rows)
//   ├── validateCmd      (invoicer validate)
//   ├── testEmailCmd     (invoicer test-email)
//   ├── wordsCmd         (invoicer words)
//   ├── createSampleCmd  (invoicer create-sample)
//   └── versionCmd       (invoicer version)
//
// CONFIGURATION:
//   The root command owns the global flags (--config, --verbose). Commands
//   that need settings load them with loadConfig and build their logger with
//   newLogger.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/invoice-batch/internal/config"
	"github.com/ginjaninja78/invoice-batch/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "invoicer",
	Short: "Invoice Batch Generator - Turn billing records into PDF invoices",
	Long: `Invoice Batch Generator reads billing records for a date range from a CSV
file, an Excel workbook, PostgreSQL or MongoDB, validates them record by
record, and produces one PDF invoice per valid record.

Key Features:
  - Per-record validation with a batch error log
  - Exact decimal arithmetic for discounts, GST and totals
  - Amounts in words using the Indian numbering system
  - Optional email delivery and XML export

Example Usage:
  invoicer generate --days 30                  # Invoice the last 30 days
  invoicer generate --start-date 2024-01-01 --end-date 2024-01-31 --send-email
  invoicer validate-rows --file billing.csv    # Check a file without generating
  invoicer words 1234567.89                    # Print an amount in words`,

	// SilenceUsage keeps runtime failures from printing the usage text.
	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// loadConfig reads the file named by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger builds the application logger from the logging section.
// --verbose forces the debug level. cfg may be nil, in which case the logger
// writes to stderr only.
//
// RETURNS:
//   - The logger
//   - A flush function to defer
//   - An error if the log file cannot be opened
func newLogger(cfg *config.Config) (*logging.ZapLogger, func(), error) {
	opts := logging.Options{Level: "info", Name: "invoicer"}
	if cfg != nil {
		opts.Level = cfg.Logging.Level
		opts.File = cfg.Logging.File
	}
	if verbose {
		opts.Level = "debug"
	}

	logger, flush, err := logging.New(opts)
	if err != nil {
		return nil, nil, err
	}
	return logger, flush, nil
}
