// =============================================================================
// Invoice Batch Generator - Validation Commands
// =============================================================================
//
// COMMAND USAGE:
//   invoicer validate-rows --file billing.csv [--sheet Billing] [--delimiter ;]
//   invoicer validate
//   invoicer test-email
//
// validate-rows runs the batch pipeline on a file and prints the result; it
// needs no configuration file. validate checks the configured directories,
// the source connection and, when email is enabled, the mail server.
// test-email checks the mail server only.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/invoice-batch/internal/config"
	"github.com/ginjaninja78/invoice-batch/internal/logging"
	"github.com/ginjaninja78/invoice-batch/internal/pipeline"
	"github.com/ginjaninja78/invoice-batch/internal/source"
)

var (
	rowsFile      string
	rowsSheet     string
	rowsDelimiter string
	rowsCurrency  string
)

var validateRowsCmd = &cobra.Command{
	Use:   "validate-rows",
	Short: "Validate a CSV or XLSX file of billing rows",
	Long: `Group the rows of a CSV or XLSX file into billing records and validate each
record, printing the valid invoices and one error line per failed record.
Nothing is rendered, saved or sent. All rows are used; there is no date
filter.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, flush, err := newLogger(nil)
		if err != nil {
			return err
		}
		defer flush()

		src, err := fileSource(rowsFile, rowsSheet, rowsDelimiter, logger)
		if err != nil {
			return err
		}
		defer src.Close()

		rows, err := src.FetchRows(cmd.Context(), time.Time{}, time.Time{})
		if err != nil {
			return err
		}

		p := pipeline.New(pipeline.Options{Logger: logger})
		invoices, errs := p.Validate(rows)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d rows, %d valid invoices, %d errors\n",
			filepath.Base(rowsFile), len(rows), len(invoices), len(errs))
		printValidation(out, rowsCurrency, invoices, errs)
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration, source connection and mail server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, flush, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer flush()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		gen, err := buildGenerator(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer gen.Close()

		out := cmd.OutOrStdout()
		issues := gen.ValidateConfiguration(ctx)
		if len(issues) == 0 {
			fmt.Fprintln(out, "Configuration is valid.")
			return nil
		}
		fmt.Fprintln(out, "Configuration issues:")
		for _, issue := range issues {
			fmt.Fprintf(out, "  ✗ %s\n", issue)
		}
		return fmt.Errorf("%d configuration issue(s) found", len(issues))
	},
}

var testEmailCmd = &cobra.Command{
	Use:   "test-email",
	Short: "Test the connection to the configured mail server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, flush, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer flush()

		mailer, err := buildMailer(cfg, logger)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		if err := mailer.TestConnection(ctx); err != nil {
			return fmt.Errorf("email connection test failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Email connection test successful.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateRowsCmd, validateCmd, testEmailCmd)

	validateRowsCmd.Flags().StringVar(&rowsFile, "file", "", "CSV or XLSX file of billing rows")
	validateRowsCmd.Flags().StringVar(&rowsSheet, "sheet", "", "Sheet name for XLSX files (default: first sheet)")
	validateRowsCmd.Flags().StringVar(&rowsDelimiter, "delimiter", ",", "Field delimiter for CSV files")
	validateRowsCmd.Flags().StringVar(&rowsCurrency, "currency", "Rs. ", "Currency symbol for printed totals")
	validateRowsCmd.MarkFlagRequired("file")
}

// fileSource picks a CSV or XLSX source by file extension.
func fileSource(path, sheet, delimiter string, logger logging.Logger) (source.Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return source.NewCSVSource(config.CSVSettings{
			Path:         path,
			Delimiter:    delimiter,
			HeaderRows:   1,
			DataStartRow: 2,
		}, nil, logger), nil
	case ".xlsx", ".xlsm":
		return source.NewXLSXSource(config.XLSXSettings{Path: path, Sheet: sheet}, nil, logger), nil
	default:
		return nil, fmt.Errorf("unsupported file type %q: expected .csv or .xlsx", filepath.Ext(path))
	}
}
