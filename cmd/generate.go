// =============================================================================
// Invoice Batch Generator - Generate Command
// =============================================================================
//
// This file defines the 'generate' command, the main command of the tool. It
// runs one billing batch for a date range.
//
// COMMAND USAGE:
//   invoicer generate [flags]
//
// FLAGS:
//   --start-date  : First billing date (YYYY-MM-DD)
//   --end-date    : Last billing date (YYYY-MM-DD), default today
//   --days        : Billing window ending at --end-date, used when
//                   --start-date is not given (default 30)
//   --send-email  : Email every generated invoice
//   --dry-run     : Validate the batch without generating anything
//
// EXIT STATUS:
//   Non-zero only when the batch could not run at all (source failure or no
//   records). Individual record failures are reported and logged.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/invoice-batch/internal/generator"
	"github.com/ginjaninja78/invoice-batch/internal/invoice"
)

// dateLayout is the layout of date flags.
const dateLayout = "2006-01-02"

// defaultWindowDays is used when neither --start-date nor --days is given.
const defaultWindowDays = 30

var (
	startDate string
	endDate   string
	days      int
	sendEmail bool
	dryRun    bool
)

// generateCmd represents the 'generate' command.
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate invoices for a billing date range",
	Long: `The generate command fetches the billing records of a date range, validates
them record by record and renders one PDF invoice per valid record.

For each valid record:
  - The PDF is written to the output folder
  - Invoice metadata is saved (database sources only)
  - The invoice is emailed to the customer (with --send-email)

Records that fail validation are listed in the batch error log and do not
stop the batch. A summary log is written after every run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, err := dateRange(startDate, endDate, days, time.Now())
		if err != nil {
			return err
		}
		return runGenerate(cmd.Context(), cmd.OutOrStdout(), start, end)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&startDate, "start-date", "", "First billing date (YYYY-MM-DD)")
	generateCmd.Flags().StringVar(&endDate, "end-date", "", "Last billing date (YYYY-MM-DD), default today")
	generateCmd.Flags().IntVar(&days, "days", 0, "Number of days ending at --end-date (default 30)")
	generateCmd.Flags().BoolVar(&sendEmail, "send-email", false, "Email every generated invoice")
	generateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the batch without generating anything")
	generateCmd.MarkFlagsMutuallyExclusive("start-date", "days")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runGenerate(parent context.Context, out io.Writer, start, end time.Time) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, flush, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer flush()

	// =========================================================================
	// STEP 2: CONNECT COLLABORATORS
	// =========================================================================

	gen, err := buildGenerator(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := gen.Close(); err != nil {
			logger.Warn("Failed to close connections: %v", err)
		}
	}()

	fmt.Fprintln(out, "=== Invoice Batch Generator ===")
	fmt.Fprintf(out, "Billing range: %s to %s\n", start.Format(dateLayout), end.Format(dateLayout))

	// =========================================================================
	// STEP 3: RUN THE BATCH
	// =========================================================================

	if dryRun {
		res, err := gen.DryRun(ctx, start, end)
		if err != nil {
			return err
		}
		printDryRun(out, cfg.Invoice.CurrencySymbol, res)
		return nil
	}

	result := gen.GenerateInvoices(ctx, start, end, sendEmail)
	printResult(out, cfg.Invoice.CurrencySymbol, result)

	if !result.Success {
		return fmt.Errorf("invoice generation failed")
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// dateRange resolves the date flags into an inclusive range. The end date
// defaults to today and the start date to windowDays before the end.
func dateRange(startFlag, endFlag string, windowDays int, now time.Time) (time.Time, time.Time, error) {
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if endFlag != "" {
		parsed, err := time.Parse(dateLayout, endFlag)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --end-date %q: expected YYYY-MM-DD", endFlag)
		}
		end = parsed
	}

	if startFlag != "" {
		start, err := time.Parse(dateLayout, startFlag)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --start-date %q: expected YYYY-MM-DD", startFlag)
		}
		if start.After(end) {
			return time.Time{}, time.Time{}, fmt.Errorf("--start-date %s is after --end-date %s", startFlag, end.Format(dateLayout))
		}
		return start, end, nil
	}

	if windowDays < 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("--days must not be negative")
	}
	if windowDays == 0 {
		windowDays = defaultWindowDays
	}
	return end.AddDate(0, 0, -windowDays), end, nil
}

func printResult(out io.Writer, currency string, result generator.Result) {
	for _, g := range result.Generated {
		status := ""
		if g.Emailed {
			status = " (emailed)"
		}
		fmt.Fprintf(out, "  ✓ %s  %s  %s%s -> %s%s\n",
			g.Invoice.Number(), g.Invoice.Customer().Name(),
			currency, invoice.FormatAmount(g.Invoice.TotalAmount()), g.PDFPath, status)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(out, "  ✗ %s\n", e)
	}

	fmt.Fprintln(out, "\n=== Processing Complete ===")
	fmt.Fprintf(out, "Rows fetched:       %d\n", result.RowsFetched)
	fmt.Fprintf(out, "Records:            %d\n", result.Records)
	fmt.Fprintf(out, "Invoices generated: %d\n", len(result.Generated))
	fmt.Fprintf(out, "Errors:             %d\n", len(result.Errors))
	fmt.Fprintf(out, "Emails sent:        %d\n", result.EmailsSent)
	fmt.Fprintf(out, "Total billed:       %s%s\n", currency, invoice.FormatAmount(result.TotalBilled()))
	fmt.Fprintf(out, "Time elapsed:       %s\n", result.Duration.Round(time.Millisecond))
	if result.XMLExport != "" {
		fmt.Fprintf(out, "XML export:         %s\n", result.XMLExport)
	}
	if result.ErrorLog != "" {
		fmt.Fprintf(out, "Error log:          %s\n", result.ErrorLog)
	}
	if result.SummaryLog != "" {
		fmt.Fprintf(out, "Summary log:        %s\n", result.SummaryLog)
	}
}

func printDryRun(out io.Writer, currency string, res generator.DryRunResult) {
	fmt.Fprintf(out, "Dry run: %d rows, %d valid invoices, %d errors\n",
		res.RowsFetched, len(res.Invoices), len(res.Errors))
	printValidation(out, currency, res.Invoices, res.Errors)
}

// printValidation lists valid invoices and error lines.
func printValidation(out io.Writer, currency string, invoices []invoice.Invoice, errs []string) {
	for _, inv := range invoices {
		fmt.Fprintf(out, "  ✓ %s  %s  %d items  %s%s\n",
			inv.Number(), inv.Customer().Name(), len(inv.Items()),
			currency, invoice.FormatAmount(inv.TotalAmount()))
	}
	for _, e := range errs {
		fmt.Fprintf(out, "  ✗ %s\n", e)
	}
}
