// =============================================================================
// Invoice Batch Generator - Batch Orchestrator
// =============================================================================
//
// This package runs one billing batch end to end. It is the only place that
// knows about every collaborator; each one is injected so that tests can
// replace the database, the PDF renderer and the mail transport.
//
// BATCH PIPELINE:
//   1. Fetch billing rows for the date range from the configured source
//   2. Group and validate the rows into invoices
//   3. For each valid invoice:
//      a. Render the PDF
//      b. Save the invoice metadata (database sources only)
//      c. Email the PDF to the customer (optional)
//   4. Export all generated invoices to one XML document (optional)
//   5. Archive the source file and prune old archives
//   6. Write the batch error log and summary log
//
// ERROR HANDLING:
//   Validation failures and per-invoice failures are collected in
//   Result.Errors and never stop the batch. An email failure is only a
//   warning: the invoice still counts as generated.
//
// =============================================================================

package generator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/invoice-batch/internal/config"
	"github.com/ginjaninja78/invoice-batch/internal/db"
	"github.com/ginjaninja78/invoice-batch/internal/email"
	"github.com/ginjaninja78/invoice-batch/internal/invoice"
	"github.com/ginjaninja78/invoice-batch/internal/logging"
	"github.com/ginjaninja78/invoice-batch/internal/pipeline"
	"github.com/ginjaninja78/invoice-batch/internal/render"
	"github.com/ginjaninja78/invoice-batch/internal/source"
	"github.com/ginjaninja78/invoice-batch/internal/types"
	"github.com/ginjaninja78/invoice-batch/internal/xmlwriter"
	"github.com/ginjaninja78/invoice-batch/pkg/utils"
)

// NoRecordsMessage is reported when the source returns no rows.
const NoRecordsMessage = "No billing records found for the specified date range"

// ErrNoRecords is returned by DryRun when the source returns no rows.
var ErrNoRecords = errors.New("no billing records found for the specified date range")

// =============================================================================
// COLLABORATORS
// =============================================================================

// Renderer writes an invoice PDF and returns its path.
type Renderer interface {
	Render(inv invoice.Invoice, outputPath string) (string, error)
}

// Mailer delivers an invoice PDF to the customer.
type Mailer interface {
	SendInvoice(ctx context.Context, inv invoice.Invoice, pdfPath string) error
	TestConnection(ctx context.Context) error
}

// Validator turns rows into invoices and per-record error lines.
type Validator interface {
	Validate(rows []types.Row) ([]invoice.Invoice, []string)
}

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// GeneratedInvoice is one invoice that made it through rendering and
// persistence.
type GeneratedInvoice struct {
	Invoice invoice.Invoice
	PDFPath string
	Emailed bool
}

// Result represents the outcome of one batch.
type Result struct {
	// Success is false when the batch could not start: the source failed
	// or returned no rows. Per-record failures do not clear it.
	Success bool

	Generated []GeneratedInvoice

	// Errors holds one line per validation or processing failure, in the
	// order they happened.
	Errors []string

	// RowsFetched is the number of flat rows returned by the source.
	RowsFetched int

	// Records is the number of billing records found in those rows.
	Records int

	// ValidationErrors is the number of records rejected by validation.
	ValidationErrors int

	EmailsSent int

	// XMLExport, ErrorLog and SummaryLog are the paths of the written
	// files, empty when not written.
	XMLExport  string
	ErrorLog   string
	SummaryLog string

	Duration time.Duration
}

// TotalBilled sums the total amount of every generated invoice.
func (r Result) TotalBilled() decimal.Decimal {
	total := decimal.Zero
	for _, g := range r.Generated {
		total = total.Add(g.Invoice.TotalAmount())
	}
	return total
}

// DryRunResult is the outcome of validating a batch without producing
// anything.
type DryRunResult struct {
	RowsFetched int
	Invoices    []invoice.Invoice
	Errors      []string
}

// =============================================================================
// GENERATOR STRUCTURE
// =============================================================================

// Options configures a Generator. Config and Source are required.
type Options struct {
	Config *config.Config
	Source source.Source

	// Store persists invoice metadata. Nil skips persistence.
	Store db.MetadataStore

	// Renderer defaults to render.NewRenderer(Config, Logger).
	Renderer Renderer

	// Mailer is required only when emails are sent.
	Mailer Mailer

	// Pipeline defaults to pipeline.New with Processing.MaxConcurrency
	// workers.
	Pipeline Validator

	// Files defaults to a FileManager over the output, logs and archive
	// directories of Config.
	Files *utils.FileManager

	Logger logging.Logger

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Generator runs billing batches.
type Generator struct {
	cfg      *config.Config
	source   source.Source
	store    db.MetadataStore
	renderer Renderer
	mailer   Mailer
	pipeline Validator
	files    *utils.FileManager
	logger   logging.Logger
	clock    func() time.Time
}

// New creates a Generator, filling in the default collaborators.
func New(opts Options) *Generator {
	g := &Generator{
		cfg:      opts.Config,
		source:   opts.Source,
		store:    opts.Store,
		renderer: opts.Renderer,
		mailer:   opts.Mailer,
		pipeline: opts.Pipeline,
		files:    opts.Files,
		logger:   logging.OrNop(opts.Logger),
		clock:    opts.Clock,
	}
	if g.clock == nil {
		g.clock = time.Now
	}
	if g.renderer == nil {
		g.renderer = render.NewRenderer(g.cfg, g.logger)
	}
	if g.pipeline == nil {
		g.pipeline = pipeline.New(pipeline.Options{
			Logger:  g.logger,
			Clock:   g.clock,
			Workers: g.cfg.Processing.MaxConcurrency,
		})
	}
	if g.files == nil {
		g.files = utils.NewFileManager(g.cfg.Output.Folder, g.cfg.Output.LogsDir, g.cfg.Output.ArchiveDir)
	}
	return g
}

// =============================================================================
// MAIN BATCH FUNCTION
// =============================================================================

// GenerateInvoices runs one batch for billing dates within [start, end].
//
// PARAMETERS:
//   - ctx: Cancels the fetch, persistence and email steps.
//   - start, end: The billing date range, inclusive.
//   - sendEmail: Email each generated invoice to its customer.
//
// RETURNS:
//   - The batch Result. Failures are reported in Result.Errors.
func (g *Generator) GenerateInvoices(ctx context.Context, start, end time.Time, sendEmail bool) Result {
	began := g.clock()
	var result Result
	var logEntries []utils.ErrorLogEntry

	g.logger.Info("Starting invoice generation for %s to %s", start.Format("2006-01-02"), end.Format("2006-01-02"))

	// =========================================================================
	// STEP 1: FETCH BILLING ROWS
	// =========================================================================

	rows, err := g.source.FetchRows(ctx, start, end)
	if err != nil {
		msg := fmt.Sprintf("Batch processing failed: %v", err)
		g.logger.Error("%s", msg)
		result.Errors = append(result.Errors, msg)
		result.Duration = g.clock().Sub(began)
		return result
	}
	result.RowsFetched = len(rows)

	if len(rows) == 0 {
		g.logger.Warn(NoRecordsMessage)
		result.Errors = append(result.Errors, NoRecordsMessage)
		result.Duration = g.clock().Sub(began)
		return result
	}
	result.Success = true
	g.logger.Info("Fetched %d billing rows", len(rows))

	// =========================================================================
	// STEP 2: GROUP AND VALIDATE
	// =========================================================================

	invoices, validationErrs := g.pipeline.Validate(rows)
	result.Records = len(invoices) + len(validationErrs)
	result.ValidationErrors = len(validationErrs)
	result.Errors = append(result.Errors, validationErrs...)
	for _, line := range validationErrs {
		logEntries = append(logEntries, utils.ErrorLogEntry{
			Timestamp:    g.clock(),
			ErrorType:    utils.ErrorTypeValidation,
			ErrorMessage: line,
		})
	}

	// =========================================================================
	// STEP 3: RENDER, PERSIST AND EMAIL EACH INVOICE
	// =========================================================================

	for i, inv := range invoices {
		if err := ctx.Err(); err != nil {
			msg := fmt.Sprintf("Batch processing failed: %v (%d invoices not processed)", err, len(invoices)-i)
			g.logger.Error("%s", msg)
			result.Errors = append(result.Errors, msg)
			break
		}

		generated, err := g.processInvoice(ctx, inv, sendEmail)
		if err != nil {
			msg := fmt.Sprintf("Failed to process invoice %s: %v", inv.Number(), err)
			g.logger.Error("%s", msg)
			result.Errors = append(result.Errors, msg)
			logEntries = append(logEntries, utils.ErrorLogEntry{
				Timestamp:     g.clock(),
				ErrorType:     utils.ErrorTypeProcessing,
				ErrorMessage:  err.Error(),
				InvoiceNumber: inv.Number(),
			})
			continue
		}
		if generated.Emailed {
			result.EmailsSent++
		}
		result.Generated = append(result.Generated, generated)
	}

	// =========================================================================
	// STEP 4: XML EXPORT
	// =========================================================================

	if g.cfg.Output.XMLExport && len(result.Generated) > 0 {
		path, err := g.exportXML(result.Generated)
		if err != nil {
			msg := fmt.Sprintf("XML export failed: %v", err)
			g.logger.Error("%s", msg)
			result.Errors = append(result.Errors, msg)
			logEntries = append(logEntries, utils.ErrorLogEntry{
				Timestamp:    g.clock(),
				ErrorType:    utils.ErrorTypeProcessing,
				ErrorMessage: msg,
			})
		} else {
			result.XMLExport = path
		}
	}

	// =========================================================================
	// STEP 5: ARCHIVE SOURCE FILE
	// =========================================================================
	// Archiving failures are logged but don't fail the batch.

	g.archiveSource()

	// =========================================================================
	// STEP 6: WRITE BATCH LOGS
	// =========================================================================

	result.Duration = g.clock().Sub(began)
	g.writeLogs(&result, logEntries, began, start, end)

	g.logger.Info("Batch complete: %d invoices generated, %d errors, %d emails sent",
		len(result.Generated), len(result.Errors), result.EmailsSent)
	return result
}

// processInvoice renders, persists and optionally emails one invoice.
func (g *Generator) processInvoice(ctx context.Context, inv invoice.Invoice, sendEmail bool) (GeneratedInvoice, error) {
	pdfPath, err := g.renderer.Render(inv, "")
	if err != nil {
		return GeneratedInvoice{}, err
	}

	if g.store != nil {
		if err := g.store.SaveInvoiceMetadata(ctx, db.NewMetadata(inv, pdfPath, g.clock())); err != nil {
			return GeneratedInvoice{}, err
		}
	}

	generated := GeneratedInvoice{Invoice: inv, PDFPath: pdfPath}
	if sendEmail {
		generated.Emailed = g.sendEmail(ctx, inv, pdfPath)
	}

	g.logger.Info("Successfully processed invoice %s", inv.Number())
	return generated, nil
}

// sendEmail reports whether the invoice was emailed. Failures are warnings.
func (g *Generator) sendEmail(ctx context.Context, inv invoice.Invoice, pdfPath string) bool {
	if g.mailer == nil {
		g.logger.Warn("Failed to send email for invoice %s: no mailer configured", inv.Number())
		return false
	}
	err := g.mailer.SendInvoice(ctx, inv, pdfPath)
	switch {
	case err == nil:
		return true
	case errors.Is(err, email.ErrEmailDisabled):
		return false
	default:
		g.logger.Warn("Failed to send email for invoice %s: %v", inv.Number(), err)
		return false
	}
}

// exportXML writes the generated invoices and the matching XSD to the
// output folder.
func (g *Generator) exportXML(generated []GeneratedInvoice) (string, error) {
	invoices := make([]invoice.Invoice, len(generated))
	for i, gi := range generated {
		invoices[i] = gi.Invoice
	}

	if err := os.MkdirAll(g.files.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	name := utils.GenerateOutputFileName("invoices_{batch}", ".xml", map[string]string{
		"batch": g.clock().Format("20060102_150405"),
	})
	path := filepath.Join(g.files.OutputDir, name)
	if err := xmlwriter.WriteFile(path, invoices); err != nil {
		return "", err
	}

	xsdPath := filepath.Join(g.files.OutputDir, "invoices.xsd")
	if err := os.WriteFile(xsdPath, xmlwriter.GenerateXSD(), 0644); err != nil {
		g.logger.Warn("Failed to write XML schema %s: %v", xsdPath, err)
	}

	g.logger.Info("Exported %d invoices to %s", len(invoices), path)
	return path, nil
}

// archiveSource copies a file source into the archive and prunes archives
// past the retention period.
func (g *Generator) archiveSource() {
	if g.files.ArchiveDir == "" {
		return
	}

	if fs, ok := g.source.(source.FileSource); ok {
		archived, err := g.files.ArchiveFile(fs.Path())
		if err != nil {
			g.logger.Warn("Failed to archive source file %s: %v", fs.Path(), err)
		} else {
			g.logger.Info("Archived source file to %s", archived)
		}
	}

	if days := g.cfg.Output.ArchiveRetentionDays; days > 0 {
		removed, err := utils.CleanOldArchives(g.files.ArchiveDir, time.Duration(days)*24*time.Hour)
		if err != nil {
			g.logger.Warn("Failed to clean old archives: %v", err)
		} else if removed > 0 {
			g.logger.Info("Removed %d archived files older than %d days", removed, days)
		}
	}
}

func (g *Generator) writeLogs(result *Result, entries []utils.ErrorLogEntry, began, start, end time.Time) {
	if err := os.MkdirAll(g.files.LogsDir, 0755); err != nil {
		g.logger.Warn("Failed to create logs directory %s: %v", g.files.LogsDir, err)
		return
	}

	errorLog, err := utils.WriteErrorLog(entries, g.files.LogsDir)
	if err != nil {
		g.logger.Warn("Failed to write error log: %v", err)
	}
	result.ErrorLog = errorLog

	summary := utils.ProcessingSummary{
		StartTime:         began,
		EndTime:           began.Add(result.Duration),
		RangeStart:        start,
		RangeEnd:          end,
		TotalRows:         result.RowsFetched,
		TotalRecords:      result.Records,
		GeneratedInvoices: len(result.Generated),
		FailedInvoices:    result.Records - len(result.Generated),
		ValidationErrors:  result.ValidationErrors,
		EmailsSent:        result.EmailsSent,
		TotalBilled:       g.cfg.Invoice.CurrencySymbol + invoice.FormatAmount(result.TotalBilled()),
		XMLExport:         result.XMLExport,
	}
	for _, gi := range result.Generated {
		summary.Invoices = append(summary.Invoices, utils.GeneratedInvoiceInfo{
			InvoiceNumber: gi.Invoice.Number(),
			Customer:      gi.Invoice.Customer().Name(),
			Total:         g.cfg.Invoice.CurrencySymbol + invoice.FormatAmount(gi.Invoice.TotalAmount()),
			PDFPath:       gi.PDFPath,
			Emailed:       gi.Emailed,
		})
	}

	summaryLog, err := utils.WriteSummaryLog(summary, g.files.LogsDir)
	if err != nil {
		g.logger.Warn("Failed to write summary log: %v", err)
	}
	result.SummaryLog = summaryLog
}

// =============================================================================
// OTHER OPERATIONS
// =============================================================================

// DryRun fetches and validates a batch without rendering, persisting or
// emailing anything.
func (g *Generator) DryRun(ctx context.Context, start, end time.Time) (DryRunResult, error) {
	rows, err := g.source.FetchRows(ctx, start, end)
	if err != nil {
		return DryRunResult{}, fmt.Errorf("failed to fetch billing rows: %w", err)
	}
	if len(rows) == 0 {
		return DryRunResult{}, ErrNoRecords
	}

	invoices, errs := g.pipeline.Validate(rows)
	return DryRunResult{RowsFetched: len(rows), Invoices: invoices, Errors: errs}, nil
}

// GenerateSingle renders, persists and optionally emails one invoice built
// outside a batch.
func (g *Generator) GenerateSingle(ctx context.Context, inv invoice.Invoice, sendEmail bool) (GeneratedInvoice, error) {
	generated, err := g.processInvoice(ctx, inv, sendEmail)
	if err != nil {
		return GeneratedInvoice{}, fmt.Errorf("failed to process invoice %s: %w", inv.Number(), err)
	}
	return generated, nil
}

// Preview renders inv to <output>/preview/preview_<number>.pdf. Nothing is
// persisted or sent.
func (g *Generator) Preview(inv invoice.Invoice) (string, error) {
	name := utils.GenerateOutputFileName("preview_{invoice_number}", ".pdf", map[string]string{
		"invoice_number": inv.Number(),
	})
	path := filepath.Join(g.files.OutputDir, "preview", name)

	out, err := g.renderer.Render(inv, path)
	if err != nil {
		return "", fmt.Errorf("failed to generate preview: %w", err)
	}
	g.logger.Info("Preview generated: %s", out)
	return out, nil
}

// ValidateConfiguration checks that the output directories can be created,
// the source is reachable and, when email is enabled, the mail server
// answers.
//
// RETURNS:
//   - One line per problem found; empty when everything is usable.
func (g *Generator) ValidateConfiguration(ctx context.Context) []string {
	var issues []string

	dirs := []string{g.files.OutputDir, g.files.LogsDir}
	if g.files.ArchiveDir != "" {
		dirs = append(dirs, g.files.ArchiveDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			issues = append(issues, fmt.Sprintf("Cannot create directory %s: %v", dir, err))
		}
	}

	if err := g.source.Ping(ctx); err != nil {
		issues = append(issues, fmt.Sprintf("Database connection failed: %v", err))
	}

	if g.cfg.Email.Enabled {
		if g.mailer == nil {
			issues = append(issues, "Email server connection failed: no mailer configured")
		} else if err := g.mailer.TestConnection(ctx); err != nil {
			issues = append(issues, fmt.Sprintf("Email server connection failed: %v", err))
		}
	}

	for _, issue := range issues {
		g.logger.Warn("Configuration issue: %s", issue)
	}
	return issues
}

// Close releases the source and the metadata store.
func (g *Generator) Close() error {
	var errs []error
	if g.store != nil {
		errs = append(errs, g.store.Close())
	}
	errs = append(errs, g.source.Close())
	return errors.Join(errs...)
}
