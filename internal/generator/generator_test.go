package generator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/invoice-batch/internal/config"
	"github.com/ginjaninja78/invoice-batch/internal/db"
	"github.com/ginjaninja78/invoice-batch/internal/email"
	"github.com/ginjaninja78/invoice-batch/internal/invoice"
	"github.com/ginjaninja78/invoice-batch/internal/types"
)

var fixedNow = time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

// =============================================================================
// FAKES
// =============================================================================

type fakeSource struct {
	rows    []types.Row
	err     error
	pingErr error
	path    string
	closed  bool
}

func (s *fakeSource) FetchRows(context.Context, time.Time, time.Time) ([]types.Row, error) {
	return s.rows, s.err
}
func (s *fakeSource) Ping(context.Context) error { return s.pingErr }
func (s *fakeSource) Close() error               { s.closed = true; return nil }

// fakeFileSource also exposes a file path for archiving.
type fakeFileSource struct{ fakeSource }

func (s *fakeFileSource) Path() string { return s.path }

type fakeStore struct {
	saved  []db.Metadata
	failOn string
	closed bool
}

func (s *fakeStore) SaveInvoiceMetadata(_ context.Context, m db.Metadata) error {
	if m.InvoiceNumber == s.failOn {
		return db.ErrDuplicateInvoice
	}
	s.saved = append(s.saved, m)
	return nil
}
func (s *fakeStore) Close() error { s.closed = true; return nil }

type fakeRenderer struct {
	dir      string
	paths    []string
	failOn   string
	rendered []string
}

func (r *fakeRenderer) Render(inv invoice.Invoice, outputPath string) (string, error) {
	if inv.Number() == r.failOn {
		return "", errors.New("disk full")
	}
	if outputPath == "" {
		outputPath = filepath.Join(r.dir, inv.Number()+".pdf")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(outputPath, []byte("%PDF-1.3"), 0644); err != nil {
		return "", err
	}
	r.rendered = append(r.rendered, inv.Number())
	r.paths = append(r.paths, outputPath)
	return outputPath, nil
}

type fakeMailer struct {
	sent    []string
	err     error
	connErr error
}

func (m *fakeMailer) SendInvoice(_ context.Context, inv invoice.Invoice, _ string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, inv.Number())
	return nil
}
func (m *fakeMailer) TestConnection(context.Context) error { return m.connErr }

// =============================================================================
// FIXTURES
// =============================================================================

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Company: config.CompanyConfig{Name: "Acme Traders"},
		Invoice: config.InvoiceConfig{CurrencySymbol: "Rs. ", DateFormat: "02 Jan 2006"},
		Output: config.OutputConfig{
			Folder:         filepath.Join(dir, "output"),
			FilenameFormat: "invoice_{invoice_number}_{date}.pdf",
			LogsDir:        filepath.Join(dir, "logs"),
		},
		Processing: config.ProcessingConfig{MaxConcurrency: 1},
	}
}

func row(id, number, addr, desc string, qty int, price string) types.Row {
	return types.Row{
		types.FieldRecordID:      id,
		types.FieldInvoiceNumber: number,
		types.FieldName:          "Customer " + id,
		types.FieldEmail:         addr,
		types.FieldAddress:       "12 MG Road, Pune",
		types.FieldDescription:   desc,
		types.FieldQuantity:      qty,
		types.FieldUnitPrice:     price,
		types.FieldBillingDate:   "2024-01-15",
		types.FieldTaxRate:       "0.18",
		types.FieldDiscountRate:  "0",
	}
}

func batchRows() []types.Row {
	return []types.Row{
		row("1", "INV-1", "one@example.in", "Consulting", 2, "1000"),
		row("1", "INV-1", "one@example.in", "Travel", 1, "500"),
		row("2", "INV-2", "not-an-email", "Support", 1, "100"),
		row("3", "INV-3", "three@example.in", "Hosting", 3, "250.50"),
	}
}

func newGenerator(t *testing.T, cfg *config.Config, src *fakeSource) (*Generator, *fakeStore, *fakeRenderer, *fakeMailer) {
	t.Helper()
	store := &fakeStore{}
	renderer := &fakeRenderer{dir: cfg.Output.Folder}
	mailer := &fakeMailer{}
	g := New(Options{
		Config:   cfg,
		Source:   src,
		Store:    store,
		Renderer: renderer,
		Mailer:   mailer,
		Clock:    func() time.Time { return fixedNow },
	})
	return g, store, renderer, mailer
}

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

// =============================================================================
// TESTS
// =============================================================================

func TestGenerateInvoices_Batch(t *testing.T) {
	cfg := testConfig(t)
	g, store, renderer, mailer := newGenerator(t, cfg, &fakeSource{rows: batchRows()})

	result := g.GenerateInvoices(context.Background(), day(1), day(31), true)

	assert.True(t, result.Success)
	assert.Equal(t, 4, result.RowsFetched)
	assert.Equal(t, 3, result.Records)
	assert.Equal(t, 1, result.ValidationErrors)
	require.Len(t, result.Generated, 2)
	assert.Equal(t, "INV-1", result.Generated[0].Invoice.Number())
	assert.Equal(t, "INV-3", result.Generated[1].Invoice.Number())
	assert.True(t, result.Generated[0].Emailed)

	require.Len(t, result.Errors, 1)
	assert.True(t, strings.HasPrefix(result.Errors[0], "Record 2:"), result.Errors[0])

	assert.Equal(t, []string{"INV-1", "INV-3"}, renderer.rendered)
	assert.Equal(t, []string{"INV-1", "INV-3"}, mailer.sent)
	assert.Equal(t, 2, result.EmailsSent)

	require.Len(t, store.saved, 2)
	assert.Equal(t, "INV-1", store.saved[0].InvoiceNumber)
	assert.Equal(t, fixedNow, store.saved[0].CreatedAt)
	assert.Equal(t, renderer.paths[0], store.saved[0].PDFPath)

	// (2*1000 + 500) * 1.18 = 2950; 3*250.50 * 1.18 = 886.77
	assert.True(t, decimal.RequireFromString("3836.77").Equal(result.TotalBilled()), result.TotalBilled().String())

	require.NotEmpty(t, result.ErrorLog)
	errorLog, err := os.ReadFile(result.ErrorLog)
	require.NoError(t, err)
	assert.Contains(t, string(errorLog), "Record 2:")

	require.NotEmpty(t, result.SummaryLog)
	summary, err := os.ReadFile(result.SummaryLog)
	require.NoError(t, err)
	assert.Contains(t, string(summary), "INV-1")
	assert.Contains(t, string(summary), "Rs. 3836.77")

	assert.Empty(t, result.XMLExport)
}

func TestGenerateInvoices_NoRows(t *testing.T) {
	g, _, renderer, _ := newGenerator(t, testConfig(t), &fakeSource{})

	result := g.GenerateInvoices(context.Background(), day(1), day(31), false)

	assert.False(t, result.Success)
	assert.Equal(t, []string{NoRecordsMessage}, result.Errors)
	assert.Empty(t, renderer.rendered)
	assert.Empty(t, result.SummaryLog)
}

func TestGenerateInvoices_SourceFailure(t *testing.T) {
	g, _, _, _ := newGenerator(t, testConfig(t), &fakeSource{err: errors.New("connection reset")})

	result := g.GenerateInvoices(context.Background(), day(1), day(31), false)

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Batch processing failed: connection reset", result.Errors[0])
}

func TestGenerateInvoices_PerInvoiceFailuresDoNotStopBatch(t *testing.T) {
	cfg := testConfig(t)
	g, store, renderer, _ := newGenerator(t, cfg, &fakeSource{rows: batchRows()})
	renderer.failOn = "INV-1"

	result := g.GenerateInvoices(context.Background(), day(1), day(31), false)

	require.Len(t, result.Generated, 1)
	assert.Equal(t, "INV-3", result.Generated[0].Invoice.Number())
	assert.Contains(t, result.Errors, "Failed to process invoice INV-1: disk full")
	assert.Len(t, store.saved, 1)

	errorLog, err := os.ReadFile(result.ErrorLog)
	require.NoError(t, err)
	assert.Contains(t, string(errorLog), "processing")
	assert.Contains(t, string(errorLog), "INV-1")
}

func TestGenerateInvoices_DuplicateMetadata(t *testing.T) {
	g, store, _, _ := newGenerator(t, testConfig(t), &fakeSource{rows: batchRows()})
	store.failOn = "INV-3"

	result := g.GenerateInvoices(context.Background(), day(1), day(31), false)

	require.Len(t, result.Generated, 1)
	require.Len(t, result.Errors, 2)
	assert.True(t, strings.HasPrefix(result.Errors[1], "Failed to process invoice INV-3:"))
	assert.Contains(t, result.Errors[1], "already exists")
}

func TestGenerateInvoices_EmailFailureIsOnlyAWarning(t *testing.T) {
	g, _, _, mailer := newGenerator(t, testConfig(t), &fakeSource{rows: batchRows()})
	mailer.err = errors.New("relay refused")

	result := g.GenerateInvoices(context.Background(), day(1), day(31), true)

	require.Len(t, result.Generated, 2)
	assert.False(t, result.Generated[0].Emailed)
	assert.Zero(t, result.EmailsSent)
	assert.Len(t, result.Errors, 1)
}

func TestGenerateInvoices_EmailDisabled(t *testing.T) {
	g, _, _, mailer := newGenerator(t, testConfig(t), &fakeSource{rows: batchRows()})
	mailer.err = email.ErrEmailDisabled

	result := g.GenerateInvoices(context.Background(), day(1), day(31), true)

	require.Len(t, result.Generated, 2)
	assert.Zero(t, result.EmailsSent)
}

func TestGenerateInvoices_Cancelled(t *testing.T) {
	g, _, renderer, _ := newGenerator(t, testConfig(t), &fakeSource{rows: batchRows()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := g.GenerateInvoices(ctx, day(1), day(31), false)

	assert.Empty(t, result.Generated)
	assert.Empty(t, renderer.rendered)
	assert.Contains(t, result.Errors[len(result.Errors)-1], "context canceled")
}

func TestGenerateInvoices_XMLExport(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.XMLExport = true
	g, _, _, _ := newGenerator(t, cfg, &fakeSource{rows: batchRows()})

	result := g.GenerateInvoices(context.Background(), day(1), day(31), false)

	require.NotEmpty(t, result.XMLExport)
	data, err := os.ReadFile(result.XMLExport)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<invoices count="2">`)
	assert.Contains(t, string(data), "<InvoiceNumber>INV-3</InvoiceNumber>")
	assert.FileExists(t, filepath.Join(cfg.Output.Folder, "invoices.xsd"))
}

func TestGenerateInvoices_ArchivesFileSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.ArchiveDir = filepath.Join(t.TempDir(), "archive")
	srcPath := filepath.Join(t.TempDir(), "billing.csv")
	require.NoError(t, os.WriteFile(srcPath, []byte("record_id\n"), 0644))

	src := &fakeFileSource{fakeSource{rows: batchRows(), path: srcPath}}
	g := New(Options{
		Config:   cfg,
		Source:   src,
		Renderer: &fakeRenderer{dir: cfg.Output.Folder},
		Clock:    func() time.Time { return fixedNow },
	})

	g.GenerateInvoices(context.Background(), day(1), day(31), false)

	var archived []string
	require.NoError(t, filepath.Walk(cfg.Output.ArchiveDir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			archived = append(archived, filepath.Base(path))
		}
		return err
	}))
	assert.Equal(t, []string{"billing.csv"}, archived)
	assert.FileExists(t, srcPath)
}

func TestGenerateInvoices_RealRenderer(t *testing.T) {
	cfg := testConfig(t)
	g := New(Options{Config: cfg, Source: &fakeSource{rows: batchRows()[:2]}})

	result := g.GenerateInvoices(context.Background(), day(1), day(31), false)

	require.Len(t, result.Generated, 1)
	assert.Equal(t, filepath.Join(cfg.Output.Folder, "invoice_INV-1_20240115.pdf"), result.Generated[0].PDFPath)
	data, err := os.ReadFile(result.Generated[0].PDFPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF-"))
}

func TestDryRun(t *testing.T) {
	g, store, renderer, _ := newGenerator(t, testConfig(t), &fakeSource{rows: batchRows()})

	res, err := g.DryRun(context.Background(), day(1), day(31))
	require.NoError(t, err)
	assert.Equal(t, 4, res.RowsFetched)
	assert.Len(t, res.Invoices, 2)
	assert.Len(t, res.Errors, 1)
	assert.Empty(t, renderer.rendered)
	assert.Empty(t, store.saved)

	empty, _, _, _ := newGenerator(t, testConfig(t), &fakeSource{})
	_, err = empty.DryRun(context.Background(), day(1), day(31))
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestPreview(t *testing.T) {
	cfg := testConfig(t)
	g, store, _, _ := newGenerator(t, cfg, &fakeSource{rows: batchRows()})

	dry, err := g.DryRun(context.Background(), day(1), day(31))
	require.NoError(t, err)

	path, err := g.Preview(dry.Invoices[0])
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Output.Folder, "preview", "preview_INV-1.pdf"), path)
	assert.FileExists(t, path)
	assert.Empty(t, store.saved)
}

func TestGenerateSingle(t *testing.T) {
	cfg := testConfig(t)
	g, store, _, mailer := newGenerator(t, cfg, &fakeSource{rows: batchRows()})
	dry, err := g.DryRun(context.Background(), day(1), day(31))
	require.NoError(t, err)

	generated, err := g.GenerateSingle(context.Background(), dry.Invoices[1], true)
	require.NoError(t, err)
	assert.True(t, generated.Emailed)
	assert.Equal(t, []string{"INV-3"}, mailer.sent)
	assert.Len(t, store.saved, 1)
}

func TestValidateConfiguration(t *testing.T) {
	cfg := testConfig(t)
	g, _, _, _ := newGenerator(t, cfg, &fakeSource{})
	assert.Empty(t, g.ValidateConfiguration(context.Background()))
	assert.DirExists(t, cfg.Output.Folder)
	assert.DirExists(t, cfg.Output.LogsDir)

	cfg.Email.Enabled = true
	src := &fakeSource{pingErr: errors.New("no such host")}
	g, _, _, mailer := newGenerator(t, cfg, src)
	mailer.connErr = errors.New("timeout")

	issues := g.ValidateConfiguration(context.Background())
	assert.Equal(t, []string{
		"Database connection failed: no such host",
		"Email server connection failed: timeout",
	}, issues)
}

func TestClose(t *testing.T) {
	src := &fakeSource{}
	g, store, _, _ := newGenerator(t, testConfig(t), src)
	require.NoError(t, g.Close())
	assert.True(t, src.closed)
	assert.True(t, store.closed)
}
