// =============================================================================
// Invoice Batch Generator - PDF Renderer
// =============================================================================
//
// This package renders a validated invoice into a single-page A4 PDF using
// gofpdf. The layout is:
//   - Company header (optional logo, name, contact lines)
//   - Invoice title
//   - Bill To block beside the invoice dates
//   - Items table
//   - Totals (discount and GST rows only when the rate is positive)
//   - Amount in words
//   - Notes and footer
//
// The core fonts of gofpdf are cp1252 encoded, so every string passes through
// a Unicode translator before it is drawn.
//
// =============================================================================

package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/invoice-batch/internal/config"
	"github.com/ginjaninja78/invoice-batch/internal/invoice"
	"github.com/ginjaninja78/invoice-batch/internal/logging"
	"github.com/ginjaninja78/invoice-batch/internal/words"
	"github.com/ginjaninja78/invoice-batch/pkg/utils"
)

// Page geometry in millimetres.
const (
	pageMargin   = 10.0
	contentWidth = 190.0
	lineHeight   = 6.0
	rowHeight    = 7.0
)

// Items table column widths.
var itemColumns = []struct {
	title string
	width float64
	align string
}{
	{"Description", 95, "L"},
	{"Qty", 20, "C"},
	{"Unit Price", 35, "R"},
	{"Total", 40, "R"},
}

// FooterText closes every invoice.
const FooterText = "Thank you for your business!"

// Renderer draws invoices as PDF files.
type Renderer struct {
	company  config.CompanyConfig
	settings config.InvoiceConfig
	output   config.OutputConfig
	logger   logging.Logger
}

// NewRenderer creates a Renderer from the company, invoice and output
// sections of the configuration.
func NewRenderer(cfg *config.Config, logger logging.Logger) *Renderer {
	return &Renderer{
		company:  cfg.Company,
		settings: cfg.Invoice,
		output:   cfg.Output,
		logger:   logging.OrNop(logger),
	}
}

// OutputPath returns the default location of an invoice's PDF: the output
// folder joined with the filename format, where {date} is the issue date.
func (r *Renderer) OutputPath(inv invoice.Invoice) string {
	name := utils.GenerateOutputFileName(r.output.FilenameFormat, ".pdf", map[string]string{
		"invoice_number": inv.Number(),
		"date":           inv.IssueDate().Format("20060102"),
	})
	return filepath.Join(r.output.Folder, name)
}

// Render writes inv as a PDF.
//
// PARAMETERS:
//   - inv: The invoice to render.
//   - outputPath: Destination file. When empty, OutputPath(inv) is used.
//
// RETURNS:
//   - The path of the written file.
//   - An error if the directory cannot be created or the PDF fails.
func (r *Renderer) Render(inv invoice.Invoice, outputPath string) (string, error) {
	if outputPath == "" {
		outputPath = r.OutputPath(inv)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle("Invoice "+inv.Number(), true)
	pdf.SetAuthor(r.company.Name, true)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	r.drawHeader(pdf, tr)
	r.drawTitle(pdf, tr, inv)
	r.drawInfo(pdf, tr, inv)
	r.drawItems(pdf, tr, inv)
	r.drawTotals(pdf, tr, inv)
	r.drawNotes(pdf, tr, inv)
	r.drawFooter(pdf, tr)

	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return "", fmt.Errorf("failed to write PDF %s: %w", outputPath, err)
	}

	r.logger.Info("Invoice PDF generated: %s", outputPath)
	return outputPath, nil
}

// =============================================================================
// SECTIONS
// =============================================================================

func (r *Renderer) drawHeader(pdf *gofpdf.Fpdf, tr func(string) string) {
	if r.company.LogoPath != "" {
		r.drawLogo(pdf)
	}

	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetTextColor(0, 0, 139)
	pdf.CellFormat(contentWidth, 10, tr(r.company.Name), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	var lines []string
	if r.company.Address != "" {
		lines = append(lines, strings.Split(r.company.Address, "\n")...)
	}
	if r.company.Phone != "" {
		lines = append(lines, "Phone: "+r.company.Phone)
	}
	if r.company.Email != "" {
		lines = append(lines, "Email: "+r.company.Email)
	}
	if r.company.Website != "" {
		lines = append(lines, "Website: "+r.company.Website)
	}
	if r.company.GSTIN != "" {
		lines = append(lines, "GSTIN: "+r.company.GSTIN)
	}
	for _, line := range lines {
		pdf.CellFormat(contentWidth, 5, tr(strings.TrimSpace(line)), "", 1, "C", false, 0, "")
	}
	pdf.Ln(8)
}

// drawLogo places the logo top-left. A missing or unreadable logo is skipped
// with a warning.
func (r *Renderer) drawLogo(pdf *gofpdf.Fpdf) {
	if !utils.FileExists(r.company.LogoPath) {
		r.logger.Warn("Could not load logo: %s does not exist", r.company.LogoPath)
		return
	}

	opts := gofpdf.ImageOptions{ReadDpi: true}
	pdf.RegisterImageOptions(r.company.LogoPath, opts)
	if pdf.Err() {
		r.logger.Warn("Could not load logo: %v", pdf.Error())
		pdf.ClearError()
		return
	}
	pdf.ImageOptions(r.company.LogoPath, pageMargin, pageMargin, 40, 0, false, opts, 0, "")
}

func (r *Renderer) drawTitle(pdf *gofpdf.Fpdf, tr func(string) string, inv invoice.Invoice) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(139, 0, 0)
	pdf.CellFormat(contentWidth, 9, tr("INVOICE #"+inv.Number()), "", 1, "R", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)
}

// drawInfo draws the Bill To block and the invoice dates side by side.
func (r *Renderer) drawInfo(pdf *gofpdf.Fpdf, tr func(string) string, inv invoice.Invoice) {
	half := contentWidth / 2
	top := pdf.GetY()

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(half, lineHeight, "Bill To:", "", 0, "L", false, 0, "")
	pdf.CellFormat(half, lineHeight, "Invoice Details:", "", 1, "L", false, 0, "")

	customer := inv.Customer()
	billTo := []string{customer.Name()}
	billTo = append(billTo, strings.Split(customer.Address(), "\n")...)
	billTo = append(billTo, "Email: "+customer.Email())
	if customer.Phone() != "" {
		billTo = append(billTo, "Phone: "+customer.Phone())
	}

	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(half, 5, tr(strings.Join(billTo, "\n")), "", "L", false)
	leftBottom := pdf.GetY()

	pdf.SetXY(pageMargin+half, top+lineHeight)
	details := fmt.Sprintf("Issue Date: %s\nDue Date: %s",
		inv.IssueDate().Format(r.settings.DateFormat),
		inv.DueDate().Format(r.settings.DateFormat))
	pdf.MultiCell(half, 5, tr(details), "", "L", false)
	rightBottom := pdf.GetY()

	pdf.SetY(max(leftBottom, rightBottom))
	pdf.Ln(8)
}

func (r *Renderer) drawItems(pdf *gofpdf.Fpdf, tr func(string) string, inv invoice.Invoice) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(128, 128, 128)
	pdf.SetTextColor(245, 245, 245)
	for i, col := range itemColumns {
		ln := 0
		if i == len(itemColumns)-1 {
			ln = 1
		}
		pdf.CellFormat(col.width, rowHeight+2, col.title, "1", ln, "C", true, 0, "")
	}

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFillColor(245, 245, 220)
	for _, item := range inv.Items() {
		desc := tr(item.Description())
		lines := max(len(pdf.SplitLines([]byte(desc), itemColumns[0].width-2)), 1)
		height := rowHeight * float64(lines)

		x, y := pdf.GetXY()
		pdf.MultiCell(itemColumns[0].width, rowHeight, desc, "1", "L", true)
		pdf.SetXY(x+itemColumns[0].width, y)

		cells := []string{
			fmt.Sprintf("%d", item.Quantity()),
			tr(r.money(item.UnitPrice())),
			tr(r.money(item.LineTotal())),
		}
		for i, text := range cells {
			col := itemColumns[i+1]
			ln := 0
			if i == len(cells)-1 {
				ln = 1
			}
			pdf.CellFormat(col.width, height, text, "1", ln, col.align, true, 0, "")
		}
	}
	pdf.Ln(4)
}

func (r *Renderer) drawTotals(pdf *gofpdf.Fpdf, tr func(string) string, inv invoice.Invoice) {
	labelWidth, valueWidth := 140.0, 50.0

	pdf.SetFont("Helvetica", "", 11)
	row := func(label, value string) {
		pdf.CellFormat(labelWidth, rowHeight, tr(label), "", 0, "R", false, 0, "")
		pdf.CellFormat(valueWidth, rowHeight, tr(value), "", 1, "R", false, 0, "")
	}

	row("Subtotal:", r.money(inv.Subtotal()))
	if inv.DiscountRate().IsPositive() {
		row(fmt.Sprintf("Discount (%s):", invoice.FormatRate(inv.DiscountRate())), "-"+r.money(inv.DiscountAmount()))
	}
	if inv.TaxRate().IsPositive() {
		row(fmt.Sprintf("GST (%s):", invoice.FormatRate(inv.TaxRate())), r.money(inv.TaxAmount()))
	}

	y := pdf.GetY()
	pdf.SetLineWidth(0.3)
	pdf.Line(pageMargin+labelWidth-40, y, pageMargin+contentWidth, y)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(139, 0, 0)
	row("Total Amount:", r.money(inv.TotalAmount()))
	pdf.SetTextColor(0, 0, 0)

	y = pdf.GetY()
	pdf.SetLineWidth(0.6)
	pdf.Line(pageMargin+labelWidth-40, y, pageMargin+contentWidth, y)
	pdf.SetLineWidth(0.2)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(contentWidth, 5, tr("Amount in words: "+words.AmountToWords(inv.TotalAmount())+" Only"), "", "L", false)
}

func (r *Renderer) drawNotes(pdf *gofpdf.Fpdf, tr func(string) string, inv invoice.Invoice) {
	if strings.TrimSpace(inv.Notes()) == "" {
		return
	}
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentWidth, lineHeight, "Notes:", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(contentWidth, 5, tr(inv.Notes()), "", "L", false)
}

func (r *Renderer) drawFooter(pdf *gofpdf.Fpdf, tr func(string) string) {
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentWidth, lineHeight, tr(FooterText), "", 1, "C", false, 0, "")
}

func (r *Renderer) money(amount decimal.Decimal) string {
	return r.settings.CurrencySymbol + invoice.FormatAmount(amount)
}
