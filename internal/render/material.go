package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/ginjaninja78/invoice-batch/internal/invoice"
	"github.com/ginjaninja78/invoice-batch/internal/words"
	"github.com/ginjaninja78/invoice-batch/pkg/utils"
)

// MaterialFilenameFormat names material invoice PDFs in the output folder.
const MaterialFilenameFormat = "material_invoice_{invoice_number}"

// Material items table column widths.
var materialColumns = []struct {
	title string
	width float64
	align string
}{
	{"S.No", 10, "C"},
	{"Description", 50, "L"},
	{"Qty", 16, "R"},
	{"Unit", 16, "C"},
	{"Rate", 20, "R"},
	{"Amount", 22, "R"},
	{"GST%", 14, "C"},
	{"GST Amt", 20, "R"},
	{"Total", 22, "R"},
}

// MaterialOutputPath returns the default location of a material invoice PDF.
func (r *Renderer) MaterialOutputPath(inv invoice.MaterialInvoice) string {
	name := utils.GenerateOutputFileName(MaterialFilenameFormat, ".pdf", map[string]string{
		"invoice_number": inv.Number(),
	})
	return filepath.Join(r.output.Folder, name)
}

// RenderMaterial writes a material tax invoice: one row per material with
// its own GST rate, a GST summary by rate and the grand total in words.
//
// PARAMETERS:
//   - inv: The invoice to render.
//   - outputPath: Destination file. When empty, MaterialOutputPath(inv) is used.
//
// RETURNS:
//   - The path of the written file.
//   - An error if the directory cannot be created or the PDF fails.
func (r *Renderer) RenderMaterial(inv invoice.MaterialInvoice, outputPath string) (string, error) {
	if outputPath == "" {
		outputPath = r.MaterialOutputPath(inv)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle("Tax Invoice "+inv.Number(), true)
	pdf.SetAuthor(r.company.Name, true)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	r.drawHeader(pdf, tr)

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(139, 0, 0)
	pdf.CellFormat(contentWidth, 9, tr("TAX INVOICE #"+inv.Number()), "", 1, "R", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	r.drawMaterialInfo(pdf, tr, inv)
	r.drawMaterialItems(pdf, tr, inv)
	r.drawGSTSummary(pdf, tr, inv)
	r.drawMaterialTotals(pdf, tr, inv)

	if strings.TrimSpace(inv.Notes()) != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(contentWidth, lineHeight, "Notes:", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(contentWidth, 5, tr(inv.Notes()), "", "L", false)
	}
	r.drawFooter(pdf, tr)

	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return "", fmt.Errorf("failed to write PDF %s: %w", outputPath, err)
	}

	r.logger.Info("Material invoice PDF generated: %s", outputPath)
	return outputPath, nil
}

func (r *Renderer) drawMaterialInfo(pdf *gofpdf.Fpdf, tr func(string) string, inv invoice.MaterialInvoice) {
	half := contentWidth / 2
	top := pdf.GetY()

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(half, lineHeight, "Bill To:", "", 0, "L", false, 0, "")
	pdf.CellFormat(half, lineHeight, "Invoice Details:", "", 1, "L", false, 0, "")

	customer := inv.Customer()
	billTo := []string{customer.Name()}
	billTo = append(billTo, strings.Split(customer.Address(), "\n")...)
	if customer.Phone() != "" {
		billTo = append(billTo, "Phone: "+customer.Phone())
	}
	if inv.GSTIN() != "" {
		billTo = append(billTo, "GSTIN: "+inv.GSTIN())
	}

	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(half, 5, tr(strings.Join(billTo, "\n")), "", "L", false)
	leftBottom := pdf.GetY()

	pdf.SetXY(pageMargin+half, top+lineHeight)
	details := fmt.Sprintf("Issue Date: %s\nDue Date: %s",
		inv.IssueDate().Format(r.settings.DateFormat),
		inv.DueDate().Format(r.settings.DateFormat))
	if inv.PlaceOfSupply() != "" {
		details += "\nPlace of Supply: " + inv.PlaceOfSupply()
	}
	pdf.MultiCell(half, 5, tr(details), "", "L", false)
	rightBottom := pdf.GetY()

	pdf.SetY(max(leftBottom, rightBottom))
	pdf.Ln(8)
}

func (r *Renderer) drawMaterialItems(pdf *gofpdf.Fpdf, tr func(string) string, inv invoice.MaterialInvoice) {
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(128, 128, 128)
	pdf.SetTextColor(245, 245, 245)
	for i, col := range materialColumns {
		ln := 0
		if i == len(materialColumns)-1 {
			ln = 1
		}
		pdf.CellFormat(col.width, rowHeight+2, col.title, "1", ln, "C", true, 0, "")
	}

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFillColor(245, 245, 220)
	for n, item := range inv.Items() {
		desc := tr(item.Description())
		descCol := materialColumns[1]
		lines := max(len(pdf.SplitLines([]byte(desc), descCol.width-2)), 1)
		height := rowHeight * float64(lines)

		pdf.CellFormat(materialColumns[0].width, height, fmt.Sprintf("%d", n+1), "1", 0, "C", true, 0, "")
		x, y := pdf.GetXY()
		pdf.MultiCell(descCol.width, rowHeight, desc, "1", "L", true)
		pdf.SetXY(x+descCol.width, y)

		cells := []string{
			item.Quantity().String(),
			tr(item.Unit()),
			invoice.FormatAmount(item.Rate()),
			invoice.FormatAmount(item.BasicAmount()),
			invoice.FormatRate(item.GSTRate()),
			invoice.FormatAmount(item.GSTAmount()),
			invoice.FormatAmount(item.Total()),
		}
		for i, text := range cells {
			col := materialColumns[i+2]
			ln := 0
			if i == len(cells)-1 {
				ln = 1
			}
			pdf.CellFormat(col.width, height, text, "1", ln, col.align, true, 0, "")
		}
	}
	pdf.Ln(4)
}

func (r *Renderer) drawGSTSummary(pdf *gofpdf.Fpdf, tr func(string) string, inv invoice.MaterialInvoice) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentWidth, lineHeight, "GST Summary:", "", 1, "L", false, 0, "")

	widths := []float64{40, 50, 50}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(211, 211, 211)
	for i, title := range []string{"GST Rate", "Taxable Amount", "GST Amount"} {
		ln := 0
		if i == len(widths)-1 {
			ln = 1
		}
		pdf.CellFormat(widths[i], rowHeight, title, "1", ln, "C", true, 0, "")
	}

	pdf.SetFont("Helvetica", "", 9)
	for _, band := range inv.GSTSummary() {
		pdf.CellFormat(widths[0], rowHeight, invoice.FormatRate(band.Rate), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[1], rowHeight, tr(r.money(band.Taxable)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], rowHeight, tr(r.money(band.GST)), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)
}

func (r *Renderer) drawMaterialTotals(pdf *gofpdf.Fpdf, tr func(string) string, inv invoice.MaterialInvoice) {
	labelWidth, valueWidth := 140.0, 50.0

	pdf.SetFont("Helvetica", "", 11)
	row := func(label, value string) {
		pdf.CellFormat(labelWidth, rowHeight, tr(label), "", 0, "R", false, 0, "")
		pdf.CellFormat(valueWidth, rowHeight, tr(value), "", 1, "R", false, 0, "")
	}

	row("Subtotal (Before Tax):", r.money(inv.Subtotal()))
	row("Total GST:", r.money(inv.TotalGST()))

	y := pdf.GetY()
	pdf.SetLineWidth(0.3)
	pdf.Line(pageMargin+labelWidth-40, y, pageMargin+contentWidth, y)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(139, 0, 0)
	row("Grand Total:", r.money(inv.GrandTotal()))
	pdf.SetTextColor(0, 0, 0)
	pdf.SetLineWidth(0.2)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(contentWidth, 5, tr("Amount in words: "+words.AmountToWords(inv.GrandTotal())+" Only"), "", "L", false)
}
