package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/invoice-batch/internal/config"
	"github.com/ginjaninja78/invoice-batch/internal/invoice"
	"github.com/ginjaninja78/invoice-batch/internal/logging"
	"github.com/ginjaninja78/invoice-batch/internal/render"
	"github.com/ginjaninja78/invoice-batch/internal/validation"
	"github.com/ginjaninja78/invoice-batch/pkg/utils"
)

// defaultMaterials is used by create-sample --material when no --item is
// given.
var defaultMaterials = []string{
	"Steel Rods (12mm TMT)|50|kg|65.00|0.18",
	"Cement Bags (OPC 53 Grade)|20|bags|350.00|0.28",
	"Red Bricks (First Class)|1000|pieces|8.00|0.05",
	"River Sand (Fine)|100|cubic ft|45.00|0.05",
	"Electrical Wire (2.5mm)|200|meters|25.00|0.18",
}

// parseMaterialItem reads "description|quantity|unit|rate|gst_rate". The
// quantity may be fractional; gst_rate is a fraction and defaults to 0.
func parseMaterialItem(spec string) (invoice.MaterialItem, error) {
	fields := strings.Split(spec, "|")
	if len(fields) < 4 || len(fields) > 5 {
		return invoice.MaterialItem{}, fmt.Errorf("invalid item %q: want description|quantity|unit|rate|gst_rate", spec)
	}
	for len(fields) < 5 {
		fields = append(fields, "")
	}

	qty, err := validation.Decimal(fields[1], "quantity")
	if err != nil {
		return invoice.MaterialItem{}, fmt.Errorf("item %q: %w", fields[0], err)
	}
	rate, err := validation.Decimal(fields[3], "rate")
	if err != nil {
		return invoice.MaterialItem{}, fmt.Errorf("item %q: %w", fields[0], err)
	}
	gst, err := validation.Rate(fields[4], "gst_rate", decimal.Zero)
	if err != nil {
		return invoice.MaterialItem{}, fmt.Errorf("item %q: %w", fields[0], err)
	}

	item, err := invoice.NewMaterialItem(fields[0], qty, fields[2], rate, gst)
	if err != nil {
		return invoice.MaterialItem{}, fmt.Errorf("item %q: %w", fields[0], err)
	}
	return item, nil
}

// sampleMaterialInvoice builds a material invoice from the create-sample
// flags. The number defaults to MAT-{YYYYMMDDHHMMSS}.
func sampleMaterialInvoice(now time.Time) (invoice.MaterialInvoice, error) {
	specs := sample.items
	if len(specs) == 0 {
		specs = defaultMaterials
	}
	items := make([]invoice.MaterialItem, 0, len(specs))
	for _, spec := range specs {
		item, err := parseMaterialItem(spec)
		if err != nil {
			return invoice.MaterialInvoice{}, err
		}
		items = append(items, item)
	}

	addr, err := validation.Email(sample.email)
	if err != nil {
		return invoice.MaterialInvoice{}, err
	}
	customer, err := invoice.NewCustomer(sample.name, addr, sample.address, sample.phone)
	if err != nil {
		return invoice.MaterialInvoice{}, err
	}

	issue := now
	if sample.issueDate != "" {
		if issue, err = validation.Date(sample.issueDate, "issue_date"); err != nil {
			return invoice.MaterialInvoice{}, err
		}
	}

	number := sample.number
	if number == "" {
		number = "MAT-" + now.Format("20060102150405")
	}

	return invoice.NewMaterialInvoice(invoice.MaterialParams{
		Number:        number,
		Customer:      customer,
		GSTIN:         sample.gstin,
		PlaceOfSupply: sample.placeOfSupply,
		Items:         items,
		IssueDate:     issue,
		DueDate:       issue.AddDate(0, 0, invoice.DefaultPaymentTermDays),
		Notes:         sample.notes,
	})
}

// runMaterialSample renders the material invoice to the output folder, or
// to <output>/preview with --preview.
func runMaterialSample(out io.Writer, cfg *config.Config, logger logging.Logger, now time.Time) error {
	inv, err := sampleMaterialInvoice(now)
	if err != nil {
		return err
	}

	var path string
	if sample.preview {
		name := utils.GenerateOutputFileName("preview_{invoice_number}", ".pdf", map[string]string{
			"invoice_number": inv.Number(),
		})
		path = filepath.Join(cfg.Output.Folder, "preview", name)
	}

	written, err := render.NewRenderer(cfg, logger).RenderMaterial(inv, path)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Material invoice %s written to %s\n", inv.Number(), written)
	fmt.Fprintf(out, "Subtotal:    %s%s\n", cfg.Invoice.CurrencySymbol, invoice.FormatAmount(inv.Subtotal()))
	fmt.Fprintf(out, "Total GST:   %s%s\n", cfg.Invoice.CurrencySymbol, invoice.FormatAmount(inv.TotalGST()))
	fmt.Fprintf(out, "Grand Total: %s%s\n", cfg.Invoice.CurrencySymbol, invoice.FormatAmount(inv.GrandTotal()))
	return nil
}
