// =============================================================================
// Invoice Batch Generator - Create Sample Command
// =============================================================================
//
// COMMAND USAGE:
//   invoicer create-sample [flags]
//
// Builds one invoice from flags, runs it through the same validation as a
// batch record and renders it. With --preview the PDF goes to
// <output>/preview and nothing is saved or sent.
//
// With --material the command renders a material tax invoice instead:
// fractional quantities with units and a GST rate per item, given as
//   --item "Steel Rods|12.5|kg|65.00|0.18"
// (repeatable). Without --item a built-in list of construction materials
// is used.
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/invoice-batch/internal/invoice"
	"github.com/ginjaninja78/invoice-batch/internal/pipeline"
	"github.com/ginjaninja78/invoice-batch/internal/types"
)

var sample struct {
	number       string
	name         string
	email        string
	address      string
	phone        string
	description  string
	quantity     int64
	unitPrice    string
	issueDate    string
	taxRate      string
	discountRate string
	notes        string
	preview      bool
	sendEmail    bool

	material      bool
	items         []string
	gstin         string
	placeOfSupply string
}

var createSampleCmd = &cobra.Command{
	Use:   "create-sample",
	Short: "Render a single invoice built from flags",
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

		if sample.material {
			return runMaterialSample(cmd.OutOrStdout(), cfg, logger, time.Now())
		}

		inv, err := sampleInvoice(time.Now())
		if err != nil {
			return err
		}

		gen, err := buildGenerator(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer gen.Close()

		out := cmd.OutOrStdout()
		if sample.preview {
			path, err := gen.Preview(inv)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Preview written to %s\n", path)
			return nil
		}

		generated, err := gen.GenerateSingle(cmd.Context(), inv, sample.sendEmail)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Invoice %s written to %s\n", inv.Number(), generated.PDFPath)
		fmt.Fprintf(out, "Total: %s%s\n", cfg.Invoice.CurrencySymbol, invoice.FormatAmount(inv.TotalAmount()))
		if generated.Emailed {
			fmt.Fprintf(out, "Emailed to %s\n", inv.Customer().Email())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createSampleCmd)

	f := createSampleCmd.Flags()
	f.StringVar(&sample.number, "invoice-number", "", "Invoice number (default: generated)")
	f.StringVar(&sample.name, "name", "Sample Customer", "Customer name")
	f.StringVar(&sample.email, "email", "customer@example.com", "Customer email")
	f.StringVar(&sample.address, "address", "123 Sample Street, Mumbai", "Customer address")
	f.StringVar(&sample.phone, "phone", "", "Customer phone")
	f.StringVar(&sample.description, "description", "Professional Services", "Line item description")
	f.Int64Var(&sample.quantity, "quantity", 1, "Line item quantity")
	f.StringVar(&sample.unitPrice, "unit-price", "1000.00", "Line item unit price")
	f.StringVar(&sample.issueDate, "issue-date", "", "Issue date (YYYY-MM-DD, default today)")
	f.StringVar(&sample.taxRate, "tax-rate", invoice.DefaultTaxRate.String(), "Tax rate as a fraction")
	f.StringVar(&sample.discountRate, "discount-rate", "0", "Discount rate as a fraction")
	f.StringVar(&sample.notes, "notes", "", "Invoice notes")
	f.BoolVar(&sample.preview, "preview", false, "Render to the preview folder without saving or sending")
	f.BoolVar(&sample.sendEmail, "send-email", false, "Email the invoice to the customer")
	f.BoolVar(&sample.material, "material", false, "Render a material tax invoice with per-item GST")
	f.StringArrayVar(&sample.items, "item", nil, "Material item as description|quantity|unit|rate|gst_rate (repeatable)")
	f.StringVar(&sample.gstin, "gstin", "", "Customer GSTIN for material invoices")
	f.StringVar(&sample.placeOfSupply, "place-of-supply", "", "Place of supply for material invoices")
	createSampleCmd.MarkFlagsMutuallyExclusive("preview", "send-email")
	createSampleCmd.MarkFlagsMutuallyExclusive("material", "send-email")
}

// sampleInvoice validates the flags as a one-row batch.
func sampleInvoice(now time.Time) (invoice.Invoice, error) {
	issue := sample.issueDate
	if issue == "" {
		issue = now.Format(dateLayout)
	}

	row := types.Row{
		types.FieldRecordID:      "SAMPLE",
		types.FieldInvoiceNumber: sample.number,
		types.FieldName:          sample.name,
		types.FieldEmail:         sample.email,
		types.FieldAddress:       sample.address,
		types.FieldPhone:         sample.phone,
		types.FieldDescription:   sample.description,
		types.FieldQuantity:      sample.quantity,
		types.FieldUnitPrice:     sample.unitPrice,
		types.FieldIssueDate:     issue,
		types.FieldTaxRate:       sample.taxRate,
		types.FieldDiscountRate:  sample.discountRate,
		types.FieldNotes:         sample.notes,
	}

	p := pipeline.New(pipeline.Options{Clock: func() time.Time { return now }})
	invoices, errs := p.Validate([]types.Row{row})
	if len(errs) > 0 {
		return invoice.Invoice{}, errors.New(errs[0])
	}
	return invoices[0], nil
}
