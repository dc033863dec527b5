// =============================================================================
// Invoice Batch Generator - Batch Validation Pipeline
// =============================================================================
//
// This package turns flat billing rows into validated invoices.
//
// PIPELINE:
//   1. Group rows by record identifier (GroupRows)
//   2. For each group, in first-occurrence order:
//      a. Customer fields from the first row
//      b. Issue and due dates from the first row
//      c. Invoice number, synthesized when absent
//      d. Tax and discount rates, defaulted when absent
//      e. One line item per row
//      f. invoice.NewInvoice
//   3. Collect valid invoices and per-record error lines
//
// ERROR HANDLING:
//   The first failure in a group aborts that group only and is reported as
//   "Record {id}: {detail}". The batch itself never fails.
//
// CONCURRENCY:
//   Groups are independent. With Workers > 1 they are validated in parallel,
//   each outcome stored in the slot of its group, so the output order is the
//   same as for a sequential run.
//
// =============================================================================

package pipeline

import (
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/invoice-batch/internal/invoice"
	"github.com/ginjaninja78/invoice-batch/internal/logging"
	"github.com/ginjaninja78/invoice-batch/internal/types"
	"github.com/ginjaninja78/invoice-batch/internal/validation"
)

// =============================================================================
// PIPELINE STRUCTURE
// =============================================================================

// Options configures a Pipeline. The zero value is usable.
type Options struct {
	// Logger receives progress and per-record diagnostics. Defaults to a
	// no-op logger.
	Logger logging.Logger

	// Clock supplies the timestamp of synthesized invoice numbers. Defaults
	// to time.Now.
	Clock func() time.Time

	// Workers is the number of groups validated concurrently. Values below
	// 2 validate sequentially.
	Workers int
}

// Pipeline validates batches of billing rows.
type Pipeline struct {
	logger  logging.Logger
	clock   func() time.Time
	workers int
}

// outcome is the result of validating one group.
type outcome struct {
	invoice invoice.Invoice
	err     error
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		logger:  logging.OrNop(opts.Logger),
		clock:   opts.Clock,
		workers: opts.Workers,
	}
	if p.clock == nil {
		p.clock = time.Now
	}
	return p
}

// =============================================================================
// MAIN VALIDATION FUNCTION
// =============================================================================

// Validate groups rows into records and validates each one.
//
// PARAMETERS:
//   - rows: the flat billing rows, in source order
//
// RETURNS:
//   - The valid invoices, in group order
//   - One error line per failed group, in group order
func (p *Pipeline) Validate(rows []types.Row) ([]invoice.Invoice, []string) {
	groups := GroupRows(rows)
	p.logger.Debug("Grouped %d rows into %d records", len(rows), len(groups))

	// One invoice number timestamp per batch.
	now := p.clock()
	outcomes := make([]outcome, len(groups))

	if p.workers > 1 && len(groups) > 1 {
		var g errgroup.Group
		g.SetLimit(p.workers)
		for i := range groups {
			i := i
			g.Go(func() error {
				inv, err := validateGroup(groups[i], now)
				outcomes[i] = outcome{invoice: inv, err: err}
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range groups {
			inv, err := validateGroup(groups[i], now)
			outcomes[i] = outcome{invoice: inv, err: err}
		}
	}

	var (
		invoices []invoice.Invoice
		errs     []string
	)
	for i, o := range outcomes {
		if o.err != nil {
			line := fmt.Sprintf("Record %s: %v", displayID(groups[i].RecordID), o.err)
			p.logger.Warn("%s", line)
			errs = append(errs, line)
			continue
		}
		invoices = append(invoices, o.invoice)
	}

	p.logger.Info("Validated %d records: %d valid, %d with errors", len(groups), len(invoices), len(errs))
	return invoices, errs
}

// =============================================================================
// GROUP VALIDATION
// =============================================================================

// validateGroup builds the invoice of one group, stopping at the first
// failure.
func validateGroup(g Group, now time.Time) (invoice.Invoice, error) {
	if g.RecordID == "" {
		return invoice.Invoice{}, invoice.MissingField(types.FieldRecordID)
	}
	first := g.Rows[0]

	customer, err := validateCustomer(first)
	if err != nil {
		return invoice.Invoice{}, err
	}

	issue, err := validation.Date(first.First(types.FieldIssueDate, types.FieldBillingDate), types.FieldIssueDate)
	if err != nil {
		return invoice.Invoice{}, err
	}
	due, err := validation.DueDate(first.Get(types.FieldDueDate), issue)
	if err != nil {
		return invoice.Invoice{}, err
	}

	number := validation.InvoiceNumber(first.Get(types.FieldInvoiceNumber), g.RecordID, now)

	taxRate, err := validation.Rate(first.Get(types.FieldTaxRate), types.FieldTaxRate, invoice.DefaultTaxRate)
	if err != nil {
		return invoice.Invoice{}, err
	}
	discountRate, err := validation.Rate(first.Get(types.FieldDiscountRate), types.FieldDiscountRate, invoice.DefaultDiscountRate)
	if err != nil {
		return invoice.Invoice{}, err
	}

	items := make([]invoice.InvoiceItem, 0, len(g.Rows))
	for _, row := range g.Rows {
		item, err := validateItem(row)
		if err != nil {
			return invoice.Invoice{}, err
		}
		items = append(items, item)
	}

	return invoice.NewInvoice(invoice.Params{
		Number:       number,
		Customer:     customer,
		Items:        items,
		IssueDate:    issue,
		DueDate:      due,
		TaxRate:      taxRate,
		DiscountRate: discountRate,
		Notes:        validation.OptionalText(first.Get(types.FieldNotes)),
	})
}

func validateCustomer(row types.Row) (invoice.Customer, error) {
	name, err := validation.RequiredText(row.Get(types.FieldName), types.FieldName)
	if err != nil {
		return invoice.Customer{}, err
	}
	email, err := validation.Email(row.Get(types.FieldEmail))
	if err != nil {
		return invoice.Customer{}, err
	}
	address, err := validation.RequiredText(row.Get(types.FieldAddress), types.FieldAddress)
	if err != nil {
		return invoice.Customer{}, err
	}
	phone := validation.OptionalText(row.Get(types.FieldPhone))

	return invoice.NewCustomer(name, email, address, phone)
}

func validateItem(row types.Row) (invoice.InvoiceItem, error) {
	description, err := validation.RequiredText(row.Get(types.FieldDescription), types.FieldDescription)
	if err != nil {
		return invoice.InvoiceItem{}, err
	}
	quantity, err := validation.PositiveInt(row.Get(types.FieldQuantity), types.FieldQuantity)
	if err != nil {
		return invoice.InvoiceItem{}, err
	}
	unitPrice, err := validation.Decimal(row.Get(types.FieldUnitPrice), types.FieldUnitPrice)
	if err != nil {
		return invoice.InvoiceItem{}, err
	}
	return invoice.NewInvoiceItem(description, quantity, unitPrice)
}

func displayID(id string) string {
	if id == "" {
		return validation.UnknownRecordID
	}
	return id
}
