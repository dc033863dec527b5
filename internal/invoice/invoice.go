// Package invoice holds the billing domain model: customers, line items and
// invoices, with their derived amounts computed in exact decimal arithmetic.
//
// Every type is an immutable value. The New* constructors are the only way
// to obtain a value, and they reject any input that breaks an invariant with
// a *ValidationError.
package invoice

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Domain defaults applied when a billing record does not carry its own value.
var (
	DefaultTaxRate      = decimal.RequireFromString("0.08")
	DefaultDiscountRate = decimal.Zero
)

// DefaultPaymentTermDays is the number of days between issue and due date
// when a record has no explicit due date.
const DefaultPaymentTermDays = 30

// Params carries the raw inputs of NewInvoice.
type Params struct {
	Number       string
	Customer     Customer
	Items        []InvoiceItem
	IssueDate    time.Time
	DueDate      time.Time
	TaxRate      decimal.Decimal
	DiscountRate decimal.Decimal
	Notes        string
}

// Invoice is a validated invoice. Derived amounts are recomputed from the
// items and rates on every call and are never stored.
type Invoice struct {
	number       string
	customer     Customer
	items        []InvoiceItem
	issueDate    time.Time
	dueDate      time.Time
	taxRate      decimal.Decimal
	discountRate decimal.Decimal
	notes        string
}

// NewInvoice validates p and returns an Invoice.
//
// The number must be non-blank, there must be at least one item, the due date
// must not precede the issue date and both rates must lie in [0, 1). The items
// slice is copied, so later changes to p.Items do not affect the invoice.
func NewInvoice(p Params) (Invoice, error) {
	if strings.TrimSpace(p.Number) == "" {
		return Invoice{}, MissingField("invoice_number")
	}
	if p.Customer == (Customer{}) {
		return Invoice{}, MissingField("customer")
	}
	if len(p.Items) == 0 {
		return Invoice{}, NewValidationError(ErrEmptyCollection, "items", nil, "invoice must have at least one item")
	}
	if p.IssueDate.IsZero() {
		return Invoice{}, MissingField("issue_date")
	}
	if p.DueDate.IsZero() {
		return Invoice{}, MissingField("due_date")
	}
	if p.DueDate.Before(p.IssueDate) {
		return Invoice{}, NewValidationError(ErrInvalidRange, "due_date", p.DueDate.Format(time.DateOnly),
			"due date cannot be before issue date")
	}
	if err := checkRate("tax_rate", p.TaxRate); err != nil {
		return Invoice{}, err
	}
	if err := checkRate("discount_rate", p.DiscountRate); err != nil {
		return Invoice{}, err
	}

	items := make([]InvoiceItem, len(p.Items))
	copy(items, p.Items)

	return Invoice{
		number:       p.Number,
		customer:     p.Customer,
		items:        items,
		issueDate:    p.IssueDate,
		dueDate:      p.DueDate,
		taxRate:      p.TaxRate,
		discountRate: p.DiscountRate,
		notes:        p.Notes,
	}, nil
}

func checkRate(field string, rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return NewValidationError(ErrInvalidRange, field, rate, "rate must be between 0 and 1")
	}
	return nil
}

// ---- accessors ----

func (inv Invoice) Number() string                { return inv.number }
func (inv Invoice) Customer() Customer            { return inv.customer }
func (inv Invoice) IssueDate() time.Time          { return inv.issueDate }
func (inv Invoice) DueDate() time.Time            { return inv.dueDate }
func (inv Invoice) TaxRate() decimal.Decimal      { return inv.taxRate }
func (inv Invoice) DiscountRate() decimal.Decimal { return inv.discountRate }
func (inv Invoice) Notes() string                 { return inv.notes }

// Items returns a copy of the line items in display order.
func (inv Invoice) Items() []InvoiceItem {
	out := make([]InvoiceItem, len(inv.items))
	copy(out, inv.items)
	return out
}

// ---- derived amounts ----

// Subtotal is the sum of all line totals.
func (inv Invoice) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range inv.items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// DiscountAmount is Subtotal × DiscountRate.
func (inv Invoice) DiscountAmount() decimal.Decimal {
	return inv.Subtotal().Mul(inv.discountRate)
}

// TaxableAmount is the subtotal after discount.
func (inv Invoice) TaxableAmount() decimal.Decimal {
	return inv.Subtotal().Sub(inv.DiscountAmount())
}

// TaxAmount is TaxableAmount × TaxRate.
func (inv Invoice) TaxAmount() decimal.Decimal {
	return inv.TaxableAmount().Mul(inv.taxRate)
}

// TotalAmount is the taxable amount plus tax. It is never negative for a
// valid invoice.
func (inv Invoice) TotalAmount() decimal.Decimal {
	return inv.TaxableAmount().Add(inv.TaxAmount())
}
