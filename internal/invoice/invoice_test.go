package invoice

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func mustCustomer(t *testing.T) Customer {
	t.Helper()
	c, err := NewCustomer("Acme Traders", "billing@acme.in", "12 MG Road\nBengaluru", "")
	require.NoError(t, err)
	return c
}

func mustItem(t *testing.T, desc string, qty int64, price string) InvoiceItem {
	t.Helper()
	item, err := NewInvoiceItem(desc, qty, dec(price))
	require.NoError(t, err)
	return item
}

func baseParams(t *testing.T) Params {
	issue := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return Params{
		Number:   "INV-001",
		Customer: mustCustomer(t),
		Items: []InvoiceItem{
			mustItem(t, "Widget", 2, "10.00"),
			mustItem(t, "Gadget", 1, "5.00"),
		},
		IssueDate:    issue,
		DueDate:      issue.AddDate(0, 0, DefaultPaymentTermDays),
		TaxRate:      dec("0.18"),
		DiscountRate: decimal.Zero,
	}
}

func TestNewCustomer(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		address string
		kind    error
		field   string
	}{
		{name: "valid", email: "a@b.co", address: "x"},
		{name: "no at", email: "ab.co", address: "x", kind: ErrInvalidFormat, field: "email"},
		{name: "two ats", email: "a@b@c.co", address: "x", kind: ErrInvalidFormat, field: "email"},
		{name: "no dot in domain", email: "a.b@localhost", address: "x", kind: ErrInvalidFormat, field: "email"},
		{name: "empty domain", email: "a@", address: "x", kind: ErrInvalidFormat, field: "email"},
		{name: "header injection", email: "a@b.co\r\nBcc: x@y.co", address: "x", kind: ErrInvalidFormat, field: "email"},
		{name: "inner space", email: "a b@c.co", address: "x", kind: ErrInvalidFormat, field: "email"},
		{name: "blank email", email: " ", address: "x", kind: ErrMissingField, field: "email"},
		{name: "blank address", email: "a@b.co", address: "", kind: ErrMissingField, field: "address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCustomer("Name", tt.email, tt.address, "")
			if tt.kind == nil {
				require.NoError(t, err)
				assert.Equal(t, tt.email, c.Email())
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	_, err := NewCustomer("", "a@b.co", "x", "")
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestNewInvoiceItem(t *testing.T) {
	item, err := NewInvoiceItem("Widget", 3, dec("1.10"))
	require.NoError(t, err)
	assert.True(t, item.LineTotal().Equal(dec("3.30")))

	free, err := NewInvoiceItem("Sample", 1, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, free.LineTotal().IsZero())

	_, err = NewInvoiceItem("Widget", 0, dec("1"))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = NewInvoiceItem("Widget", -2, dec("1"))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = NewInvoiceItem("Widget", 1, dec("-0.01"))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = NewInvoiceItem("  ", 1, dec("1"))
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestInvoice_DerivedAmounts(t *testing.T) {
	inv, err := NewInvoice(baseParams(t))
	require.NoError(t, err)

	assert.Equal(t, "25.00", FormatAmount(inv.Subtotal()))
	assert.Equal(t, "0.00", FormatAmount(inv.DiscountAmount()))
	assert.Equal(t, "25.00", FormatAmount(inv.TaxableAmount()))
	assert.Equal(t, "4.50", FormatAmount(inv.TaxAmount()))
	assert.Equal(t, "29.50", FormatAmount(inv.TotalAmount()))
}

func TestInvoice_DiscountBeforeTax(t *testing.T) {
	p := baseParams(t)
	p.DiscountRate = dec("0.10")
	p.TaxRate = dec("0.08")
	inv, err := NewInvoice(p)
	require.NoError(t, err)

	assert.True(t, inv.DiscountAmount().Equal(dec("2.5")))
	assert.True(t, inv.TaxableAmount().Equal(dec("22.5")))
	assert.True(t, inv.TaxAmount().Equal(dec("1.8")))
	assert.True(t, inv.TotalAmount().Equal(dec("24.3")))
}

func TestInvoice_NoFloatingPointDrift(t *testing.T) {
	p := baseParams(t)
	p.Items = nil
	for i := 0; i < 10; i++ {
		p.Items = append(p.Items, mustItem(t, "Cent", 1, "0.10"))
	}
	inv, err := NewInvoice(p)
	require.NoError(t, err)
	assert.True(t, inv.Subtotal().Equal(dec("1")), "got %s", inv.Subtotal())
}

func TestInvoice_SubtotalIndependentOfItemOrder(t *testing.T) {
	p := baseParams(t)
	p.Items = []InvoiceItem{
		mustItem(t, "A", 3, "19.99"),
		mustItem(t, "B", 7, "0.01"),
		mustItem(t, "C", 1, "1234.5678"),
	}
	forward, err := NewInvoice(p)
	require.NoError(t, err)

	p.Items = []InvoiceItem{p.Items[2], p.Items[0], p.Items[1]}
	reversed, err := NewInvoice(p)
	require.NoError(t, err)

	assert.True(t, forward.Subtotal().Equal(reversed.Subtotal()))
	assert.True(t, forward.TotalAmount().Equal(reversed.TotalAmount()))
	assert.NotEqual(t, forward.Items()[0].Description(), reversed.Items()[0].Description())
}

func TestInvoice_TotalMonotonicInRates(t *testing.T) {
	rates := []string{"0", "0.05", "0.18", "0.5", "0.9999"}

	var prev decimal.Decimal
	for i, r := range rates {
		p := baseParams(t)
		p.TaxRate = dec(r)
		inv, err := NewInvoice(p)
		require.NoError(t, err)
		if i > 0 {
			assert.True(t, inv.TotalAmount().GreaterThanOrEqual(prev), "tax rate %s", r)
		}
		prev = inv.TotalAmount()
	}

	for i, r := range rates {
		p := baseParams(t)
		p.DiscountRate = dec(r)
		inv, err := NewInvoice(p)
		require.NoError(t, err)
		if i > 0 {
			assert.True(t, inv.TotalAmount().LessThanOrEqual(prev), "discount rate %s", r)
		}
		assert.False(t, inv.TotalAmount().IsNegative())
		prev = inv.TotalAmount()
	}
}

func TestNewInvoice_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Params)
		kind   error
		field  string
	}{
		{"blank number", func(p *Params) { p.Number = " " }, ErrMissingField, "invoice_number"},
		{"no items", func(p *Params) { p.Items = nil }, ErrEmptyCollection, "items"},
		{"due before issue", func(p *Params) { p.DueDate = p.IssueDate.AddDate(0, 0, -1) }, ErrInvalidRange, "due_date"},
		{"tax rate one", func(p *Params) { p.TaxRate = dec("1") }, ErrInvalidRange, "tax_rate"},
		{"negative discount", func(p *Params) { p.DiscountRate = dec("-0.1") }, ErrInvalidRange, "discount_rate"},
		{"zero customer", func(p *Params) { p.Customer = Customer{} }, ErrMissingField, "customer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := baseParams(t)
			tt.mutate(&p)
			_, err := NewInvoice(p)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestNewInvoice_DueDateEqualToIssue(t *testing.T) {
	p := baseParams(t)
	p.DueDate = p.IssueDate
	_, err := NewInvoice(p)
	assert.NoError(t, err)
}

func TestInvoice_ItemsAreCopied(t *testing.T) {
	p := baseParams(t)
	inv, err := NewInvoice(p)
	require.NoError(t, err)

	p.Items[0] = mustItem(t, "Changed", 100, "100")
	assert.Equal(t, "Widget", inv.Items()[0].Description())

	items := inv.Items()
	items[0] = mustItem(t, "Changed", 100, "100")
	assert.Equal(t, "Widget", inv.Items()[0].Description())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "29.50", FormatAmount(dec("29.5")))
	assert.Equal(t, "0.01", FormatAmount(dec("0.005")))
	assert.Equal(t, "8.0%", FormatRate(DefaultTaxRate))
	assert.Equal(t, "12.5%", FormatRate(dec("0.125")))
}

func TestValidationError_Message(t *testing.T) {
	err := NewValidationError(ErrInvalidRange, "quantity", int64(0), "quantity must be positive")
	assert.Equal(t, `quantity: quantity must be positive (value: "0")`, err.Error())
	assert.Equal(t, "email: missing required field", MissingField("email").Error())
}
