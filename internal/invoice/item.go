package invoice

import (
	"strings"

	"github.com/shopspring/decimal"
)

// InvoiceItem is a single billed line.
type InvoiceItem struct {
	description string
	quantity    int64
	unitPrice   decimal.Decimal
}

// NewInvoiceItem validates and returns an InvoiceItem. quantity must be
// strictly positive and unitPrice must not be negative.
func NewInvoiceItem(description string, quantity int64, unitPrice decimal.Decimal) (InvoiceItem, error) {
	if strings.TrimSpace(description) == "" {
		return InvoiceItem{}, MissingField("description")
	}
	if quantity <= 0 {
		return InvoiceItem{}, NewValidationError(ErrInvalidRange, "quantity", quantity, "quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return InvoiceItem{}, NewValidationError(ErrInvalidRange, "unit_price", unitPrice, "unit price cannot be negative")
	}

	return InvoiceItem{
		description: description,
		quantity:    quantity,
		unitPrice:   unitPrice,
	}, nil
}

func (i InvoiceItem) Description() string { return i.description }
func (i InvoiceItem) Quantity() int64 { return i.quantity }
func (i InvoiceItem) UnitPrice() decimal.Decimal { return i.unitPrice }

// LineTotal returns quantity × unit price. It is recomputed on every call.
func (i InvoiceItem) LineTotal() decimal.Decimal {
	return i.unitPrice.Mul(decimal.NewFromInt(i.quantity))
}
