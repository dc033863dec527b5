package invoice

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// gstinPattern is the 15 character GST identification number: state code,
// PAN, entity number, the letter Z and a check character.
var gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)

// IsValidGSTIN reports whether gstin has the shape of a GSTIN. The check
// character is not verified.
func IsValidGSTIN(gstin string) bool {
	return gstinPattern.MatchString(gstin)
}

// MaterialItem is a line of a material invoice: a fractional quantity in a
// unit of measure, a rate per unit and its own GST rate.
type MaterialItem struct {
	description string
	quantity    decimal.Decimal
	unit        string
	rate        decimal.Decimal
	gstRate     decimal.Decimal
}

// NewMaterialItem validates and returns a MaterialItem. quantity must be
// strictly positive, rate must not be negative and gstRate must lie in
// [0, 1).
func NewMaterialItem(description string, quantity decimal.Decimal, unit string, rate, gstRate decimal.Decimal) (MaterialItem, error) {
	if strings.TrimSpace(description) == "" {
		return MaterialItem{}, MissingField("description")
	}
	if !quantity.IsPositive() {
		return MaterialItem{}, NewValidationError(ErrInvalidRange, "quantity", quantity, "quantity must be positive")
	}
	if strings.TrimSpace(unit) == "" {
		return MaterialItem{}, MissingField("unit")
	}
	if rate.IsNegative() {
		return MaterialItem{}, NewValidationError(ErrInvalidRange, "rate", rate, "rate cannot be negative")
	}
	if err := checkRate("gst_rate", gstRate); err != nil {
		return MaterialItem{}, err
	}

	return MaterialItem{
		description: strings.TrimSpace(description),
		quantity:    quantity,
		unit:        strings.TrimSpace(unit),
		rate:        rate,
		gstRate:     gstRate,
	}, nil
}

func (m MaterialItem) Description() string       { return m.description }
func (m MaterialItem) Quantity() decimal.Decimal { return m.quantity }
func (m MaterialItem) Unit() string              { return m.unit }
func (m MaterialItem) Rate() decimal.Decimal     { return m.rate }
func (m MaterialItem) GSTRate() decimal.Decimal  { return m.gstRate }

// Label is the description followed by the quantity and unit, e.g.
// "Steel Rods (12.5 kg)".
func (m MaterialItem) Label() string {
	return fmt.Sprintf("%s (%s %s)", m.description, m.quantity.String(), m.unit)
}

// BasicAmount is quantity × rate, before GST.
func (m MaterialItem) BasicAmount() decimal.Decimal {
	return m.quantity.Mul(m.rate)
}

// GSTAmount is BasicAmount × GSTRate.
func (m MaterialItem) GSTAmount() decimal.Decimal {
	return m.BasicAmount().Mul(m.gstRate)
}

// Total is the basic amount plus GST.
func (m MaterialItem) Total() decimal.Decimal {
	return m.BasicAmount().Add(m.GSTAmount())
}

// GSTBand totals the items that share one GST rate.
type GSTBand struct {
	Rate    decimal.Decimal
	Taxable decimal.Decimal
	GST     decimal.Decimal
}

// MaterialParams carries the raw inputs of NewMaterialInvoice.
type MaterialParams struct {
	Number        string
	Customer      Customer
	GSTIN         string
	PlaceOfSupply string
	Items         []MaterialItem
	IssueDate     time.Time
	DueDate       time.Time
	Notes         string
}

// MaterialInvoice is a validated tax invoice for goods, where every line
// carries its own GST rate.
type MaterialInvoice struct {
	number        string
	customer      Customer
	gstin         string
	placeOfSupply string
	items         []MaterialItem
	issueDate     time.Time
	dueDate       time.Time
	notes         string
}

// NewMaterialInvoice validates p and returns a MaterialInvoice. The
// customer GSTIN is optional; when present it is upper-cased and must be a
// well-formed GSTIN.
func NewMaterialInvoice(p MaterialParams) (MaterialInvoice, error) {
	if strings.TrimSpace(p.Number) == "" {
		return MaterialInvoice{}, MissingField("invoice_number")
	}
	if p.Customer == (Customer{}) {
		return MaterialInvoice{}, MissingField("customer")
	}
	gstin := strings.ToUpper(strings.TrimSpace(p.GSTIN))
	if gstin != "" && !IsValidGSTIN(gstin) {
		return MaterialInvoice{}, NewValidationError(ErrInvalidFormat, "gstin", p.GSTIN, "invalid GSTIN")
	}
	if len(p.Items) == 0 {
		return MaterialInvoice{}, NewValidationError(ErrEmptyCollection, "items", nil, "invoice must have at least one item")
	}
	if p.IssueDate.IsZero() {
		return MaterialInvoice{}, MissingField("issue_date")
	}
	if p.DueDate.IsZero() {
		return MaterialInvoice{}, MissingField("due_date")
	}
	if p.DueDate.Before(p.IssueDate) {
		return MaterialInvoice{}, NewValidationError(ErrInvalidRange, "due_date", p.DueDate.Format(time.DateOnly),
			"due date cannot be before issue date")
	}

	items := make([]MaterialItem, len(p.Items))
	copy(items, p.Items)

	return MaterialInvoice{
		number:        p.Number,
		customer:      p.Customer,
		gstin:         gstin,
		placeOfSupply: strings.TrimSpace(p.PlaceOfSupply),
		items:         items,
		issueDate:     p.IssueDate,
		dueDate:       p.DueDate,
		notes:         p.Notes,
	}, nil
}

func (inv MaterialInvoice) Number() string        { return inv.number }
func (inv MaterialInvoice) Customer() Customer    { return inv.customer }
func (inv MaterialInvoice) GSTIN() string         { return inv.gstin }
func (inv MaterialInvoice) PlaceOfSupply() string { return inv.placeOfSupply }
func (inv MaterialInvoice) IssueDate() time.Time  { return inv.issueDate }
func (inv MaterialInvoice) DueDate() time.Time    { return inv.dueDate }
func (inv MaterialInvoice) Notes() string         { return inv.notes }

// Items returns a copy of the lines in display order.
func (inv MaterialInvoice) Items() []MaterialItem {
	out := make([]MaterialItem, len(inv.items))
	copy(out, inv.items)
	return out
}

// Subtotal is the sum of the basic amounts, before GST.
func (inv MaterialInvoice) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range inv.items {
		sum = sum.Add(item.BasicAmount())
	}
	return sum
}

// TotalGST is the sum of the per-line GST amounts.
func (inv MaterialInvoice) TotalGST() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range inv.items {
		sum = sum.Add(item.GSTAmount())
	}
	return sum
}

// GrandTotal is Subtotal plus TotalGST.
func (inv MaterialInvoice) GrandTotal() decimal.Decimal {
	return inv.Subtotal().Add(inv.TotalGST())
}

// GSTSummary groups the lines by GST rate, lowest rate first.
func (inv MaterialInvoice) GSTSummary() []GSTBand {
	byRate := make(map[string]*GSTBand)
	var bands []*GSTBand
	for _, item := range inv.items {
		key := item.gstRate.String()
		band, ok := byRate[key]
		if !ok {
			band = &GSTBand{Rate: item.gstRate, Taxable: decimal.Zero, GST: decimal.Zero}
			byRate[key] = band
			bands = append(bands, band)
		}
		band.Taxable = band.Taxable.Add(item.BasicAmount())
		band.GST = band.GST.Add(item.GSTAmount())
	}

	sort.Slice(bands, func(i, j int) bool { return bands[i].Rate.LessThan(bands[j].Rate) })
	out := make([]GSTBand, len(bands))
	for i, b := range bands {
		out[i] = *b
	}
	return out
}
