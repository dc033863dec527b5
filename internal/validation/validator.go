// =============================================================================
// Invoice Batch Generator - Field Validators
// =============================================================================
//
// This package turns raw row values into validated, normalized Go values.
// There is one function per semantic field. Each takes the raw value exactly
// as the row source produced it and returns either the normalized value or an
// *invoice.ValidationError.
//
// ACCEPTED RAW VALUES:
//   Row sources hand over heterogeneous values:
//   - string           (CSV, XLSX cells)
//   - []byte           (NUMERIC columns from database/sql drivers)
//   - int / int64 / float64 and friends (document stores)
//   - decimal.Decimal  (already-typed values)
//   - time.Time        (DATE / TIMESTAMP columns, BSON dates)
//   - nil              (absent value)
//
// ERROR HANDLING:
//   - Absent or blank values yield ErrMissingField
//   - Unparseable values yield ErrInvalidFormat
//   - Out-of-range values yield ErrInvalidRange
//
// =============================================================================

package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/invoice-batch/internal/invoice"
)

// =============================================================================
// DATE FORMATS
// =============================================================================

// DateFormats lists the layouts tried for string dates, in order. The first
// layout that parses wins.
//
// The layouts are not zero-padded, so "3/4/2024" and "2024-3-4" parse as
// well as "03/04/2024" and "2024-03-04".
//
// NOTE: "1/2/2006" precedes "2/1/2006", so a string such as "03/04/2024"
// is read as March 4th. Day-first strings are only reached when the month
// position holds a value above 12.
var DateFormats = []string{
	"2006-1-2",
	"2006-1-2 15:04:05",
	"1/2/2006",
	"2/1/2006",
}

// invoiceNumberTimeLayout is the timestamp layout of synthesized numbers.
const invoiceNumberTimeLayout = "20060102150405"

// UnknownRecordID stands in for a missing record identifier.
const UnknownRecordID = "UNK"

// =============================================================================
// TEXT FIELDS
// =============================================================================

// RequiredText returns the trimmed text of value, or ErrMissingField when
// value is absent or blank.
func RequiredText(value any, field string) (string, error) {
	s := OptionalText(value)
	if s == "" {
		return "", invoice.MissingField(field)
	}
	return s, nil
}

// OptionalText returns the trimmed text of value, or "" when absent.
func OptionalText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case []byte:
		return strings.TrimSpace(string(v))
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Email trims and lowercases the address, then checks its format.
func Email(value any) (string, error) {
	s, err := RequiredText(value, "email")
	if err != nil {
		return "", err
	}
	s = strings.ToLower(s)
	if !invoice.IsValidEmail(s) {
		return "", invoice.NewValidationError(invoice.ErrInvalidFormat, "email", s, "invalid email format")
	}
	return s, nil
}

// InvoiceNumber returns the trimmed invoice number, or synthesizes
// INV-{recordID}-{YYYYMMDDHHMMSS} from now when value is absent or blank.
func InvoiceNumber(value any, recordID string, now time.Time) string {
	if s := OptionalText(value); s != "" {
		return s
	}
	if recordID == "" {
		recordID = UnknownRecordID
	}
	return fmt.Sprintf("INV-%s-%s", recordID, now.Format(invoiceNumberTimeLayout))
}

// =============================================================================
// NUMERIC FIELDS
// =============================================================================

// Decimal parses value as an exact decimal and rejects negative values.
//
// PARAMETERS:
//   - value: the raw value
//   - field: the field name used in errors
//
// RETURNS:
//   - The parsed decimal
//   - ErrMissingField, ErrInvalidFormat or ErrInvalidRange
func Decimal(value any, field string) (decimal.Decimal, error) {
	d, err := parseDecimal(value, field)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, invoice.NewValidationError(invoice.ErrInvalidRange, field, d, "value cannot be negative")
	}
	return d, nil
}

// Rate parses a rate field, falling back to def when value is absent. The
// [0, 1) range itself is enforced by invoice.NewInvoice.
func Rate(value any, field string, def decimal.Decimal) (decimal.Decimal, error) {
	if isAbsent(value) {
		return def, nil
	}
	return Decimal(value, field)
}

func parseDecimal(value any, field string) (decimal.Decimal, error) {
	invalid := func() (decimal.Decimal, error) {
		return decimal.Zero, invoice.NewValidationError(invoice.ErrInvalidFormat, field, value, "invalid decimal value")
	}

	switch v := value.(type) {
	case nil:
		return decimal.Zero, invoice.MissingField(field)
	case decimal.Decimal:
		return v, nil
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, invoice.MissingField(field)
		}
		return *v, nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float32:
		return parseFloat(float64(v), invalid)
	case float64:
		return parseFloat(v, invalid)
	}

	s := OptionalText(value)
	if s == "" {
		return decimal.Zero, invoice.MissingField(field)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return invalid()
	}
	return d, nil
}

func parseFloat(f float64, invalid func() (decimal.Decimal, error)) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return invalid()
	}
	// Shortest decimal representation of the float, e.g. 0.1 -> "0.1".
	return decimal.NewFromString(strconv.FormatFloat(f, 'f', -1, 64))
}

// PositiveInt parses a quantity. Only whole numbers are accepted; floats and
// decimals are accepted when they carry no fractional part.
func PositiveInt(value any, field string) (int64, error) {
	n, err := parseInt(value, field)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, invoice.NewValidationError(invoice.ErrInvalidRange, field, n, "value must be positive")
	}
	return n, nil
}

func parseInt(value any, field string) (int64, error) {
	invalid := invoice.NewValidationError(invoice.ErrInvalidFormat, field, value, "invalid integer value")

	switch v := value.(type) {
	case nil:
		return 0, invoice.MissingField(field)
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint32:
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || v > math.MaxInt64 || v < math.MinInt64 {
			return 0, invalid
		}
		return int64(v), nil
	case decimal.Decimal:
		if !v.IsInteger() {
			return 0, invalid
		}
		return v.IntPart(), nil
	}

	s := OptionalText(value)
	if s == "" {
		return 0, invoice.MissingField(field)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, invalid
	}
	return n, nil
}

// =============================================================================
// DATE FIELDS
// =============================================================================

// Date accepts a time.Time as-is and parses strings against DateFormats.
func Date(value any, field string) (time.Time, error) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, invoice.MissingField(field)
	case time.Time:
		if v.IsZero() {
			return time.Time{}, invoice.MissingField(field)
		}
		return v, nil
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, invoice.MissingField(field)
		}
		return *v, nil
	}

	s := OptionalText(value)
	if s == "" {
		return time.Time{}, invoice.MissingField(field)
	}
	for _, layout := range DateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, invoice.NewValidationError(invoice.ErrInvalidFormat, field, s, "unrecognized date format")
}

// DueDate parses the due date, or returns issue plus the default payment
// term when value is absent.
func DueDate(value any, issue time.Time) (time.Time, error) {
	if isAbsent(value) {
		return issue.AddDate(0, 0, invoice.DefaultPaymentTermDays), nil
	}
	return Date(value, "due_date")
}

func isAbsent(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case time.Time:
		return v.IsZero()
	default:
		return OptionalText(value) == ""
	}
}
