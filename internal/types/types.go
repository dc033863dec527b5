// =============================================================================
// Invoice Batch Generator - Shared Types
// =============================================================================
//
// This package contains the flat billing row type shared by the row sources,
// the batch pipeline and the CLI. Keeping it here avoids import cycles between:
//   - source
//   - pipeline
//   - generator
//
// =============================================================================

package types

import (
	"fmt"
	"strings"
)

// =============================================================================
// ROW FIELD NAMES
// =============================================================================
// Canonical keys of a flattened billing row. Every source maps its own column
// names or document paths onto these keys before handing rows downstream.

const (
	FieldRecordID      = "record_id"
	FieldName          = "name"
	FieldEmail         = "email"
	FieldAddress       = "address"
	FieldPhone         = "phone"
	FieldInvoiceNumber = "invoice_number"
	FieldDescription   = "description"
	FieldQuantity      = "quantity"
	FieldUnitPrice     = "unit_price"
	FieldIssueDate     = "issue_date"
	FieldBillingDate   = "billing_date"
	FieldDueDate       = "due_date"
	FieldTaxRate       = "tax_rate"
	FieldDiscountRate  = "discount_rate"
	FieldNotes         = "notes"
)

// recordIDKeys lists the keys that may carry the record identifier, in
// lookup order. Relational joins expose "id", document stores expose "_id".
var recordIDKeys = []string{FieldRecordID, "id", "_id"}

// =============================================================================
// ROW TYPE
// =============================================================================

// Row is one flattened billing row, as produced by a one-to-many join of a
// billing record with its line items. Values keep the type the source handed
// over (string, numeric, []byte, time.Time, nil); the field validators
// normalize them.
type Row map[string]any

// Get returns the raw value stored under key, or nil when absent.
func (r Row) Get(key string) any {
	if r == nil {
		return nil
	}
	return r[key]
}

// Has reports whether key is present with a non-blank value.
func (r Row) Has(key string) bool {
	v, ok := r[key]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// First returns the value of the first key that holds a non-blank value.
func (r Row) First(keys ...string) any {
	for _, key := range keys {
		if r.Has(key) {
			return r[key]
		}
	}
	return nil
}

// RecordID returns the record identifier of the row as a string, or "" when
// the row carries none.
func (r Row) RecordID() string {
	v := r.First(recordIDKeys...)
	if v == nil {
		return ""
	}
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case []byte:
		return strings.TrimSpace(string(id))
	case fmt.Stringer:
		return id.String()
	default:
		return fmt.Sprint(id)
	}
}
