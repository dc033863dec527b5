package render

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/invoice-batch/internal/invoice"
)

func testMaterialInvoice(t *testing.T, number string) invoice.MaterialInvoice {
	t.Helper()
	c, err := invoice.NewCustomer("ABC Construction Company", "accounts@abc.in", "123 Building Street\nMumbai 400001", "+91 98765 43210")
	require.NoError(t, err)

	d := decimal.RequireFromString
	rods, err := invoice.NewMaterialItem("Steel Rods (12mm TMT)", d("50.5"), "kg", d("65"), d("0.18"))
	require.NoError(t, err)
	cement, err := invoice.NewMaterialItem("Cement Bags (OPC 53 Grade)", d("20"), "bags", d("350"), d("0.28"))
	require.NoError(t, err)

	issue := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	inv, err := invoice.NewMaterialInvoice(invoice.MaterialParams{
		Number:        number,
		Customer:      c,
		GSTIN:         "27ABCDE1234F1Z5",
		PlaceOfSupply: "Maharashtra",
		Items:         []invoice.MaterialItem{rods, cement},
		IssueDate:     issue,
		DueDate:       issue.AddDate(0, 0, 30),
		Notes:         "Goods once sold will not be taken back.",
	})
	require.NoError(t, err)
	return inv
}

func TestRenderer_RenderMaterial(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.Company.GSTIN = "27XYZAB1234C1Z5"
	r := NewRenderer(cfg, nil)

	path, err := r.RenderMaterial(testMaterialInvoice(t, "MAT-20240301"), "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "material_invoice_MAT-20240301.pdf"), path)
	assertPDF(t, path)
}

func TestRenderer_RenderMaterialExplicitPath(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "preview", "material.pdf")

	path, err := NewRenderer(testConfig(dir), nil).RenderMaterial(testMaterialInvoice(t, "MAT/7"), target)
	require.NoError(t, err)
	assert.Equal(t, target, path)
	assertPDF(t, path)
}
