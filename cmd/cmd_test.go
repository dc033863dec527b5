package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/invoice-batch/internal/source"
)

func TestDateRange(t *testing.T) {
	now := time.Date(2024, 3, 15, 18, 45, 0, 0, time.UTC)
	d := func(s string) time.Time {
		v, err := time.Parse(dateLayout, s)
		require.NoError(t, err)
		return v
	}

	tests := []struct {
		name       string
		start, end string
		days       int
		wantStart  string
		wantEnd    string
		wantErr    bool
	}{
		{name: "defaults", wantStart: "2024-02-14", wantEnd: "2024-03-15"},
		{name: "days", days: 7, wantStart: "2024-03-08", wantEnd: "2024-03-15"},
		{name: "days with end", end: "2024-01-31", days: 30, wantStart: "2024-01-01", wantEnd: "2024-01-31"},
		{name: "explicit", start: "2024-01-01", end: "2024-01-31", wantStart: "2024-01-01", wantEnd: "2024-01-31"},
		{name: "same day", start: "2024-01-01", end: "2024-01-01", wantStart: "2024-01-01", wantEnd: "2024-01-01"},
		{name: "start after end", start: "2024-02-01", end: "2024-01-31", wantErr: true},
		{name: "bad start", start: "01/02/2024", wantErr: true},
		{name: "bad end", end: "tomorrow", wantErr: true},
		{name: "negative days", days: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := dateRange(tt.start, tt.end, tt.days, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, d(tt.wantStart), start)
			assert.Equal(t, d(tt.wantEnd), end)
		})
	}
}

func TestFileSource(t *testing.T) {
	src, err := fileSource("billing.CSV", "", ";", nil)
	require.NoError(t, err)
	assert.IsType(t, &source.CSVSource{}, src)

	src, err = fileSource("billing.xlsx", "Jan", "", nil)
	require.NoError(t, err)
	assert.IsType(t, &source.XLSXSource{}, src)

	_, err = fileSource("billing.json", "", "", nil)
	assert.Error(t, err)
}

func TestValidateRowsCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.csv")
	content := "record_id,name,email,address,description,quantity,unit_price,issue_date\n" +
		"1,Asha,asha@example.in,Pune,Design,2,500,2024-01-10\n" +
		"2,Ravi,bad-email,Delhi,Support,1,100,2024-01-10\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"validate-rows", "--file", path})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "2 rows, 1 valid invoices, 1 errors")
	assert.Contains(t, out.String(), "Record 2:")
}

func TestWordsCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"words", "1500.50"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "One Thousand Five Hundred Rupees and Fifty Paise\n", out.String())

	rootCmd.SetArgs([]string{"words", "-5"})
	assert.Error(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"words", "abc"})
	assert.Error(t, rootCmd.Execute())
}

func TestParseMaterialItem(t *testing.T) {
	item, err := parseMaterialItem("Steel Rods|12.5|kg|65.00|0.18")
	require.NoError(t, err)
	assert.Equal(t, "Steel Rods", item.Description())
	assert.Equal(t, "12.5", item.Quantity().String())
	assert.Equal(t, "kg", item.Unit())
	assert.Equal(t, "958.75", item.Total().StringFixed(2))

	item, err = parseMaterialItem("Sand|3|cubic ft|45")
	require.NoError(t, err)
	assert.True(t, item.GSTRate().IsZero())

	for _, bad := range []string{"Sand|3", "Sand|three|kg|45|0", "Sand|0|kg|45|0", "Sand|1||45|0", "Sand|1|kg|45|1.5", "a|1|kg|1|0|extra"} {
		_, err := parseMaterialItem(bad)
		assert.Error(t, err, bad)
	}
}

func TestDefaultMaterialsParse(t *testing.T) {
	for _, spec := range defaultMaterials {
		_, err := parseMaterialItem(spec)
		assert.NoError(t, err, spec)
	}
}

func TestCreateSampleMaterialCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfgYAML := fmt.Sprintf("database:\n  type: csv\n  csv:\n    path: %q\noutput:\n  folder: %q\n  logs_dir: %q\nlogging:\n  file: %q\n",
		filepath.Join(dir, "billing.csv"), filepath.Join(dir, "output"), filepath.Join(dir, "logs"), filepath.Join(dir, "logs", "app.log"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgYAML), 0644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{
		"create-sample", "--config", cfgPath, "--material",
		"--invoice-number", "MAT-7", "--gstin", "27ABCDE1234F1Z5",
		"--item", "Steel Rods|12.5|kg|65|0.18",
		"--item", "Cement|2|bags|350|0.28",
	})
	require.NoError(t, rootCmd.Execute())

	pdfPath := filepath.Join(dir, "output", "material_invoice_MAT-7.pdf")
	assert.Contains(t, out.String(), "Material invoice MAT-7 written to "+pdfPath)
	assert.Contains(t, out.String(), "Subtotal:    Rs. 1512.50")
	assert.Contains(t, out.String(), "Total GST:   Rs. 342.25")
	assert.Contains(t, out.String(), "Grand Total: Rs. 1854.75")

	data, err := os.ReadFile(pdfPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}
