package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ginjaninja78/invoice-batch/internal/config"
	"github.com/ginjaninja78/invoice-batch/internal/types"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCSVSource_FetchRows(t *testing.T) {
	path := writeFile(t, "rows.csv", `record_id,Customer Name,email,address,description,Qty,Unit Price,billing_date
A,Acme,a@acme.in,"1 Road, Pune",Widget,2,10.00,2024-01-10
A,Acme,a@acme.in,"1 Road, Pune",Gadget,1,5.00,2024-01-10

B,Beta,b@beta.in,Delhi,Service,1,100,2024-02-20
`)
	src := NewCSVSource(config.CSVSettings{Path: path}, map[string]string{"Customer Name": "name", "Qty": "quantity"}, nil)

	rows, err := src.FetchRows(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Acme", rows[0][types.FieldName])
	assert.Equal(t, "1 Road, Pune", rows[0][types.FieldAddress])
	assert.Equal(t, "2", rows[0][types.FieldQuantity])
	assert.Equal(t, "10.00", rows[0][types.FieldUnitPrice])
	assert.Equal(t, "B", rows[2].RecordID())
	assert.NoError(t, src.Close())
}

func TestCSVSource_DateFilter(t *testing.T) {
	path := writeFile(t, "rows.csv", `record_id,billing_date
A,2024-01-10
B,2024-02-20
C,not a date
D,2024-01-31 18:00:00
`)
	src := NewCSVSource(config.CSVSettings{Path: path}, nil, nil)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	rows, err := src.FetchRows(context.Background(), start, end)
	require.NoError(t, err)

	var ids []string
	for _, r := range rows {
		ids = append(ids, r.RecordID())
	}
	assert.Equal(t, []string{"A", "C", "D"}, ids)
}

func TestCSVSource_MultiRowHeaderAndDelimiter(t *testing.T) {
	path := writeFile(t, "rows.psv", `Record|Unit|
Id|Price|Quantity
exported 2024-01-01||
R1|9.50|3
`)
	src := NewCSVSource(config.CSVSettings{Path: path, Delimiter: "pipe", HeaderRows: 2, DataStartRow: 4}, nil, nil)

	rows, err := src.FetchRows(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "R1", rows[0]["record_id"])
	assert.Equal(t, "9.50", rows[0]["unit_price"])
	assert.Equal(t, "3", rows[0]["quantity"])
}

func TestCSVSource_Errors(t *testing.T) {
	_, err := NewCSVSource(config.CSVSettings{Path: filepath.Join(t.TempDir(), "missing.csv")}, nil, nil).
		FetchRows(context.Background(), time.Time{}, time.Time{})
	assert.Error(t, err)

	empty := writeFile(t, "empty.csv", "")
	_, err = NewCSVSource(config.CSVSettings{Path: empty}, nil, nil).
		FetchRows(context.Background(), time.Time{}, time.Time{})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewCSVSource(config.CSVSettings{Path: empty}, nil, nil).FetchRows(ctx, time.Time{}, time.Time{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestXLSXSource_FetchRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.xlsx")
	f := excelize.NewFile()
	sheet := "Billing"
	_, err := f.NewSheet(sheet)
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"record_id", "Name", "Description", "Quantity", "Unit Price"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"X1", "Xeno", "Bolt", "4", "0.25"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"X2", "Yak", "Nut", "1", "1.10"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	src := NewXLSXSource(config.XLSXSettings{Path: path, Sheet: sheet}, map[string]string{"Name": "name"}, nil)
	rows, err := src.FetchRows(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "X1", rows[0].RecordID())
	assert.Equal(t, "Xeno", rows[0][types.FieldName])
	assert.Equal(t, "0.25", rows[0][types.FieldUnitPrice])
	assert.Equal(t, "Nut", rows[1][types.FieldDescription])
}

func TestXLSXSource_DateCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dates.xlsx")
	f := excelize.NewFile()
	sheet := "Sheet1"
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"record_id", "Description", "Billing Date", "Due Date"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"A", "January work"}))
	require.NoError(t, f.SetCellValue(sheet, "C2", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, f.SetCellValue(sheet, "D2", time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"B", "February work"}))
	require.NoError(t, f.SetCellValue(sheet, "C3", time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"C", "Typed as text", "2024-01-20"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	src := NewXLSXSource(config.XLSXSettings{Path: path}, nil, nil)

	all, err := src.FetchRows(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	billed, ok := all[0][types.FieldBillingDate].(time.Time)
	require.True(t, ok, "billing date is %T", all[0][types.FieldBillingDate])
	assert.Equal(t, "2024-01-15", billed.Format("2006-01-02"))
	due, ok := all[0][types.FieldDueDate].(time.Time)
	require.True(t, ok)
	assert.Equal(t, "2024-02-14", due.Format("2006-01-02"))
	assert.Equal(t, "2024-01-20", all[2][types.FieldBillingDate])

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	january, err := src.FetchRows(context.Background(), start, end)
	require.NoError(t, err)

	var ids []string
	for _, r := range january {
		ids = append(ids, r.RecordID())
	}
	assert.Equal(t, []string{"A", "C"}, ids)
}

func TestXLSXSource_MissingSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, err := NewXLSXSource(config.XLSXSettings{Path: path, Sheet: "Nope"}, nil, nil).
		FetchRows(context.Background(), time.Time{}, time.Time{})
	assert.Error(t, err)
}

func TestCanonicalKey(t *testing.T) {
	assert.Equal(t, "unit_price", canonicalKey(" Unit Price ", nil))
	assert.Equal(t, "due_date", canonicalKey("Due-Date", nil))
	assert.Equal(t, "email", canonicalKey("E-mail Address", map[string]string{"E-mail Address": "email"}))
}

func TestBillingPipeline(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	p := billingPipeline(start, end)

	require.Len(t, p, 7)
	assert.Equal(t, "$match", p[0][0].Key)
	assert.Equal(t, "$lookup", p[1][0].Key)
	assert.Equal(t, "$unwind", p[2][0].Key)
	assert.Equal(t, "$project", p[6][0].Key)

	match := p[0][0].Value.(bson.D)
	bounds := match[0].Value.(bson.D)
	assert.Equal(t, start, bounds[0].Value)
	assert.Equal(t, end, bounds[1].Value)
}

func TestFlattenDocument(t *testing.T) {
	oid := primitive.NewObjectID()
	when := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	price, err := primitive.ParseDecimal128("12.50")
	require.NoError(t, err)

	row := flattenDocument(bson.M{
		"record_id":    oid,
		"billing_date": primitive.NewDateTimeFromTime(when),
		"unit_price":   price,
		"quantity":     int32(2),
		"notes":        primitive.Null{},
	})

	assert.Equal(t, oid.Hex(), row.RecordID())
	assert.Equal(t, when, row["billing_date"])
	assert.Equal(t, "12.50", row["unit_price"])
	assert.Equal(t, int32(2), row["quantity"])
	assert.Nil(t, row["notes"])
}

func TestSQLValue(t *testing.T) {
	assert.Equal(t, "12.50", sqlValue([]byte("12.50")))
	assert.Equal(t, int64(3), sqlValue(int64(3)))
	assert.Nil(t, sqlValue(nil))
}

func TestOpen(t *testing.T) {
	src, err := Open(context.Background(), config.DatabaseConfig{Type: config.SourceCSV}, nil)
	require.NoError(t, err)
	assert.IsType(t, &CSVSource{}, src)

	src, err = Open(context.Background(), config.DatabaseConfig{Type: config.SourceXLSX}, nil)
	require.NoError(t, err)
	assert.IsType(t, &XLSXSource{}, src)

	_, err = Open(context.Background(), config.DatabaseConfig{Type: "oracle"}, nil)
	assert.ErrorIs(t, err, config.ErrUnsupportedSource)
}

func TestFileSources_PingAndPath(t *testing.T) {
	path := writeFile(t, "rows.csv", "record_id\nA\n")

	csvSrc := NewCSVSource(config.CSVSettings{Path: path}, nil, nil)
	assert.NoError(t, csvSrc.Ping(context.Background()))
	assert.Equal(t, path, csvSrc.Path())

	missing := filepath.Join(t.TempDir(), "absent.xlsx")
	xlsxSrc := NewXLSXSource(config.XLSXSettings{Path: missing}, nil, nil)
	assert.Error(t, xlsxSrc.Ping(context.Background()))

	var src Source = csvSrc
	_, ok := src.(FileSource)
	assert.True(t, ok)
}
