package source

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/invoice-batch/internal/config"
	"github.com/ginjaninja78/invoice-batch/internal/logging"
	"github.com/ginjaninja78/invoice-batch/internal/types"
)

// XLSXSource reads billing rows from an Excel workbook. The first row of
// the sheet holds the headers; every following non-empty row is one line
// item.
type XLSXSource struct {
	settings config.XLSXSettings
	mapping  map[string]string
	logger   logging.Logger
}

// NewXLSXSource creates a workbook source.
func NewXLSXSource(settings config.XLSXSettings, mapping map[string]string, logger logging.Logger) *XLSXSource {
	return &XLSXSource{settings: settings, mapping: mapping, logger: logging.OrNop(logger)}
}

// FetchRows reads the configured sheet and returns the rows within the
// date range.
func (s *XLSXSource) FetchRows(ctx context.Context, start, end time.Time) ([]types.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(s.settings.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := s.settings.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets: %s", s.settings.Path)
		}
		sheet = sheets[0]
	}

	// Raw values keep date cells as serials instead of locale display text.
	cells, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	headers := make([]string, len(cells[0]))
	for i, h := range cells[0] {
		if h == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}
		headers[i] = canonicalKey(h, s.mapping)
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	var rows []types.Row
	for i, line := range cells[1:] {
		if isRowEmpty(line) {
			continue
		}
		row := buildRow(headers, line)
		convertDateCells(f, sheet, headers, row, i+2, date1904)
		rows = append(rows, row)
	}
	s.logger.Debug("Read %d rows from sheet %s of %s", len(rows), sheet, s.settings.Path)

	return filterByDate(rows, start, end), nil
}

// Close is a no-op; the workbook is closed after every read.
func (s *XLSXSource) Close() error { return nil }

// Ping checks that the workbook exists.
func (s *XLSXSource) Ping(ctx context.Context) error {
	if _, err := os.Stat(s.settings.Path); err != nil {
		return fmt.Errorf("xlsx source: %w", err)
	}
	return nil
}

// Path returns the workbook being read.
func (s *XLSXSource) Path() string { return s.settings.Path }

// dateFields are the row keys whose cells may hold Excel dates.
var dateFields = map[string]bool{
	types.FieldBillingDate: true,
	types.FieldIssueDate:   true,
	types.FieldDueDate:     true,
}

// convertDateCells replaces the raw value of every date column in row with
// a time.Time. Numeric cells are Excel serials; typed date cells ("d") hold
// ISO 8601 text. Text cells are left for the field validators.
func convertDateCells(f *excelize.File, sheet string, headers []string, row types.Row, rowNum int, date1904 bool) {
	for col, key := range headers {
		if !dateFields[key] {
			continue
		}
		raw, _ := row[key].(string)
		if raw == "" {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
		if err != nil {
			continue
		}
		cellType, err := f.GetCellType(sheet, cell)
		if err != nil {
			continue
		}

		switch cellType {
		case excelize.CellTypeUnset, excelize.CellTypeNumber:
			serial, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			if t, err := excelize.ExcelDateToTime(serial, date1904); err == nil {
				row[key] = t
			}
		case excelize.CellTypeDate:
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				row[key] = t
			}
		}
	}
}
