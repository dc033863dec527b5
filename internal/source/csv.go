package source

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ginjaninja78/invoice-batch/internal/config"
	"github.com/ginjaninja78/invoice-batch/internal/logging"
	"github.com/ginjaninja78/invoice-batch/internal/types"
)

// CSVSource reads billing rows from a delimited text file.
//
// FEATURES:
//   - Configurable delimiter (comma, pipe, tab, semicolon)
//   - Multi-row headers, merged column by column
//   - Metadata rows before the data (data_start_row)
//   - Empty rows skipped
//   - Header aliases through column_mapping
type CSVSource struct {
	settings config.CSVSettings
	mapping  map[string]string
	logger   logging.Logger
}

// NewCSVSource creates a CSV source.
func NewCSVSource(settings config.CSVSettings, mapping map[string]string, logger logging.Logger) *CSVSource {
	if settings.HeaderRows <= 0 {
		settings.HeaderRows = 1
	}
	if settings.DataStartRow <= 0 {
		settings.DataStartRow = settings.HeaderRows + 1
	}
	return &CSVSource{settings: settings, mapping: mapping, logger: logging.OrNop(logger)}
}

// FetchRows parses the file and returns the rows within the date range.
func (s *CSVSource) FetchRows(ctx context.Context, start, end time.Time) ([]types.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(s.settings.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	csvReader := csv.NewReader(bufio.NewReader(file))
	configureReader(csvReader, s.settings)

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(allRows) == 0 {
		return nil, fmt.Errorf("CSV file is empty: %s", s.settings.Path)
	}

	headers, err := extractHeaders(allRows, s.settings.HeaderRows)
	if err != nil {
		return nil, fmt.Errorf("failed to extract headers: %w", err)
	}
	for i, h := range headers {
		headers[i] = canonicalKey(h, s.mapping)
	}

	var rows []types.Row
	for i := s.settings.DataStartRow - 1; i < len(allRows); i++ {
		if isRowEmpty(allRows[i]) {
			continue
		}
		rows = append(rows, buildRow(headers, allRows[i]))
	}
	s.logger.Debug("Parsed %d rows from %s", len(rows), s.settings.Path)

	return filterByDate(rows, start, end), nil
}

// Close is a no-op; the file is closed after every read.
func (s *CSVSource) Close() error { return nil }

// Ping checks that the file exists.
func (s *CSVSource) Ping(ctx context.Context) error {
	if _, err := os.Stat(s.settings.Path); err != nil {
		return fmt.Errorf("csv source: %w", err)
	}
	return nil
}

// Path returns the file being read.
func (s *CSVSource) Path() string { return s.settings.Path }

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	// Allow a variable number of fields per row.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// extractHeaders merges the first headerRows rows into one header per
// column.
//
//   Row 1: "Unit", "",    "Issue"
//   Row 2: "Price", "Qty", "Date"
//   Result: "Unit Price", "Qty", "Issue Date"
func extractHeaders(allRows [][]string, headerRows int) ([]string, error) {
	if headerRows <= 0 {
		return nil, fmt.Errorf("header_rows must be at least 1")
	}
	if len(allRows) < headerRows {
		return nil, fmt.Errorf("file has fewer rows than header_rows setting")
	}

	maxCols := 0
	for i := 0; i < headerRows; i++ {
		if len(allRows[i]) > maxCols {
			maxCols = len(allRows[i])
		}
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for row := 0; row < headerRows; row++ {
			if col < len(allRows[row]) {
				if value := strings.TrimSpace(allRows[row][col]); value != "" {
					parts = append(parts, value)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
		if headers[col] == "" {
			headers[col] = fmt.Sprintf("Column_%d", col+1)
		}
	}

	return headers, nil
}
