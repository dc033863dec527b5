// =============================================================================
// Invoice Batch Generator - Row Sources
// =============================================================================
//
// This package supplies flat billing rows to the batch pipeline. Every
// source performs the one-to-many join of billing records with their line
// items and emits one types.Row per line item, using the canonical row keys.
//
// SOURCES:
//   - CSVSource      : delimited text file
//   - XLSXSource     : Excel workbook
//   - PostgresSource : billing_records ⋈ customers ⋈ billing_items
//   - MongoSource    : billing_records with $lookup of customers and items
//
// The source is chosen once, at startup, by Open.
//
// =============================================================================

package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ginjaninja78/invoice-batch/internal/config"
	"github.com/ginjaninja78/invoice-batch/internal/db"
	"github.com/ginjaninja78/invoice-batch/internal/logging"
	"github.com/ginjaninja78/invoice-batch/internal/types"
	"github.com/ginjaninja78/invoice-batch/internal/validation"
)

// Source fetches billing rows for a billing-date range.
type Source interface {
	// FetchRows returns the rows whose billing date lies within [start, end].
	// Zero bounds disable the date filter for file sources.
	FetchRows(ctx context.Context, start, end time.Time) ([]types.Row, error)

	// Ping checks that the source is reachable: the file exists or the
	// database answers.
	Ping(ctx context.Context) error

	// Close releases the underlying connection or file handle.
	Close() error
}

// FileSource is implemented by sources that read a local file, so the file
// can be archived after a run.
type FileSource interface {
	Path() string
}

// Open builds the source selected by cfg.Type.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger logging.Logger) (Source, error) {
	logger = logging.OrNop(logger)

	switch cfg.Type {
	case config.SourceCSV:
		return NewCSVSource(cfg.CSV, cfg.ColumnMapping, logger), nil

	case config.SourceXLSX:
		return NewXLSXSource(cfg.XLSX, cfg.ColumnMapping, logger), nil

	case config.SourcePostgres:
		conn, err := db.OpenPostgres(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		logger.Info("Connected to PostgreSQL")
		return NewPostgresSource(conn, logger), nil

	case config.SourceMongoDB:
		client, database, err := db.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database)
		if err != nil {
			return nil, err
		}
		logger.Info("Connected to MongoDB database %s", cfg.MongoDB.Database)
		return NewMongoSource(client, database, logger), nil

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnsupportedSource, cfg.Type)
	}
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// canonicalKey maps a column header to its row key. An explicit mapping
// wins; otherwise the header is lowercased with spaces and dashes turned
// into underscores, so "Unit Price" becomes "unit_price".
func canonicalKey(header string, mapping map[string]string) string {
	if key, ok := mapping[header]; ok && key != "" {
		return key
	}
	key := strings.ToLower(strings.TrimSpace(header))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	return key
}

// buildRow zips headers and cells into a row. Missing cells become "".
func buildRow(headers []string, cells []string) types.Row {
	row := make(types.Row, len(headers))
	for i, key := range headers {
		if i < len(cells) {
			row[key] = strings.TrimSpace(cells[i])
		} else {
			row[key] = ""
		}
	}
	return row
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// filterByDate keeps the rows whose billing date lies within [start, end],
// comparing calendar days. Rows whose date is missing or unparseable are
// kept so that the pipeline reports them. Zero bounds disable filtering.
func filterByDate(rows []types.Row, start, end time.Time) []types.Row {
	if start.IsZero() || end.IsZero() {
		return rows
	}
	from, to := day(start), day(end)

	kept := rows[:0:0]
	for _, row := range rows {
		d, err := validation.Date(row.First(types.FieldBillingDate, types.FieldIssueDate), types.FieldBillingDate)
		if err != nil {
			kept = append(kept, row)
			continue
		}
		if dd := day(d); !dd.Before(from) && !dd.After(to) {
			kept = append(kept, row)
		}
	}
	return kept
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
