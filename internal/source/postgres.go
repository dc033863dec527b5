package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ginjaninja78/invoice-batch/internal/logging"
	"github.com/ginjaninja78/invoice-batch/internal/types"
)

// billingRowsQuery joins every billing record with its customer and line
// items, one result row per item.
const billingRowsQuery = `
SELECT b.id AS record_id, b.invoice_number, b.billing_date, b.due_date,
       b.tax_rate, b.discount_rate, b.notes,
       c.name, c.email, c.address, c.phone,
       bi.description, bi.quantity, bi.unit_price
FROM billing_records b
JOIN customers c ON b.customer_id = c.id
JOIN billing_items bi ON b.id = bi.billing_record_id
WHERE b.billing_date BETWEEN $1 AND $2
ORDER BY b.id, bi.id`

// PostgresSource reads billing rows from PostgreSQL.
type PostgresSource struct {
	db     *sql.DB
	logger logging.Logger
}

// NewPostgresSource wraps an open connection pool. Close closes the pool.
func NewPostgresSource(db *sql.DB, logger logging.Logger) *PostgresSource {
	return &PostgresSource{db: db, logger: logging.OrNop(logger)}
}

// DB exposes the pool so the metadata store can share it.
func (s *PostgresSource) DB() *sql.DB { return s.db }

// FetchRows runs the billing join for [start, end].
func (s *PostgresSource) FetchRows(ctx context.Context, start, end time.Time) ([]types.Row, error) {
	rs, err := s.db.QueryContext(ctx, billingRowsQuery, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query billing records: %w", err)
	}
	defer rs.Close()

	rows, err := scanRows(rs)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Fetched %d billing rows from PostgreSQL", len(rows))
	return rows, nil
}

// Ping checks the connection.
func (s *PostgresSource) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *PostgresSource) Close() error {
	return s.db.Close()
}

// scanRows reads every result row into a types.Row keyed by column name.
func scanRows(rs *sql.Rows) ([]types.Row, error) {
	cols, err := rs.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var rows []types.Row
	for rs.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(types.Row, len(cols))
		for i, col := range cols {
			row[col] = sqlValue(values[i])
		}
		rows = append(rows, row)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return rows, nil
}

// sqlValue converts driver values; lib/pq returns NUMERIC and TEXT columns
// as []byte.
func sqlValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
