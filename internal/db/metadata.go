package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ginjaninja78/invoice-batch/internal/invoice"
)

// ErrDuplicateInvoice is returned when metadata for the same invoice number
// has already been recorded.
var ErrDuplicateInvoice = errors.New("invoice metadata already exists")

// pqUniqueViolation is the SQLSTATE of a unique constraint violation.
const pqUniqueViolation = "23505"

// Metadata is the record kept for every generated invoice.
type Metadata struct {
	InvoiceNumber string          `bson:"invoice_number"`
	CustomerName  string          `bson:"customer_name"`
	CustomerEmail string          `bson:"customer_email"`
	IssueDate     time.Time       `bson:"issue_date"`
	DueDate       time.Time       `bson:"due_date"`
	TotalAmount   decimal.Decimal `bson:"-"`
	PDFPath       string          `bson:"pdf_path"`
	CreatedAt     time.Time       `bson:"created_at"`
}

// NewMetadata captures the persisted fields of inv. The total is rounded to
// two places.
func NewMetadata(inv invoice.Invoice, pdfPath string, now time.Time) Metadata {
	return Metadata{
		InvoiceNumber: inv.Number(),
		CustomerName:  inv.Customer().Name(),
		CustomerEmail: inv.Customer().Email(),
		IssueDate:     inv.IssueDate(),
		DueDate:       inv.DueDate(),
		TotalAmount:   inv.TotalAmount().Round(2),
		PDFPath:       pdfPath,
		CreatedAt:     now,
	}
}

// MetadataStore persists invoice metadata.
type MetadataStore interface {
	SaveInvoiceMetadata(ctx context.Context, m Metadata) error
	Close() error
}

// =============================================================================
// POSTGRESQL
// =============================================================================

// PostgresMetadataStore writes metadata rows with lib/pq.
type PostgresMetadataStore struct {
	db    *sql.DB
	table string
}

// NewPostgresMetadataStore returns a store writing to table. The store does
// not own db; Close is a no-op.
func NewPostgresMetadataStore(db *sql.DB, table string) *PostgresMetadataStore {
	return &PostgresMetadataStore{db: db, table: table}
}

// EnsureSchema creates the metadata table when it does not exist.
func (s *PostgresMetadataStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableSQL(s.table)); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.table, err)
	}
	return nil
}

// SaveInvoiceMetadata inserts one row.
func (s *PostgresMetadataStore) SaveInvoiceMetadata(ctx context.Context, m Metadata) error {
	_, err := s.db.ExecContext(ctx, insertSQL(s.table),
		m.InvoiceNumber, m.CustomerName, m.CustomerEmail,
		m.IssueDate, m.DueDate, m.TotalAmount.StringFixed(2),
		m.PDFPath, m.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateInvoice, m.InvoiceNumber)
		}
		return fmt.Errorf("failed to save metadata for %s: %w", m.InvoiceNumber, err)
	}
	return nil
}

func (s *PostgresMetadataStore) Close() error { return nil }

func createTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id             BIGSERIAL PRIMARY KEY,
	invoice_number TEXT NOT NULL UNIQUE,
	customer_name  TEXT NOT NULL,
	customer_email TEXT NOT NULL,
	issue_date     DATE NOT NULL,
	due_date       DATE NOT NULL,
	total_amount   NUMERIC(14, 2) NOT NULL,
	pdf_path       TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL
)`, pq.QuoteIdentifier(table))
}

func insertSQL(table string) string {
	return fmt.Sprintf(`INSERT INTO %s
	(invoice_number, customer_name, customer_email, issue_date, due_date, total_amount, pdf_path, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, pq.QuoteIdentifier(table))
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation
}

// =============================================================================
// MONGODB
// =============================================================================

// mongoMetadata is the stored document. The total is kept as Decimal128.
type mongoMetadata struct {
	Metadata    `bson:",inline"`
	TotalAmount primitive.Decimal128 `bson:"total_amount"`
}

// MongoMetadataStore inserts one document per invoice.
type MongoMetadataStore struct {
	coll       *mongo.Collection
	maxRetries int
}

// NewMongoMetadataStore returns a store writing to coll.
func NewMongoMetadataStore(coll *mongo.Collection) *MongoMetadataStore {
	return &MongoMetadataStore{coll: coll, maxRetries: DefaultMaxRetries}
}

// invoiceNumberIndex makes duplicate invoice numbers fail with a duplicate
// key error.
const invoiceNumberIndex = "invoice_number_unique"

// EnsureSchema creates the unique index on invoice_number. Creating an
// index that already exists with the same definition is a no-op.
func (s *MongoMetadataStore) EnsureSchema(ctx context.Context) error {
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: "invoice_number", Value: 1}},
		Options: options.Index().SetUnique(true).SetName(invoiceNumberIndex),
	}
	err := Try(ctx, func() error {
		_, err := s.coll.Indexes().CreateOne(ctx, model)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create index on %s: %w", s.coll.Name(), err)
	}
	return nil
}

// SaveInvoiceMetadata inserts the document, retrying transient failures.
func (s *MongoMetadataStore) SaveInvoiceMetadata(ctx context.Context, m Metadata) error {
	doc, err := toMongoMetadata(m)
	if err != nil {
		return err
	}

	err = WithRetries(ctx, func() error {
		_, err := s.coll.InsertOne(ctx, doc)
		return err
	}, s.maxRetries, IsTransientMongoError)

	if IsMongoDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateInvoice, m.InvoiceNumber)
	}
	if err != nil {
		return fmt.Errorf("failed to save metadata for %s: %w", m.InvoiceNumber, err)
	}
	return nil
}

func (s *MongoMetadataStore) Close() error { return nil }

func toMongoMetadata(m Metadata) (mongoMetadata, error) {
	total, err := primitive.ParseDecimal128(m.TotalAmount.StringFixed(2))
	if err != nil {
		return mongoMetadata{}, fmt.Errorf("invalid total amount %s: %w", m.TotalAmount, err)
	}
	return mongoMetadata{Metadata: m, TotalAmount: total}, nil
}
