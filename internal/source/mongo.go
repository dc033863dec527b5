package source

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ginjaninja78/invoice-batch/internal/db"
	"github.com/ginjaninja78/invoice-batch/internal/logging"
	"github.com/ginjaninja78/invoice-batch/internal/types"
)

const billingRecordsCollection = "billing_records"

// MongoSource reads billing rows from MongoDB. billing_records documents
// reference a customer by customer_id; billing_items documents reference
// their record by billing_record_id.
type MongoSource struct {
	client   *mongo.Client
	database *mongo.Database
	logger   logging.Logger
}

// NewMongoSource wraps a connected client. Close disconnects it.
func NewMongoSource(client *mongo.Client, database *mongo.Database, logger logging.Logger) *MongoSource {
	return &MongoSource{client: client, database: database, logger: logging.OrNop(logger)}
}

// Database exposes the database so the metadata store can share it.
func (s *MongoSource) Database() *mongo.Database { return s.database }

// FetchRows aggregates the records billed within [start, end] into one row
// per line item.
func (s *MongoSource) FetchRows(ctx context.Context, start, end time.Time) ([]types.Row, error) {
	cursor, err := s.database.Collection(billingRecordsCollection).Aggregate(ctx, billingPipeline(start, end))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate billing records: %w", err)
	}

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to read billing records: %w", err)
	}

	rows := make([]types.Row, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, flattenDocument(doc))
	}
	s.logger.Info("Fetched %d billing rows from MongoDB", len(rows))
	return rows, nil
}

// Ping checks the connection against the primary.
func (s *MongoSource) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *MongoSource) Close() error {
	return db.DisconnectMongo(s.client)
}

// billingPipeline matches on billing date, joins customer and items, and
// projects the canonical row keys.
func billingPipeline(start, end time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "billing_date", Value: bson.D{{Key: "$gte", Value: start}, {Key: "$lte", Value: end}}},
		}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "customers"},
			{Key: "localField", Value: "customer_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "customer"},
		}}},
		{{Key: "$unwind", Value: "$customer"}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "billing_items"},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "billing_record_id"},
			{Key: "as", Value: "items"},
		}}},
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}, {Key: "items._id", Value: 1}}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: types.FieldRecordID, Value: "$_id"},
			{Key: types.FieldInvoiceNumber, Value: 1},
			{Key: types.FieldBillingDate, Value: 1},
			{Key: types.FieldDueDate, Value: 1},
			{Key: types.FieldTaxRate, Value: 1},
			{Key: types.FieldDiscountRate, Value: 1},
			{Key: types.FieldNotes, Value: 1},
			{Key: types.FieldName, Value: "$customer.name"},
			{Key: types.FieldEmail, Value: "$customer.email"},
			{Key: types.FieldAddress, Value: "$customer.address"},
			{Key: types.FieldPhone, Value: "$customer.phone"},
			{Key: types.FieldDescription, Value: "$items.description"},
			{Key: types.FieldQuantity, Value: "$items.quantity"},
			{Key: types.FieldUnitPrice, Value: "$items.unit_price"},
		}}},
	}
}

// flattenDocument converts BSON-specific values into plain Go values.
func flattenDocument(doc bson.M) types.Row {
	row := make(types.Row, len(doc))
	for k, v := range doc {
		row[k] = bsonValue(v)
	}
	return row
}

func bsonValue(v any) any {
	switch val := v.(type) {
	case primitive.ObjectID:
		return val.Hex()
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.Decimal128:
		return val.String()
	case primitive.Null, primitive.Undefined:
		return nil
	default:
		return v
	}
}
