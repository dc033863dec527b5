package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Operation is a function that performs an action and returns an error if it fails.
type Operation func() error

// Retryable reports whether a failed operation may be attempted again.
type Retryable func(err error) bool

const DefaultMaxRetries = 3

// retryBaseDelay is the backoff unit; attempt n waits n × retryBaseDelay.
var retryBaseDelay = 50 * time.Millisecond

// Try executes an operation with DefaultMaxRetries, retrying transient
// MongoDB errors.
func Try(ctx context.Context, op Operation) error {
	return WithRetries(ctx, op, DefaultMaxRetries, IsTransientMongoError)
}

// WithRetries executes op once plus up to maxRetries more times while the
// error is retryable. A non-retryable error or a cancelled context ends the
// loop immediately.
func WithRetries(ctx context.Context, op Operation, maxRetries int, retryable Retryable) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if attempt == maxRetries || !retryable(err) {
			break
		}

		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(time.Duration(attempt+1) * retryBaseDelay):
		}
	}
	return err
}

// IsTransientMongoError reports network errors and timeouts, which are
// worth retrying.
func IsTransientMongoError(err error) bool {
	return mongo.IsNetworkError(err) || mongo.IsTimeout(err)
}

// IsMongoDuplicateKeyError checks if an error from MongoDB is a duplicate key error (code 11000).
func IsMongoDuplicateKeyError(err error) bool {
	var e mongo.WriteException
	if errors.As(err, &e) {
		for _, we := range e.WriteErrors {
			if we.Code == 11000 {
				return true
			}
		}
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, writeError := range bwe.WriteErrors {
			if writeError.Code == 11000 {
				return true
			}
		}
	}
	return false
}
