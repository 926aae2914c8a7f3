package investment

import (
	"context"
	"time"
)

// Repository defines the interface for investment transaction data access.
type Repository interface {
	// ListByAccountIDsSince retrieves stored investment transactions for a
	// set of accounts dated on or after start. Providers have no delta API
	// for these, so removal detection is bounded to this window.
	ListByAccountIDsSince(ctx context.Context, accountIDs []string, start time.Time) ([]*Transaction, error)

	// Upsert creates or updates an investment transaction by provider id.
	Upsert(ctx context.Context, t *Transaction) error

	// DeleteMany removes investment transactions by id.
	DeleteMany(ctx context.Context, ids []string) (int64, error)
}
