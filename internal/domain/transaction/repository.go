package transaction

import (
	"context"
	"time"
)

// Repository defines the interface for transaction data access.
type Repository interface {
	// GetByID retrieves a transaction by its provider id.
	GetByID(ctx context.Context, id string) (*Transaction, error)

	// ListByAccountIDs retrieves stored transactions for a set of accounts.
	ListByAccountIDs(ctx context.Context, accountIDs []string) ([]*Transaction, error)

	// ListByAccountIDsSince retrieves stored transactions for a set of
	// accounts dated on or after start. Used for windowed removal checks.
	ListByAccountIDsSince(ctx context.Context, accountIDs []string, start time.Time) ([]*Transaction, error)

	// Upsert creates or updates a transaction keyed by its provider id.
	Upsert(ctx context.Context, t *Transaction) error

	// DeleteMany removes transactions by id, cascading user-created splits
	// that reference them. Returns the number of transactions deleted.
	DeleteMany(ctx context.Context, ids []string) (int64, error)

	// UpdateLabel sets the user-editable label on a transaction.
	UpdateLabel(ctx context.Context, id string, label Label) error
}
