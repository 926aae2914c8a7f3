package holding

import "context"

// Repository defines the interface for holding data access.
type Repository interface {
	// ListByAccountIDs retrieves the stored holdings for a set of accounts.
	ListByAccountIDs(ctx context.Context, accountIDs []string) ([]*Holding, error)

	// Upsert creates or updates a holding keyed by its derived id.
	Upsert(ctx context.Context, h *Holding) error

	// DeleteMany removes holdings by id. Returns the number deleted.
	DeleteMany(ctx context.Context, ids []string) (int64, error)
}
