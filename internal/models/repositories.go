package models

import (
	"context"
	"time"
)

// ItemRepository defines data access for Items.
// Cursor and LastSyncedAt advance only after a successful sync write, so a
// failed cycle naturally re-fetches the same window on the next run.
type ItemRepository interface {
	FindOrCreate(ctx context.Context, item *Item) (*Item, error)
	List(ctx context.Context) ([]*Item, error)
	GetByID(ctx context.Context, id string) (*Item, error)
	UpdateCursor(ctx context.Context, id string, cursor string) error
	UpdateLastSynced(ctx context.Context, id string, at time.Time) error
	UpdateStatus(ctx context.Context, id string, status string) error
	Delete(ctx context.Context, id string) error
}
