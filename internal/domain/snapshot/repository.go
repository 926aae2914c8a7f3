package snapshot

import "context"

// Repository persists snapshots. Upsert must be keyed on the snapshot id
// so a second write for the same entity on the same day overwrites the
// first instead of appending.
type Repository interface {
	Upsert(ctx context.Context, snap *Snapshot) error
	ListByEntityID(ctx context.Context, entityID string) ([]*Snapshot, error)
}
