package account

import "context"

// Repository defines the interface for account data access.
// Defined in the domain layer, implemented in the infrastructure layer.
type Repository interface {
	// GetByID retrieves an account by its provider id.
	GetByID(ctx context.Context, id string) (*Account, error)

	// ListByItemID retrieves all accounts linked through one item.
	ListByItemID(ctx context.Context, itemID string) ([]*Account, error)

	// Upsert creates or updates an account keyed by its provider id.
	Upsert(ctx context.Context, a *Account) error

	// ApplyPatch updates only the user-edited fields of an account.
	ApplyPatch(ctx context.Context, id string, patch Patch) (*Account, error)

	// SoftDeleteByItem marks all of an item's accounts removed. Used when
	// the item itself is unlinked; provider omission never removes accounts.
	SoftDeleteByItem(ctx context.Context, itemID string) error
}
