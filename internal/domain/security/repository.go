package security

import "context"

// Repository defines the interface for security data access.
// Securities are globally shared across items, so implementations must make
// Upsert safe under concurrent syncs (last write wins on price fields).
type Repository interface {
	// GetByID retrieves a security by its canonical id.
	GetByID(ctx context.Context, id string) (*Security, error)

	// FindByTicker retrieves securities matching a ticker symbol. When
	// currency is non-empty the match is narrowed to that currency.
	FindByTicker(ctx context.Context, ticker, currency string) ([]*Security, error)

	// FindByProviderID retrieves the security last seen under a
	// provider-issued id. Fallback for instruments without a ticker.
	FindByProviderID(ctx context.Context, providerID string) (*Security, error)

	// Upsert creates or updates a security keyed by its canonical id.
	Upsert(ctx context.Context, s *Security) error
}
