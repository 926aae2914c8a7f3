package models

import (
	"errors"
	"time"
)

// ErrItemNotFound is returned when an item id matches no stored row.
var ErrItemNotFound = errors.New("item not found")

// Provider identifies which external integration an Item is linked through.
type Provider string

const (
	ProviderPlaid     Provider = "plaid"
	ProviderSimpleFin Provider = "simplefin"
)

// Item status values. A "bad" item needs the user to relink credentials;
// its syncs are skipped until the status is cleared.
const (
	ItemStatusGood = "good"
	ItemStatusBad  = "bad"
)

// Item represents a connection/relationship with a financial institution via
// a provider. One Item can have multiple Accounts (e.g., checking + credit
// card from the same bank).
type Item struct {
	ID            string   `json:"id"` // Provider's item id
	Provider      Provider `json:"provider"`
	InstitutionID string   `json:"institutionId"`
	// AccessToken is the provider credential for this item (Plaid access
	// token or SimpleFin access URL). Encrypted at rest by the repository.
	AccessToken  string     `json:"-"`
	Status       string     `json:"status"`
	Cursor       *string    `json:"cursor"`       // Plaid transactions sync cursor
	LastSyncedAt *time.Time `json:"lastSyncedAt"` // window bookmark for full-snapshot providers
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}
