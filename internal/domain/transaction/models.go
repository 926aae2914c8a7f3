package transaction

import (
	"errors"
	"time"
)

// Domain errors
var (
	ErrTransactionNotFound = errors.New("transaction not found")
)

// Label holds the user-editable annotation on a transaction. It is never
// written from provider data and must survive re-sync, including the
// pending->posted id transition.
type Label struct {
	Category string `json:"category"`
	Memo     string `json:"memo"`
}

// Transaction represents one bank transaction reported by a provider.
type Transaction struct {
	ID                   string    `json:"id"` // provider transaction id
	PendingTransactionID *string   `json:"pendingTransactionId"`
	AccountID            string    `json:"accountId"`
	Name                 string    `json:"name"`
	MerchantName         string    `json:"merchantName"`
	Amount               float64   `json:"amount"`
	Date                 time.Time `json:"date"`
	Pending              bool      `json:"pending"`
	Currency             string    `json:"currency"`
	Category             string    `json:"category"` // provider-assigned, distinct from Label.Category

	Label Label `json:"label"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks the fields a provider must always supply.
func (t *Transaction) Validate() error {
	if t.ID == "" {
		return errors.New("transaction ID is required")
	}
	if t.AccountID == "" {
		return errors.New("account ID is required")
	}
	if t.Date.IsZero() {
		return errors.New("transaction date is required")
	}
	return nil
}
