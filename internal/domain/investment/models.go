// Package investment models investment transactions (buys, sells,
// dividends) reported by providers.
package investment

import (
	"errors"
	"time"
)

var ErrTransactionNotFound = errors.New("investment transaction not found")

// Transaction is one investment transaction keyed by its provider id.
// SecurityID is always a canonical security id; provider-issued security
// ids are rewritten during resolution before this type is stored.
type Transaction struct {
	ID         string    `json:"id"`
	AccountID  string    `json:"accountId"`
	SecurityID string    `json:"securityId"`
	Date       time.Time `json:"date"`
	Name       string    `json:"name"`
	Type       string    `json:"type"` // buy, sell, dividend, cash, fee...
	Quantity   float64   `json:"quantity"`
	Amount     float64   `json:"amount"`
	Price      float64   `json:"price"`
	Fees       float64   `json:"fees"`
	Currency   string    `json:"currency"`
}

// Validate checks the fields a provider must always supply.
func (t *Transaction) Validate() error {
	if t.ID == "" {
		return errors.New("investment transaction ID is required")
	}
	if t.AccountID == "" {
		return errors.New("account ID is required")
	}
	if t.Date.IsZero() {
		return errors.New("investment transaction date is required")
	}
	return nil
}
