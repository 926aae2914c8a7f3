// Package holding models investment positions held within an account.
package holding

import "errors"

var ErrHoldingNotFound = errors.New("holding not found")

// Holding is one position (account, security) pair. Its id is derived
// deterministically so repeated syncs address the same row.
type Holding struct {
	ID         string  `json:"id"`
	AccountID  string  `json:"accountId"`
	SecurityID string  `json:"securityId"` // canonical security id
	Quantity   float64 `json:"quantity"`
	CostBasis  float64 `json:"costBasis"`
	Price      float64 `json:"price"` // institution price per unit
	Value      float64 `json:"value"` // quantity * price
	Currency   string  `json:"currency"`
}

// DeriveID builds the deterministic holding id from its account and
// canonical security. Call only after security resolution.
func DeriveID(accountID, securityID string) string {
	return accountID + "_" + securityID
}

// ObservedEqual reports whether two holdings carry the same
// externally-observable state.
func ObservedEqual(a, b *Holding) bool {
	return a.Quantity == b.Quantity &&
		a.CostBasis == b.CostBasis &&
		a.Price == b.Price &&
		a.Value == b.Value &&
		a.Currency == b.Currency
}
