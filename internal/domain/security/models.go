// Package security models tradable securities and their canonical identity.
//
// Providers may reissue their own security ids for the same instrument on
// every call, so the store assigns a canonical id on first sight and the
// Resolver maps provider data back to it on later syncs.
package security

import "errors"

var ErrSecurityNotFound = errors.New("security not found")

// Security is a tradable instrument with a store-assigned canonical id.
type Security struct {
	ID             string   `json:"id"`         // canonical id, never changes once assigned
	ProviderID     string   `json:"providerId"` // last id the provider issued, informational
	TickerSymbol   string   `json:"tickerSymbol"`
	Name           string   `json:"name"`
	Currency       string   `json:"currency"`
	ClosePrice     *float64 `json:"closePrice"`
	ClosePriceAsOf *string  `json:"closePriceAsOf"` // calendar date, YYYY-MM-DD
}

// PriceEqual reports whether b's close price has neither changed nor
// advanced relative to a. Used to skip snapshots for unchanged prices.
func PriceEqual(a, b *Security) bool {
	return floatPtrEqual(a.ClosePrice, b.ClosePrice) &&
		strPtrEqual(a.ClosePriceAsOf, b.ClosePriceAsOf)
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
