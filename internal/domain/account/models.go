package account

import (
	"errors"
	"time"
)

// Domain errors
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidInput    = errors.New("invalid input")
)

// Balances holds the provider-reported balance set for an account.
// Pointer fields distinguish "not reported" from zero.
type Balances struct {
	Available *float64 `json:"available"`
	Current   *float64 `json:"current"`
	Limit     *float64 `json:"limit"`
	Currency  string   `json:"currency"`
}

// Account represents a financial account linked through a provider item.
//
// Provider-owned fields are overwritten on every sync. The user-edited
// fields (CustomName, Hidden, BudgetLabel, GraphColor) are never written
// from provider data; MergeUserEdits carries them across re-syncs.
type Account struct {
	ID            string   `json:"id"` // provider account id
	ItemID        string   `json:"itemId"`
	InstitutionID string   `json:"institutionId"`
	Name          string   `json:"name"`
	OfficialName  string   `json:"officialName"`
	Type          string   `json:"type"`
	Subtype       string   `json:"subtype"`
	Mask          string   `json:"mask"`
	Balances      Balances `json:"balances"`

	// User-edited fields
	CustomName  *string `json:"customName"`
	Hidden      bool    `json:"hidden"`
	BudgetLabel string  `json:"budgetLabel"`
	GraphColor  string  `json:"graphColor"`

	Removed   bool      `json:"removed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks the fields a provider must always supply.
func (a *Account) Validate() error {
	if a.ID == "" {
		return errors.New("account ID is required")
	}
	if a.ItemID == "" {
		return errors.New("item ID is required")
	}
	if a.Name == "" {
		return errors.New("account name is required")
	}
	return nil
}

// Patch contains the user-editable fields of an account as a typed partial
// update. Nil fields are left untouched.
type Patch struct {
	CustomName  *string
	Hidden      *bool
	BudgetLabel *string
	GraphColor  *string
}

// Apply copies the non-nil fields of the patch onto a.
func (p Patch) Apply(a *Account) {
	if p.CustomName != nil {
		a.CustomName = p.CustomName
	}
	if p.Hidden != nil {
		a.Hidden = *p.Hidden
	}
	if p.BudgetLabel != nil {
		a.BudgetLabel = *p.BudgetLabel
	}
	if p.GraphColor != nil {
		a.GraphColor = *p.GraphColor
	}
}

// MergeUserEdits copies the user-edited fields from stored onto fetched.
// All provider-owned fields of fetched win; the merge never blindly
// replaces the stored record.
func MergeUserEdits(fetched, stored *Account) {
	if stored == nil {
		return
	}
	fetched.CustomName = stored.CustomName
	fetched.Hidden = stored.Hidden
	fetched.BudgetLabel = stored.BudgetLabel
	fetched.GraphColor = stored.GraphColor
	fetched.CreatedAt = stored.CreatedAt
}

// ObservedEqual reports whether the externally-observable state of two
// accounts is the same. Used by the snapshot engine to skip snapshots for
// unchanged daily syncs.
func ObservedEqual(a, b *Account) bool {
	return floatPtrEqual(a.Balances.Available, b.Balances.Available) &&
		floatPtrEqual(a.Balances.Current, b.Balances.Current) &&
		floatPtrEqual(a.Balances.Limit, b.Balances.Limit) &&
		a.Balances.Currency == b.Balances.Currency
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
