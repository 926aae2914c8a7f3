// Package snapshot implements the point-in-time snapshot engine.
//
// A snapshot is an immutable, dated capture of one entity's
// externally-observable fields, keyed by (entity id, calendar day) so
// repeated syncs on the same day overwrite rather than duplicate history.
package snapshot

import (
	"time"
)

// Kind identifies which entity type a snapshot captures.
type Kind string

const (
	KindAccount  Kind = "account"
	KindHolding  Kind = "holding"
	KindSecurity Kind = "security"
)

// Values holds the observable numbers a snapshot captures. Nil fields do
// not apply to the snapshot's kind.
type Values struct {
	Available  *float64 `json:"available,omitempty"`
	Current    *float64 `json:"current,omitempty"`
	Limit      *float64 `json:"limit,omitempty"`
	Quantity   *float64 `json:"quantity,omitempty"`
	CostBasis  *float64 `json:"costBasis,omitempty"`
	Value      *float64 `json:"value,omitempty"`
	Price      *float64 `json:"price,omitempty"`
	ClosePrice *float64 `json:"closePrice,omitempty"`
}

// Snapshot is one dated capture of an entity's state.
type Snapshot struct {
	ID       string `json:"id"` // "<entityID>-<date>", reproducible
	EntityID string `json:"entityId"`
	Kind     Kind   `json:"kind"`
	Date     string `json:"date"` // squashed calendar date, YYYY-MM-DD
	Currency string `json:"currency"`
	Values   Values `json:"values"`
}

// SquashDate reduces a timestamp to its calendar-day string. Snapshot ids
// embed it so at most one snapshot exists per entity per day.
func SquashDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// ID builds the reproducible snapshot id for an entity on a given day.
func ID(entityID, date string) string {
	return entityID + "-" + date
}

// Ptr returns a pointer to v; a convenience for building Values.
func Ptr(v float64) *float64 { return &v }
