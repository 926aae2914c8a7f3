package sync

import (
	"time"

	"github.com/hoiekim/budget-sub000/internal/models"
)

const (
	// firstSyncLookback is how far back the first sync of an item reaches.
	firstSyncLookback = 2 * 365 * 24 * time.Hour

	// resyncBuffer is re-checked behind the last sync point to catch
	// late-arriving or corrected records.
	resyncBuffer = 14 * 24 * time.Hour
)

// SyncWindowStart computes where an item's next fetch window begins: 14
// days before the last successful sync, or two years back when the item
// has never synced.
func SyncWindowStart(item *models.Item, now time.Time) time.Time {
	if item.LastSyncedAt != nil {
		return item.LastSyncedAt.Add(-resyncBuffer)
	}
	return now.Add(-firstSyncLookback)
}

// RemovalWindowStart bounds the investment-transaction removal check.
// Stored records older than this are never re-fetched, so their absence
// from a fresh batch means nothing.
func RemovalWindowStart(now time.Time) time.Time {
	return now.Add(-resyncBuffer)
}
