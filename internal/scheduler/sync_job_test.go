package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/hoiekim/budget-sub000/internal/models"
)

type stubItemRepo struct {
	items []*models.Item
}

func (r *stubItemRepo) FindOrCreate(_ context.Context, item *models.Item) (*models.Item, error) {
	return item, nil
}
func (r *stubItemRepo) List(_ context.Context) ([]*models.Item, error) { return r.items, nil }
func (r *stubItemRepo) GetByID(_ context.Context, id string) (*models.Item, error) {
	return nil, nil
}
func (r *stubItemRepo) UpdateCursor(_ context.Context, id, cursor string) error     { return nil }
func (r *stubItemRepo) UpdateLastSynced(_ context.Context, _ string, _ time.Time) error { return nil }
func (r *stubItemRepo) UpdateStatus(_ context.Context, id, status string) error     { return nil }
func (r *stubItemRepo) Delete(_ context.Context, id string) error                   { return nil }

// Sibling jobs of one item run concurrently, and a sync flags its item bad
// by mutating it. Every job must therefore hold its own copy of the item,
// never the listed struct or a sibling's.
func TestItemJobProvider_JobsDoNotShareItemStructs(t *testing.T) {
	plaidItem := &models.Item{ID: "item1", Provider: models.ProviderPlaid, Status: models.ItemStatusGood}
	sfItem := &models.Item{ID: "sf1", Provider: models.ProviderSimpleFin, Status: models.ItemStatusGood}
	repo := &stubItemRepo{items: []*models.Item{plaidItem, sfItem}}

	provider := NewItemJobProvider(repo, nil, nil)
	jobs, err := provider(context.Background())
	if err != nil {
		t.Fatalf("provider failed: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(jobs))
	}

	accountJob, ok := jobs[0].(*AccountSyncJob)
	if !ok {
		t.Fatalf("jobs[0] is %T, want *AccountSyncJob", jobs[0])
	}
	transactionJob, ok := jobs[1].(*TransactionSyncJob)
	if !ok {
		t.Fatalf("jobs[1] is %T, want *TransactionSyncJob", jobs[1])
	}
	itemJob, ok := jobs[2].(*ItemSyncJob)
	if !ok {
		t.Fatalf("jobs[2] is %T, want *ItemSyncJob", jobs[2])
	}

	if accountJob.item == plaidItem || transactionJob.item == plaidItem {
		t.Error("job holds the listed item struct; mutations would be shared")
	}
	if accountJob.item == transactionJob.item {
		t.Error("sibling jobs share one item struct; mutations would race")
	}
	if itemJob.item == sfItem {
		t.Error("item job holds the listed item struct; mutations would be shared")
	}

	// Copies still carry the item's identity.
	if accountJob.ItemID() != "item1" || transactionJob.ItemID() != "item1" || itemJob.ItemID() != "sf1" {
		t.Errorf("unexpected job item ids: %s, %s, %s",
			accountJob.ItemID(), transactionJob.ItemID(), itemJob.ItemID())
	}

	// Flagging one copy bad must not leak into the sibling.
	accountJob.item.Status = models.ItemStatusBad
	if transactionJob.item.Status != models.ItemStatusGood {
		t.Error("status mutation leaked across sibling jobs")
	}
}
