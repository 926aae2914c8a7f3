package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hoiekim/budget-sub000/internal/models"
)

type stubItemStore struct {
	items   map[string]*models.Item
	deleted []string
}

func (s *stubItemStore) FindOrCreate(ctx context.Context, item *models.Item) (*models.Item, error) {
	return item, nil
}

func (s *stubItemStore) List(ctx context.Context) ([]*models.Item, error) { return nil, nil }

func (s *stubItemStore) GetByID(ctx context.Context, id string) (*models.Item, error) {
	return s.items[id], nil
}

func (s *stubItemStore) UpdateCursor(ctx context.Context, id, cursor string) error { return nil }

func (s *stubItemStore) UpdateLastSynced(ctx context.Context, id string, at time.Time) error {
	return nil
}

func (s *stubItemStore) UpdateStatus(ctx context.Context, id, status string) error { return nil }

func (s *stubItemStore) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	delete(s.items, id)
	return nil
}

type stubAccountRemover struct {
	softDeleted []string
	err         error
}

func (s *stubAccountRemover) SoftDeleteByItem(ctx context.Context, itemID string) error {
	if s.err != nil {
		return s.err
	}
	s.softDeleted = append(s.softDeleted, itemID)
	return nil
}

func TestUnlinkItem_SoftRemovesAccountsThenDeletes(t *testing.T) {
	items := &stubItemStore{items: map[string]*models.Item{
		"item-1": {ID: "item-1", Provider: models.ProviderPlaid},
	}}
	accounts := &stubAccountRemover{}

	item, err := unlinkItem(context.Background(), items, accounts, "item-1")
	if err != nil {
		t.Fatalf("unlinkItem() failed: %v", err)
	}
	if item.ID != "item-1" {
		t.Errorf("unlinkItem() returned item %s, want item-1", item.ID)
	}

	if len(accounts.softDeleted) != 1 || accounts.softDeleted[0] != "item-1" {
		t.Errorf("soft-deleted accounts for %v, want [item-1]", accounts.softDeleted)
	}
	if len(items.deleted) != 1 || items.deleted[0] != "item-1" {
		t.Errorf("deleted items %v, want [item-1]", items.deleted)
	}
}

func TestUnlinkItem_UnknownItem(t *testing.T) {
	items := &stubItemStore{items: map[string]*models.Item{}}
	accounts := &stubAccountRemover{}

	_, err := unlinkItem(context.Background(), items, accounts, "missing")
	if !errors.Is(err, models.ErrItemNotFound) {
		t.Fatalf("unlinkItem() error = %v, want ErrItemNotFound", err)
	}
	if len(accounts.softDeleted) != 0 {
		t.Error("unlinkItem() touched accounts for an unknown item")
	}
}

func TestUnlinkItem_KeepsItemWhenAccountRemovalFails(t *testing.T) {
	items := &stubItemStore{items: map[string]*models.Item{
		"item-1": {ID: "item-1", Provider: models.ProviderSimpleFin},
	}}
	accounts := &stubAccountRemover{err: errors.New("connection reset")}

	if _, err := unlinkItem(context.Background(), items, accounts, "item-1"); err == nil {
		t.Fatal("unlinkItem() succeeded despite account removal failure")
	}
	if len(items.deleted) != 0 {
		t.Error("unlinkItem() deleted the item after account removal failed")
	}
}
