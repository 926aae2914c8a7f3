package sync

import (
	"context"
	"errors"
	"time"

	"github.com/hoiekim/budget-sub000/internal/domain/account"
	"github.com/hoiekim/budget-sub000/internal/domain/holding"
	"github.com/hoiekim/budget-sub000/internal/domain/investment"
	"github.com/hoiekim/budget-sub000/internal/domain/security"
	"github.com/hoiekim/budget-sub000/internal/domain/snapshot"
	"github.com/hoiekim/budget-sub000/internal/domain/transaction"
	"github.com/hoiekim/budget-sub000/internal/models"
)

type MockPlaidClient struct {
	FetchAccountsFunc               func(ctx context.Context, item *models.Item) ([]*account.Account, error)
	FetchHoldingsFunc               func(ctx context.Context, item *models.Item) (*HoldingsData, error)
	FetchTransactionDeltaFunc       func(ctx context.Context, item *models.Item, cursor string) (*TransactionDelta, error)
	FetchInvestmentTransactionsFunc func(ctx context.Context, item *models.Item, start, end time.Time) (*InvestmentData, error)
}

func (m *MockPlaidClient) FetchAccounts(ctx context.Context, item *models.Item) ([]*account.Account, error) {
	if m.FetchAccountsFunc == nil {
		return nil, nil
	}
	return m.FetchAccountsFunc(ctx, item)
}

func (m *MockPlaidClient) FetchHoldings(ctx context.Context, item *models.Item) (*HoldingsData, error) {
	if m.FetchHoldingsFunc == nil {
		return nil, ErrNoInvestmentAccounts
	}
	return m.FetchHoldingsFunc(ctx, item)
}

func (m *MockPlaidClient) FetchTransactionDelta(ctx context.Context, item *models.Item, cursor string) (*TransactionDelta, error) {
	if m.FetchTransactionDeltaFunc == nil {
		return &TransactionDelta{}, nil
	}
	return m.FetchTransactionDeltaFunc(ctx, item, cursor)
}

func (m *MockPlaidClient) FetchInvestmentTransactions(ctx context.Context, item *models.Item, start, end time.Time) (*InvestmentData, error) {
	if m.FetchInvestmentTransactionsFunc == nil {
		return nil, ErrNoInvestmentAccounts
	}
	return m.FetchInvestmentTransactionsFunc(ctx, item, start, end)
}

type MockSimpleFinClient struct {
	FetchFeedFunc func(ctx context.Context, item *models.Item, start time.Time) (*FeedData, error)
}

func (m *MockSimpleFinClient) FetchFeed(ctx context.Context, item *models.Item, start time.Time) (*FeedData, error) {
	return m.FetchFeedFunc(ctx, item, start)
}

// fakeStore is an in-memory store shared by the per-entity fake repos.
type fakeStore struct {
	items        map[string]*models.Item
	accounts     map[string]*account.Account
	holdings     map[string]*holding.Holding
	securities   map[string]*security.Security
	transactions map[string]*transaction.Transaction
	investments  map[string]*investment.Transaction
	snapshots    map[string]*snapshot.Snapshot

	// error injection
	failTransactionUpsertID string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items:        make(map[string]*models.Item),
		accounts:     make(map[string]*account.Account),
		holdings:     make(map[string]*holding.Holding),
		securities:   make(map[string]*security.Security),
		transactions: make(map[string]*transaction.Transaction),
		investments:  make(map[string]*investment.Transaction),
		snapshots:    make(map[string]*snapshot.Snapshot),
	}
}

type fakeItemRepo struct{ s *fakeStore }

func (r *fakeItemRepo) FindOrCreate(_ context.Context, item *models.Item) (*models.Item, error) {
	if existing, ok := r.s.items[item.ID]; ok {
		return existing, nil
	}
	r.s.items[item.ID] = item
	return item, nil
}

func (r *fakeItemRepo) List(_ context.Context) ([]*models.Item, error) {
	var out []*models.Item
	for _, item := range r.s.items {
		out = append(out, item)
	}
	return out, nil
}

func (r *fakeItemRepo) GetByID(_ context.Context, id string) (*models.Item, error) {
	return r.s.items[id], nil
}

func (r *fakeItemRepo) UpdateCursor(_ context.Context, id string, cursor string) error {
	r.s.items[id].Cursor = &cursor
	return nil
}

func (r *fakeItemRepo) UpdateLastSynced(_ context.Context, id string, at time.Time) error {
	r.s.items[id].LastSyncedAt = &at
	return nil
}

func (r *fakeItemRepo) UpdateStatus(_ context.Context, id string, status string) error {
	r.s.items[id].Status = status
	return nil
}

func (r *fakeItemRepo) Delete(_ context.Context, id string) error {
	delete(r.s.items, id)
	return nil
}

type fakeAccountRepo struct{ s *fakeStore }

func (r *fakeAccountRepo) GetByID(_ context.Context, id string) (*account.Account, error) {
	return r.s.accounts[id], nil
}

func (r *fakeAccountRepo) ListByItemID(_ context.Context, itemID string) ([]*account.Account, error) {
	var out []*account.Account
	for _, a := range r.s.accounts {
		if a.ItemID == itemID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) Upsert(_ context.Context, a *account.Account) error {
	r.s.accounts[a.ID] = a
	return nil
}

func (r *fakeAccountRepo) ApplyPatch(_ context.Context, id string, patch account.Patch) (*account.Account, error) {
	a := r.s.accounts[id]
	if a == nil {
		return nil, account.ErrAccountNotFound
	}
	patch.Apply(a)
	return a, nil
}

func (r *fakeAccountRepo) SoftDeleteByItem(_ context.Context, itemID string) error {
	for _, a := range r.s.accounts {
		if a.ItemID == itemID {
			a.Removed = true
		}
	}
	return nil
}

type fakeHoldingRepo struct{ s *fakeStore }

func (r *fakeHoldingRepo) ListByAccountIDs(_ context.Context, accountIDs []string) ([]*holding.Holding, error) {
	ids := make(map[string]bool, len(accountIDs))
	for _, id := range accountIDs {
		ids[id] = true
	}
	var out []*holding.Holding
	for _, h := range r.s.holdings {
		if ids[h.AccountID] {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *fakeHoldingRepo) Upsert(_ context.Context, h *holding.Holding) error {
	r.s.holdings[h.ID] = h
	return nil
}

func (r *fakeHoldingRepo) DeleteMany(_ context.Context, ids []string) (int64, error) {
	var n int64
	for _, id := range ids {
		if _, ok := r.s.holdings[id]; ok {
			delete(r.s.holdings, id)
			n++
		}
	}
	return n, nil
}

type fakeSecurityRepo struct{ s *fakeStore }

func (r *fakeSecurityRepo) GetByID(_ context.Context, id string) (*security.Security, error) {
	return r.s.securities[id], nil
}

func (r *fakeSecurityRepo) FindByTicker(_ context.Context, ticker, currency string) ([]*security.Security, error) {
	var out []*security.Security
	for _, sec := range r.s.securities {
		if sec.TickerSymbol != ticker {
			continue
		}
		if currency != "" && sec.Currency != currency {
			continue
		}
		out = append(out, sec)
	}
	return out, nil
}

func (r *fakeSecurityRepo) FindByProviderID(_ context.Context, providerID string) (*security.Security, error) {
	for _, sec := range r.s.securities {
		if sec.ProviderID == providerID {
			return sec, nil
		}
	}
	return nil, nil
}

func (r *fakeSecurityRepo) Upsert(_ context.Context, sec *security.Security) error {
	r.s.securities[sec.ID] = sec
	return nil
}

type fakeTransactionRepo struct{ s *fakeStore }

func (r *fakeTransactionRepo) GetByID(_ context.Context, id string) (*transaction.Transaction, error) {
	return r.s.transactions[id], nil
}

func (r *fakeTransactionRepo) ListByAccountIDs(_ context.Context, accountIDs []string) ([]*transaction.Transaction, error) {
	return r.listSince(accountIDs, time.Time{}), nil
}

func (r *fakeTransactionRepo) ListByAccountIDsSince(_ context.Context, accountIDs []string, start time.Time) ([]*transaction.Transaction, error) {
	return r.listSince(accountIDs, start), nil
}

func (r *fakeTransactionRepo) listSince(accountIDs []string, start time.Time) []*transaction.Transaction {
	ids := make(map[string]bool, len(accountIDs))
	for _, id := range accountIDs {
		ids[id] = true
	}
	var out []*transaction.Transaction
	for _, t := range r.s.transactions {
		if ids[t.AccountID] && !t.Date.Before(start) {
			out = append(out, t)
		}
	}
	return out
}

func (r *fakeTransactionRepo) Upsert(_ context.Context, t *transaction.Transaction) error {
	if t.ID == r.s.failTransactionUpsertID {
		return errors.New("write failed")
	}
	r.s.transactions[t.ID] = t
	return nil
}

func (r *fakeTransactionRepo) DeleteMany(_ context.Context, ids []string) (int64, error) {
	var n int64
	for _, id := range ids {
		if _, ok := r.s.transactions[id]; ok {
			delete(r.s.transactions, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeTransactionRepo) UpdateLabel(_ context.Context, id string, label transaction.Label) error {
	t := r.s.transactions[id]
	if t == nil {
		return transaction.ErrTransactionNotFound
	}
	t.Label = label
	return nil
}

type fakeInvestmentRepo struct{ s *fakeStore }

func (r *fakeInvestmentRepo) ListByAccountIDsSince(_ context.Context, accountIDs []string, start time.Time) ([]*investment.Transaction, error) {
	ids := make(map[string]bool, len(accountIDs))
	for _, id := range accountIDs {
		ids[id] = true
	}
	var out []*investment.Transaction
	for _, t := range r.s.investments {
		if ids[t.AccountID] && !t.Date.Before(start) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeInvestmentRepo) Upsert(_ context.Context, t *investment.Transaction) error {
	r.s.investments[t.ID] = t
	return nil
}

func (r *fakeInvestmentRepo) DeleteMany(_ context.Context, ids []string) (int64, error) {
	var n int64
	for _, id := range ids {
		if _, ok := r.s.investments[id]; ok {
			delete(r.s.investments, id)
			n++
		}
	}
	return n, nil
}

type fakeSnapshotRepo struct{ s *fakeStore }

func (r *fakeSnapshotRepo) Upsert(_ context.Context, snap *snapshot.Snapshot) error {
	r.s.snapshots[snap.ID] = snap
	return nil
}

func (r *fakeSnapshotRepo) ListByEntityID(_ context.Context, entityID string) ([]*snapshot.Snapshot, error) {
	var out []*snapshot.Snapshot
	for _, snap := range r.s.snapshots {
		if snap.EntityID == entityID {
			out = append(out, snap)
		}
	}
	return out, nil
}

func testNow() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

// fixture wires a full sync stack over the in-memory store.
type fixture struct {
	store *fakeStore
	items *fakeItemRepo
}

func newFixture() *fixture {
	return &fixture{store: newFakeStore(), items: nil}
}

func (f *fixture) plaidService(client PlaidClient) *PlaidSyncService {
	f.items = &fakeItemRepo{f.store}
	engine := snapshot.NewEngine(&fakeSnapshotRepo{f.store}, testNow)
	resolver := security.NewResolver(&fakeSecurityRepo{f.store}, testNow)
	return NewPlaidSyncService(
		client,
		f.items,
		engine,
		resolver,
		&fakeAccountRepo{f.store},
		&fakeHoldingRepo{f.store},
		&fakeSecurityRepo{f.store},
		&fakeTransactionRepo{f.store},
		&fakeInvestmentRepo{f.store},
		testNow,
	)
}

func (f *fixture) simpleFinService(client SimpleFinClient) *SimpleFinSyncService {
	f.items = &fakeItemRepo{f.store}
	engine := snapshot.NewEngine(&fakeSnapshotRepo{f.store}, testNow)
	resolver := security.NewResolver(&fakeSecurityRepo{f.store}, testNow)
	return NewSimpleFinSyncService(
		client,
		f.items,
		engine,
		resolver,
		&fakeAccountRepo{f.store},
		&fakeHoldingRepo{f.store},
		&fakeSecurityRepo{f.store},
		&fakeTransactionRepo{f.store},
		&fakeInvestmentRepo{f.store},
		testNow,
	)
}
