package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hoiekim/budget-sub000/internal/domain/account"
	"github.com/hoiekim/budget-sub000/internal/domain/holding"
	"github.com/hoiekim/budget-sub000/internal/domain/investment"
	"github.com/hoiekim/budget-sub000/internal/domain/security"
	"github.com/hoiekim/budget-sub000/internal/domain/snapshot"
	"github.com/hoiekim/budget-sub000/internal/domain/transaction"
	"github.com/hoiekim/budget-sub000/internal/models"
)

// PlaidSyncService reconciles items linked through the cursor/delta style
// provider. Accounts and holdings are fetched fully each cycle;
// transactions arrive as added/modified/removed deltas bounded by a
// stored cursor.
type PlaidSyncService struct {
	client       PlaidClient
	items        models.ItemRepository
	rec          *reconciler
	transactions transaction.Repository
	investments  investment.Repository
	now          func() time.Time
}

// NewPlaidSyncService creates a sync service for cursor/delta items. The
// now func is injected for tests and may be nil.
func NewPlaidSyncService(
	client PlaidClient,
	items models.ItemRepository,
	engine *snapshot.Engine,
	resolver *security.Resolver,
	accounts account.Repository,
	holdings holding.Repository,
	securities security.Repository,
	transactions transaction.Repository,
	investments investment.Repository,
	now func() time.Time,
) *PlaidSyncService {
	if now == nil {
		now = time.Now
	}
	return &PlaidSyncService{
		client:       client,
		items:        items,
		rec:          newReconciler(engine, resolver, accounts, holdings, securities),
		transactions: transactions,
		investments:  investments,
		now:          now,
	}
}

// SyncAccounts pulls the item's current accounts, holdings, and securities
// and reconciles them. A credentials error flags the item bad and returns
// a clean (nil) error so sibling jobs keep running.
func (s *PlaidSyncService) SyncAccounts(ctx context.Context, item *models.Item) (*Result, error) {
	result := newResult(item)
	if item.Status == models.ItemStatusBad {
		log.Printf("Item %s: skipping account sync, item needs relink", item.ID)
		return result, nil
	}

	var (
		fetched      []*account.Account
		holdingsData *HoldingsData
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		accounts, err := s.client.FetchAccounts(gctx, item)
		if err != nil {
			return fmt.Errorf("failed to fetch accounts: %w", err)
		}
		fetched = accounts
		return nil
	})
	g.Go(func() error {
		data, err := s.client.FetchHoldings(gctx, item)
		if errors.Is(err, ErrNoInvestmentAccounts) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to fetch holdings: %w", err)
		}
		holdingsData = data
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, ErrItemLoginRequired) {
			s.flagItemBad(ctx, item, result)
			return result, nil
		}
		return result, err
	}

	var idMap map[string]string
	if holdingsData != nil {
		idMap = s.rec.resolveSecurities(ctx, holdingsData.Securities, result)
	}

	s.rec.reconcileAccounts(ctx, item, fetched, result)

	if holdingsData != nil {
		s.rec.reconcileHoldings(ctx, item, holdingsData.Accounts, holdingsData.Holdings, idMap, result)
	}

	log.Printf("Item %s: account sync complete - accounts=%d holdings=%d securities=%d snapshots=%d removed=%d errors=%d",
		item.ID, result.Accounts, result.Holdings, result.Securities, result.Snapshots, result.Removed, len(result.Errors))

	return result, nil
}

// SyncTransactions pulls the transaction delta since the stored cursor,
// carries user labels across the pending->posted id transition, applies
// provider-reported removals, and advances the cursor only after a clean
// write. Investment transactions ride along with their own windowed
// removal check.
func (s *PlaidSyncService) SyncTransactions(ctx context.Context, item *models.Item) (*Result, error) {
	result := newResult(item)
	if item.Status == models.ItemStatusBad {
		log.Printf("Item %s: skipping transaction sync, item needs relink", item.ID)
		return result, nil
	}

	cursor := ""
	if item.Cursor != nil {
		cursor = *item.Cursor
	}

	delta, err := s.client.FetchTransactionDelta(ctx, item, cursor)
	if err != nil {
		if errors.Is(err, ErrItemLoginRequired) {
			s.flagItemBad(ctx, item, result)
			return result, nil
		}
		return result, fmt.Errorf("failed to fetch transaction delta: %w", err)
	}

	accountIDs, err := s.itemAccountIDs(ctx, item)
	if err != nil {
		return result, err
	}

	stored, err := s.transactions.ListByAccountIDs(ctx, accountIDs)
	if err != nil {
		return result, fmt.Errorf("failed to list stored transactions: %w", err)
	}
	idx := transaction.NewIndex(stored)

	incoming := make([]*transaction.Transaction, 0, len(delta.Added)+len(delta.Modified))
	incoming = append(incoming, delta.Added...)
	incoming = append(incoming, delta.Modified...)

	txErrsBefore := len(result.Errors)
	for _, tx := range incoming {
		idx.CarryLabel(tx)
		if err := tx.Validate(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("invalid transaction %s: %v", tx.ID, err))
			continue
		}
		if err := s.transactions.Upsert(ctx, tx); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to upsert transaction %s: %v", tx.ID, err))
			continue
		}
		result.Transactions++
	}

	if len(delta.RemovedIDs) > 0 {
		deleted, err := s.transactions.DeleteMany(ctx, delta.RemovedIDs)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to delete removed transactions: %v", err))
		} else {
			result.Removed += int(deleted)
		}
	}

	// The cursor only advances when every write in this delta landed;
	// otherwise the next cycle re-fetches the same window, which is safe
	// because every write is an upsert.
	if len(result.Errors) == txErrsBefore && delta.NextCursor != "" {
		if err := s.items.UpdateCursor(ctx, item.ID, delta.NextCursor); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to advance cursor: %v", err))
		}
	}

	s.syncInvestmentTransactions(ctx, item, accountIDs, result)

	if len(result.Errors) == 0 {
		if err := s.items.UpdateLastSynced(ctx, item.ID, s.now()); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to update last synced: %v", err))
		}
	}

	log.Printf("Item %s: transaction sync complete - transactions=%d investments=%d removed=%d errors=%d",
		item.ID, result.Transactions, result.InvestmentTransactions, result.Removed, len(result.Errors))

	return result, nil
}

// syncInvestmentTransactions fetches the recent investment window and
// reconciles it. The provider has no delta API here, so removal is a
// set-difference bounded to the recency window: older stored records were
// never re-fetched and are left alone.
func (s *PlaidSyncService) syncInvestmentTransactions(ctx context.Context, item *models.Item, accountIDs []string, result *Result) {
	now := s.now()
	start := SyncWindowStart(item, now)

	data, err := s.client.FetchInvestmentTransactions(ctx, item, start, now)
	if errors.Is(err, ErrNoInvestmentAccounts) {
		return
	}
	if errors.Is(err, ErrItemLoginRequired) {
		s.flagItemBad(ctx, item, result)
		return
	}
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to fetch investment transactions: %v", err))
		return
	}

	idMap := s.rec.resolveSecurities(ctx, data.Securities, result)

	seen := make(map[string]bool, len(data.Transactions))
	for _, tx := range data.Transactions {
		if canonical, ok := idMap[tx.SecurityID]; ok {
			tx.SecurityID = canonical
		}
		seen[tx.ID] = true
		if err := tx.Validate(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("invalid investment transaction %s: %v", tx.ID, err))
			continue
		}
		if err := s.investments.Upsert(ctx, tx); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to upsert investment transaction %s: %v", tx.ID, err))
			continue
		}
		result.InvestmentTransactions++
	}

	recent, err := s.investments.ListByAccountIDsSince(ctx, accountIDs, RemovalWindowStart(now))
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to list recent investment transactions: %v", err))
		return
	}

	var removedIDs []string
	for _, tx := range recent {
		if !seen[tx.ID] {
			removedIDs = append(removedIDs, tx.ID)
		}
	}
	if len(removedIDs) > 0 {
		deleted, err := s.investments.DeleteMany(ctx, removedIDs)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to delete removed investment transactions: %v", err))
			return
		}
		result.Removed += int(deleted)
	}
}

func (s *PlaidSyncService) itemAccountIDs(ctx context.Context, item *models.Item) ([]string, error) {
	accounts, err := s.rec.accounts.ListByItemID(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list item accounts: %w", err)
	}
	ids := make([]string, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

func (s *PlaidSyncService) flagItemBad(ctx context.Context, item *models.Item, result *Result) {
	log.Printf("Item %s: provider requires relink - flagging item bad", item.ID)
	if err := s.items.UpdateStatus(ctx, item.ID, models.ItemStatusBad); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to flag item bad: %v", err))
		return
	}
	item.Status = models.ItemStatusBad
	result.Errors = append(result.Errors, ErrItemLoginRequired.Error())
}
