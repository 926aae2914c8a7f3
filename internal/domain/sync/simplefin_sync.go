package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hoiekim/budget-sub000/internal/domain/account"
	"github.com/hoiekim/budget-sub000/internal/domain/holding"
	"github.com/hoiekim/budget-sub000/internal/domain/investment"
	"github.com/hoiekim/budget-sub000/internal/domain/security"
	"github.com/hoiekim/budget-sub000/internal/domain/snapshot"
	"github.com/hoiekim/budget-sub000/internal/domain/transaction"
	"github.com/hoiekim/budget-sub000/internal/models"
)

// SimpleFinSyncService reconciles items linked through the full-window
// style provider. There is no delta API: every sync fetches everything
// dated inside the window and removals are computed by set-difference
// against stored data within that same window. Records dated before the
// window start were never re-fetched and are exempt.
type SimpleFinSyncService struct {
	client       SimpleFinClient
	items        models.ItemRepository
	rec          *reconciler
	transactions transaction.Repository
	investments  investment.Repository
	now          func() time.Time
}

// NewSimpleFinSyncService creates a sync service for full-window items.
// The now func is injected for tests and may be nil.
func NewSimpleFinSyncService(
	client SimpleFinClient,
	items models.ItemRepository,
	engine *snapshot.Engine,
	resolver *security.Resolver,
	accounts account.Repository,
	holdings holding.Repository,
	securities security.Repository,
	transactions transaction.Repository,
	investments investment.Repository,
	now func() time.Time,
) *SimpleFinSyncService {
	if now == nil {
		now = time.Now
	}
	return &SimpleFinSyncService{
		client:       client,
		items:        items,
		rec:          newReconciler(engine, resolver, accounts, holdings, securities),
		transactions: transactions,
		investments:  investments,
		now:          now,
	}
}

// SyncItem runs one full reconciliation of the item: accounts, holdings,
// securities, transactions, and investment transactions in a single
// windowed fetch. A credentials error flags the item bad and returns a
// clean (nil) error so sibling jobs keep running.
func (s *SimpleFinSyncService) SyncItem(ctx context.Context, item *models.Item) (*Result, error) {
	result := newResult(item)
	if item.Status == models.ItemStatusBad {
		log.Printf("Item %s: skipping sync, item needs relink", item.ID)
		return result, nil
	}

	now := s.now()
	windowStart := SyncWindowStart(item, now)

	feed, err := s.client.FetchFeed(ctx, item, windowStart)
	if err != nil {
		if errors.Is(err, ErrItemLoginRequired) {
			s.flagItemBad(ctx, item, result)
			return result, nil
		}
		return result, fmt.Errorf("failed to fetch feed: %w", err)
	}

	idMap := s.rec.resolveSecurities(ctx, feed.Securities, result)

	s.rec.reconcileAccounts(ctx, item, feed.Accounts, result)
	s.rec.reconcileHoldings(ctx, item, feed.Accounts, feed.Holdings, idMap, result)

	accountIDs := make([]string, 0, len(feed.Accounts))
	for _, a := range feed.Accounts {
		accountIDs = append(accountIDs, a.ID)
	}

	s.syncTransactions(ctx, accountIDs, feed.Transactions, windowStart, result)
	s.syncInvestmentTransactions(ctx, accountIDs, feed.InvestmentTransactions, idMap, windowStart, result)

	if len(result.Errors) == 0 {
		if err := s.items.UpdateLastSynced(ctx, item.ID, now); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to update last synced: %v", err))
		}
	}

	log.Printf("Item %s: sync complete - accounts=%d holdings=%d securities=%d transactions=%d investments=%d snapshots=%d removed=%d errors=%d",
		item.ID, result.Accounts, result.Holdings, result.Securities, result.Transactions,
		result.InvestmentTransactions, result.Snapshots, result.Removed, len(result.Errors))

	return result, nil
}

// syncTransactions upserts the window's transactions, carrying user labels
// across pending->posted id churn, then removes stored transactions inside
// the window that the provider no longer reports.
func (s *SimpleFinSyncService) syncTransactions(ctx context.Context, accountIDs []string, incoming []*transaction.Transaction, windowStart time.Time, result *Result) {
	stored, err := s.transactions.ListByAccountIDsSince(ctx, accountIDs, windowStart)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to list stored transactions: %v", err))
		return
	}
	idx := transaction.NewIndex(stored)

	// Labels are carried onto the incoming rows before the set-difference
	// runs: a pending row replaced under a new id is deleted below while
	// its label survives on the posted row.
	seen := make(map[string]bool, len(incoming))
	for _, tx := range incoming {
		idx.CarryLabel(tx)
		seen[tx.ID] = true
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

	var removedIDs []string
	for _, tx := range stored {
		if !seen[tx.ID] {
			removedIDs = append(removedIDs, tx.ID)
		}
	}
	if len(removedIDs) > 0 {
		deleted, err := s.transactions.DeleteMany(ctx, removedIDs)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to delete removed transactions: %v", err))
			return
		}
		result.Removed += int(deleted)
	}
}

// syncInvestmentTransactions mirrors syncTransactions for investment
// records, rewriting security references to canonical ids first.
func (s *SimpleFinSyncService) syncInvestmentTransactions(ctx context.Context, accountIDs []string, incoming []*investment.Transaction, idMap map[string]string, windowStart time.Time, result *Result) {
	stored, err := s.investments.ListByAccountIDsSince(ctx, accountIDs, windowStart)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to list stored investment transactions: %v", err))
		return
	}

	seen := make(map[string]bool, len(incoming))
	for _, tx := range incoming {
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

	var removedIDs []string
	for _, tx := range stored {
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

func (s *SimpleFinSyncService) flagItemBad(ctx context.Context, item *models.Item, result *Result) {
	log.Printf("Item %s: provider requires relink - flagging item bad", item.ID)
	if err := s.items.UpdateStatus(ctx, item.ID, models.ItemStatusBad); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to flag item bad: %v", err))
		return
	}
	item.Status = models.ItemStatusBad
	result.Errors = append(result.Errors, ErrItemLoginRequired.Error())
}
