package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/hoiekim/budget-sub000/internal/domain/sync"
	"github.com/hoiekim/budget-sub000/internal/models"
)

// AccountSyncJob syncs one cursor/delta item's accounts, holdings, and
// securities.
type AccountSyncJob struct {
	item *models.Item
	svc  *sync.PlaidSyncService
}

func NewAccountSyncJob(item *models.Item, svc *sync.PlaidSyncService) *AccountSyncJob {
	return &AccountSyncJob{item: item, svc: svc}
}

func (j *AccountSyncJob) ItemID() string      { return j.item.ID }
func (j *AccountSyncJob) Description() string { return "account sync" }

func (j *AccountSyncJob) Execute(ctx context.Context) error {
	result, err := j.svc.SyncAccounts(ctx, j.item)
	if err != nil {
		return err
	}
	return partialFailure(result)
}

// TransactionSyncJob syncs one cursor/delta item's transactions and
// investment transactions.
type TransactionSyncJob struct {
	item *models.Item
	svc  *sync.PlaidSyncService
}

func NewTransactionSyncJob(item *models.Item, svc *sync.PlaidSyncService) *TransactionSyncJob {
	return &TransactionSyncJob{item: item, svc: svc}
}

func (j *TransactionSyncJob) ItemID() string      { return j.item.ID }
func (j *TransactionSyncJob) Description() string { return "transaction sync" }

func (j *TransactionSyncJob) Execute(ctx context.Context) error {
	result, err := j.svc.SyncTransactions(ctx, j.item)
	if err != nil {
		return err
	}
	return partialFailure(result)
}

// ItemSyncJob runs the single combined sync for a full-window item.
type ItemSyncJob struct {
	item *models.Item
	svc  *sync.SimpleFinSyncService
}

func NewItemSyncJob(item *models.Item, svc *sync.SimpleFinSyncService) *ItemSyncJob {
	return &ItemSyncJob{item: item, svc: svc}
}

func (j *ItemSyncJob) ItemID() string      { return j.item.ID }
func (j *ItemSyncJob) Description() string { return "item sync" }

func (j *ItemSyncJob) Execute(ctx context.Context) error {
	result, err := j.svc.SyncItem(ctx, j.item)
	if err != nil {
		return err
	}
	return partialFailure(result)
}

// partialFailure turns a result with per-entity errors into a job error so
// the cycle summary counts it, without hiding the entities that did land.
func partialFailure(result *sync.Result) error {
	if len(result.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("sync finished with %d errors (first: %s)", len(result.Errors), result.Errors[0])
}

// NewItemJobProvider enumerates the linked items once per cycle and builds
// the job set: account + transaction jobs for cursor/delta items, one
// combined job for full-window items. The two jobs of one item run
// concurrently; each item's state is independent of its siblings.
func NewItemJobProvider(
	items models.ItemRepository,
	plaid *sync.PlaidSyncService,
	simpleFin *sync.SimpleFinSyncService,
) func(context.Context) ([]Job, error) {
	return func(ctx context.Context) ([]Job, error) {
		linked, err := items.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list items: %w", err)
		}

		var jobs []Job
		for _, item := range linked {
			switch item.Provider {
			case models.ProviderPlaid:
				// The two jobs of one item run concurrently and a sync can
				// mutate its item (flagging it bad), so each job gets its
				// own copy. The store stays the source of truth.
				accountItem, transactionItem := *item, *item
				jobs = append(jobs, NewAccountSyncJob(&accountItem, plaid), NewTransactionSyncJob(&transactionItem, plaid))
			case models.ProviderSimpleFin:
				feedItem := *item
				jobs = append(jobs, NewItemSyncJob(&feedItem, simpleFin))
			default:
				log.Printf("Item %s: unknown provider %q, skipping", item.ID, item.Provider)
			}
		}
		return jobs, nil
	}
}
