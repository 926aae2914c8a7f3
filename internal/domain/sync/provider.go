// Package sync provides the per-provider sync routines that reconcile
// fetched financial data against the durable store.
package sync

import (
	"context"
	"time"

	"github.com/hoiekim/budget-sub000/internal/domain/account"
	"github.com/hoiekim/budget-sub000/internal/domain/holding"
	"github.com/hoiekim/budget-sub000/internal/domain/investment"
	"github.com/hoiekim/budget-sub000/internal/domain/security"
	"github.com/hoiekim/budget-sub000/internal/domain/transaction"
	"github.com/hoiekim/budget-sub000/internal/models"
)

// HoldingsData is one fetch of an item's investment state. Security ids
// are provider-issued at this point; resolution happens in the routine.
type HoldingsData struct {
	Accounts   []*account.Account
	Holdings   []*holding.Holding
	Securities []*security.Security
}

// TransactionDelta is one consolidated delta fetch. The client walks the
// provider's pagination internally and returns the final cursor.
type TransactionDelta struct {
	Added      []*transaction.Transaction
	Modified   []*transaction.Transaction
	RemovedIDs []string
	NextCursor string
}

// InvestmentData is one windowed fetch of investment transactions plus the
// securities they reference.
type InvestmentData struct {
	Transactions []*investment.Transaction
	Securities   []*security.Security
}

// FeedData is one full-window fetch from a provider without a delta API.
type FeedData struct {
	Accounts               []*account.Account
	Holdings               []*holding.Holding
	Securities             []*security.Security
	Transactions           []*transaction.Transaction
	InvestmentTransactions []*investment.Transaction
}

// PlaidClient fetches an item's data from a cursor/delta style provider.
// Implementations must return ErrItemLoginRequired when the item's
// credentials are revoked and ErrNoInvestmentAccounts when the item has no
// investment product.
type PlaidClient interface {
	FetchAccounts(ctx context.Context, item *models.Item) ([]*account.Account, error)
	FetchHoldings(ctx context.Context, item *models.Item) (*HoldingsData, error)
	FetchTransactionDelta(ctx context.Context, item *models.Item, cursor string) (*TransactionDelta, error)
	FetchInvestmentTransactions(ctx context.Context, item *models.Item, start, end time.Time) (*InvestmentData, error)
}

// SimpleFinClient fetches an item's full state from a window-style
// provider. Everything dated on or after start is included.
type SimpleFinClient interface {
	FetchFeed(ctx context.Context, item *models.Item, start time.Time) (*FeedData, error)
}
