package sync

import (
	"context"
	"fmt"
	"log"

	"github.com/hoiekim/budget-sub000/internal/domain/account"
	"github.com/hoiekim/budget-sub000/internal/domain/holding"
	"github.com/hoiekim/budget-sub000/internal/domain/security"
	"github.com/hoiekim/budget-sub000/internal/domain/snapshot"
	"github.com/hoiekim/budget-sub000/internal/models"
)

// Result contains the results of one item's sync.
type Result struct {
	ItemID                 string
	Provider               models.Provider
	Accounts               int
	Holdings               int
	Securities             int
	Transactions           int
	InvestmentTransactions int
	Snapshots              int
	Removed                int
	Errors                 []string
}

func newResult(item *models.Item) *Result {
	return &Result{ItemID: item.ID, Provider: item.Provider, Errors: []string{}}
}

func (r *Result) addErrors(errs []error) {
	for _, err := range errs {
		r.Errors = append(r.Errors, err.Error())
	}
}

// reconciler holds the store-facing half shared by both provider routines:
// security resolution, user-edit merging, and the snapshot diffs for
// accounts, holdings, and securities.
type reconciler struct {
	engine     *snapshot.Engine
	resolver   *security.Resolver
	accounts   account.Repository
	holdings   holding.Repository
	securities security.Repository
}

func newReconciler(
	engine *snapshot.Engine,
	resolver *security.Resolver,
	accounts account.Repository,
	holdings holding.Repository,
	securities security.Repository,
) *reconciler {
	return &reconciler{
		engine:     engine,
		resolver:   resolver,
		accounts:   accounts,
		holdings:   holdings,
		securities: securities,
	}
}

func (r *reconciler) accountConfig() snapshot.Config[*account.Account] {
	return snapshot.Config[*account.Account]{
		Kind:  snapshot.KindAccount,
		Key:   func(a *account.Account) string { return a.ID },
		Equal: account.ObservedEqual,
		Capture: func(a *account.Account) (snapshot.Values, string) {
			return snapshot.Values{
				Available: a.Balances.Available,
				Current:   a.Balances.Current,
				Limit:     a.Balances.Limit,
			}, a.Balances.Currency
		},
		// Parent is nil: accounts are never removed by provider omission,
		// only when their item is unlinked.
		Zero: func(a *account.Account) (snapshot.Values, string) {
			return snapshot.Values{}, a.Balances.Currency
		},
		Upsert: r.accounts.Upsert,
	}
}

func (r *reconciler) holdingConfig() snapshot.Config[*holding.Holding] {
	return snapshot.Config[*holding.Holding]{
		Kind:   snapshot.KindHolding,
		Key:    func(h *holding.Holding) string { return h.ID },
		Parent: func(h *holding.Holding) string { return h.AccountID },
		Equal:  holding.ObservedEqual,
		Capture: func(h *holding.Holding) (snapshot.Values, string) {
			return snapshot.Values{
				Quantity:  snapshot.Ptr(h.Quantity),
				CostBasis: snapshot.Ptr(h.CostBasis),
				Price:     snapshot.Ptr(h.Price),
				Value:     snapshot.Ptr(h.Value),
			}, h.Currency
		},
		Zero: func(h *holding.Holding) (snapshot.Values, string) {
			return snapshot.Values{
				Quantity: snapshot.Ptr(0),
				Value:    snapshot.Ptr(0),
			}, h.Currency
		},
		Upsert: r.holdings.Upsert,
	}
}

func (r *reconciler) securityConfig() snapshot.Config[*security.Security] {
	return snapshot.Config[*security.Security]{
		Kind:  snapshot.KindSecurity,
		Key:   func(s *security.Security) string { return s.ID },
		Equal: security.PriceEqual,
		Capture: func(s *security.Security) (snapshot.Values, string) {
			return snapshot.Values{ClosePrice: s.ClosePrice}, s.Currency
		},
		Zero: func(s *security.Security) (snapshot.Values, string) {
			return snapshot.Values{}, s.Currency
		},
		Upsert: r.securities.Upsert,
	}
}

// resolveSecurities rewrites incoming securities to canonical ids and
// reconciles them. Returns the provider-id -> canonical-id map holdings
// and investment transactions must be rewritten through.
func (r *reconciler) resolveSecurities(ctx context.Context, incoming []*security.Security, result *Result) map[string]string {
	resolved := r.resolver.Resolve(ctx, incoming)
	result.addErrors(resolved.Errors)

	var existing []*security.Security
	for _, sec := range resolved.Resolved {
		if resolved.Minted[sec.ID] {
			continue
		}
		stored, err := r.securities.GetByID(ctx, sec.ID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to load security %s: %v", sec.ID, err))
			continue
		}
		if stored != nil {
			existing = append(existing, stored)
		}
	}

	diff := snapshot.Diff(ctx, r.engine, resolved.Resolved, existing, r.securityConfig())
	result.addErrors(diff.Errors)
	result.Securities += len(diff.Upserted)
	result.Snapshots += diff.Snapshots

	return resolved.IDMap
}

// reconcileAccounts merges stored user edits onto the fetched accounts and
// reconciles them. The fetched records' provider fields win.
func (r *reconciler) reconcileAccounts(ctx context.Context, item *models.Item, fetched []*account.Account, result *Result) {
	stored, err := r.accounts.ListByItemID(ctx, item.ID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to list stored accounts: %v", err))
		return
	}

	byID := make(map[string]*account.Account, len(stored))
	for _, a := range stored {
		byID[a.ID] = a
	}

	for _, a := range fetched {
		a.ItemID = item.ID
		a.InstitutionID = item.InstitutionID
		account.MergeUserEdits(a, byID[a.ID])
	}

	diff := snapshot.Diff(ctx, r.engine, fetched, stored, r.accountConfig())
	result.addErrors(diff.Errors)
	result.Accounts += len(diff.Upserted)
	result.Snapshots += diff.Snapshots
}

// reconcileHoldings rewrites holdings onto canonical security ids, diffs
// them against storage scoped to the reported accounts, and deletes the
// positions that disappeared.
func (r *reconciler) reconcileHoldings(ctx context.Context, item *models.Item, fetchedAccounts []*account.Account, fetched []*holding.Holding, idMap map[string]string, result *Result) {
	for _, h := range fetched {
		if canonical, ok := idMap[h.SecurityID]; ok {
			h.SecurityID = canonical
		}
		h.ID = holding.DeriveID(h.AccountID, h.SecurityID)
	}

	accountIDs := make([]string, 0, len(fetchedAccounts))
	for _, a := range fetchedAccounts {
		accountIDs = append(accountIDs, a.ID)
	}

	stored, err := r.holdings.ListByAccountIDs(ctx, accountIDs)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to list stored holdings: %v", err))
		return
	}

	// The parent scope is the reported account set, not the accounts that
	// happen to still have holdings: an account whose last position was
	// sold arrives with zero holdings and its stored ones must be removed.
	cfg := r.holdingConfig()
	cfg.Parents = accountIDs

	diff := snapshot.Diff(ctx, r.engine, fetched, stored, cfg)
	result.addErrors(diff.Errors)
	result.Holdings += len(diff.Upserted)
	result.Snapshots += diff.Snapshots

	if len(diff.Removed) > 0 {
		ids := make([]string, 0, len(diff.Removed))
		for _, h := range diff.Removed {
			ids = append(ids, h.ID)
		}
		deleted, err := r.holdings.DeleteMany(ctx, ids)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to delete removed holdings: %v", err))
			return
		}
		result.Removed += int(deleted)
		log.Printf("Item %s: removed %d holdings no longer reported", item.ID, deleted)
	}
}
