package security

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hoiekim/budget-sub000/internal/shared/cache"
)

// cacheTTL bounds how long a ticker->canonical-id mapping is trusted
// without re-checking the store.
const cacheTTL = 12 * time.Hour

// Resolver maps provider-issued securities onto their canonical ids.
//
// Resolution is resolve-then-upsert: the store is consulted before any id
// is minted, so concurrent item syncs converge on the same canonical row
// for a ticker instead of minting duplicates.
type Resolver struct {
	repo  Repository
	cache *cache.Cache[string, string] // cache key -> canonical id
}

// NewResolver creates a resolver. The now func is injected for tests and
// may be nil.
func NewResolver(repo Repository, now func() time.Time) *Resolver {
	return &Resolver{
		repo:  repo,
		cache: cache.New[string, string](cacheTTL, now),
	}
}

// Result holds the outcome of resolving one batch of incoming securities.
type Result struct {
	// Resolved securities, ids rewritten to canonical ones.
	Resolved []*Security
	// IDMap maps each provider-issued id to its canonical id. Holdings and
	// investment transactions must be rewritten through this map before any
	// snapshot or store write.
	IDMap map[string]string
	// Minted lists canonical ids created during this resolution.
	Minted map[string]bool
	// Errors collects per-security lookup failures; the batch continues
	// past them.
	Errors []error
}

// Resolve rewrites each incoming security's id to its canonical id,
// minting a new one when no stored security matches.
func (r *Resolver) Resolve(ctx context.Context, incoming []*Security) *Result {
	result := &Result{
		IDMap:  make(map[string]string, len(incoming)),
		Minted: make(map[string]bool),
	}

	for _, sec := range incoming {
		providerID := sec.ID
		canonical, minted, err := r.resolveOne(ctx, sec)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to resolve security %s (%s): %w", providerID, sec.TickerSymbol, err))
			continue
		}

		sec.ProviderID = providerID
		sec.ID = canonical
		result.IDMap[providerID] = canonical
		if minted {
			result.Minted[canonical] = true
		}
		result.Resolved = append(result.Resolved, sec)
	}

	return result
}

// resolveOne returns the canonical id for one security and whether it was
// freshly minted.
func (r *Resolver) resolveOne(ctx context.Context, sec *Security) (string, bool, error) {
	key := cacheKey(sec)
	if id, ok := r.cache.Get(key); ok {
		return id, false, nil
	}

	existing, err := r.lookup(ctx, sec)
	if err != nil {
		return "", false, err
	}
	if existing != nil {
		r.cache.Set(key, existing.ID)
		return existing.ID, false, nil
	}

	id := uuid.NewString()
	log.Printf("Security %s (%s): minted canonical id %s", sec.ID, sec.TickerSymbol, id)
	r.cache.Set(key, id)
	return id, true, nil
}

func (r *Resolver) lookup(ctx context.Context, sec *Security) (*Security, error) {
	if sec.TickerSymbol == "" {
		// No ticker to match on; the provider id is the only handle.
		found, err := r.repo.FindByProviderID(ctx, sec.ID)
		if err != nil {
			return nil, err
		}
		return found, nil
	}

	matches, err := r.repo.FindByTicker(ctx, sec.TickerSymbol, sec.Currency)
	if err != nil {
		return nil, err
	}
	if len(matches) > 0 {
		return matches[0], nil
	}

	// Retry without the currency narrowing, but only trust a unique match.
	if sec.Currency != "" {
		matches, err = r.repo.FindByTicker(ctx, sec.TickerSymbol, "")
		if err != nil {
			return nil, err
		}
		if len(matches) == 1 {
			return matches[0], nil
		}
	}

	return nil, nil
}

func cacheKey(sec *Security) string {
	if sec.TickerSymbol == "" {
		return "pid|" + sec.ID
	}
	return strings.ToUpper(sec.TickerSymbol) + "|" + strings.ToUpper(sec.Currency)
}
