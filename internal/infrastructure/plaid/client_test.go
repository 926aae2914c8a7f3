package plaid

import (
	"context"
	"testing"

	plaidgo "github.com/plaid/plaid-go/v9/plaid"

	"github.com/hoiekim/budget-sub000/internal/domain/security"
)

// emptySecurityRepo implements security.Repository with no stored rows, so
// every resolved security mints a fresh canonical id.
type emptySecurityRepo struct{}

func (emptySecurityRepo) GetByID(context.Context, string) (*security.Security, error) {
	return nil, nil
}
func (emptySecurityRepo) FindByTicker(context.Context, string, string) ([]*security.Security, error) {
	return nil, nil
}
func (emptySecurityRepo) FindByProviderID(context.Context, string) (*security.Security, error) {
	return nil, nil
}
func (emptySecurityRepo) Upsert(context.Context, *security.Security) error { return nil }

func apiSecurity(id, ticker string) plaidgo.Security {
	var s plaidgo.Security
	s.SetSecurityId(id)
	s.SetTickerSymbol(ticker)
	s.SetName("Apple Inc")
	s.SetIsoCurrencyCode("USD")
	s.SetClosePrice(190.25)
	s.SetClosePriceAsOf("2024-05-31")
	return s
}

func apiHolding(accountID, securityID string) plaidgo.Holding {
	var h plaidgo.Holding
	h.SetAccountId(accountID)
	h.SetSecurityId(securityID)
	h.SetQuantity(10)
	h.SetInstitutionPrice(190.25)
	h.SetInstitutionValue(1902.50)
	h.SetCostBasis(1500)
	h.SetIsoCurrencyCode("USD")
	return h
}

// The provider-issued security id must ride in ID so the resolver can key
// its IDMap on it; holdings reference the same id until they are rewritten
// to the canonical one.
func TestBuildSecurity_CarriesProviderIDForResolution(t *testing.T) {
	sec := buildSecurity(apiSecurity("S-1", "AAPL"))

	if sec.ID != "S-1" {
		t.Fatalf("security ID = %q, want provider id S-1", sec.ID)
	}
	if sec.ProviderID != "S-1" || sec.TickerSymbol != "AAPL" || sec.Currency != "USD" {
		t.Errorf("unexpected security: %+v", sec)
	}
	if sec.ClosePrice == nil || *sec.ClosePrice != 190.25 {
		t.Errorf("unexpected close price: %v", sec.ClosePrice)
	}
	if sec.ClosePriceAsOf == nil || *sec.ClosePriceAsOf != "2024-05-31" {
		t.Errorf("unexpected close price as-of: %v", sec.ClosePriceAsOf)
	}
}

func TestBuildHolding_SecurityIDResolvableThroughIDMap(t *testing.T) {
	sec := buildSecurity(apiSecurity("S-1", "AAPL"))
	h := buildHolding(apiHolding("acc1", "S-1"))

	if h.SecurityID != "S-1" || h.AccountID != "acc1" {
		t.Fatalf("unexpected holding: %+v", h)
	}
	if h.Quantity != 10 || h.Value != 1902.50 {
		t.Errorf("unexpected holding numbers: %+v", h)
	}

	resolver := security.NewResolver(emptySecurityRepo{}, nil)
	resolved := resolver.Resolve(context.Background(), []*security.Security{sec})
	if len(resolved.Errors) != 0 {
		t.Fatalf("Resolve() errors: %v", resolved.Errors)
	}

	canonical, ok := resolved.IDMap[h.SecurityID]
	if !ok || canonical == "" || canonical == "S-1" {
		t.Fatalf("holding security id %q not mapped to a minted canonical id (map: %v)", h.SecurityID, resolved.IDMap)
	}
	if sec.ID != canonical || sec.ProviderID != "S-1" {
		t.Errorf("unexpected resolved security: %+v", sec)
	}
}
