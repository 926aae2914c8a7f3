// Package simplefin implements the SimpleFin Bridge protocol client.
//
// SimpleFin items carry an access URL (with embedded basic-auth
// credentials) instead of a token; one GET against it returns the full
// account set with transactions and holdings for the requested window.
package simplefin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/hoiekim/budget-sub000/internal/domain/account"
	"github.com/hoiekim/budget-sub000/internal/domain/holding"
	"github.com/hoiekim/budget-sub000/internal/domain/security"
	syncdomain "github.com/hoiekim/budget-sub000/internal/domain/sync"
	"github.com/hoiekim/budget-sub000/internal/domain/transaction"
	"github.com/hoiekim/budget-sub000/internal/models"
)

const (
	defaultTimeout = 180 * time.Second // Increased for large transaction fetches
	accountsPath   = "/accounts"
)

// Client handles communication with a SimpleFin Bridge server.
type Client struct {
	httpClient *http.Client
}

// Ensure Client implements the sync provider interface
var _ syncdomain.SimpleFinClient = (*Client)(nil)

// NewClient creates a new SimpleFin client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// AccountSetResponse represents the SimpleFin /accounts response.
type AccountSetResponse struct {
	Errors   []string  `json:"errors"`
	Accounts []Account `json:"accounts"`
}

// Organization represents the institution an account belongs to.
type Organization struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Domain string `json:"domain"`
	URL    string `json:"sfin-url"`
}

// Account represents an account from the SimpleFin API.
type Account struct {
	Org                    Organization  `json:"org"`
	ID                     string        `json:"id"`
	Name                   string        `json:"name"`
	Currency               string        `json:"currency"`
	BalanceString          string        `json:"balance"`           // API returns balance as string
	AvailableBalanceString string        `json:"available-balance"` // API returns balance as string
	BalanceDate            int64         `json:"balance-date"`      // unix seconds
	Transactions           []Transaction `json:"transactions"`
	Holdings               []Holding     `json:"holdings"`
}

// GetBalance returns the balance as a float64.
func (a *Account) GetBalance() (float64, error) {
	if a.BalanceString == "" {
		return 0, nil
	}
	balance, err := strconv.ParseFloat(a.BalanceString, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse balance '%s': %w", a.BalanceString, err)
	}
	return balance, nil
}

// GetAvailableBalance returns the available balance as a float64, or nil
// when the server did not report one.
func (a *Account) GetAvailableBalance() (*float64, error) {
	if a.AvailableBalanceString == "" {
		return nil, nil
	}
	balance, err := strconv.ParseFloat(a.AvailableBalanceString, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse available-balance '%s': %w", a.AvailableBalanceString, err)
	}
	return &balance, nil
}

// Transaction represents a transaction from the SimpleFin API.
type Transaction struct {
	ID           string `json:"id"`
	Posted       int64  `json:"posted"` // unix seconds, 0 while pending
	Transacted   int64  `json:"transacted_at"`
	AmountString string `json:"amount"` // API returns amount as string
	Description  string `json:"description"`
	Payee        string `json:"payee"`
	Memo         string `json:"memo"`
	Pending      bool   `json:"pending"`
}

// GetAmount returns the amount as a float64.
func (t *Transaction) GetAmount() (float64, error) {
	if t.AmountString == "" {
		return 0, nil
	}
	amount, err := strconv.ParseFloat(t.AmountString, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse amount '%s': %w", t.AmountString, err)
	}
	return amount, nil
}

// GetDate returns the transaction date, preferring the posted timestamp
// and falling back to transacted_at for pending rows.
func (t *Transaction) GetDate() time.Time {
	if t.Posted > 0 {
		return time.Unix(t.Posted, 0).UTC()
	}
	if t.Transacted > 0 {
		return time.Unix(t.Transacted, 0).UTC()
	}
	return time.Time{}
}

// Holding represents an investment position from the SimpleFin API.
type Holding struct {
	ID                string `json:"id"`
	Created           int64  `json:"created"` // unix seconds
	Currency          string `json:"currency"`
	Symbol            string `json:"symbol"`
	Description       string `json:"description"`
	SharesString      string `json:"shares"`         // API returns shares as string
	CostBasisString   string `json:"cost_basis"`     // API returns amount as string
	MarketValueString string `json:"market_value"`   // API returns amount as string
	PurchasePrice     string `json:"purchase_price"` // API returns amount as string
}

// GetShares returns the share count as a float64.
func (h *Holding) GetShares() (float64, error) {
	if h.SharesString == "" {
		return 0, nil
	}
	shares, err := strconv.ParseFloat(h.SharesString, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse shares '%s': %w", h.SharesString, err)
	}
	return shares, nil
}

// GetCostBasis returns the cost basis as a float64.
func (h *Holding) GetCostBasis() (float64, error) {
	if h.CostBasisString == "" {
		return 0, nil
	}
	basis, err := strconv.ParseFloat(h.CostBasisString, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse cost_basis '%s': %w", h.CostBasisString, err)
	}
	return basis, nil
}

// GetMarketValue returns the market value as a float64.
func (h *Holding) GetMarketValue() (float64, error) {
	if h.MarketValueString == "" {
		return 0, nil
	}
	value, err := strconv.ParseFloat(h.MarketValueString, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse market_value '%s': %w", h.MarketValueString, err)
	}
	return value, nil
}

// FetchFeed performs one full-window fetch against the item's access URL.
// Everything dated on or after start is included. The SimpleFin protocol
// has no investment transaction feed, so that slice is always empty.
func (c *Client) FetchFeed(ctx context.Context, item *models.Item, start time.Time) (*syncdomain.FeedData, error) {
	url := fmt.Sprintf("%s%s?start-date=%d&pending=1", item.AccessToken, accountsPath, start.Unix())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}
	defer resp.Body.Close()

	// The bridge answers 401/403 when the access URL has been revoked.
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, syncdomain.ErrItemLoginRequired
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var accountSet AccountSetResponse
	if err := json.NewDecoder(resp.Body).Decode(&accountSet); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return c.buildFeed(item, &accountSet)
}

// buildFeed maps the SimpleFin account set into domain entities. Security
// ids stay provider-issued here; resolution happens in the sync routine.
func (c *Client) buildFeed(item *models.Item, set *AccountSetResponse) (*syncdomain.FeedData, error) {
	feed := &syncdomain.FeedData{}

	for _, apiAccount := range set.Accounts {
		acc, err := c.buildAccount(item, &apiAccount)
		if err != nil {
			return nil, fmt.Errorf("failed to map account %s: %w", apiAccount.ID, err)
		}
		feed.Accounts = append(feed.Accounts, acc)

		for _, apiTx := range apiAccount.Transactions {
			tx, err := buildTransaction(apiAccount.ID, apiAccount.Currency, &apiTx)
			if err != nil {
				return nil, fmt.Errorf("failed to map transaction %s: %w", apiTx.ID, err)
			}
			feed.Transactions = append(feed.Transactions, tx)
		}

		for _, apiHolding := range apiAccount.Holdings {
			h, sec, err := buildHolding(apiAccount.ID, apiAccount.Currency, &apiHolding)
			if err != nil {
				return nil, fmt.Errorf("failed to map holding %s: %w", apiHolding.ID, err)
			}
			feed.Holdings = append(feed.Holdings, h)
			feed.Securities = append(feed.Securities, sec)
		}
	}

	return feed, nil
}

func (c *Client) buildAccount(item *models.Item, apiAccount *Account) (*account.Account, error) {
	current, err := apiAccount.GetBalance()
	if err != nil {
		return nil, err
	}
	available, err := apiAccount.GetAvailableBalance()
	if err != nil {
		return nil, err
	}

	return &account.Account{
		ID:            apiAccount.ID,
		ItemID:        item.ID,
		InstitutionID: apiAccount.Org.ID,
		Name:          apiAccount.Name,
		Balances: account.Balances{
			Available: available,
			Current:   &current,
			Currency:  apiAccount.Currency,
		},
	}, nil
}

func buildTransaction(accountID, currency string, apiTx *Transaction) (*transaction.Transaction, error) {
	amount, err := apiTx.GetAmount()
	if err != nil {
		return nil, err
	}

	name := apiTx.Payee
	if name == "" {
		name = apiTx.Description
	}

	return &transaction.Transaction{
		ID:           apiTx.ID,
		AccountID:    accountID,
		Name:         name,
		MerchantName: apiTx.Payee,
		// SimpleFin reports outflows negative; the store keeps the
		// positive-outflow convention.
		Amount:   -amount,
		Date:     apiTx.GetDate(),
		Pending:  apiTx.Pending,
		Currency: currency,
	}, nil
}

func buildHolding(accountID, fallbackCurrency string, apiHolding *Holding) (*holding.Holding, *security.Security, error) {
	shares, err := apiHolding.GetShares()
	if err != nil {
		return nil, nil, err
	}
	costBasis, err := apiHolding.GetCostBasis()
	if err != nil {
		return nil, nil, err
	}
	value, err := apiHolding.GetMarketValue()
	if err != nil {
		return nil, nil, err
	}

	currency := apiHolding.Currency
	if currency == "" {
		currency = fallbackCurrency
	}

	var price float64
	if shares != 0 {
		price = value / shares
	}

	// The provider id rides in ID until the resolver rewrites it to the
	// canonical one (and moves it into ProviderID).
	sec := &security.Security{
		ID:           apiHolding.ID,
		ProviderID:   apiHolding.ID,
		TickerSymbol: apiHolding.Symbol,
		Name:         apiHolding.Description,
		Currency:     currency,
	}

	h := &holding.Holding{
		ID:         holding.DeriveID(accountID, apiHolding.ID),
		AccountID:  accountID,
		SecurityID: apiHolding.ID, // provider id until resolution
		Quantity:   shares,
		CostBasis:  costBasis,
		Price:      price,
		Value:      value,
		Currency:   currency,
	}

	return h, sec, nil
}
