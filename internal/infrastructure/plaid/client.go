// Package plaid implements the cursor/delta provider client on top of the
// official Plaid SDK. It walks Plaid's pagination internally so the sync
// routines always see one consolidated fetch per call.
package plaid

import (
	"context"
	"fmt"
	"time"

	plaidgo "github.com/plaid/plaid-go/v9/plaid"

	"github.com/hoiekim/budget-sub000/internal/domain/account"
	"github.com/hoiekim/budget-sub000/internal/domain/holding"
	"github.com/hoiekim/budget-sub000/internal/domain/investment"
	"github.com/hoiekim/budget-sub000/internal/domain/security"
	syncdomain "github.com/hoiekim/budget-sub000/internal/domain/sync"
	"github.com/hoiekim/budget-sub000/internal/domain/transaction"
	"github.com/hoiekim/budget-sub000/internal/models"
)

const (
	transactionsPageSize = 500
	investmentsPageSize  = 500
	dateLayout           = "2006-01-02"
)

// Client handles communication with the Plaid API.
type Client struct {
	api *plaidgo.APIClient
}

// Ensure Client implements the sync provider interface
var _ syncdomain.PlaidClient = (*Client)(nil)

// NewClient creates a new Plaid client. env selects the Plaid host
// ("sandbox", "development" or "production").
func NewClient(clientID, secret, env string) *Client {
	configuration := plaidgo.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", clientID)
	configuration.AddDefaultHeader("PLAID-SECRET", secret)
	configuration.UseEnvironment(environment(env))

	return &Client{api: plaidgo.NewAPIClient(configuration)}
}

func environment(env string) plaidgo.Environment {
	switch env {
	case "production":
		return plaidgo.Production
	case "development":
		return plaidgo.Development
	default:
		return plaidgo.Sandbox
	}
}

// FetchAccounts fetches the item's current account set.
func (c *Client) FetchAccounts(ctx context.Context, item *models.Item) ([]*account.Account, error) {
	request := plaidgo.NewAccountsGetRequest(item.AccessToken)
	resp, _, err := c.api.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*request).Execute()
	if err != nil {
		return nil, mapError("failed to fetch accounts", err)
	}

	accounts := make([]*account.Account, 0, len(resp.GetAccounts()))
	for _, apiAccount := range resp.GetAccounts() {
		accounts = append(accounts, buildAccount(item, apiAccount))
	}
	return accounts, nil
}

// FetchHoldings fetches the item's investment accounts, positions and the
// securities they reference. Security ids are provider-issued here;
// resolution happens in the sync routine.
func (c *Client) FetchHoldings(ctx context.Context, item *models.Item) (*syncdomain.HoldingsData, error) {
	request := plaidgo.NewInvestmentsHoldingsGetRequest(item.AccessToken)
	resp, _, err := c.api.PlaidApi.InvestmentsHoldingsGet(ctx).InvestmentsHoldingsGetRequest(*request).Execute()
	if err != nil {
		return nil, mapError("failed to fetch holdings", err)
	}

	data := &syncdomain.HoldingsData{}
	for _, apiAccount := range resp.GetAccounts() {
		data.Accounts = append(data.Accounts, buildAccount(item, apiAccount))
	}
	for _, apiSecurity := range resp.GetSecurities() {
		data.Securities = append(data.Securities, buildSecurity(apiSecurity))
	}
	for _, apiHolding := range resp.GetHoldings() {
		data.Holdings = append(data.Holdings, buildHolding(apiHolding))
	}
	return data, nil
}

// FetchTransactionDelta walks the transactions sync endpoint from cursor
// until has_more is false and returns one consolidated delta.
func (c *Client) FetchTransactionDelta(ctx context.Context, item *models.Item, cursor string) (*syncdomain.TransactionDelta, error) {
	delta := &syncdomain.TransactionDelta{NextCursor: cursor}

	for {
		request := plaidgo.NewTransactionsSyncRequest(item.AccessToken)
		if delta.NextCursor != "" {
			request.SetCursor(delta.NextCursor)
		}
		request.SetCount(transactionsPageSize)

		resp, _, err := c.api.PlaidApi.TransactionsSync(ctx).TransactionsSyncRequest(*request).Execute()
		if err != nil {
			return nil, mapError("failed to fetch transaction delta", err)
		}

		for _, apiTx := range resp.GetAdded() {
			tx, err := buildTransaction(apiTx)
			if err != nil {
				return nil, err
			}
			delta.Added = append(delta.Added, tx)
		}
		for _, apiTx := range resp.GetModified() {
			tx, err := buildTransaction(apiTx)
			if err != nil {
				return nil, err
			}
			delta.Modified = append(delta.Modified, tx)
		}
		for _, removed := range resp.GetRemoved() {
			delta.RemovedIDs = append(delta.RemovedIDs, removed.GetTransactionId())
		}

		delta.NextCursor = resp.GetNextCursor()
		if !resp.GetHasMore() {
			return delta, nil
		}
	}
}

// FetchInvestmentTransactions fetches all investment transactions dated in
// [start, end], paging by offset until the reported total is reached.
func (c *Client) FetchInvestmentTransactions(ctx context.Context, item *models.Item, start, end time.Time) (*syncdomain.InvestmentData, error) {
	data := &syncdomain.InvestmentData{}
	seenSecurities := make(map[string]bool)
	offset := int32(0)

	for {
		request := plaidgo.NewInvestmentsTransactionsGetRequest(item.AccessToken, start.Format(dateLayout), end.Format(dateLayout))
		options := plaidgo.NewInvestmentsTransactionsGetRequestOptions()
		options.SetCount(investmentsPageSize)
		options.SetOffset(offset)
		request.SetOptions(*options)

		resp, _, err := c.api.PlaidApi.InvestmentsTransactionsGet(ctx).InvestmentsTransactionsGetRequest(*request).Execute()
		if err != nil {
			return nil, mapError("failed to fetch investment transactions", err)
		}

		for _, apiTx := range resp.GetInvestmentTransactions() {
			tx, err := buildInvestmentTransaction(apiTx)
			if err != nil {
				return nil, err
			}
			data.Transactions = append(data.Transactions, tx)
		}
		for _, apiSecurity := range resp.GetSecurities() {
			if seenSecurities[apiSecurity.GetSecurityId()] {
				continue
			}
			seenSecurities[apiSecurity.GetSecurityId()] = true
			data.Securities = append(data.Securities, buildSecurity(apiSecurity))
		}

		offset += int32(len(resp.GetInvestmentTransactions()))
		if offset >= resp.GetTotalInvestmentTransactions() || len(resp.GetInvestmentTransactions()) == 0 {
			return data, nil
		}
	}
}

// mapError translates Plaid error codes the sync routines act on into
// their sentinel errors; everything else is wrapped with msg.
func mapError(msg string, err error) error {
	plaidErr, convErr := plaidgo.ToPlaidError(err)
	if convErr != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	switch plaidErr.GetErrorCode() {
	case "ITEM_LOGIN_REQUIRED":
		return syncdomain.ErrItemLoginRequired
	case "NO_INVESTMENT_ACCOUNTS", "NO_INVESTMENT_AUTH_ACCOUNTS", "PRODUCTS_NOT_SUPPORTED":
		return syncdomain.ErrNoInvestmentAccounts
	}
	return fmt.Errorf("%s: %s (%s): %w", msg, plaidErr.GetErrorCode(), plaidErr.GetErrorMessage(), err)
}

func buildAccount(item *models.Item, apiAccount plaidgo.AccountBase) *account.Account {
	balances := apiAccount.GetBalances()

	acc := &account.Account{
		ID:            apiAccount.GetAccountId(),
		ItemID:        item.ID,
		InstitutionID: item.InstitutionID,
		Name:          apiAccount.GetName(),
		OfficialName:  apiAccount.GetOfficialName(),
		Type:          string(apiAccount.GetType()),
		Subtype:       string(apiAccount.GetSubtype()),
		Mask:          apiAccount.GetMask(),
		Balances: account.Balances{
			Currency: balances.GetIsoCurrencyCode(),
		},
	}
	if v, ok := balances.GetAvailableOk(); ok {
		acc.Balances.Available = v
	}
	if v, ok := balances.GetCurrentOk(); ok {
		acc.Balances.Current = v
	}
	if v, ok := balances.GetLimitOk(); ok {
		acc.Balances.Limit = v
	}
	return acc
}

func buildSecurity(apiSecurity plaidgo.Security) *security.Security {
	// The provider id rides in ID until the resolver rewrites it to the
	// canonical one (and moves it into ProviderID).
	sec := &security.Security{
		ID:           apiSecurity.GetSecurityId(),
		ProviderID:   apiSecurity.GetSecurityId(),
		TickerSymbol: apiSecurity.GetTickerSymbol(),
		Name:         apiSecurity.GetName(),
		Currency:     apiSecurity.GetIsoCurrencyCode(),
	}
	if v, ok := apiSecurity.GetClosePriceOk(); ok {
		sec.ClosePrice = v
	}
	if v, ok := apiSecurity.GetClosePriceAsOfOk(); ok {
		sec.ClosePriceAsOf = v
	}
	return sec
}

func buildHolding(apiHolding plaidgo.Holding) *holding.Holding {
	return &holding.Holding{
		ID:         holding.DeriveID(apiHolding.GetAccountId(), apiHolding.GetSecurityId()),
		AccountID:  apiHolding.GetAccountId(),
		SecurityID: apiHolding.GetSecurityId(), // provider id until resolution
		Quantity:   apiHolding.GetQuantity(),
		CostBasis:  apiHolding.GetCostBasis(),
		Price:      apiHolding.GetInstitutionPrice(),
		Value:      apiHolding.GetInstitutionValue(),
		Currency:   apiHolding.GetIsoCurrencyCode(),
	}
}

func buildTransaction(apiTx plaidgo.Transaction) (*transaction.Transaction, error) {
	date, err := time.Parse(dateLayout, apiTx.GetDate())
	if err != nil {
		return nil, fmt.Errorf("failed to parse date '%s' for transaction %s: %w", apiTx.GetDate(), apiTx.GetTransactionId(), err)
	}

	tx := &transaction.Transaction{
		ID:           apiTx.GetTransactionId(),
		AccountID:    apiTx.GetAccountId(),
		Name:         apiTx.GetName(),
		MerchantName: apiTx.GetMerchantName(),
		Amount:       apiTx.GetAmount(),
		Date:         date,
		Pending:      apiTx.GetPending(),
		Currency:     apiTx.GetIsoCurrencyCode(),
	}
	if v, ok := apiTx.GetPendingTransactionIdOk(); ok && *v != "" {
		tx.PendingTransactionID = v
	}
	if categories := apiTx.GetCategory(); len(categories) > 0 {
		tx.Category = categories[0]
	}
	return tx, nil
}

func buildInvestmentTransaction(apiTx plaidgo.InvestmentTransaction) (*investment.Transaction, error) {
	date, err := time.Parse(dateLayout, apiTx.GetDate())
	if err != nil {
		return nil, fmt.Errorf("failed to parse date '%s' for investment transaction %s: %w", apiTx.GetDate(), apiTx.GetInvestmentTransactionId(), err)
	}

	return &investment.Transaction{
		ID:         apiTx.GetInvestmentTransactionId(),
		AccountID:  apiTx.GetAccountId(),
		SecurityID: apiTx.GetSecurityId(), // provider id until resolution
		Date:       date,
		Name:       apiTx.GetName(),
		Type:       string(apiTx.GetType()),
		Quantity:   apiTx.GetQuantity(),
		Amount:     apiTx.GetAmount(),
		Price:      apiTx.GetPrice(),
		Fees:       apiTx.GetFees(),
		Currency:   apiTx.GetIsoCurrencyCode(),
	}, nil
}
