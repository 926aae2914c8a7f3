package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hoiekim/budget-sub000/internal/domain/security"
)

// SecurityRepository implements the security.Repository interface for
// PostgreSQL. Securities are shared across items, so Upsert is an
// id-keyed ON CONFLICT write: concurrent syncs converge on the same row
// with last write winning on price fields.
type SecurityRepository struct {
	db *DB
}

// NewSecurityRepository creates a new PostgreSQL security repository
func NewSecurityRepository(db *DB) *SecurityRepository {
	return &SecurityRepository{db: db}
}

const securityColumns = `id, provider_id, ticker_symbol, name, currency, close_price, close_price_as_of`

// GetByID retrieves a security by its canonical id, or (nil, nil) if it
// does not exist.
func (r *SecurityRepository) GetByID(ctx context.Context, id string) (*security.Security, error) {
	query := `SELECT ` + securityColumns + ` FROM securities WHERE id = $1`

	sec, err := scanSecurity(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get security: %w", err)
	}
	return sec, nil
}

// FindByTicker retrieves securities matching a ticker symbol, optionally
// narrowed to a currency. Matching is case-insensitive.
func (r *SecurityRepository) FindByTicker(ctx context.Context, ticker, currency string) ([]*security.Security, error) {
	query := `SELECT ` + securityColumns + ` FROM securities WHERE UPPER(ticker_symbol) = UPPER($1)`
	args := []any{ticker}
	if currency != "" {
		query += ` AND UPPER(currency) = UPPER($2)`
		args = append(args, currency)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find securities by ticker: %w", err)
	}
	defer rows.Close()

	var securities []*security.Security
	for rows.Next() {
		sec, err := scanSecurity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan security: %w", err)
		}
		securities = append(securities, sec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating securities: %w", err)
	}
	return securities, nil
}

// FindByProviderID retrieves the security last seen under a provider
// issued id, or (nil, nil) when none matches.
func (r *SecurityRepository) FindByProviderID(ctx context.Context, providerID string) (*security.Security, error) {
	query := `SELECT ` + securityColumns + ` FROM securities WHERE provider_id = $1 LIMIT 1`

	sec, err := scanSecurity(r.db.QueryRowContext(ctx, query, providerID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find security by provider id: %w", err)
	}
	return sec, nil
}

// Upsert creates or updates a security keyed by its canonical id.
func (r *SecurityRepository) Upsert(ctx context.Context, s *security.Security) error {
	query := `
		INSERT INTO securities (id, provider_id, ticker_symbol, name, currency, close_price, close_price_as_of)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id)
		DO UPDATE SET
			provider_id = EXCLUDED.provider_id,
			ticker_symbol = EXCLUDED.ticker_symbol,
			name = EXCLUDED.name,
			currency = EXCLUDED.currency,
			close_price = EXCLUDED.close_price,
			close_price_as_of = EXCLUDED.close_price_as_of,
			updated_at = CURRENT_TIMESTAMP
	`

	var asOf sql.NullString
	if s.ClosePriceAsOf != nil {
		asOf = sql.NullString{String: *s.ClosePriceAsOf, Valid: true}
	}

	_, err := r.db.ExecContext(
		ctx, query,
		s.ID, nullString(s.ProviderID), nullString(s.TickerSymbol), nullString(s.Name),
		nullString(s.Currency), nullFloat(s.ClosePrice), asOf,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert security: %w", err)
	}
	return nil
}

func scanSecurity(row scanner) (*security.Security, error) {
	var sec security.Security
	var providerID, ticker, name, currency, asOf sql.NullString
	var closePrice sql.NullFloat64

	err := row.Scan(&sec.ID, &providerID, &ticker, &name, &currency, &closePrice, &asOf)
	if err != nil {
		return nil, err
	}

	if providerID.Valid {
		sec.ProviderID = providerID.String
	}
	if ticker.Valid {
		sec.TickerSymbol = ticker.String
	}
	if name.Valid {
		sec.Name = name.String
	}
	if currency.Valid {
		sec.Currency = currency.String
	}
	sec.ClosePrice = floatPtr(closePrice)
	sec.ClosePriceAsOf = strPtr(asOf)

	return &sec, nil
}
