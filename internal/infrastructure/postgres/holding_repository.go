package postgres

import (
	"context"
	"fmt"

	"github.com/hoiekim/budget-sub000/internal/domain/holding"
)

// HoldingRepository implements the holding.Repository interface for PostgreSQL
type HoldingRepository struct {
	db *DB
}

// NewHoldingRepository creates a new PostgreSQL holding repository
func NewHoldingRepository(db *DB) *HoldingRepository {
	return &HoldingRepository{db: db}
}

// ListByAccountIDs retrieves the stored holdings for a set of accounts.
func (r *HoldingRepository) ListByAccountIDs(ctx context.Context, accountIDs []string) ([]*holding.Holding, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, account_id, security_id, quantity, cost_basis, price, value, currency
		FROM holdings
		WHERE account_id IN (` + buildPlaceholders(1, len(accountIDs)) + `)`

	args := make([]any, len(accountIDs))
	for i, id := range accountIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	defer rows.Close()

	var holdings []*holding.Holding
	for rows.Next() {
		var h holding.Holding
		err := rows.Scan(&h.ID, &h.AccountID, &h.SecurityID, &h.Quantity, &h.CostBasis, &h.Price, &h.Value, &h.Currency)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, &h)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}
	return holdings, nil
}

// Upsert creates or updates a holding keyed by its derived id.
func (r *HoldingRepository) Upsert(ctx context.Context, h *holding.Holding) error {
	query := `
		INSERT INTO holdings (id, account_id, security_id, quantity, cost_basis, price, value, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id)
		DO UPDATE SET
			quantity = EXCLUDED.quantity,
			cost_basis = EXCLUDED.cost_basis,
			price = EXCLUDED.price,
			value = EXCLUDED.value,
			currency = EXCLUDED.currency,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.db.ExecContext(ctx, query, h.ID, h.AccountID, h.SecurityID, h.Quantity, h.CostBasis, h.Price, h.Value, h.Currency)
	if err != nil {
		return fmt.Errorf("failed to upsert holding: %w", err)
	}
	return nil
}

// DeleteMany removes holdings by id. Returns the number deleted.
func (r *HoldingRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `DELETE FROM holdings WHERE id IN (` + buildPlaceholders(1, len(ids)) + `)`

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete holdings: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return deleted, nil
}
