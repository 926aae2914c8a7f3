package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/hoiekim/budget-sub000/internal/domain/investment"
)

// InvestmentRepository implements the investment.Repository interface for
// PostgreSQL.
type InvestmentRepository struct {
	db *DB
}

// NewInvestmentRepository creates a new PostgreSQL investment transaction
// repository
func NewInvestmentRepository(db *DB) *InvestmentRepository {
	return &InvestmentRepository{db: db}
}

// ListByAccountIDsSince retrieves stored investment transactions for a set
// of accounts dated on or after start.
func (r *InvestmentRepository) ListByAccountIDsSince(ctx context.Context, accountIDs []string, start time.Time) ([]*investment.Transaction, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, account_id, security_id, date, name, type, quantity, amount, price, fees, currency
		FROM investment_transactions
		WHERE account_id IN (` + buildPlaceholders(1, len(accountIDs)) + `)
		AND date >= $` + fmt.Sprint(len(accountIDs)+1) + `
		ORDER BY date DESC`

	args := make([]any, 0, len(accountIDs)+1)
	for _, id := range accountIDs {
		args = append(args, id)
	}
	args = append(args, start)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list investment transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*investment.Transaction
	for rows.Next() {
		var t investment.Transaction
		err := rows.Scan(&t.ID, &t.AccountID, &t.SecurityID, &t.Date, &t.Name, &t.Type, &t.Quantity, &t.Amount, &t.Price, &t.Fees, &t.Currency)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investment transaction: %w", err)
		}
		transactions = append(transactions, &t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating investment transactions: %w", err)
	}
	return transactions, nil
}

// Upsert creates or updates an investment transaction by provider id.
func (r *InvestmentRepository) Upsert(ctx context.Context, t *investment.Transaction) error {
	query := `
		INSERT INTO investment_transactions (
			id, account_id, security_id, date, name, type, quantity, amount, price, fees, currency
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id)
		DO UPDATE SET
			security_id = EXCLUDED.security_id,
			date = EXCLUDED.date,
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			quantity = EXCLUDED.quantity,
			amount = EXCLUDED.amount,
			price = EXCLUDED.price,
			fees = EXCLUDED.fees,
			currency = EXCLUDED.currency,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.db.ExecContext(
		ctx, query,
		t.ID, t.AccountID, nullString(t.SecurityID), t.Date, t.Name, t.Type,
		t.Quantity, t.Amount, t.Price, t.Fees, nullString(t.Currency),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert investment transaction: %w", err)
	}
	return nil
}

// DeleteMany removes investment transactions by id.
func (r *InvestmentRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `DELETE FROM investment_transactions WHERE id IN (` + buildPlaceholders(1, len(ids)) + `)`

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete investment transactions: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return deleted, nil
}
