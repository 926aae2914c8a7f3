package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hoiekim/budget-sub000/internal/domain/transaction"
)

// TransactionRepository implements the transaction.Repository interface
// for PostgreSQL.
type TransactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, pending_transaction_id, account_id, name, merchant_name, amount, date,
	pending, currency, category, label_category, label_memo, created_at, updated_at`

// GetByID retrieves a transaction by its provider id, or (nil, nil) if it
// does not exist.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

// ListByAccountIDs retrieves stored transactions for a set of accounts.
func (r *TransactionRepository) ListByAccountIDs(ctx context.Context, accountIDs []string) ([]*transaction.Transaction, error) {
	return r.list(ctx, accountIDs, nil)
}

// ListByAccountIDsSince retrieves stored transactions for a set of
// accounts dated on or after start.
func (r *TransactionRepository) ListByAccountIDsSince(ctx context.Context, accountIDs []string, start time.Time) ([]*transaction.Transaction, error) {
	return r.list(ctx, accountIDs, &start)
}

func (r *TransactionRepository) list(ctx context.Context, accountIDs []string, start *time.Time) ([]*transaction.Transaction, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE account_id IN (` + buildPlaceholders(1, len(accountIDs)) + `)`
	args := make([]any, len(accountIDs))
	for i, id := range accountIDs {
		args[i] = id
	}
	if start != nil {
		query += fmt.Sprintf(" AND date >= $%d", len(args)+1)
		args = append(args, *start)
	}
	query += ` ORDER BY date DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*transaction.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

// Upsert creates or updates a transaction keyed by its provider id. The
// label columns are written too: the sync routines carry the stored label
// onto the incoming row before calling this, and the label must follow a
// transaction across its pending->posted id change.
func (r *TransactionRepository) Upsert(ctx context.Context, t *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, pending_transaction_id, account_id, name, merchant_name, amount, date,
			pending, currency, category, label_category, label_memo
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id)
		DO UPDATE SET
			pending_transaction_id = EXCLUDED.pending_transaction_id,
			name = EXCLUDED.name,
			merchant_name = EXCLUDED.merchant_name,
			amount = EXCLUDED.amount,
			date = EXCLUDED.date,
			pending = EXCLUDED.pending,
			currency = EXCLUDED.currency,
			category = EXCLUDED.category,
			label_category = EXCLUDED.label_category,
			label_memo = EXCLUDED.label_memo,
			updated_at = CURRENT_TIMESTAMP
	`

	var pendingID sql.NullString
	if t.PendingTransactionID != nil {
		pendingID = sql.NullString{String: *t.PendingTransactionID, Valid: true}
	}

	_, err := r.db.ExecContext(
		ctx, query,
		t.ID, pendingID, t.AccountID, t.Name, nullString(t.MerchantName), t.Amount, t.Date,
		t.Pending, nullString(t.Currency), nullString(t.Category),
		nullString(t.Label.Category), nullString(t.Label.Memo),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert transaction: %w", err)
	}
	return nil
}

// DeleteMany removes transactions by id, cascading any user-created
// splits that reference them. Returns the number of transactions deleted.
func (r *TransactionRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := buildPlaceholders(1, len(ids))

	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbtx.Rollback()

	if _, err := dbtx.ExecContext(ctx, `DELETE FROM transaction_splits WHERE transaction_id IN (`+placeholders+`)`, args...); err != nil {
		return 0, fmt.Errorf("failed to delete transaction splits: %w", err)
	}

	result, err := dbtx.ExecContext(ctx, `DELETE FROM transactions WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transactions: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	if err := dbtx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return deleted, nil
}

// UpdateLabel sets the user-editable label on a transaction.
func (r *TransactionRepository) UpdateLabel(ctx context.Context, id string, label transaction.Label) error {
	query := `
		UPDATE transactions
		SET label_category = $1, label_memo = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`

	result, err := r.db.ExecContext(ctx, query, nullString(label.Category), nullString(label.Memo), id)
	if err != nil {
		return fmt.Errorf("failed to update transaction label: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return transaction.ErrTransactionNotFound
	}
	return nil
}

func scanTransaction(row scanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction
	var pendingID, merchantName, currency, category, labelCategory, labelMemo sql.NullString

	err := row.Scan(
		&tx.ID, &pendingID, &tx.AccountID, &tx.Name, &merchantName, &tx.Amount, &tx.Date,
		&tx.Pending, &currency, &category, &labelCategory, &labelMemo,
		&tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.PendingTransactionID = strPtr(pendingID)
	if merchantName.Valid {
		tx.MerchantName = merchantName.String
	}
	if currency.Valid {
		tx.Currency = currency.String
	}
	if category.Valid {
		tx.Category = category.String
	}
	if labelCategory.Valid {
		tx.Label.Category = labelCategory.String
	}
	if labelMemo.Valid {
		tx.Label.Memo = labelMemo.String
	}

	return &tx, nil
}
