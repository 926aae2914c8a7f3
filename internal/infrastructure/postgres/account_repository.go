package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hoiekim/budget-sub000/internal/domain/account"
)

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	db *DB
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, item_id, institution_id, name, official_name, type, subtype, mask,
	available, current, balance_limit, currency,
	custom_name, hidden, budget_label, graph_color, removed, created_at, updated_at`

// GetByID retrieves an account by its provider id, or (nil, nil) if it
// does not exist.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	acc, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acc, nil
}

// ListByItemID retrieves all accounts linked through one item.
func (r *AccountRepository) ListByItemID(ctx context.Context, itemID string) ([]*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE item_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// Upsert creates or updates an account keyed by its provider id. Only
// provider-owned columns are written on conflict; the user-edited columns
// belong to ApplyPatch.
func (r *AccountRepository) Upsert(ctx context.Context, a *account.Account) error {
	query := `
		INSERT INTO accounts (
			id, item_id, institution_id, name, official_name, type, subtype, mask,
			available, current, balance_limit, currency
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id)
		DO UPDATE SET
			item_id = EXCLUDED.item_id,
			institution_id = EXCLUDED.institution_id,
			name = EXCLUDED.name,
			official_name = EXCLUDED.official_name,
			type = EXCLUDED.type,
			subtype = EXCLUDED.subtype,
			mask = EXCLUDED.mask,
			available = EXCLUDED.available,
			current = EXCLUDED.current,
			balance_limit = EXCLUDED.balance_limit,
			currency = EXCLUDED.currency,
			removed = FALSE,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.db.ExecContext(
		ctx, query,
		a.ID, a.ItemID, nullString(a.InstitutionID), a.Name, nullString(a.OfficialName),
		a.Type, nullString(a.Subtype), nullString(a.Mask),
		nullFloat(a.Balances.Available), nullFloat(a.Balances.Current), nullFloat(a.Balances.Limit),
		a.Balances.Currency,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}
	return nil
}

// ApplyPatch updates only the user-edited columns of an account.
func (r *AccountRepository) ApplyPatch(ctx context.Context, id string, patch account.Patch) (*account.Account, error) {
	query := `
		UPDATE accounts SET
			custom_name = COALESCE($1, custom_name),
			hidden = COALESCE($2, hidden),
			budget_label = COALESCE($3, budget_label),
			graph_color = COALESCE($4, graph_color),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $5
		RETURNING ` + accountColumns

	var hidden sql.NullBool
	if patch.Hidden != nil {
		hidden = sql.NullBool{Bool: *patch.Hidden, Valid: true}
	}
	var customName, budgetLabel, graphColor sql.NullString
	if patch.CustomName != nil {
		customName = sql.NullString{String: *patch.CustomName, Valid: true}
	}
	if patch.BudgetLabel != nil {
		budgetLabel = sql.NullString{String: *patch.BudgetLabel, Valid: true}
	}
	if patch.GraphColor != nil {
		graphColor = sql.NullString{String: *patch.GraphColor, Valid: true}
	}

	acc, err := scanAccount(r.db.QueryRowContext(ctx, query, customName, hidden, budgetLabel, graphColor, id))
	if err == sql.ErrNoRows {
		return nil, account.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to patch account: %w", err)
	}
	return acc, nil
}

// SoftDeleteByItem marks all of an item's accounts removed. The rows stay
// so their snapshot history remains chartable.
func (r *AccountRepository) SoftDeleteByItem(ctx context.Context, itemID string) error {
	query := `UPDATE accounts SET removed = TRUE, updated_at = CURRENT_TIMESTAMP WHERE item_id = $1`

	if _, err := r.db.ExecContext(ctx, query, itemID); err != nil {
		return fmt.Errorf("failed to soft delete accounts: %w", err)
	}
	return nil
}

func scanAccount(row scanner) (*account.Account, error) {
	var acc account.Account
	var institutionID, officialName, subtype, mask, customName sql.NullString
	var available, current, limit sql.NullFloat64
	var budgetLabel, graphColor sql.NullString

	err := row.Scan(
		&acc.ID, &acc.ItemID, &institutionID, &acc.Name, &officialName,
		&acc.Type, &subtype, &mask,
		&available, &current, &limit, &acc.Balances.Currency,
		&customName, &acc.Hidden, &budgetLabel, &graphColor,
		&acc.Removed, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if institutionID.Valid {
		acc.InstitutionID = institutionID.String
	}
	if officialName.Valid {
		acc.OfficialName = officialName.String
	}
	if subtype.Valid {
		acc.Subtype = subtype.String
	}
	if mask.Valid {
		acc.Mask = mask.String
	}
	acc.Balances.Available = floatPtr(available)
	acc.Balances.Current = floatPtr(current)
	acc.Balances.Limit = floatPtr(limit)
	acc.CustomName = strPtr(customName)
	if budgetLabel.Valid {
		acc.BudgetLabel = budgetLabel.String
	}
	if graphColor.Valid {
		acc.GraphColor = graphColor.String
	}

	return &acc, nil
}
