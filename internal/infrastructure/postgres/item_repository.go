package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hoiekim/budget-sub000/internal/infrastructure/crypto"
	"github.com/hoiekim/budget-sub000/internal/models"
)

// ItemRepository implements models.ItemRepository for PostgreSQL. Access
// tokens are encrypted before they touch the database and decrypted on
// the way out, so the sync services only ever see plaintext credentials.
type ItemRepository struct {
	db        *DB
	encryptor *crypto.Encryptor
}

// NewItemRepository creates a new PostgreSQL item repository.
func NewItemRepository(db *DB, encryptor *crypto.Encryptor) *ItemRepository {
	return &ItemRepository{db: db, encryptor: encryptor}
}

const itemColumns = `id, provider, institution_id, access_token, status, cursor, last_synced_at, created_at, updated_at`

// FindOrCreate returns the stored item or inserts it if unknown.
func (r *ItemRepository) FindOrCreate(ctx context.Context, item *models.Item) (*models.Item, error) {
	existing, err := r.GetByID(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	token, err := r.encryptor.Encrypt(item.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	query := `
		INSERT INTO items (id, provider, institution_id, access_token, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + itemColumns

	row := r.db.QueryRowContext(ctx, query, item.ID, string(item.Provider), nullString(item.InstitutionID), token, models.ItemStatusGood)
	created, err := r.scanItem(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	return created, nil
}

// List retrieves every linked item.
func (r *ItemRepository) List(ctx context.Context) ([]*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := r.scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}
	return items, nil
}

// GetByID retrieves an item, or (nil, nil) if it does not exist.
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

	item, err := r.scanItem(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// UpdateCursor advances the item's transaction sync cursor.
func (r *ItemRepository) UpdateCursor(ctx context.Context, id string, cursor string) error {
	query := `UPDATE items SET cursor = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	return r.exec(ctx, query, "update item cursor", cursor, id)
}

// UpdateLastSynced records the completion time of a successful sync.
func (r *ItemRepository) UpdateLastSynced(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE items SET last_synced_at = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	return r.exec(ctx, query, "update item last synced", at, id)
}

// UpdateStatus flags the item, e.g. bad when the provider reports revoked
// credentials.
func (r *ItemRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	query := `UPDATE items SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	return r.exec(ctx, query, "update item status", status, id)
}

// Delete unlinks an item. Its accounts are soft-removed by the caller.
func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM items WHERE id = $1`
	return r.exec(ctx, query, "delete item", id)
}

func (r *ItemRepository) exec(ctx context.Context, query, op string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return models.ErrItemNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *ItemRepository) scanItem(row scanner) (*models.Item, error) {
	var item models.Item
	var provider string
	var institutionID, cursor, token sql.NullString
	var lastSyncedAt sql.NullTime

	err := row.Scan(
		&item.ID, &provider, &institutionID, &token, &item.Status,
		&cursor, &lastSyncedAt, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Provider = models.Provider(provider)
	if institutionID.Valid {
		item.InstitutionID = institutionID.String
	}
	item.Cursor = strPtr(cursor)
	item.LastSyncedAt = timePtr(lastSyncedAt)

	if token.Valid {
		plaintext, err := r.encryptor.Decrypt(token.String)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt access token: %w", err)
		}
		item.AccessToken = plaintext
	}

	return &item, nil
}
