package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hoiekim/budget-sub000/internal/domain/snapshot"
)

// SnapshotRepository implements the snapshot.Repository interface for
// PostgreSQL. The primary key is the engine's reproducible
// "<entity>-<date>" id, so re-syncing the same day overwrites that day's
// snapshot instead of appending history.
type SnapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new PostgreSQL snapshot repository
func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Upsert creates or overwrites the snapshot for its entity and day.
func (r *SnapshotRepository) Upsert(ctx context.Context, snap *snapshot.Snapshot) error {
	query := `
		INSERT INTO snapshots (
			id, entity_id, kind, date, currency,
			available, current, balance_limit, quantity, cost_basis, value, price, close_price
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id)
		DO UPDATE SET
			currency = EXCLUDED.currency,
			available = EXCLUDED.available,
			current = EXCLUDED.current,
			balance_limit = EXCLUDED.balance_limit,
			quantity = EXCLUDED.quantity,
			cost_basis = EXCLUDED.cost_basis,
			value = EXCLUDED.value,
			price = EXCLUDED.price,
			close_price = EXCLUDED.close_price
	`

	v := snap.Values
	_, err := r.db.ExecContext(
		ctx, query,
		snap.ID, snap.EntityID, string(snap.Kind), snap.Date, nullString(snap.Currency),
		nullFloat(v.Available), nullFloat(v.Current), nullFloat(v.Limit),
		nullFloat(v.Quantity), nullFloat(v.CostBasis), nullFloat(v.Value),
		nullFloat(v.Price), nullFloat(v.ClosePrice),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return nil
}

// ListByEntityID retrieves an entity's snapshots ordered by date, oldest
// first, for charting.
func (r *SnapshotRepository) ListByEntityID(ctx context.Context, entityID string) ([]*snapshot.Snapshot, error) {
	query := `
		SELECT id, entity_id, kind, date, currency,
		       available, current, balance_limit, quantity, cost_basis, value, price, close_price
		FROM snapshots
		WHERE entity_id = $1
		ORDER BY date`

	rows, err := r.db.QueryContext(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*snapshot.Snapshot
	for rows.Next() {
		var snap snapshot.Snapshot
		var kind string
		var currency sql.NullString
		var available, current, limit, quantity, costBasis, value, price, closePrice sql.NullFloat64

		err := rows.Scan(
			&snap.ID, &snap.EntityID, &kind, &snap.Date, &currency,
			&available, &current, &limit, &quantity, &costBasis, &value, &price, &closePrice,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}

		snap.Kind = snapshot.Kind(kind)
		if currency.Valid {
			snap.Currency = currency.String
		}
		snap.Values = snapshot.Values{
			Available:  floatPtr(available),
			Current:    floatPtr(current),
			Limit:      floatPtr(limit),
			Quantity:   floatPtr(quantity),
			CostBasis:  floatPtr(costBasis),
			Value:      floatPtr(value),
			Price:      floatPtr(price),
			ClosePrice: floatPtr(closePrice),
		}
		snapshots = append(snapshots, &snap)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return snapshots, nil
}
