package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"steam-rewards/internal/model"
)

// HistoryRepository reads the append-only point history ledger. Writes go
// through the award transaction in user.go so an entry is never created
// without the matching total update.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository creates a new HistoryRepository instance.
func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

// ListByUser retrieves a page of history entries for a user, newest first.
func (r *HistoryRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*model.PointHistoryEntry, error) {
	const query = `
		SELECT id, user_id, amount, reason, created_at
		FROM point_history
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get point history: %w", err)
	}
	defer rows.Close()

	var entries []*model.PointHistoryEntry
	for rows.Next() {
		var e model.PointHistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating point history: %w", err)
	}

	return entries, nil
}

// SumByUser returns the sum of all history amounts for a user. Must equal
// the user's total_points at all times.
func (r *HistoryRepository) SumByUser(ctx context.Context, userID int64) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(amount), 0)
		FROM point_history
		WHERE user_id = $1
	`

	var sum int64
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum point history: %w", err)
	}
	return sum, nil
}
