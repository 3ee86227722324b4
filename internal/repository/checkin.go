package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"steam-rewards/internal/model"
)

// Check-in repository errors.
var (
	ErrAlreadyCheckedIn = errors.New("already checked in today")
)

// CheckInRepository handles daily check-in persistence.
type CheckInRepository struct {
	pool *pgxpool.Pool
}

// NewCheckInRepository creates a new CheckInRepository instance.
func NewCheckInRepository(pool *pgxpool.Pool) *CheckInRepository {
	return &CheckInRepository{pool: pool}
}

// GetLast retrieves a user's most recent check-in, or nil if none exists.
func (r *CheckInRepository) GetLast(ctx context.Context, userID int64) (*model.CheckIn, error) {
	const query = `
		SELECT id, user_id, check_in_date, streak_day, points, tx_hash, created_at
		FROM check_ins
		WHERE user_id = $1
		ORDER BY check_in_date DESC
		LIMIT 1
	`

	var c model.CheckIn
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&c.ID,
		&c.UserID,
		&c.CheckInDate,
		&c.StreakDay,
		&c.Points,
		&c.TxHash,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last check-in: %w", err)
	}
	return &c, nil
}

// Exists reports whether the user already checked in on the given date.
func (r *CheckInRepository) Exists(ctx context.Context, userID int64, date time.Time) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM check_ins WHERE user_id = $1 AND check_in_date = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, DateOnly(date)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check check-in existence: %w", err)
	}
	return exists, nil
}

// ListByUser retrieves a user's check-ins, newest first.
func (r *CheckInRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*model.CheckIn, error) {
	const query = `
		SELECT id, user_id, check_in_date, streak_day, points, tx_hash, created_at
		FROM check_ins
		WHERE user_id = $1
		ORDER BY check_in_date DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list check-ins: %w", err)
	}
	defer rows.Close()

	var checkIns []*model.CheckIn
	for rows.Next() {
		var c model.CheckIn
		err := rows.Scan(
			&c.ID,
			&c.UserID,
			&c.CheckInDate,
			&c.StreakDay,
			&c.Points,
			&c.TxHash,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan check-in: %w", err)
		}
		checkIns = append(checkIns, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating check-ins: %w", err)
	}

	return checkIns, nil
}

// Create records a check-in, awards the points, and updates the user's
// streak counters in one transaction. The unique (user_id, check_in_date)
// constraint plus ON CONFLICT DO NOTHING rejects a second check-in on the
// same day: of two concurrent attempts exactly one inserts a row, the
// other gets ErrAlreadyCheckedIn.
func (r *CheckInRepository) Create(ctx context.Context, userID int64, date time.Time, streakDay int, points int64, txHash *string, reason string, levelStep int64) (*model.CheckIn, *model.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const insert = `
		INSERT INTO check_ins (user_id, check_in_date, streak_day, points, tx_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id, check_in_date) DO NOTHING
		RETURNING id, user_id, check_in_date, streak_day, points, tx_hash, created_at
	`

	var c model.CheckIn
	err = tx.QueryRow(ctx, insert, userID, DateOnly(date), streakDay, points, txHash).Scan(
		&c.ID,
		&c.UserID,
		&c.CheckInDate,
		&c.StreakDay,
		&c.Points,
		&c.TxHash,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrAlreadyCheckedIn
		}
		return nil, nil, fmt.Errorf("failed to insert check-in: %w", err)
	}

	user, err := awardPoints(ctx, tx, userID, points, reason, levelStep)
	if err != nil {
		return nil, nil, err
	}

	const updateStreak = `
		UPDATE users
		SET current_streak = $2,
		    longest_streak = GREATEST(longest_streak, $2),
		    last_check_in = $3,
		    updated_at = NOW()
		WHERE user_id = $1
		RETURNING ` + userColumns

	user, err = scanUser(tx.QueryRow(ctx, updateStreak, userID, streakDay, DateOnly(date)))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update streak: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit check-in: %w", err)
	}

	return &c, user, nil
}
