// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"steam-rewards/internal/model"
)

// Common errors for repository operations.
var (
	ErrUserNotFound = errors.New("user not found")
)

// userColumns is the canonical select list for user rows.
const userColumns = `user_id, username, steam_id, wallet_address, total_points, level, current_streak, longest_streak, last_check_in, created_at, updated_at`

// scanUser scans a user row in userColumns order.
func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.SteamID,
		&user.WalletAddress,
		&user.TotalPoints,
		&user.Level,
		&user.CurrentStreak,
		&user.LongestStreak,
		&user.LastCheckIn,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UserRepository handles user data persistence.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create creates a new user with zero points at level 1.
func (r *UserRepository) Create(ctx context.Context, userID int64, username, steamID, walletAddress string) (*model.User, error) {
	const query = `
		INSERT INTO users (user_id, username, steam_id, wallet_address, total_points, level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, 1, NOW(), NOW())
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, userID, username, steamID, walletAddress))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by their ID.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetOrCreate retrieves a user by ID, creating one if it doesn't exist.
func (r *UserRepository) GetOrCreate(ctx context.Context, userID int64, username, steamID, walletAddress string) (*model.User, bool, error) {
	user, err := r.GetByID(ctx, userID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}

	user, err = r.Create(ctx, userID, username, steamID, walletAddress)
	if err != nil {
		// Handle race condition: another request might have created the user
		user, err = r.GetByID(ctx, userID)
		if err != nil {
			return nil, false, err
		}
		return user, false, nil
	}

	return user, true, nil
}

// awardPoints increments a user's total, recomputes their level, and
// appends the matching history entry. Runs inside the caller's transaction
// so the total update and the history append are a single atomic unit.
func awardPoints(ctx context.Context, tx pgx.Tx, userID, amount int64, reason string, levelStep int64) (*model.User, error) {
	const update = `
		UPDATE users
		SET total_points = total_points + $2,
		    level = (total_points + $2) / $3 + 1,
		    updated_at = NOW()
		WHERE user_id = $1
		RETURNING ` + userColumns

	user, err := scanUser(tx.QueryRow(ctx, update, userID, amount, levelStep))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update points: %w", err)
	}

	const insert = `
		INSERT INTO point_history (user_id, amount, reason, created_at)
		VALUES ($1, $2, $3, NOW())
	`
	if _, err := tx.Exec(ctx, insert, userID, amount, reason); err != nil {
		return nil, fmt.Errorf("failed to append point history: %w", err)
	}

	return user, nil
}

// Award atomically adds points to a user and appends the history entry.
// Returns the updated user.
func (r *UserRepository) Award(ctx context.Context, userID, amount int64, reason string, levelStep int64) (*model.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	user, err := awardPoints(ctx, tx, userID, amount, reason, levelStep)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit award: %w", err)
	}
	return user, nil
}

// GetTopUsers retrieves the top N users by total points with their rank.
// Ties break on creation time then user id, so repeated queries over the
// same state return the same ordering.
func (r *UserRepository) GetTopUsers(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error) {
	const query = `
		SELECT ROW_NUMBER() OVER (ORDER BY total_points DESC, created_at ASC, user_id ASC) AS rank,
		       user_id, username, total_points, level
		FROM users
		ORDER BY total_points DESC, created_at ASC, user_id ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}
	defer rows.Close()

	var entries []*model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.Rank, &e.UserID, &e.Username, &e.TotalPoints, &e.Level); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}

	return entries, nil
}

// GetRank returns a user's leaderboard rank and current points.
// Rank uses the same tie-break order as GetTopUsers.
func (r *UserRepository) GetRank(ctx context.Context, userID int64) (int, int64, error) {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return 0, 0, err
	}

	const query = `
		SELECT COUNT(*)
		FROM users o
		WHERE o.total_points > $2
		   OR (o.total_points = $2 AND o.created_at < $3)
		   OR (o.total_points = $2 AND o.created_at = $3 AND o.user_id < $1)
	`

	var ahead int
	if err := r.pool.QueryRow(ctx, query, user.ID, user.TotalPoints, user.CreatedAt).Scan(&ahead); err != nil {
		return 0, 0, fmt.Errorf("failed to compute rank: %w", err)
	}

	return ahead + 1, user.TotalPoints, nil
}

// Exists checks if a user with the given ID exists.
func (r *UserRepository) Exists(ctx context.Context, userID int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE user_id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}
