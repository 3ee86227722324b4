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

// Boost repository errors.
var (
	ErrDuplicateNFT = errors.New("boost already exists for this NFT")
)

// BoostRepository handles NFT boost record persistence. Expiry is lazy:
// records past expires_at stay in the table for audit but are filtered
// out of every active-boost read.
type BoostRepository struct {
	pool *pgxpool.Pool
}

// NewBoostRepository creates a new BoostRepository instance.
func NewBoostRepository(pool *pgxpool.Pool) *BoostRepository {
	return &BoostRepository{pool: pool}
}

// Create inserts a boost record for a freshly minted NFT. At most one
// record exists per nft_address; a duplicate mint returns ErrDuplicateNFT.
func (r *BoostRepository) Create(ctx context.Context, userID int64, nftAddress, rarity string, percentage float64, expiresAt time.Time) (*model.BoostRecord, error) {
	const query = `
		INSERT INTO boost_records (user_id, nft_address, rarity, boost_percentage, is_active, expires_at, created_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, NOW())
		ON CONFLICT (nft_address) DO NOTHING
		RETURNING id, user_id, nft_address, rarity, boost_percentage, is_active, expires_at, created_at
	`

	var b model.BoostRecord
	err := r.pool.QueryRow(ctx, query, userID, nftAddress, rarity, percentage, expiresAt).Scan(
		&b.ID,
		&b.UserID,
		&b.NFTAddress,
		&b.Rarity,
		&b.BoostPercentage,
		&b.IsActive,
		&b.ExpiresAt,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDuplicateNFT
		}
		return nil, fmt.Errorf("failed to create boost record: %w", err)
	}

	return &b, nil
}

// ActivePercentage sums the boost percentages of all active, unexpired
// records for a user as of the given instant. Boosts stack additively.
func (r *BoostRepository) ActivePercentage(ctx context.Context, userID int64, now time.Time) (float64, error) {
	const query = `
		SELECT COALESCE(SUM(boost_percentage), 0)
		FROM boost_records
		WHERE user_id = $1 AND is_active AND expires_at > $2
	`

	var pct float64
	if err := r.pool.QueryRow(ctx, query, userID, now).Scan(&pct); err != nil {
		return 0, fmt.Errorf("failed to sum active boosts: %w", err)
	}
	return pct, nil
}

// ListByUser retrieves all boost records for a user, newest first.
func (r *BoostRepository) ListByUser(ctx context.Context, userID int64) ([]*model.BoostRecord, error) {
	const query = `
		SELECT id, user_id, nft_address, rarity, boost_percentage, is_active, expires_at, created_at
		FROM boost_records
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list boost records: %w", err)
	}
	defer rows.Close()

	var boosts []*model.BoostRecord
	for rows.Next() {
		var b model.BoostRecord
		err := rows.Scan(
			&b.ID,
			&b.UserID,
			&b.NFTAddress,
			&b.Rarity,
			&b.BoostPercentage,
			&b.IsActive,
			&b.ExpiresAt,
			&b.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan boost record: %w", err)
		}
		boosts = append(boosts, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating boost records: %w", err)
	}

	return boosts, nil
}
