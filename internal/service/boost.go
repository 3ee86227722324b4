package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"steam-rewards/internal/config"
	"steam-rewards/internal/model"
	"steam-rewards/internal/repository"
)

// Boost service errors.
var (
	ErrUnknownRarity = errors.New("unknown NFT rarity")
)

// BoostService maintains the boost ledger: NFT mints create time-limited
// boost records whose percentages stack additively while unexpired.
type BoostService struct {
	boostRepo *repository.BoostRepository
	userRepo  *repository.UserRepository
	rewards   *config.RewardsConfig
}

// NewBoostService creates a new BoostService instance.
func NewBoostService(
	boostRepo *repository.BoostRepository,
	userRepo *repository.UserRepository,
	rewards *config.RewardsConfig,
) *BoostService {
	return &BoostService{
		boostRepo: boostRepo,
		userRepo:  userRepo,
		rewards:   rewards,
	}
}

// Mint records the boost for a freshly minted NFT. The percentage comes
// from the rarity table; the boost expires after the configured duration.
// The transaction signature is not validated, only stored upstream by the
// caller for audit.
func (s *BoostService) Mint(ctx context.Context, userID int64, nftAddress, rarity string, now time.Time) (*model.BoostRecord, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	pct, ok := s.rewards.BoostForRarity(rarity)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRarity, rarity)
	}

	expiresAt := now.Add(time.Duration(s.rewards.BoostDurationDays) * 24 * time.Hour)

	boost, err := s.boostRepo.Create(ctx, userID, nftAddress, rarity, pct, expiresAt)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("user_id", userID).
		Str("nft_address", nftAddress).
		Str("rarity", rarity).
		Float64("boost_pct", pct).
		Time("expires_at", expiresAt).
		Msg("Boost minted")

	return boost, nil
}

// ActivePercentage returns the user's aggregate boost as of now.
// Expired records contribute nothing but are kept for audit.
func (s *BoostService) ActivePercentage(ctx context.Context, userID int64, now time.Time) (float64, error) {
	return s.boostRepo.ActivePercentage(ctx, userID, now)
}

// List returns all of a user's boost records, active or not.
func (s *BoostService) List(ctx context.Context, userID int64) ([]*model.BoostRecord, error) {
	return s.boostRepo.ListByUser(ctx, userID)
}
