package service

import (
	"context"
	"fmt"
	"time"

	"steam-rewards/internal/model"
	"steam-rewards/internal/repository"
)

// Profile is the read model behind the profile endpoint.
type Profile struct {
	User           *model.User
	ActiveBoostPct float64
}

// AccountService handles user provisioning and profile reads. Identity
// itself is provisioned upstream; this service only materializes the row.
type AccountService struct {
	userRepo  *repository.UserRepository
	boostRepo *repository.BoostRepository
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(userRepo *repository.UserRepository, boostRepo *repository.BoostRepository) *AccountService {
	return &AccountService{
		userRepo:  userRepo,
		boostRepo: boostRepo,
	}
}

// EnsureUser ensures a user exists, creating one if necessary.
// Returns the user and whether it was newly created.
func (s *AccountService) EnsureUser(ctx context.Context, userID int64, username, steamID, walletAddress string) (*model.User, bool, error) {
	user, created, err := s.userRepo.GetOrCreate(ctx, userID, username, steamID, walletAddress)
	if err != nil {
		return nil, false, fmt.Errorf("failed to ensure user: %w", err)
	}
	return user, created, nil
}

// GetUser retrieves a user by ID.
func (s *AccountService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// Profile returns a user's totals, streaks, and current aggregate boost.
func (s *AccountService) Profile(ctx context.Context, userID int64, now time.Time) (*Profile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	pct, err := s.boostRepo.ActivePercentage(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	return &Profile{User: user, ActiveBoostPct: pct}, nil
}
