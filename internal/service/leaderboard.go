package service

import (
	"context"

	"steam-rewards/internal/model"
	"steam-rewards/internal/repository"
)

// MyRank is a single user's position in the points ranking.
type MyRank struct {
	Rank   int
	Points int64
}

// LeaderboardService exposes the derived, read-only points ranking. It is
// recomputed from user totals on every query; there is no stored ranking
// structure and no mutation path.
type LeaderboardService struct {
	userRepo     *repository.UserRepository
	defaultLimit int
}

// NewLeaderboardService creates a new LeaderboardService instance.
func NewLeaderboardService(userRepo *repository.UserRepository, defaultLimit int) *LeaderboardService {
	if defaultLimit <= 0 {
		defaultLimit = 100
	}
	return &LeaderboardService{
		userRepo:     userRepo,
		defaultLimit: defaultLimit,
	}
}

// Top returns the highest-ranked users. Ordering is stable across
// repeated queries for the same underlying state.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error) {
	if limit <= 0 || limit > s.defaultLimit {
		limit = s.defaultLimit
	}
	return s.userRepo.GetTopUsers(ctx, limit)
}

// Rank returns a single user's rank and points.
func (s *LeaderboardService) Rank(ctx context.Context, userID int64) (*MyRank, error) {
	rank, points, err := s.userRepo.GetRank(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &MyRank{Rank: rank, Points: points}, nil
}
