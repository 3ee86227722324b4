// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"steam-rewards/internal/model"
	"steam-rewards/internal/repository"
)

// Common errors for point operations.
var (
	ErrInvalidAmount = errors.New("point amount must be positive")
)

// AwardResult reports the outcome of a point award.
type AwardResult struct {
	Awarded  int64
	NewTotal int64
	Level    int
	BoostPct float64
}

// PointsService is the single entry point through which point awards
// flow. Every award applies the user's current aggregate boost and pairs
// the total update with a history entry.
type PointsService struct {
	userRepo    *repository.UserRepository
	historyRepo *repository.HistoryRepository
	boostRepo   *repository.BoostRepository
	levelStep   int64
}

// NewPointsService creates a new PointsService instance.
func NewPointsService(
	userRepo *repository.UserRepository,
	historyRepo *repository.HistoryRepository,
	boostRepo *repository.BoostRepository,
	levelStep int64,
) *PointsService {
	return &PointsService{
		userRepo:    userRepo,
		historyRepo: historyRepo,
		boostRepo:   boostRepo,
		levelStep:   levelStep,
	}
}

// Award applies the user's active boost to baseAmount and atomically
// credits the result. Point deductions are deliberately not expressible
// here: a non-positive baseAmount is rejected so the history ledger only
// ever grows in step with the total.
func (s *PointsService) Award(ctx context.Context, userID, baseAmount int64, reason string, now time.Time) (*AwardResult, error) {
	if baseAmount <= 0 {
		return nil, ErrInvalidAmount
	}

	pct, err := s.boostRepo.ActivePercentage(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to read boost ledger: %w", err)
	}

	awarded := boostedAmount(baseAmount, pct)

	user, err := s.userRepo.Award(ctx, userID, awarded, reason, s.levelStep)
	if err != nil {
		return nil, err
	}

	return &AwardResult{
		Awarded:  awarded,
		NewTotal: user.TotalPoints,
		Level:    user.Level,
		BoostPct: pct,
	}, nil
}

// History returns a page of a user's point history, newest first.
func (s *PointsService) History(ctx context.Context, userID int64, limit, offset int) ([]*model.PointHistoryEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.historyRepo.ListByUser(ctx, userID, limit, offset)
}

// boostedAmount applies an additive percentage boost to a base amount,
// flooring the result: floor(base * (1 + pct/100)).
func boostedAmount(base int64, pct float64) int64 {
	return int64(math.Floor(float64(base) * (1 + pct/100)))
}

// levelFor derives a user's level from their point total.
func levelFor(total, step int64) int {
	return int(total/step) + 1
}
