package service

import (
	"context"
	"fmt"
	"time"

	"steam-rewards/internal/config"
	"steam-rewards/internal/model"
	"steam-rewards/internal/pkg/lock"
	"steam-rewards/internal/repository"
)

// CheckInResult reports the outcome of a successful daily check-in.
type CheckInResult struct {
	StreakDay     int
	PointsAwarded int64
	CurrentStreak int
	LongestStreak int
	NewTotal      int64
	Level         int
}

// CheckInService maintains the consecutive-day check-in streak. A day is
// a UTC calendar day; a gap of two or more days resets the streak to 1.
type CheckInService struct {
	checkInRepo *repository.CheckInRepository
	userRepo    *repository.UserRepository
	boostRepo   *repository.BoostRepository
	userLock    *lock.UserLock
	rewards     *config.RewardsConfig
}

// NewCheckInService creates a new CheckInService instance.
func NewCheckInService(
	checkInRepo *repository.CheckInRepository,
	userRepo *repository.UserRepository,
	boostRepo *repository.BoostRepository,
	userLock *lock.UserLock,
	rewards *config.RewardsConfig,
) *CheckInService {
	return &CheckInService{
		checkInRepo: checkInRepo,
		userRepo:    userRepo,
		boostRepo:   boostRepo,
		userLock:    userLock,
		rewards:     rewards,
	}
}

// CheckIn performs the daily check-in for a user on the given date.
// A second attempt on the same day returns ErrAlreadyCheckedIn rather
// than being silently ignored, so callers can tell "already done" from
// "succeeded".
func (s *CheckInService) CheckIn(ctx context.Context, userID int64, date time.Time, txHash *string) (*CheckInResult, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	s.userLock.Lock(userID)
	defer s.userLock.Unlock(userID)

	date = repository.DateOnly(date)

	last, err := s.checkInRepo.GetLast(ctx, userID)
	if err != nil {
		return nil, err
	}
	if last != nil && last.CheckInDate.Equal(date) {
		return nil, repository.ErrAlreadyCheckedIn
	}

	streakDay := nextStreakDay(last, date)
	baseReward := streakReward(streakDay, s.rewards)

	pct, err := s.boostRepo.ActivePercentage(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to read boost ledger: %w", err)
	}
	awarded := boostedAmount(baseReward, pct)

	reason := model.ReasonCheckIn
	if txHash != nil && *txHash != "" {
		reason = fmt.Sprintf("%s (tx: %s)", model.ReasonCheckIn, *txHash)
	}

	checkIn, user, err := s.checkInRepo.Create(ctx, userID, date, streakDay, awarded, txHash, reason, s.rewards.LevelStep)
	if err != nil {
		return nil, err
	}

	return &CheckInResult{
		StreakDay:     checkIn.StreakDay,
		PointsAwarded: checkIn.Points,
		CurrentStreak: user.CurrentStreak,
		LongestStreak: user.LongestStreak,
		NewTotal:      user.TotalPoints,
		Level:         user.Level,
	}, nil
}

// History returns a user's recent check-ins.
func (s *CheckInService) History(ctx context.Context, userID int64, limit int) ([]*model.CheckIn, error) {
	if limit <= 0 || limit > 90 {
		limit = 30
	}
	return s.checkInRepo.ListByUser(ctx, userID, limit)
}

// nextStreakDay computes the 1-based streak position for a check-in on
// date given the most recent prior check-in. Exactly one day's gap
// continues the streak; anything else starts over at 1.
func nextStreakDay(last *model.CheckIn, date time.Time) int {
	if last == nil {
		return 1
	}
	if last.CheckInDate.Equal(date.AddDate(0, 0, -1)) {
		return last.StreakDay + 1
	}
	return 1
}

// streakReward computes the base check-in reward for a streak day:
// linear growth through day 6, flat from day 7 on, plus a weekly bonus
// derived from the streak day and capped. The bonus is always re-derived,
// never stored.
func streakReward(streakDay int, r *config.RewardsConfig) int64 {
	var tier int64
	switch {
	case streakDay <= 1:
		tier = r.CheckInBase
	case streakDay <= 6:
		tier = r.CheckInBase + r.CheckInStep*int64(streakDay-1)
	default:
		tier = r.CheckInPlateau
	}

	bonus := r.WeeklyBonus * int64(streakDay/7)
	if bonus > r.WeeklyBonusCap {
		bonus = r.WeeklyBonusCap
	}

	return tier + bonus
}
