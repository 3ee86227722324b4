package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"steam-rewards/internal/model"
	"steam-rewards/internal/repository"
)

// ErrExternalService marks a failure in a best-effort external
// collaborator. A failed fetch leaves quest state exactly as it was.
var ErrExternalService = errors.New("external service unavailable")

// ActivityProvider produces a day's activity signals for a Steam account.
// The Steam client implements it; tests substitute fakes.
type ActivityProvider interface {
	Signals(ctx context.Context, steamID string, date time.Time) (model.ActivitySignals, error)
}

// SyncService bridges the Steam integration and the quest engine: it
// fetches activity signals and feeds them into progress syncing. Nothing
// is written before the fetch succeeds.
type SyncService struct {
	userRepo *repository.UserRepository
	quests   *QuestService
	provider ActivityProvider
}

// NewSyncService creates a new SyncService instance.
func NewSyncService(userRepo *repository.UserRepository, quests *QuestService, provider ActivityProvider) *SyncService {
	return &SyncService{
		userRepo: userRepo,
		quests:   quests,
		provider: provider,
	}
}

// SyncUser fetches today's activity for a user and raises their quest
// progress. Returns the signals that were applied.
func (s *SyncService) SyncUser(ctx context.Context, userID int64, date time.Time) (model.ActivitySignals, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return model.ActivitySignals{}, err
	}

	signals, err := s.provider.Signals(ctx, user.SteamID, date)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Steam activity fetch failed, progress left unchanged")
		return model.ActivitySignals{}, fmt.Errorf("%w: %v", ErrExternalService, err)
	}

	// Streak length comes from our own state, not Steam.
	signals.StreakLength = user.CurrentStreak

	if err := s.quests.SyncProgress(ctx, userID, date, signals); err != nil {
		return model.ActivitySignals{}, err
	}

	return signals, nil
}
