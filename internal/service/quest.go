package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"steam-rewards/internal/model"
	"steam-rewards/internal/pkg/lock"
	"steam-rewards/internal/quest"
	"steam-rewards/internal/repository"
)

// Quest service errors.
var (
	ErrAlreadyClaimed = errors.New("quest already claimed")
	ErrNotCompleted   = errors.New("quest not completed yet")
)

// questSetSize is the number of quests in a daily set.
const questSetSize = 5

// QuestState is the combined read model for a user's day: the quest set
// plus whatever progress rows exist.
type QuestState struct {
	Quests   []*model.QuestDefinition
	Progress []*model.UserQuestProgress
}

// ClaimResult reports the outcome of a successful quest claim.
type ClaimResult struct {
	Awarded  int64
	NewTotal int64
	Level    int
}

// QuestService is the quest progress engine: it generates the daily set,
// raises monotonic progress from activity signals, and settles claims.
type QuestService struct {
	questRepo *repository.QuestRepository
	userRepo  *repository.UserRepository
	boostRepo *repository.BoostRepository
	userLock  *lock.UserLock
	levelStep int64

	// rng drives daily set selection. Injected so tests can seed it;
	// guarded because rand.Rand is not goroutine safe.
	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewQuestService creates a new QuestService instance.
func NewQuestService(
	questRepo *repository.QuestRepository,
	userRepo *repository.UserRepository,
	boostRepo *repository.BoostRepository,
	userLock *lock.UserLock,
	rng *rand.Rand,
	levelStep int64,
) *QuestService {
	return &QuestService{
		questRepo: questRepo,
		userRepo:  userRepo,
		boostRepo: boostRepo,
		userLock:  userLock,
		rng:       rng,
		levelStep: levelStep,
	}
}

// EnsureDailySet returns the quest set for a date, generating it on first
// access. Generation is idempotent: once a set exists for a date it is
// returned unchanged forever.
func (s *QuestService) EnsureDailySet(ctx context.Context, date time.Time) ([]*model.QuestDefinition, error) {
	existing, err := s.questRepo.GetSet(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	s.rngMu.Lock()
	drawn := quest.DrawSet(date, questSetSize, s.rng)
	s.rngMu.Unlock()

	return s.questRepo.EnsureSet(ctx, date, drawn)
}

// SyncProgress recomputes quest progress for a user from today's activity
// signals. Progress only ever rises; claimed rows are never touched; and
// social quests are skipped here because their progress is externally
// driven.
func (s *QuestService) SyncProgress(ctx context.Context, userID int64, date time.Time, signals model.ActivitySignals) error {
	quests, err := s.EnsureDailySet(ctx, date)
	if err != nil {
		return err
	}

	for _, q := range quests {
		var calculated int
		switch q.Type {
		case model.QuestTypePlaytime:
			calculated = signals.PlaytimeMinutes
		case model.QuestTypeGameCount:
			calculated = signals.GameCount
		case model.QuestTypeAchievement:
			calculated = signals.AchievementCount
		case model.QuestTypeConsistency:
			calculated = signals.StreakLength
		case model.QuestTypeSocial:
			continue
		default:
			continue
		}

		if calculated <= 0 {
			continue
		}

		completed := calculated >= q.Requirement
		if err := s.questRepo.RaiseProgress(ctx, userID, q.ID, date, calculated, completed); err != nil {
			return err
		}
	}

	return nil
}

// RecordSocialProgress bumps a social quest's progress by one. Social
// quests are the only type whose progress arrives through this path.
func (s *QuestService) RecordSocialProgress(ctx context.Context, userID int64, questID string, date time.Time) error {
	q, err := s.questRepo.GetQuest(ctx, questID)
	if err != nil {
		return err
	}
	if q.Type != model.QuestTypeSocial {
		return fmt.Errorf("quest %s is not a social quest", questID)
	}

	s.userLock.Lock(userID)
	defer s.userLock.Unlock(userID)

	current := 0
	p, err := s.questRepo.GetProgress(ctx, userID, questID)
	if err == nil {
		if p.Claimed {
			return nil
		}
		current = p.Progress
	} else if !errors.Is(err, repository.ErrProgressNotFound) {
		return err
	}

	next := current + 1
	return s.questRepo.RaiseProgress(ctx, userID, q.ID, date, next, next >= q.Requirement)
}

// State returns the quest set and the user's progress for a date,
// generating the set lazily on first access.
func (s *QuestService) State(ctx context.Context, userID int64, date time.Time) (*QuestState, error) {
	quests, err := s.EnsureDailySet(ctx, date)
	if err != nil {
		return nil, err
	}

	progress, err := s.questRepo.ListProgress(ctx, userID, date)
	if err != nil {
		return nil, err
	}

	return &QuestState{Quests: quests, Progress: progress}, nil
}

// Claim converts completed quest progress into a point award, exactly
// once. The repository's conditional update settles concurrent claims;
// this method classifies the losing side into AlreadyClaimed or
// NotCompleted for the caller.
func (s *QuestService) Claim(ctx context.Context, userID int64, questID string, txHash *string, now time.Time) (*ClaimResult, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	q, err := s.questRepo.GetQuest(ctx, questID)
	if err != nil {
		return nil, err
	}

	s.userLock.Lock(userID)
	defer s.userLock.Unlock(userID)

	p, err := s.questRepo.GetProgress(ctx, userID, questID)
	if err != nil {
		return nil, err
	}
	if p.Claimed {
		return nil, ErrAlreadyClaimed
	}
	if p.Progress < q.Requirement {
		return nil, fmt.Errorf("%w. Progress: %d/%d", ErrNotCompleted, p.Progress, q.Requirement)
	}

	pct, err := s.boostRepo.ActivePercentage(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to read boost ledger: %w", err)
	}
	awarded := boostedAmount(q.Reward, pct)

	reason := fmt.Sprintf("quest reward: %s", q.Title)
	if txHash != nil && *txHash != "" {
		reason = fmt.Sprintf("%s (tx: %s)", reason, *txHash)
	}

	user, err := s.questRepo.Claim(ctx, userID, questID, q.Requirement, awarded, reason, s.levelStep)
	if err != nil {
		if errors.Is(err, repository.ErrClaimConflict) {
			// Lost a race or state moved under us; re-read to classify.
			p, rerr := s.questRepo.GetProgress(ctx, userID, questID)
			if rerr != nil {
				return nil, rerr
			}
			if p.Claimed {
				return nil, ErrAlreadyClaimed
			}
			return nil, fmt.Errorf("%w. Progress: %d/%d", ErrNotCompleted, p.Progress, q.Requirement)
		}
		return nil, err
	}

	return &ClaimResult{
		Awarded:  awarded,
		NewTotal: user.TotalPoints,
		Level:    user.Level,
	}, nil
}
