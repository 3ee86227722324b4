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

// Quest repository errors.
var (
	ErrQuestNotFound    = errors.New("quest not found")
	ErrProgressNotFound = errors.New("quest progress not found")
	// ErrClaimConflict is returned when the conditional claim update
	// matched no row: already claimed, not completed, or missing. The
	// service re-reads the row to classify.
	ErrClaimConflict = errors.New("claim conditions not met")
)

// DateOnly normalizes a timestamp to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// QuestRepository handles daily quest sets and per-user progress rows.
type QuestRepository struct {
	pool *pgxpool.Pool
}

// NewQuestRepository creates a new QuestRepository instance.
func NewQuestRepository(pool *pgxpool.Pool) *QuestRepository {
	return &QuestRepository{pool: pool}
}

const questColumns = `id, quest_date, idx, type, title, description, requirement, reward, icon`

func scanQuest(row pgx.Row) (*model.QuestDefinition, error) {
	var q model.QuestDefinition
	err := row.Scan(
		&q.ID,
		&q.QuestDate,
		&q.Index,
		&q.Type,
		&q.Title,
		&q.Description,
		&q.Requirement,
		&q.Reward,
		&q.Icon,
	)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// EnsureSet inserts the given quest definitions for a date unless a set
// already exists, then returns whatever set is stored. Creation is
// idempotent: concurrent callers race on the unique (quest_date, idx)
// constraint and the loser's rows are dropped by ON CONFLICT DO NOTHING.
func (r *QuestRepository) EnsureSet(ctx context.Context, date time.Time, quests []model.QuestDefinition) ([]*model.QuestDefinition, error) {
	date = DateOnly(date)

	existing, err := r.GetSet(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const insert = `
		INSERT INTO daily_quests (id, quest_date, idx, type, title, description, requirement, reward, icon)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (quest_date, idx) DO NOTHING
	`
	for _, q := range quests {
		_, err := tx.Exec(ctx, insert, q.ID, date, q.Index, q.Type, q.Title, q.Description, q.Requirement, q.Reward, q.Icon)
		if err != nil {
			return nil, fmt.Errorf("failed to insert quest %s: %w", q.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit quest set: %w", err)
	}

	return r.GetSet(ctx, date)
}

// GetSet retrieves the quest set for a date in index order.
// Returns an empty slice when no set exists yet.
func (r *QuestRepository) GetSet(ctx context.Context, date time.Time) ([]*model.QuestDefinition, error) {
	const query = `SELECT ` + questColumns + ` FROM daily_quests WHERE quest_date = $1 ORDER BY idx`

	rows, err := r.pool.Query(ctx, query, DateOnly(date))
	if err != nil {
		return nil, fmt.Errorf("failed to get quest set: %w", err)
	}
	defer rows.Close()

	var quests []*model.QuestDefinition
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quest: %w", err)
		}
		quests = append(quests, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quests: %w", err)
	}

	return quests, nil
}

// GetQuest retrieves a single quest definition by id.
func (r *QuestRepository) GetQuest(ctx context.Context, questID string) (*model.QuestDefinition, error) {
	const query = `SELECT ` + questColumns + ` FROM daily_quests WHERE id = $1`

	q, err := scanQuest(r.pool.QueryRow(ctx, query, questID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestNotFound
		}
		return nil, fmt.Errorf("failed to get quest: %w", err)
	}
	return q, nil
}

const progressColumns = `user_id, quest_id, quest_date, progress, completed, claimed, claimed_points, claimed_at, updated_at`

func scanProgress(row pgx.Row) (*model.UserQuestProgress, error) {
	var p model.UserQuestProgress
	err := row.Scan(
		&p.UserID,
		&p.QuestID,
		&p.QuestDate,
		&p.Progress,
		&p.Completed,
		&p.Claimed,
		&p.ClaimedPoints,
		&p.ClaimedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProgress retrieves a single progress row.
func (r *QuestRepository) GetProgress(ctx context.Context, userID int64, questID string) (*model.UserQuestProgress, error) {
	const query = `SELECT ` + progressColumns + ` FROM user_quest_progress WHERE user_id = $1 AND quest_id = $2`

	p, err := scanProgress(r.pool.QueryRow(ctx, query, userID, questID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProgressNotFound
		}
		return nil, fmt.Errorf("failed to get quest progress: %w", err)
	}
	return p, nil
}

// ListProgress retrieves all of a user's progress rows for a date.
func (r *QuestRepository) ListProgress(ctx context.Context, userID int64, date time.Time) ([]*model.UserQuestProgress, error) {
	const query = `SELECT ` + progressColumns + ` FROM user_quest_progress WHERE user_id = $1 AND quest_date = $2`

	rows, err := r.pool.Query(ctx, query, userID, DateOnly(date))
	if err != nil {
		return nil, fmt.Errorf("failed to list quest progress: %w", err)
	}
	defer rows.Close()

	var progress []*model.UserQuestProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quest progress: %w", err)
		}
		progress = append(progress, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quest progress: %w", err)
	}

	return progress, nil
}

// RaiseProgress creates or raises a progress row. Progress never
// decreases and claimed rows are never touched; both guards live in the
// statement itself so a stale external signal cannot erase earned credit.
func (r *QuestRepository) RaiseProgress(ctx context.Context, userID int64, questID string, date time.Time, progress int, completed bool) error {
	const query = `
		INSERT INTO user_quest_progress (user_id, quest_id, quest_date, progress, completed, claimed, updated_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, NOW())
		ON CONFLICT (user_id, quest_id) DO UPDATE
		SET progress = EXCLUDED.progress,
		    completed = EXCLUDED.completed,
		    updated_at = NOW()
		WHERE user_quest_progress.claimed = FALSE
		  AND EXCLUDED.progress > user_quest_progress.progress
	`

	if _, err := r.pool.Exec(ctx, query, userID, questID, DateOnly(date), progress, completed); err != nil {
		return fmt.Errorf("failed to raise quest progress: %w", err)
	}
	return nil
}

// Claim flips a progress row to claimed and awards the points in one
// transaction. The conditional UPDATE is the concurrency guard: of two
// concurrent claimers only one matches claimed = FALSE, so exactly one
// award happens. Returns ErrClaimConflict when no row matched.
func (r *QuestRepository) Claim(ctx context.Context, userID int64, questID string, requirement int, awarded int64, reason string, levelStep int64) (*model.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const update = `
		UPDATE user_quest_progress
		SET claimed = TRUE,
		    completed = TRUE,
		    claimed_points = $3,
		    claimed_at = NOW(),
		    updated_at = NOW()
		WHERE user_id = $1 AND quest_id = $2 AND claimed = FALSE AND progress >= $4
	`

	result, err := tx.Exec(ctx, update, userID, questID, awarded, requirement)
	if err != nil {
		return nil, fmt.Errorf("failed to claim quest: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, ErrClaimConflict
	}

	user, err := awardPoints(ctx, tx, userID, awarded, reason, levelStep)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}

	return user, nil
}
