// Package repository provides data access layer implementations.
// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository

import (
	"context"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"steam-rewards/internal/model"
	"steam-rewards/internal/pkg/db"
)

const testLevelStep = 500

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container and returns a connection pool.
// Skips the test if Docker is not available.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, db.Migrate(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// seedUser creates a user with the given point total.
func seedUser(t *testing.T, pool *pgxpool.Pool, userID int64, points int64) {
	t.Helper()
	ctx := context.Background()

	userRepo := NewUserRepository(pool)
	_, err := userRepo.Create(ctx, userID, "player", "7656119", "")
	require.NoError(t, err)

	if points > 0 {
		_, err = userRepo.Award(ctx, userID, points, "seed", testLevelStep)
		require.NoError(t, err)
	}
}

// ============================================================================
// UserRepository Tests
// ============================================================================

func TestUserRepository_CreateAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	user, err := repo.Create(ctx, 101, "alice", "76561198000000001", "0xabc")
	require.NoError(t, err)
	assert.Equal(t, int64(101), user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, int64(0), user.TotalPoints)
	assert.Equal(t, 1, user.Level)
	assert.Equal(t, 0, user.CurrentStreak)

	got, err := repo.GetByID(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_GetOrCreate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	user, created, err := repo.GetOrCreate(ctx, 102, "bob", "", "")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := repo.GetOrCreate(ctx, 102, "bob", "", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, again.ID)
}

func TestUserRepository_Award_PairsTotalAndHistory(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	userRepo := NewUserRepository(pool)
	historyRepo := NewHistoryRepository(pool)
	ctx := context.Background()

	seedUser(t, pool, 103, 0)

	amounts := []int64{100, 30, 275, 13}
	var want int64
	for _, amt := range amounts {
		user, err := userRepo.Award(ctx, 103, amt, "test award", testLevelStep)
		require.NoError(t, err)
		want += amt
		assert.Equal(t, want, user.TotalPoints)
	}

	// Core invariant: history sum equals the user's total.
	sum, err := historyRepo.SumByUser(ctx, 103)
	require.NoError(t, err)
	assert.Equal(t, want, sum)
}

func TestUserRepository_Award_LevelDerivation(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	userRepo := NewUserRepository(pool)
	ctx := context.Background()

	// Scenario: 450 points at level 1, +100 crosses into level 2.
	seedUser(t, pool, 104, 450)

	user, err := userRepo.GetByID(ctx, 104)
	require.NoError(t, err)
	assert.Equal(t, 1, user.Level)

	user, err = userRepo.Award(ctx, 104, 100, "level-up award", testLevelStep)
	require.NoError(t, err)
	assert.Equal(t, int64(550), user.TotalPoints)
	assert.Equal(t, 2, user.Level)
}

func TestUserRepository_Award_UnknownUser(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	userRepo := NewUserRepository(pool)
	historyRepo := NewHistoryRepository(pool)
	ctx := context.Background()

	_, err := userRepo.Award(ctx, 404, 100, "nobody home", testLevelStep)
	assert.ErrorIs(t, err, ErrUserNotFound)

	// The failed award must not leave an orphan history entry.
	sum, err := historyRepo.SumByUser(ctx, 404)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sum)
}

func TestUserRepository_Leaderboard(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	userRepo := NewUserRepository(pool)
	ctx := context.Background()

	seedUser(t, pool, 201, 300)
	seedUser(t, pool, 202, 900)
	seedUser(t, pool, 203, 300) // ties with 201, created later
	seedUser(t, pool, 204, 50)

	entries, err := userRepo.GetTopUsers(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, int64(202), entries[0].UserID)
	assert.Equal(t, 1, entries[0].Rank)
	// Tie broken by creation order: 201 before 203.
	assert.Equal(t, int64(201), entries[1].UserID)
	assert.Equal(t, int64(203), entries[2].UserID)
	assert.Equal(t, int64(204), entries[3].UserID)

	// Same state, same order on a repeat query.
	again, err := userRepo.GetTopUsers(ctx, 10)
	require.NoError(t, err)
	for i := range entries {
		assert.Equal(t, entries[i].UserID, again[i].UserID)
	}

	rank, points, err := userRepo.GetRank(ctx, 203)
	require.NoError(t, err)
	assert.Equal(t, 3, rank)
	assert.Equal(t, int64(300), points)

	_, _, err = userRepo.GetRank(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

// ============================================================================
// BoostRepository Tests
// ============================================================================

func TestBoostRepository_AdditiveStacking(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	boostRepo := NewBoostRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	seedUser(t, pool, 301, 0)

	_, err := boostRepo.Create(ctx, 301, "nft-a", model.RarityCommon, 5, now.Add(24*time.Hour))
	require.NoError(t, err)
	_, err = boostRepo.Create(ctx, 301, "nft-b", model.RarityUncommon, 10, now.Add(24*time.Hour))
	require.NoError(t, err)
	_, err = boostRepo.Create(ctx, 301, "nft-c", model.RarityEpic, 15, now.Add(24*time.Hour))
	require.NoError(t, err)

	// Additive, not compounded: 5 + 10 + 15 = 30.
	pct, err := boostRepo.ActivePercentage(ctx, 301, now)
	require.NoError(t, err)
	assert.Equal(t, float64(30), pct)
}

func TestBoostRepository_LazyExpiry(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	boostRepo := NewBoostRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	seedUser(t, pool, 302, 0)

	// Expired record stays active in the table but contributes nothing.
	_, err := boostRepo.Create(ctx, 302, "nft-old", model.RarityRare, 10, now.Add(-time.Hour))
	require.NoError(t, err)
	_, err = boostRepo.Create(ctx, 302, "nft-new", model.RarityCommon, 5, now.Add(time.Hour))
	require.NoError(t, err)

	pct, err := boostRepo.ActivePercentage(ctx, 302, now)
	require.NoError(t, err)
	assert.Equal(t, float64(5), pct)

	// The expired record is preserved for audit, not deleted.
	boosts, err := boostRepo.ListByUser(ctx, 302)
	require.NoError(t, err)
	assert.Len(t, boosts, 2)
	for _, b := range boosts {
		assert.True(t, b.IsActive)
	}
}

func TestBoostRepository_DuplicateNFT(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	boostRepo := NewBoostRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	seedUser(t, pool, 303, 0)

	_, err := boostRepo.Create(ctx, 303, "nft-dup", model.RarityCommon, 5, now.Add(time.Hour))
	require.NoError(t, err)

	_, err = boostRepo.Create(ctx, 303, "nft-dup", model.RarityCommon, 5, now.Add(time.Hour))
	assert.ErrorIs(t, err, ErrDuplicateNFT)
}

// ============================================================================
// QuestRepository Tests
// ============================================================================

func testQuestSet(date time.Time) []model.QuestDefinition {
	date = DateOnly(date)
	return []model.QuestDefinition{
		{ID: "quest_" + date.Format("2006-01-02") + "_0", QuestDate: date, Index: 0, Type: model.QuestTypePlaytime, Title: "Deep Dive", Requirement: 120, Reward: 150},
		{ID: "quest_" + date.Format("2006-01-02") + "_1", QuestDate: date, Index: 1, Type: model.QuestTypeAchievement, Title: "Trophy Hunter", Requirement: 1, Reward: 100},
	}
}

func TestQuestRepository_EnsureSetIdempotent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	questRepo := NewQuestRepository(pool)
	ctx := context.Background()
	date := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	first, err := questRepo.EnsureSet(ctx, date, testQuestSet(date))
	require.NoError(t, err)
	require.Len(t, first, 2)

	// A second ensure with a different payload is a no-op returning the
	// original set.
	other := testQuestSet(date)
	other[0].Title = "Something Else"
	second, err := questRepo.EnsureSet(ctx, date, other)
	require.NoError(t, err)
	require.Len(t, second, 2)

	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Title, second[i].Title)
	}
}

func TestQuestRepository_RaiseProgress_Monotonic(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	questRepo := NewQuestRepository(pool)
	ctx := context.Background()
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	seedUser(t, pool, 401, 0)
	set, err := questRepo.EnsureSet(ctx, date, testQuestSet(date))
	require.NoError(t, err)
	questID := set[0].ID

	require.NoError(t, questRepo.RaiseProgress(ctx, 401, questID, date, 90, false))

	p, err := questRepo.GetProgress(ctx, 401, questID)
	require.NoError(t, err)
	assert.Equal(t, 90, p.Progress)
	assert.False(t, p.Completed)

	// A lower calculated value never erases earned credit.
	require.NoError(t, questRepo.RaiseProgress(ctx, 401, questID, date, 40, false))
	p, err = questRepo.GetProgress(ctx, 401, questID)
	require.NoError(t, err)
	assert.Equal(t, 90, p.Progress)

	// A higher value raises progress and recomputes completion.
	require.NoError(t, questRepo.RaiseProgress(ctx, 401, questID, date, 130, true))
	p, err = questRepo.GetProgress(ctx, 401, questID)
	require.NoError(t, err)
	assert.Equal(t, 130, p.Progress)
	assert.True(t, p.Completed)
}

func TestQuestRepository_Claim_FreezesProgress(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	questRepo := NewQuestRepository(pool)
	ctx := context.Background()
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	seedUser(t, pool, 402, 0)
	set, err := questRepo.EnsureSet(ctx, date, testQuestSet(date))
	require.NoError(t, err)
	questID := set[0].ID

	require.NoError(t, questRepo.RaiseProgress(ctx, 402, questID, date, 130, true))

	user, err := questRepo.Claim(ctx, 402, questID, 120, 150, "quest reward: Deep Dive", testLevelStep)
	require.NoError(t, err)
	assert.Equal(t, int64(150), user.TotalPoints)

	// Claimed rows are frozen: further syncs change nothing.
	require.NoError(t, questRepo.RaiseProgress(ctx, 402, questID, date, 500, true))
	p, err := questRepo.GetProgress(ctx, 402, questID)
	require.NoError(t, err)
	assert.Equal(t, 130, p.Progress)
	assert.True(t, p.Claimed)
	require.NotNil(t, p.ClaimedPoints)
	assert.Equal(t, int64(150), *p.ClaimedPoints)

	// Second claim matches no row.
	_, err = questRepo.Claim(ctx, 402, questID, 120, 150, "quest reward: Deep Dive", testLevelStep)
	assert.ErrorIs(t, err, ErrClaimConflict)
}

func TestQuestRepository_Claim_ConcurrentSingleAward(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	questRepo := NewQuestRepository(pool)
	historyRepo := NewHistoryRepository(pool)
	userRepo := NewUserRepository(pool)
	ctx := context.Background()
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	seedUser(t, pool, 403, 0)
	set, err := questRepo.EnsureSet(ctx, date, testQuestSet(date))
	require.NoError(t, err)
	questID := set[0].ID

	require.NoError(t, questRepo.RaiseProgress(ctx, 403, questID, date, 130, true))

	// Race N claimers; the conditional update lets exactly one through.
	const claimers = 8
	var wg sync.WaitGroup
	results := make(chan error, claimers)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := questRepo.Claim(ctx, 403, questID, 120, 150, "quest reward: Deep Dive", testLevelStep)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, ErrClaimConflict)
			conflicts++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, claimers-1, conflicts)

	user, err := userRepo.GetByID(ctx, 403)
	require.NoError(t, err)
	assert.Equal(t, int64(150), user.TotalPoints)

	sum, err := historyRepo.SumByUser(ctx, 403)
	require.NoError(t, err)
	assert.Equal(t, int64(150), sum)
}

// ============================================================================
// CheckInRepository Tests
// ============================================================================

func TestCheckInRepository_OnePerDay(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	checkInRepo := NewCheckInRepository(pool)
	historyRepo := NewHistoryRepository(pool)
	ctx := context.Background()
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	seedUser(t, pool, 501, 0)

	ci, user, err := checkInRepo.Create(ctx, 501, date, 1, 10, nil, model.ReasonCheckIn, testLevelStep)
	require.NoError(t, err)
	assert.Equal(t, 1, ci.StreakDay)
	assert.Equal(t, int64(10), ci.Points)
	assert.Equal(t, 1, user.CurrentStreak)
	assert.Equal(t, 1, user.LongestStreak)
	assert.Equal(t, int64(10), user.TotalPoints)

	// Second attempt on the same day is rejected, not ignored, and
	// awards nothing.
	_, _, err = checkInRepo.Create(ctx, 501, date, 2, 12, nil, model.ReasonCheckIn, testLevelStep)
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)

	sum, err := historyRepo.SumByUser(ctx, 501)
	require.NoError(t, err)
	assert.Equal(t, int64(10), sum)
}

func TestCheckInRepository_GetLast(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	checkInRepo := NewCheckInRepository(pool)
	ctx := context.Background()

	seedUser(t, pool, 502, 0)

	last, err := checkInRepo.GetLast(ctx, 502)
	require.NoError(t, err)
	assert.Nil(t, last)

	d1 := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	_, _, err = checkInRepo.Create(ctx, 502, d1, 1, 10, nil, model.ReasonCheckIn, testLevelStep)
	require.NoError(t, err)
	_, _, err = checkInRepo.Create(ctx, 502, d2, 2, 12, nil, model.ReasonCheckIn, testLevelStep)
	require.NoError(t, err)

	last, err = checkInRepo.GetLast(ctx, 502)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 2, last.StreakDay)
	assert.True(t, last.CheckInDate.Equal(d2))
}
