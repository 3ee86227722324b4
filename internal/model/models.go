// Package model defines the data models for the rewards platform.
package model

import "time"

// User represents a player account linked to a Steam identity and,
// optionally, a wallet address for NFT-related flows.
type User struct {
	ID            int64      `db:"user_id"`
	Username      string     `db:"username"`
	SteamID       string     `db:"steam_id"`
	WalletAddress string     `db:"wallet_address"`
	TotalPoints   int64      `db:"total_points"`
	Level         int        `db:"level"`
	CurrentStreak int        `db:"current_streak"`
	LongestStreak int        `db:"longest_streak"`
	LastCheckIn   *time.Time `db:"last_check_in"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// PointHistoryEntry is an immutable record of a single point-changing event.
// The sum of all entries for a user always equals that user's TotalPoints.
type PointHistoryEntry struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Amount    int64     `db:"amount"`
	Reason    string    `db:"reason"`
	CreatedAt time.Time `db:"created_at"`
}

// BoostRecord is a point-boost granted by an NFT mint. A record expires
// lazily: reads filter on expires_at rather than flipping is_active.
type BoostRecord struct {
	ID              int64     `db:"id"`
	UserID          int64     `db:"user_id"`
	NFTAddress      string    `db:"nft_address"`
	Rarity          string    `db:"rarity"`
	BoostPercentage float64   `db:"boost_percentage"`
	IsActive        bool      `db:"is_active"`
	ExpiresAt       time.Time `db:"expires_at"`
	CreatedAt       time.Time `db:"created_at"`
}

// QuestDefinition is one of the five quests in a day's set. IDs are
// deterministic: quest_<date>_<index>.
type QuestDefinition struct {
	ID          string    `db:"id"`
	QuestDate   time.Time `db:"quest_date"`
	Index       int       `db:"idx"`
	Type        string    `db:"type"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Requirement int       `db:"requirement"`
	Reward      int64     `db:"reward"`
	Icon        string    `db:"icon"`
}

// UserQuestProgress tracks a single user's progress against one quest.
// Progress is monotonically non-decreasing while unclaimed and frozen once
// claimed; ClaimedPoints records the boosted amount actually awarded.
type UserQuestProgress struct {
	UserID        int64      `db:"user_id"`
	QuestID       string     `db:"quest_id"`
	QuestDate     time.Time  `db:"quest_date"`
	Progress      int        `db:"progress"`
	Completed     bool       `db:"completed"`
	Claimed       bool       `db:"claimed"`
	ClaimedPoints *int64     `db:"claimed_points"`
	ClaimedAt     *time.Time `db:"claimed_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// CheckIn records one daily check-in. At most one row exists per user per
// UTC day.
type CheckIn struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	CheckInDate time.Time `db:"check_in_date"`
	StreakDay   int       `db:"streak_day"`
	Points      int64     `db:"points"`
	TxHash      *string   `db:"tx_hash"`
	CreatedAt   time.Time `db:"created_at"`
}

// ActivitySignals is the per-day activity summary computed from the Steam
// integration and fed into quest progress syncing. It decouples the quest
// engine from the shape of any particular Steam API response.
type ActivitySignals struct {
	PlaytimeMinutes  int
	GameCount        int
	AchievementCount int
	StreakLength     int
}

// LeaderboardEntry is one row of the derived points ranking.
type LeaderboardEntry struct {
	Rank        int    `db:"rank"`
	UserID      int64  `db:"user_id"`
	Username    string `db:"username"`
	TotalPoints int64  `db:"total_points"`
	Level       int    `db:"level"`
}

// Quest types. Social progress is externally driven; the sync engine never
// computes it.
const (
	QuestTypePlaytime    = "playtime"
	QuestTypeGameCount   = "game_count"
	QuestTypeAchievement = "achievement"
	QuestTypeSocial      = "social"
	QuestTypeConsistency = "consistency"
)

// NFT rarities recognized by the boost mint intake.
const (
	RarityCommon    = "common"
	RarityUncommon  = "uncommon"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
)

// Well-known point history reasons.
const (
	ReasonCheckIn = "daily check-in"
)
