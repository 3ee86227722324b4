package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// migrations are applied in order on startup. Each statement is
// idempotent so re-running on an existing database is safe.
var migrations = []struct {
	name string
	sql  string
}{
	{
		name: "users",
		sql: `
		CREATE TABLE IF NOT EXISTS users (
			user_id BIGINT PRIMARY KEY,
			username VARCHAR(255) NOT NULL,
			steam_id VARCHAR(64) NOT NULL DEFAULT '',
			wallet_address VARCHAR(128) NOT NULL DEFAULT '',
			total_points BIGINT NOT NULL DEFAULT 0 CHECK (total_points >= 0),
			level INT NOT NULL DEFAULT 1,
			current_streak INT NOT NULL DEFAULT 0,
			longest_streak INT NOT NULL DEFAULT 0,
			last_check_in DATE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_points ON users(total_points DESC, created_at ASC, user_id ASC);
		`,
	},
	{
		name: "point_history",
		sql: `
		CREATE TABLE IF NOT EXISTS point_history (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			amount BIGINT NOT NULL,
			reason TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_point_history_user_time ON point_history(user_id, created_at DESC);
		`,
	},
	{
		name: "boost_records",
		sql: `
		CREATE TABLE IF NOT EXISTS boost_records (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			nft_address VARCHAR(128) NOT NULL UNIQUE,
			rarity VARCHAR(32) NOT NULL,
			boost_percentage DOUBLE PRECISION NOT NULL CHECK (boost_percentage > 0),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_boost_records_user_expiry ON boost_records(user_id, expires_at);
		`,
	},
	{
		name: "daily_quests",
		sql: `
		CREATE TABLE IF NOT EXISTS daily_quests (
			id VARCHAR(64) PRIMARY KEY,
			quest_date DATE NOT NULL,
			idx INT NOT NULL,
			type VARCHAR(32) NOT NULL,
			title VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			requirement INT NOT NULL,
			reward BIGINT NOT NULL,
			icon VARCHAR(32) NOT NULL DEFAULT '',
			UNIQUE (quest_date, idx)
		);
		CREATE INDEX IF NOT EXISTS idx_daily_quests_date ON daily_quests(quest_date);
		`,
	},
	{
		name: "user_quest_progress",
		sql: `
		CREATE TABLE IF NOT EXISTS user_quest_progress (
			user_id BIGINT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			quest_id VARCHAR(64) NOT NULL REFERENCES daily_quests(id) ON DELETE CASCADE,
			quest_date DATE NOT NULL,
			progress INT NOT NULL DEFAULT 0,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			claimed BOOLEAN NOT NULL DEFAULT FALSE,
			claimed_points BIGINT,
			claimed_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, quest_id)
		);
		CREATE INDEX IF NOT EXISTS idx_quest_progress_user_date ON user_quest_progress(user_id, quest_date);
		`,
	},
	{
		name: "check_ins",
		sql: `
		CREATE TABLE IF NOT EXISTS check_ins (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			check_in_date DATE NOT NULL,
			streak_day INT NOT NULL,
			points BIGINT NOT NULL,
			tx_hash TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, check_in_date)
		);
		`,
	},
}

// Migrate applies the database schema. Shared by the server entry point
// and the integration test bootstrap.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("Running database migrations...")

	for _, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
		log.Info().Str("migration", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
