// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Steam    SteamConfig    `mapstructure:"steam"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
	Rewards  RewardsConfig  `mapstructure:"rewards"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// SteamConfig holds Steam Web API client configuration.
type SteamConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// WalletConfig holds the wallet submitter endpoint. An empty endpoint
// disables server-side transaction submission; callers may still supply
// their own transaction hashes.
type WalletConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// RewardsConfig holds the tunable knobs of the points economy.
type RewardsConfig struct {
	LevelStep         int64              `mapstructure:"level_step"`
	CheckInBase       int64              `mapstructure:"check_in_base"`
	CheckInStep       int64              `mapstructure:"check_in_step"`
	CheckInPlateau    int64              `mapstructure:"check_in_plateau"`
	WeeklyBonus       int64              `mapstructure:"weekly_bonus"`
	WeeklyBonusCap    int64              `mapstructure:"weekly_bonus_cap"`
	BoostDurationDays int                `mapstructure:"boost_duration_days"`
	RarityBoosts      map[string]float64 `mapstructure:"rarity_boosts"`
	LeaderboardLimit  int                `mapstructure:"leaderboard_limit"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. DATABASE_HOST, STEAM_API_KEY, REWARDS_LEVEL_STEP.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - env vars can provide all config
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "rewards")
	v.SetDefault("database.name", "rewards")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("steam.base_url", "https://api.steampowered.com")
	v.SetDefault("steam.timeout", "15s")

	v.SetDefault("wallet.timeout", "30s")

	// Points economy defaults. Check-in rewards grow linearly for the
	// first week then plateau; a weekly bonus stacks on top, capped.
	v.SetDefault("rewards.level_step", 500)
	v.SetDefault("rewards.check_in_base", 10)
	v.SetDefault("rewards.check_in_step", 2)
	v.SetDefault("rewards.check_in_plateau", 25)
	v.SetDefault("rewards.weekly_bonus", 5)
	v.SetDefault("rewards.weekly_bonus_cap", 50)
	v.SetDefault("rewards.boost_duration_days", 30)
	v.SetDefault("rewards.rarity_boosts", map[string]float64{
		"common":    5,
		"uncommon":  10,
		"rare":      10,
		"epic":      15,
		"legendary": 20,
	})
	v.SetDefault("rewards.leaderboard_limit", 100)
}

// BoostForRarity returns the boost percentage for an NFT rarity.
// Unknown rarities get no boost.
func (r *RewardsConfig) BoostForRarity(rarity string) (float64, bool) {
	pct, ok := r.RarityBoosts[strings.ToLower(rarity)]
	return pct, ok
}
