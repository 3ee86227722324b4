// Package main is the entry point for the Steam rewards API server.
package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"steam-rewards/internal/config"
	"steam-rewards/internal/handler"
	"steam-rewards/internal/pkg/db"
	"steam-rewards/internal/pkg/lock"
	"steam-rewards/internal/repository"
	"steam-rewards/internal/service"
	"steam-rewards/internal/steam"
	"steam-rewards/internal/wallet"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := db.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(dbPool.Pool)
	historyRepo := repository.NewHistoryRepository(dbPool.Pool)
	boostRepo := repository.NewBoostRepository(dbPool.Pool)
	questRepo := repository.NewQuestRepository(dbPool.Pool)
	checkInRepo := repository.NewCheckInRepository(dbPool.Pool)

	// Initialize per-user lock
	userLock := lock.NewUserLock()

	// Daily set selection stays effectively random in production; tests
	// inject seeded sources.
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	// Initialize services
	accountService := service.NewAccountService(userRepo, boostRepo)
	pointsService := service.NewPointsService(userRepo, historyRepo, boostRepo, cfg.Rewards.LevelStep)
	boostService := service.NewBoostService(boostRepo, userRepo, &cfg.Rewards)
	checkInService := service.NewCheckInService(checkInRepo, userRepo, boostRepo, userLock, &cfg.Rewards)
	questService := service.NewQuestService(questRepo, userRepo, boostRepo, userLock, rng, cfg.Rewards.LevelStep)
	leaderboardService := service.NewLeaderboardService(userRepo, cfg.Rewards.LeaderboardLimit)

	// External collaborators
	steamClient := steam.NewClient(&cfg.Steam)
	syncService := service.NewSyncService(userRepo, questService, steamClient)

	var walletSubmitter wallet.Submitter
	if walletClient := wallet.NewClient(&cfg.Wallet); walletClient != nil {
		walletSubmitter = walletClient
		log.Info().Str("endpoint", cfg.Wallet.Endpoint).Msg("Wallet submitter enabled")
	}

	// Initialize HTTP layer
	h := handler.New(&handler.Dependencies{
		Account:     accountService,
		Points:      pointsService,
		Boosts:      boostService,
		CheckIns:    checkInService,
		Quests:      questService,
		Leaderboard: leaderboardService,
		Sync:        syncService,
		Wallet:      walletSubmitter,
	})

	app := fiber.New(fiber.Config{
		AppName:               "steam-rewards",
		DisableStartupMessage: true,
	})
	h.Register(app)

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("Server is starting...")
		if err := app.Listen(cfg.Server.Address); err != nil {
			log.Fatal().Err(err).Msg("Server stopped unexpectedly")
		}
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
	log.Info().Msg("Server stopped gracefully")
}
