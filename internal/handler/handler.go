// Package handler exposes the rewards core over HTTP.
package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"steam-rewards/internal/repository"
	"steam-rewards/internal/service"
	"steam-rewards/internal/wallet"
)

// Dependencies holds everything the HTTP layer needs.
type Dependencies struct {
	Account     *service.AccountService
	Points      *service.PointsService
	Boosts      *service.BoostService
	CheckIns    *service.CheckInService
	Quests      *service.QuestService
	Leaderboard *service.LeaderboardService
	Sync        *service.SyncService
	Wallet      wallet.Submitter // nil disables server-side signing
}

// Handler registers and serves the API routes.
type Handler struct {
	deps *Dependencies
}

// New creates a new Handler.
func New(deps *Dependencies) *Handler {
	return &Handler{deps: deps}
}

// Register mounts all routes on the fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/health", h.health)

	api := app.Group("/api/v1", RequireUser())

	api.Post("/users", h.ensureUser)
	api.Get("/profile", h.profile)

	api.Get("/quests", h.questState)
	api.Post("/quests/sync", h.syncQuests)
	api.Post("/quests/:questID/claim", h.claimQuest)
	api.Post("/quests/:questID/social", h.recordSocial)

	api.Post("/checkin", h.checkIn)
	api.Get("/checkins", h.checkInHistory)

	api.Get("/leaderboard", h.leaderboard)
	api.Get("/rank", h.myRank)
	api.Get("/history", h.pointHistory)

	api.Get("/boosts", h.listBoosts)
	api.Post("/boosts/mint", h.mintBoost)
}

func (h *Handler) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

type ensureUserRequest struct {
	Username      string `json:"username"`
	SteamID       string `json:"steam_id"`
	WalletAddress string `json:"wallet_address"`
}

func (h *Handler) ensureUser(c *fiber.Ctx) error {
	var req ensureUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Username == "" {
		return badRequest(c, "username is required")
	}

	user, created, err := h.deps.Account.EnsureUser(c.Context(), currentUser(c), req.Username, req.SteamID, req.WalletAddress)
	if err != nil {
		return fail(c, err)
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"user_id":      user.ID,
		"username":     user.Username,
		"total_points": user.TotalPoints,
		"level":        user.Level,
		"created":      created,
	})
}

func (h *Handler) profile(c *fiber.Ctx) error {
	profile, err := h.deps.Account.Profile(c.Context(), currentUser(c), time.Now().UTC())
	if err != nil {
		return fail(c, err)
	}

	u := profile.User
	return c.JSON(fiber.Map{
		"user_id":        u.ID,
		"username":       u.Username,
		"steam_id":       u.SteamID,
		"wallet_address": u.WalletAddress,
		"total_points":   u.TotalPoints,
		"level":          u.Level,
		"current_streak": u.CurrentStreak,
		"longest_streak": u.LongestStreak,
		"active_boost":   profile.ActiveBoostPct,
	})
}

func (h *Handler) questState(c *fiber.Ctx) error {
	date, err := dateParam(c)
	if err != nil {
		return badRequest(c, "invalid date, expected YYYY-MM-DD")
	}

	state, err := h.deps.Quests.State(c.Context(), currentUser(c), date)
	if err != nil {
		return fail(c, err)
	}

	quests := make([]fiber.Map, 0, len(state.Quests))
	for _, q := range state.Quests {
		quests = append(quests, fiber.Map{
			"id":          q.ID,
			"type":        q.Type,
			"title":       q.Title,
			"description": q.Description,
			"requirement": q.Requirement,
			"reward":      q.Reward,
			"icon":        q.Icon,
		})
	}

	progress := make([]fiber.Map, 0, len(state.Progress))
	for _, p := range state.Progress {
		entry := fiber.Map{
			"quest_id":  p.QuestID,
			"progress":  p.Progress,
			"completed": p.Completed,
			"claimed":   p.Claimed,
		}
		if p.ClaimedPoints != nil {
			entry["claimed_points"] = *p.ClaimedPoints
		}
		progress = append(progress, entry)
	}

	return c.JSON(fiber.Map{"quests": quests, "progress": progress})
}

func (h *Handler) syncQuests(c *fiber.Ctx) error {
	signals, err := h.deps.Sync.SyncUser(c.Context(), currentUser(c), time.Now().UTC())
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"playtime_minutes":  signals.PlaytimeMinutes,
		"game_count":        signals.GameCount,
		"achievement_count": signals.AchievementCount,
	})
}

type claimRequest struct {
	TxHash string `json:"tx_hash"`
}

func (h *Handler) claimQuest(c *fiber.Ctx) error {
	questID := c.Params("questID")
	userID := currentUser(c)

	var req claimRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}

	txHash := h.resolveTxHash(c.Context(), userID, req.TxHash, "quest claim: "+questID)

	result, err := h.deps.Quests.Claim(c.Context(), userID, questID, txHash, time.Now().UTC())
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success":        true,
		"points_awarded": result.Awarded,
		"total_points":   result.NewTotal,
		"level":          result.Level,
	})
}

func (h *Handler) recordSocial(c *fiber.Ctx) error {
	questID := c.Params("questID")

	err := h.deps.Quests.RecordSocialProgress(c.Context(), currentUser(c), questID, time.Now().UTC())
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *Handler) checkIn(c *fiber.Ctx) error {
	userID := currentUser(c)

	var req claimRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}

	txHash := h.resolveTxHash(c.Context(), userID, req.TxHash, "daily check-in")

	result, err := h.deps.CheckIns.CheckIn(c.Context(), userID, time.Now().UTC(), txHash)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success":        true,
		"streak_day":     result.StreakDay,
		"points_awarded": result.PointsAwarded,
		"current_streak": result.CurrentStreak,
		"longest_streak": result.LongestStreak,
		"total_points":   result.NewTotal,
		"level":          result.Level,
	})
}

func (h *Handler) checkInHistory(c *fiber.Ctx) error {
	checkIns, err := h.deps.CheckIns.History(c.Context(), currentUser(c), c.QueryInt("limit"))
	if err != nil {
		return fail(c, err)
	}

	out := make([]fiber.Map, 0, len(checkIns))
	for _, ci := range checkIns {
		out = append(out, fiber.Map{
			"date":       ci.CheckInDate.Format("2006-01-02"),
			"streak_day": ci.StreakDay,
			"points":     ci.Points,
		})
	}
	return c.JSON(fiber.Map{"check_ins": out})
}

func (h *Handler) leaderboard(c *fiber.Ctx) error {
	entries, err := h.deps.Leaderboard.Top(c.Context(), c.QueryInt("limit"))
	if err != nil {
		return fail(c, err)
	}

	out := make([]fiber.Map, 0, len(entries))
	for _, e := range entries {
		out = append(out, fiber.Map{
			"rank":     e.Rank,
			"user_id":  e.UserID,
			"username": e.Username,
			"points":   e.TotalPoints,
			"level":    e.Level,
		})
	}
	return c.JSON(fiber.Map{"leaderboard": out})
}

func (h *Handler) myRank(c *fiber.Ctx) error {
	rank, err := h.deps.Leaderboard.Rank(c.Context(), currentUser(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"rank": rank.Rank, "points": rank.Points})
}

func (h *Handler) pointHistory(c *fiber.Ctx) error {
	entries, err := h.deps.Points.History(c.Context(), currentUser(c), c.QueryInt("limit"), c.QueryInt("offset"))
	if err != nil {
		return fail(c, err)
	}

	out := make([]fiber.Map, 0, len(entries))
	for _, e := range entries {
		out = append(out, fiber.Map{
			"amount":     e.Amount,
			"reason":     e.Reason,
			"created_at": e.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"history": out})
}

func (h *Handler) listBoosts(c *fiber.Ctx) error {
	boosts, err := h.deps.Boosts.List(c.Context(), currentUser(c))
	if err != nil {
		return fail(c, err)
	}

	now := time.Now().UTC()
	out := make([]fiber.Map, 0, len(boosts))
	for _, b := range boosts {
		out = append(out, fiber.Map{
			"nft_address": b.NFTAddress,
			"rarity":      b.Rarity,
			"boost_pct":   b.BoostPercentage,
			"active":      b.IsActive && b.ExpiresAt.After(now),
			"expires_at":  b.ExpiresAt,
		})
	}
	return c.JSON(fiber.Map{"boosts": out})
}

type mintRequest struct {
	NFTAddress string `json:"nft_address"`
	Rarity     string `json:"rarity"`
	TxHash     string `json:"tx_hash"`
}

func (h *Handler) mintBoost(c *fiber.Ctx) error {
	var req mintRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.NFTAddress == "" || req.Rarity == "" {
		return badRequest(c, "nft_address and rarity are required")
	}

	boost, err := h.deps.Boosts.Mint(c.Context(), currentUser(c), req.NFTAddress, req.Rarity, time.Now().UTC())
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"nft_address": boost.NFTAddress,
		"boost_pct":   boost.BoostPercentage,
		"expires_at":  boost.ExpiresAt,
	})
}

// resolveTxHash prefers a caller-supplied transaction hash and otherwise
// asks the wallet submitter, when configured, to sign the event. Signing
// is a best-effort enrichment: a wallet failure never blocks the award.
func (h *Handler) resolveTxHash(ctx context.Context, userID int64, supplied, memo string) *string {
	if supplied != "" {
		return &supplied
	}
	if h.deps.Wallet == nil {
		return nil
	}

	sig, err := h.deps.Wallet.Submit(ctx, userID, memo)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Wallet submit failed, continuing without signature")
		return nil
	}
	return &sig
}

// dateParam reads an optional ?date=YYYY-MM-DD query, defaulting to
// today in UTC.
func dateParam(c *fiber.Ctx) (time.Time, error) {
	raw := c.Query("date")
	if raw == "" {
		return time.Now().UTC(), nil
	}
	return time.Parse("2006-01-02", raw)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// fail maps service and repository errors onto HTTP statuses. Rejected
// claims keep their reason string so the UI can show it directly.
func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError

	switch {
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrQuestNotFound),
		errors.Is(err, repository.ErrProgressNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, service.ErrAlreadyClaimed),
		errors.Is(err, repository.ErrAlreadyCheckedIn),
		errors.Is(err, repository.ErrDuplicateNFT):
		status = fiber.StatusConflict
	case errors.Is(err, service.ErrNotCompleted),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrUnknownRarity):
		status = fiber.StatusBadRequest
	case errors.Is(err, service.ErrExternalService):
		status = fiber.StatusBadGateway
	default:
		log.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
		return c.Status(status).JSON(fiber.Map{"error": "internal error"})
	}

	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
