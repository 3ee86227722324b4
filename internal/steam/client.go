// Package steam provides a thin client over the Steam Web API and turns
// its responses into daily activity signals for the quest engine.
package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"steam-rewards/internal/config"
	"steam-rewards/internal/model"
)

// Game is one entry from a player's owned-games list.
type Game struct {
	AppID           int64  `json:"appid"`
	Name            string `json:"name"`
	PlaytimeForever int    `json:"playtime_forever"`
	Playtime2Weeks  int    `json:"playtime_2weeks"`
	LastPlayed      int64  `json:"rtime_last_played"`
}

type ownedGamesResponse struct {
	Response struct {
		GameCount int    `json:"game_count"`
		Games     []Game `json:"games"`
	} `json:"response"`
}

type achievementsResponse struct {
	PlayerStats struct {
		Success      bool `json:"success"`
		Achievements []struct {
			APIName    string `json:"apiname"`
			Achieved   int    `json:"achieved"`
			UnlockTime int64  `json:"unlocktime"`
		} `json:"achievements"`
	} `json:"playerstats"`
}

// Client calls the Steam Web API. It implements service.ActivityProvider.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// NewClient creates a new Steam Web API client.
func NewClient(cfg *config.SteamConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
	}
}

// OwnedGames retrieves a player's owned games with playtime and
// last-played timestamps.
func (c *Client) OwnedGames(ctx context.Context, steamID string) ([]Game, error) {
	params := url.Values{
		"key":                       {c.apiKey},
		"steamid":                   {steamID},
		"include_appinfo":           {"1"},
		"include_played_free_games": {"1"},
		"format":                    {"json"},
	}

	var resp ownedGamesResponse
	if err := c.get(ctx, "/IPlayerService/GetOwnedGames/v1/", params, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch owned games: %w", err)
	}

	return resp.Response.Games, nil
}

// AchievementsUnlockedOn counts a player's achievements in one game whose
// unlock time falls on the given UTC date.
func (c *Client) AchievementsUnlockedOn(ctx context.Context, steamID string, appID int64, date time.Time) (int, error) {
	params := url.Values{
		"key":     {c.apiKey},
		"steamid": {steamID},
		"appid":   {fmt.Sprintf("%d", appID)},
		"format":  {"json"},
	}

	var resp achievementsResponse
	if err := c.get(ctx, "/ISteamUserStats/GetPlayerAchievements/v1/", params, &resp); err != nil {
		return 0, fmt.Errorf("failed to fetch achievements: %w", err)
	}
	if !resp.PlayerStats.Success {
		return 0, nil
	}

	start, end := dayBounds(date)
	count := 0
	for _, a := range resp.PlayerStats.Achievements {
		if a.Achieved == 1 && a.UnlockTime >= start && a.UnlockTime < end {
			count++
		}
	}
	return count, nil
}

// Signals builds the day's activity summary for a player. Steam exposes
// playtime as a rolling two-week window, so daily playtime is the
// two-week playtime of games last played on the date; games with an older
// last-played stamp contribute nothing. Achievement lookups are
// best-effort per game: a title without stats is skipped, not fatal.
func (c *Client) Signals(ctx context.Context, steamID string, date time.Time) (model.ActivitySignals, error) {
	games, err := c.OwnedGames(ctx, steamID)
	if err != nil {
		return model.ActivitySignals{}, err
	}

	start, end := dayBounds(date)

	var signals model.ActivitySignals
	for _, g := range games {
		if g.LastPlayed < start || g.LastPlayed >= end {
			continue
		}
		signals.GameCount++
		signals.PlaytimeMinutes += g.Playtime2Weeks

		unlocked, err := c.AchievementsUnlockedOn(ctx, steamID, g.AppID, date)
		if err != nil {
			log.Debug().Err(err).Int64("app_id", g.AppID).Msg("Achievement lookup failed, skipping game")
			continue
		}
		signals.AchievementCount += unlocked
	}

	return signals, nil
}

// get performs a GET against the Steam Web API and decodes the JSON body.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("steam api returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// dayBounds returns the [start, end) unix-second bounds of a UTC day.
func dayBounds(date time.Time) (int64, int64) {
	y, m, d := date.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return start.Unix(), start.Add(24 * time.Hour).Unix()
}
