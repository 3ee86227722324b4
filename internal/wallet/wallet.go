// Package wallet integrates the external blockchain submitter. The core
// never validates a signature cryptographically; it only records the
// opaque string for audit.
package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"steam-rewards/internal/config"
)

// Submitter obtains an opaque transaction signature for a reward event.
type Submitter interface {
	Submit(ctx context.Context, userID int64, memo string) (string, error)
}

// Client submits reward events to the configured wallet service over
// HTTP and returns the resulting transaction signature.
type Client struct {
	httpClient *http.Client
	endpoint   string
}

// NewClient creates a wallet submitter client, or nil when no endpoint is
// configured. Callers treat a nil submitter as "no server-side signing".
func NewClient(cfg *config.WalletConfig) *Client {
	if cfg.Endpoint == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   cfg.Endpoint,
	}
}

type submitRequest struct {
	UserID int64  `json:"user_id"`
	Memo   string `json:"memo"`
}

type submitResponse struct {
	Signature string `json:"signature"`
}

// Submit sends the reward event and returns the transaction signature.
func (c *Client) Submit(ctx context.Context, userID int64, memo string) (string, error) {
	body, err := json.Marshal(submitRequest{UserID: userID, Memo: memo})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("wallet submit failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wallet service returned status %d", resp.StatusCode)
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode wallet response: %w", err)
	}

	return out.Signature, nil
}
