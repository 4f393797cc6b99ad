package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"fleettrack/internal/config"
)

// Client pushes rows to a PostgREST-compatible endpoint. Upserts rely on
// the server-side Prefer resolution header, so repeated pushes of the
// same rows converge instead of duplicating.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.CloudTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.CloudRateLimitRPS),
	}
}

func (c *Client) PushRows(ctx context.Context, table string, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}
	if strings.TrimSpace(c.cfg.CloudURL) == "" {
		return errors.New("missing CLOUD_URL")
	}
	if strings.TrimSpace(c.cfg.CloudAnonKey) == "" {
		return errors.New("missing CLOUD_ANON_KEY")
	}

	payload, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	endpoint := strings.TrimRight(c.cfg.CloudURL, "/") + "/rest/v1/" + table

	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		c.limiter.WaitTurn()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("apikey", c.cfg.CloudAnonKey)
		req.Header.Set("Authorization", "Bearer "+c.cfg.CloudAnonKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "resolution=merge-duplicates")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < 5 {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = fmt.Errorf("cloud status %d", resp.StatusCode)
				continue
			}
			return fmt.Errorf("cloud api error: table=%s status=%d body=%s", table, resp.StatusCode, string(body))
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("cloud request failed")
	}
	return lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
