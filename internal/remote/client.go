package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dojopool/pocketsync/internal/domain"
	"github.com/dojopool/pocketsync/internal/logger"
	"github.com/dojopool/pocketsync/pkg/errors"
	"github.com/rs/zerolog"
)

// Client talks to the DojoPool REST API. Every transport or validation
// failure is returned as a plain error; the sync queue treats them all
// identically. The client owns request timeouts; the queue imposes none.
type Client struct {
	log      zerolog.Logger
	baseURL  string
	apiToken string
	http     *http.Client
}

func NewClient(log logger.Logger, cfg domain.RemoteConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		log:      log.With().Str("module", "remote").Logger(),
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiToken: cfg.APIToken,
		http:     &http.Client{Timeout: timeout},
	}
}

var _ domain.RemoteClient = (*Client)(nil)

func (c *Client) CreateGame(ctx context.Context, game domain.Game) error {
	return c.send(ctx, http.MethodPost, "/api/v1/games", game)
}

func (c *Client) UpdateGameStatus(ctx context.Context, gameID string, status domain.GameStatus) error {
	path := fmt.Sprintf("/api/v1/games/%s/status", gameID)
	body := map[string]domain.GameStatus{"status": status}
	return c.send(ctx, http.MethodPatch, path, body)
}

func (c *Client) UpdateProfile(ctx context.Context, profile domain.Profile) error {
	return c.send(ctx, http.MethodPut, "/api/v1/profile", profile)
}

func (c *Client) send(ctx context.Context, method, path string, body interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "could not encode request body for %s %s", method, path)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return errors.Wrap(err, "could not build request for %s %s", method, path)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed: %s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		// keep a short excerpt of the body for the log, not the error
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Str("body", string(excerpt)).
			Msg("remote api rejected request")

		return errors.New("remote api returned status %d for %s %s", resp.StatusCode, method, path)
	}

	return nil
}
