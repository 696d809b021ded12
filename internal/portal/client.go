// Package portal is the HTTP client for the remote sample portal. Every
// operation takes a context and explicit credentials; nothing about the
// session is stored on the client, so one client can serve any number of
// sequential pipeline runs.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"carmon/internal/config"
	"carmon/internal/perrors"
)

// Client issues portal requests. Construct with New.
type Client struct {
	baseURL     string
	paths       config.PortalPaths
	http        *http.Client
	logger      *zap.Logger
	fanOutLimit int
}

// New builds a portal client from the configuration.
func New(cfg *config.Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:     cfg.Portal.BaseURL,
		paths:       cfg.Portal.Paths,
		http:        &http.Client{Timeout: cfg.HTTPTimeout()},
		logger:      logger,
		fanOutLimit: cfg.Portal.FanOutLimit,
	}
}

func (c *Client) url(path string) string { return c.baseURL + path }

// Close releases idle transport connections. Call when the run is over.
func (c *Client) Close() { c.http.CloseIdleConnections() }

// getJSON issues a bearer-authorized GET and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, op, path string, creds config.Credentials, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return perrors.Wrap(perrors.KindTransport, op, err, "failed to build request")
	}
	req.Header.Set("Authorization", "Bearer "+creds.Token)
	return c.do(op, req, target)
}

// postJSON issues a bearer-authorized POST with a JSON body and decodes the
// JSON response into target (which may be nil).
func (c *Client) postJSON(ctx context.Context, op, path string, creds config.Credentials, body, target any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return perrors.Wrap(perrors.KindTransport, op, err, "failed to encode request body")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(payload))
	if err != nil {
		return perrors.Wrap(perrors.KindTransport, op, err, "failed to build request")
	}
	req.Header.Set("Authorization", "Bearer "+creds.Token)
	req.Header.Set("Content-Type", "application/json")
	return c.do(op, req, target)
}

// do sends the request and decodes a 2xx JSON response. Any non-2xx answer
// or transport failure becomes a KindTransport error.
func (c *Client) do(op string, req *http.Request, target any) error {
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return perrors.Wrap(perrors.KindTransport, op, err, "request to %s failed", req.URL.Path)
	}
	defer resp.Body.Close()

	c.logger.Debug("portal request",
		zap.String("op", op),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(started)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return perrors.New(perrors.KindTransport, op,
			"portal answered %d for %s: %s", resp.StatusCode, req.URL.Path, string(snippet))
	}
	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return perrors.Wrap(perrors.KindTransport, op, err, "failed to decode response from %s", req.URL.Path)
	}
	return nil
}

// Identity is the portal's answer to the ping endpoint.
type Identity struct {
	ID       json.Number `json:"id"`
	Login    string      `json:"login"`
	FullName string      `json:"full_name"`
}

// Ping verifies the bearer token by requesting the current user's identity.
func (c *Client) Ping(ctx context.Context, creds config.Credentials) (Identity, error) {
	const op = "portal.Ping"
	if !creds.HasToken() {
		return Identity{}, perrors.New(perrors.KindConfig, op, "no portal token configured, set %s", config.EnvToken)
	}
	var id Identity
	if err := c.getJSON(ctx, op, c.paths.Ping, creds, &id); err != nil {
		return Identity{}, err
	}
	return id, nil
}
