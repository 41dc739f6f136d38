package authz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
)

const serviceName = "authz"

// Config is the configuration for the authorization service client
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client calls the external authorization service that owns the claims
// snapshots. Every request carries the service credential; the remote
// side re-derives the caller role from it.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a new authorization service client
func NewClient(cfg Config, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// doRequest executes one request against the authorization service and
// decodes the snapshot reply. Transport errors and 5xx map to
// ErrUpstreamUnavailable, 403 to ErrAccessDenied, 404 to ErrNotFound.
func (c *Client) doRequest(ctx context.Context, method, path string, payload any) (*domain.ClaimsSnapshot, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Errorw("Authz request failed", "method", method, "path", path, "error", err)
		return nil, domain.NewUpstreamError(serviceName, method+" "+path, 0, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return nil, domain.ErrAccessDenied
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrNotFound
	case resp.StatusCode >= 500:
		return nil, domain.NewUpstreamError(serviceName, method+" "+path, resp.StatusCode, nil)
	case resp.StatusCode >= 400:
		return nil, domain.NewUpstreamError(serviceName, method+" "+path, resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var snapshot domain.ClaimsSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, domain.NewUpstreamError(serviceName, method+" "+path, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}

	return &snapshot, nil
}
