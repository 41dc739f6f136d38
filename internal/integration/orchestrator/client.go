package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
)

const serviceName = "orchestrator"

// Config is the configuration for the orchestration service client
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client calls the external payment orchestration service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a new orchestration service client
func NewClient(cfg Config, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// ProcessRequest is the wire request for processPayment
type ProcessRequest struct {
	PaymentID string `json:"payment_id"`
	UserID    string `json:"user_id"`
	PlanName  string `json:"plan_name"`
}

// ProcessResponse is the wire step-outcome report for processPayment.
// The three collections are disjoint; the caller must treat this as
// the real result rather than a boolean.
type ProcessResponse struct {
	Status            string         `json:"status"`
	Claims            *domain.Claims `json:"claims,omitempty"`
	StepsCompleted    []string       `json:"steps_completed"`
	StepsFailed       []string       `json:"steps_failed"`
	StepsNotProcessed []string       `json:"steps_not_processed"`
}

// Outcome converts the wire report to the domain step report
func (r ProcessResponse) Outcome() domain.SyncOutcome {
	return domain.SyncOutcome{
		StepsCompleted:    r.StepsCompleted,
		StepsFailed:       r.StepsFailed,
		StepsNotProcessed: r.StepsNotProcessed,
		Claims:            r.Claims,
	}
}

// PaymentProcessor is the contract the engine depends on
type PaymentProcessor interface {
	ProcessPayment(ctx context.Context, paymentID, userID, planName string) (*ProcessResponse, error)
}

// ProcessPayment dispatches one orchestrated processing run. Once
// sent, the run completes remotely or reports a definite outcome;
// there is no mid-flight cancellation of the remote write.
func (c *Client) ProcessPayment(ctx context.Context, paymentID, userID, planName string) (*ProcessResponse, error) {
	c.log.Debug("Dispatching processPayment for payment: %s", paymentID)

	payload := ProcessRequest{
		PaymentID: paymentID,
		UserID:    userID,
		PlanName:  planName,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/processPayment", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Errorw("Orchestrator request failed", "paymentID", paymentID, "error", err)
		return nil, domain.NewUpstreamError(serviceName, "processPayment", 0, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return nil, domain.ErrAccessDenied
	case resp.StatusCode >= 500:
		return nil, domain.NewUpstreamError(serviceName, "processPayment", resp.StatusCode, nil)
	case resp.StatusCode >= 400:
		return nil, domain.NewUpstreamError(serviceName, "processPayment", resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var processResp ProcessResponse
	if err := json.NewDecoder(resp.Body).Decode(&processResp); err != nil {
		return nil, domain.NewUpstreamError(serviceName, "processPayment", resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}

	c.log.Info("processPayment finished for %s: status=%s completed=%d failed=%d",
		paymentID, processResp.Status, len(processResp.StepsCompleted), len(processResp.StepsFailed))

	return &processResp, nil
}
