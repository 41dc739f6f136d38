package authz

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Dhoini/Entitlement-service/internal/domain"
)

// ClaimsService is the contract the engine depends on; the external
// authorization service owns the snapshots.
type ClaimsService interface {
	GetClaims(ctx context.Context, subjectID string) (*domain.ClaimsSnapshot, error)
	GetClaimsByEmail(ctx context.Context, email string) (*domain.ClaimsSnapshot, error)
	SetClaims(ctx context.Context, subjectID string, claims domain.Claims) (*domain.ClaimsSnapshot, error)
	UpdateClaims(ctx context.Context, subjectID string, update domain.ClaimsUpdate) (*domain.ClaimsSnapshot, error)
	DeleteClaims(ctx context.Context, subjectID string, fields []string) (*domain.ClaimsSnapshot, error)
}

// GetClaims fetches the current snapshot for a subject
func (c *Client) GetClaims(ctx context.Context, subjectID string) (*domain.ClaimsSnapshot, error) {
	c.log.Debug("Fetching claims for subject: %s", subjectID)
	return c.doRequest(ctx, http.MethodGet, "/claims/"+url.PathEscape(subjectID), nil)
}

// GetClaimsByEmail fetches the current snapshot by subject email
func (c *Client) GetClaimsByEmail(ctx context.Context, email string) (*domain.ClaimsSnapshot, error) {
	c.log.Debug("Fetching claims by email: %s", email)
	return c.doRequest(ctx, http.MethodGet, "/claims?email="+url.QueryEscape(email), nil)
}

// SetClaims replaces the subject's claims wholesale. Idempotent:
// resending identical claims yields the identical snapshot.
func (c *Client) SetClaims(ctx context.Context, subjectID string, claims domain.Claims) (*domain.ClaimsSnapshot, error) {
	c.log.Debug("Setting claims for subject: %s", subjectID)
	return c.doRequest(ctx, http.MethodPost, "/claims/"+url.PathEscape(subjectID), claims)
}

// UpdateClaims applies a partial mutation to the subject's claims
func (c *Client) UpdateClaims(ctx context.Context, subjectID string, update domain.ClaimsUpdate) (*domain.ClaimsSnapshot, error) {
	c.log.Debug("Updating claims for subject: %s", subjectID)
	return c.doRequest(ctx, http.MethodPut, "/claims/"+url.PathEscape(subjectID), update)
}

// DeleteClaims removes the named claim fields from the subject
func (c *Client) DeleteClaims(ctx context.Context, subjectID string, fields []string) (*domain.ClaimsSnapshot, error) {
	c.log.Debug("Deleting claim fields for subject: %s", subjectID)
	path := "/claims/" + url.PathEscape(subjectID)
	if len(fields) > 0 {
		values := url.Values{}
		for _, f := range fields {
			values.Add("fields", f)
		}
		path = fmt.Sprintf("%s?%s", path, values.Encode())
	}
	return c.doRequest(ctx, http.MethodDelete, path, nil)
}
