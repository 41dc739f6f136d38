package service

import (
	"context"

	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/internal/integration/authz"
	"github.com/Dhoini/Entitlement-service/internal/kafka/producer"
	"github.com/Dhoini/Entitlement-service/internal/metrics"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
)

// Synchronization step names reported in every SyncOutcome
const (
	StepSetClaims    = "set_claims"
	StepUpdateClaims = "update_claims"
	StepDeleteClaims = "delete_claims"
	StepPublishEvent = "publish_event"
)

// ClaimsSyncService pushes entitlements to the external authorization
// service and exposes the operator claims pass-through. Every mutation
// requires the admin role derived from the caller's verified
// credential, and every call returns a step-outcome report: which
// steps completed, which failed, which were never attempted.
type ClaimsSyncService interface {
	GetClaims(ctx context.Context, subjectID string) (*domain.ClaimsSnapshot, error)
	GetClaimsByEmail(ctx context.Context, email string) (*domain.ClaimsSnapshot, error)
	SyncEntitlement(ctx context.Context, entitlement domain.EntitlementRecord, actor domain.Actor) (domain.SyncOutcome, error)
	SetClaims(ctx context.Context, subjectID string, claims domain.Claims, actor domain.Actor) (domain.SyncOutcome, error)
	UpdateClaims(ctx context.Context, subjectID string, update domain.ClaimsUpdate, actor domain.Actor) (domain.SyncOutcome, error)
	DeleteClaims(ctx context.Context, subjectID string, fields []string, actor domain.Actor) (domain.SyncOutcome, error)
}

// SyncConfig holds the single admin-gating decision: when
// RequireAdminRole is false, any authenticated caller passes.
type SyncConfig struct {
	AdminRole        string
	RequireAdminRole bool
}

type claimsSyncService struct {
	claims  authz.ClaimsService
	events  producer.EntitlementProducer
	metrics metrics.EntitlementMetrics
	cfg     SyncConfig
	log     *logger.Logger
}

// NewClaimsSyncService creates a new claims synchronizer. The events
// producer and metrics may be nil.
func NewClaimsSyncService(
	claims authz.ClaimsService,
	events producer.EntitlementProducer,
	m metrics.EntitlementMetrics,
	cfg SyncConfig,
	log *logger.Logger,
) ClaimsSyncService {
	return &claimsSyncService{
		claims:  claims,
		events:  events,
		metrics: m,
		cfg:     cfg,
		log:     log,
	}
}

// authorize re-derives the admin decision from the verified actor.
// Rejected before any write: an unauthorized call never mutates state.
func (s *claimsSyncService) authorize(actor domain.Actor) error {
	if actor.UserID == "" {
		return domain.ErrUnauthenticated
	}
	if s.cfg.RequireAdminRole && actor.Role != s.cfg.AdminRole {
		s.log.Warnw("Claims mutation denied", "userID", actor.UserID, "role", actor.Role)
		return domain.ErrAccessDenied
	}
	return nil
}

func (s *claimsSyncService) recordResult(outcome domain.SyncOutcome) {
	if s.metrics == nil {
		return
	}
	switch {
	case outcome.Succeeded():
		s.metrics.IncClaimsSync("success")
	case outcome.Partial():
		s.metrics.IncClaimsSync("partial")
	default:
		s.metrics.IncClaimsSync("failed")
	}
}

func (s *claimsSyncService) GetClaims(ctx context.Context, subjectID string) (*domain.ClaimsSnapshot, error) {
	return s.claims.GetClaims(ctx, subjectID)
}

func (s *claimsSyncService) GetClaimsByEmail(ctx context.Context, email string) (*domain.ClaimsSnapshot, error) {
	return s.claims.GetClaimsByEmail(ctx, email)
}

// SyncEntitlement pushes one entitlement to the authorization service
// and notifies subscribers. Steps: update_claims, publish_event. The
// update is idempotent, so an operator can safely resubmit after a
// partial failure until the snapshot converges.
func (s *claimsSyncService) SyncEntitlement(ctx context.Context, entitlement domain.EntitlementRecord, actor domain.Actor) (domain.SyncOutcome, error) {
	steps := []string{StepUpdateClaims, StepPublishEvent}

	if err := s.authorize(actor); err != nil {
		return domain.SyncOutcome{StepsNotProcessed: steps}, err
	}

	claims := domain.ClaimsFromEntitlement(entitlement)
	update := domain.ClaimsUpdate{
		IsPremium: &claims.IsPremium,
		PlanName:  &claims.PlanName,
		StartDate: claims.StartDate,
		EndDate:   claims.EndDate,
	}

	snapshot, err := s.claims.UpdateClaims(ctx, entitlement.UserID, update)
	if err != nil {
		outcome := domain.SyncOutcome{
			StepsFailed:       []string{StepUpdateClaims},
			StepsNotProcessed: []string{StepPublishEvent},
		}
		s.recordResult(outcome)
		return outcome, err
	}

	outcome := domain.SyncOutcome{
		StepsCompleted: []string{StepUpdateClaims},
		Claims:         &snapshot.Claims,
	}

	if s.events != nil {
		if err := s.events.PublishEntitlementSynced(ctx, entitlement); err != nil {
			s.log.Warnw("Failed to publish entitlement synced event", "error", err, "entitlementID", entitlement.ID)
			outcome.StepsFailed = []string{StepPublishEvent}
			s.recordResult(outcome)
			return outcome, domain.NewPartialFailureError(entitlement.UserID, outcome)
		}
	}
	outcome.StepsCompleted = append(outcome.StepsCompleted, StepPublishEvent)

	s.log.Infow("Entitlement synchronized", "entitlementID", entitlement.ID, "userID", entitlement.UserID)
	s.recordResult(outcome)
	return outcome, nil
}

// SetClaims replaces a subject's claims wholesale
func (s *claimsSyncService) SetClaims(ctx context.Context, subjectID string, claims domain.Claims, actor domain.Actor) (domain.SyncOutcome, error) {
	steps := []string{StepSetClaims}

	if err := s.authorize(actor); err != nil {
		return domain.SyncOutcome{StepsNotProcessed: steps}, err
	}

	snapshot, err := s.claims.SetClaims(ctx, subjectID, claims)
	if err != nil {
		outcome := domain.SyncOutcome{StepsFailed: steps}
		s.recordResult(outcome)
		return outcome, err
	}

	outcome := domain.SyncOutcome{StepsCompleted: steps, Claims: &snapshot.Claims}
	s.recordResult(outcome)
	return outcome, nil
}

// UpdateClaims applies a partial mutation to a subject's claims
func (s *claimsSyncService) UpdateClaims(ctx context.Context, subjectID string, update domain.ClaimsUpdate, actor domain.Actor) (domain.SyncOutcome, error) {
	steps := []string{StepUpdateClaims}

	if err := s.authorize(actor); err != nil {
		return domain.SyncOutcome{StepsNotProcessed: steps}, err
	}

	snapshot, err := s.claims.UpdateClaims(ctx, subjectID, update)
	if err != nil {
		outcome := domain.SyncOutcome{StepsFailed: steps}
		s.recordResult(outcome)
		return outcome, err
	}

	outcome := domain.SyncOutcome{StepsCompleted: steps, Claims: &snapshot.Claims}
	s.recordResult(outcome)
	return outcome, nil
}

// DeleteClaims removes claim fields from a subject
func (s *claimsSyncService) DeleteClaims(ctx context.Context, subjectID string, fields []string, actor domain.Actor) (domain.SyncOutcome, error) {
	steps := []string{StepDeleteClaims}

	if err := s.authorize(actor); err != nil {
		return domain.SyncOutcome{StepsNotProcessed: steps}, err
	}

	snapshot, err := s.claims.DeleteClaims(ctx, subjectID, fields)
	if err != nil {
		outcome := domain.SyncOutcome{StepsFailed: steps}
		s.recordResult(outcome)
		return outcome, err
	}

	outcome := domain.SyncOutcome{StepsCompleted: steps, Claims: &snapshot.Claims}
	s.recordResult(outcome)
	return outcome, nil
}
