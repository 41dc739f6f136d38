package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/internal/integration/authz"
	"github.com/Dhoini/Entitlement-service/internal/metrics"
	"github.com/Dhoini/Entitlement-service/internal/repository"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
)

// ReconciliationService is the read-only cross-store drift detector.
// It reports inconsistencies for operator visibility and never
// mutates any of the three stores.
type ReconciliationService interface {
	ListDrift(ctx context.Context) ([]domain.DriftCase, error)
}

type reconciliationService struct {
	payments     repository.PaymentRepository
	entitlements repository.EntitlementRepository
	claims       authz.ClaimsService
	metrics      metrics.EntitlementMetrics
	log          *logger.Logger
}

// NewReconciliationService creates a new drift detector. Metrics may be nil.
func NewReconciliationService(
	payments repository.PaymentRepository,
	entitlements repository.EntitlementRepository,
	claims authz.ClaimsService,
	m metrics.EntitlementMetrics,
	log *logger.Logger,
) ReconciliationService {
	return &reconciliationService{
		payments:     payments,
		entitlements: entitlements,
		claims:       claims,
		metrics:      m,
		log:          log,
	}
}

// ListDrift scans the ledger and the entitlement store against the
// external claims snapshots. Pending and rejected payments are never
// reported. Upstream read failures degrade a subject to "unknown"
// rather than aborting the whole scan; this path is display-only.
func (s *reconciliationService) ListDrift(ctx context.Context) ([]domain.DriftCase, error) {
	var cases []domain.DriftCase

	missing, err := s.findMissingActivations(ctx)
	if err != nil {
		return nil, err
	}
	cases = append(cases, missing...)

	stale, err := s.findStaleClaims(ctx)
	if err != nil {
		return nil, err
	}
	cases = append(cases, stale...)

	if s.metrics != nil {
		s.metrics.SetDriftCases(string(domain.DriftMissingActivation), len(missing))
		s.metrics.SetDriftCases(string(domain.DriftStaleClaims), len(stale))
	}

	s.log.Infow("Drift scan finished", "missingActivations", len(missing), "staleClaims", len(stale))
	return cases, nil
}

// findMissingActivations reports success payments with no entitlement
// for their dedup key.
func (s *reconciliationService) findMissingActivations(ctx context.Context) ([]domain.DriftCase, error) {
	payments, err := s.payments.GetByStatus(ctx, domain.PaymentStatusSuccess)
	if err != nil {
		return nil, err
	}

	var cases []domain.DriftCase
	for _, payment := range payments {
		_, err := s.entitlements.GetByKey(ctx, domain.PaymentKey(payment))
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}

		paymentID := payment.ID
		cases = append(cases, domain.DriftCase{
			Kind:      domain.DriftMissingActivation,
			PaymentID: &paymentID,
			UserID:    payment.UserID,
			UserEmail: payment.UserEmail,
			Detail:    fmt.Sprintf("payment %s verified but no entitlement exists for reference '%s' amount %d", payment.ID, payment.PaymentReference, payment.Amount),
		})
	}

	return cases, nil
}

// findStaleClaims reports active entitlements whose subject's external
// snapshot disagrees with the entitlement.
func (s *reconciliationService) findStaleClaims(ctx context.Context) ([]domain.DriftCase, error) {
	active, err := s.entitlements.GetByStatus(ctx, domain.EntitlementStatusActive)
	if err != nil {
		return nil, err
	}

	var cases []domain.DriftCase
	for _, entitlement := range active {
		snapshot, err := s.claims.GetClaims(ctx, entitlement.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				entitlementID := entitlement.ID
				cases = append(cases, domain.DriftCase{
					Kind:          domain.DriftStaleClaims,
					EntitlementID: &entitlementID,
					UserID:        entitlement.UserID,
					UserEmail:     entitlement.UserEmail,
					Detail:        fmt.Sprintf("entitlement %s active but subject %s has no claims snapshot", entitlement.ID, entitlement.UserID),
				})
				continue
			}
			// Display-only path; skip unreadable subjects instead of failing the scan.
			s.log.Warnw("Skipping subject in drift scan, claims unreadable", "error", err, "userID", entitlement.UserID)
			continue
		}

		if detail, stale := claimsDisagree(entitlement, snapshot.Claims); stale {
			entitlementID := entitlement.ID
			cases = append(cases, domain.DriftCase{
				Kind:          domain.DriftStaleClaims,
				EntitlementID: &entitlementID,
				UserID:        entitlement.UserID,
				UserEmail:     entitlement.UserEmail,
				Detail:        detail,
			})
		}
	}

	return cases, nil
}

// claimsDisagree compares an active entitlement with the external
// snapshot the synchronizer should have produced for it.
func claimsDisagree(entitlement domain.EntitlementRecord, claims domain.Claims) (string, bool) {
	if !claims.IsPremium {
		return fmt.Sprintf("entitlement %s active but claims mark subject as non-premium", entitlement.ID), true
	}
	if claims.PlanName != entitlement.PlanName {
		return fmt.Sprintf("claims plan '%s' does not match entitlement plan '%s'", claims.PlanName, entitlement.PlanName), true
	}
	if claims.EndDate == nil || !claims.EndDate.Equal(entitlement.ExpiryDate) {
		return fmt.Sprintf("claims expiry does not match entitlement %s expiry %s", entitlement.ID, entitlement.ExpiryDate), true
	}
	return "", false
}
