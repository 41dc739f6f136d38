package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/internal/kafka/producer"
	"github.com/Dhoini/Entitlement-service/internal/metrics"
	"github.com/Dhoini/Entitlement-service/internal/repository"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/google/uuid"
)

const defaultVerifyNote = "Verified by admin"

// VerificationResult is the full outcome of one orchestrated verify
// command. The payment transition is durable once Payment is set;
// activation and claims sync are follow-on operations whose failures
// are reported here, not rolled back, and recovered by manual replay.
type VerificationResult struct {
	Payment         domain.PaymentRecord      `json:"payment"`
	Entitlement     *domain.EntitlementRecord `json:"entitlement,omitempty"`
	Sync            *domain.SyncOutcome       `json:"sync,omitempty"`
	ActivationError string                    `json:"activation_error,omitempty"`
	SyncError       string                    `json:"sync_error,omitempty"`
}

// VerificationService drives a payment through its state machine
type VerificationService interface {
	Submit(ctx context.Context, submission domain.PaymentSubmission, submitter domain.Actor) (domain.PaymentRecord, error)
	GetAll(ctx context.Context) ([]domain.PaymentRecord, error)
	GetByID(ctx context.Context, id string) (domain.PaymentRecord, error)
	GetByStatus(ctx context.Context, status domain.PaymentStatus) ([]domain.PaymentRecord, error)
	Verify(ctx context.Context, paymentID string, verifier domain.Actor, notes string) (VerificationResult, error)
	Reject(ctx context.Context, paymentID string, verifier domain.Actor, reason string) (domain.PaymentRecord, error)
}

type verificationService struct {
	repo         repository.PaymentRepository
	entitlements EntitlementService
	sync         ClaimsSyncService
	events       producer.EntitlementProducer
	metrics      metrics.EntitlementMetrics
	log          *logger.Logger
	now          func() time.Time
}

// NewVerificationService creates a new verification service. The
// events producer and metrics may be nil.
func NewVerificationService(
	repo repository.PaymentRepository,
	entitlements EntitlementService,
	sync ClaimsSyncService,
	events producer.EntitlementProducer,
	m metrics.EntitlementMetrics,
	log *logger.Logger,
) VerificationService {
	return &verificationService{
		repo:         repo,
		entitlements: entitlements,
		sync:         sync,
		events:       events,
		metrics:      m,
		log:          log,
		now:          time.Now,
	}
}

// Submit records a new claimed payment in pending state
func (s *verificationService) Submit(ctx context.Context, submission domain.PaymentSubmission, submitter domain.Actor) (domain.PaymentRecord, error) {
	s.log.Debug("Recording payment claim from user: %s", submitter.UserID)

	if submitter.UserID == "" {
		return domain.PaymentRecord{}, domain.ErrUnauthenticated
	}
	if strings.TrimSpace(submission.PaymentReference) == "" {
		return domain.PaymentRecord{}, domain.NewValidationError("payment_reference", "must not be blank")
	}

	payment := domain.PaymentRecord{
		ID:               uuid.New(),
		Amount:           submission.Amount,
		PaymentReference: submission.PaymentReference,
		PaymentMethod:    submission.PaymentMethod,
		ScreenshotRef:    submission.ScreenshotRef,
		PlanName:         submission.PlanName,
		Status:           domain.PaymentStatusPending,
		UserID:           submitter.UserID,
		UserEmail:        submitter.Email,
	}

	created, err := s.repo.Create(ctx, payment)
	if err != nil {
		return domain.PaymentRecord{}, err
	}

	if s.metrics != nil {
		s.metrics.IncPaymentSubmitted(created.PaymentMethod)
		s.metrics.ObservePaymentAmount(created.Amount, string(created.Status))
	}

	s.log.Infow("Payment claim recorded", "paymentID", created.ID, "userID", created.UserID, "amount", created.Amount)
	return created, nil
}

func (s *verificationService) GetAll(ctx context.Context) ([]domain.PaymentRecord, error) {
	s.log.Debug("Getting all payments")
	return s.repo.GetAll(ctx)
}

func (s *verificationService) GetByID(ctx context.Context, id string) (domain.PaymentRecord, error) {
	s.log.Debug("Getting payment by ID: %s", id)

	uuidID, err := uuid.Parse(id)
	if err != nil {
		s.log.Warn("Invalid UUID format: %s", id)
		return domain.PaymentRecord{}, repository.ErrInvalidData
	}

	return s.repo.GetByID(ctx, uuidID)
}

func (s *verificationService) GetByStatus(ctx context.Context, status domain.PaymentStatus) ([]domain.PaymentRecord, error) {
	s.log.Debug("Getting payments with status: %s", status)
	return s.repo.GetByStatus(ctx, status)
}

// transition moves a pending payment to a terminal status. Terminal
// states never transition again, in either direction. The write is a
// compare-and-swap in the store: if another transition commits between
// the read and the write here, this one fails with InvalidState
// instead of overwriting a terminal status.
func (s *verificationService) transition(ctx context.Context, paymentID string, to domain.PaymentStatus, verifier domain.Actor, remarks string) (domain.PaymentRecord, error) {
	uuidID, err := uuid.Parse(paymentID)
	if err != nil {
		s.log.Warn("Invalid UUID format: %s", paymentID)
		return domain.PaymentRecord{}, repository.ErrInvalidData
	}

	payment, err := s.repo.GetByID(ctx, uuidID)
	if err != nil {
		return domain.PaymentRecord{}, err
	}

	if payment.Status != domain.PaymentStatusPending {
		s.log.Warn("Refusing transition of payment %s: %s -> %s", paymentID, payment.Status, to)
		return domain.PaymentRecord{}, domain.NewInvalidStateError(paymentID, payment.Status, to)
	}

	verifiedAt := s.now()
	payment.Status = to
	payment.Remarks = remarks
	payment.VerifiedBy = verifier.UserID
	payment.VerifiedAt = &verifiedAt

	if err := s.repo.Transition(ctx, payment, domain.PaymentStatusPending); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			current, lookupErr := s.repo.GetByID(ctx, uuidID)
			if lookupErr != nil {
				return domain.PaymentRecord{}, lookupErr
			}
			s.log.Warn("Lost transition race on payment %s: %s -> %s", paymentID, current.Status, to)
			return domain.PaymentRecord{}, domain.NewInvalidStateError(paymentID, current.Status, to)
		}
		return domain.PaymentRecord{}, err
	}

	return payment, nil
}

// Verify marks a pending payment as success and runs the follow-on
// activation and claims sync in the same command. The three writes
// share no transaction: a failure after the status flip leaves the
// system consistent-but-incomplete, visible to the reconciliation
// read path and recoverable via the manual activation replay.
func (s *verificationService) Verify(ctx context.Context, paymentID string, verifier domain.Actor, notes string) (VerificationResult, error) {
	if strings.TrimSpace(notes) == "" {
		notes = defaultVerifyNote
	}

	payment, err := s.transition(ctx, paymentID, domain.PaymentStatusSuccess, verifier, notes)
	if err != nil {
		return VerificationResult{}, err
	}

	s.log.Infow("Payment verified", "paymentID", payment.ID, "verifier", verifier.UserID)
	if s.metrics != nil {
		s.metrics.IncPaymentVerified()
		s.metrics.ObservePaymentAmount(payment.Amount, string(payment.Status))
	}

	if s.events != nil {
		if err := s.events.PublishPaymentVerified(ctx, payment); err != nil {
			s.log.Warnw("Failed to publish payment verified event", "error", err, "paymentID", payment.ID)
		}
	}

	result := VerificationResult{Payment: payment}

	entitlement, err := s.entitlements.ActivateFromPayment(ctx, payment, verifier)
	if err != nil {
		if !errors.Is(err, domain.ErrDuplicateEntitlement) {
			s.log.Errorw("Automatic activation failed", "error", err, "paymentID", payment.ID)
			result.ActivationError = err.Error()
			return result, nil
		}

		// Already activated: the desired end state holds.
		s.log.Infow("Activation already materialized", "paymentID", payment.ID)
		existing, lookupErr := s.entitlements.GetByKey(ctx, domain.PaymentKey(payment))
		if lookupErr != nil {
			result.ActivationError = err.Error()
			return result, nil
		}
		entitlement = existing
	}
	result.Entitlement = &entitlement

	outcome, err := s.sync.SyncEntitlement(ctx, entitlement, verifier)
	result.Sync = &outcome
	if err != nil {
		s.log.Errorw("Claims sync failed after activation", "error", err, "entitlementID", entitlement.ID)
		result.SyncError = err.Error()
	}

	return result, nil
}

// Reject marks a pending payment as rejected. A blank reason is a
// validation error and leaves the status untouched.
func (s *verificationService) Reject(ctx context.Context, paymentID string, verifier domain.Actor, reason string) (domain.PaymentRecord, error) {
	if strings.TrimSpace(reason) == "" {
		return domain.PaymentRecord{}, domain.NewValidationError("reason", "rejection reason must not be blank")
	}

	payment, err := s.transition(ctx, paymentID, domain.PaymentStatusRejected, verifier, reason)
	if err != nil {
		return domain.PaymentRecord{}, err
	}

	s.log.Infow("Payment rejected", "paymentID", payment.ID, "verifier", verifier.UserID, "reason", reason)
	if s.metrics != nil {
		s.metrics.IncPaymentRejected()
		s.metrics.ObservePaymentAmount(payment.Amount, string(payment.Status))
	}

	if s.events != nil {
		if err := s.events.PublishPaymentRejected(ctx, payment); err != nil {
			s.log.Warnw("Failed to publish payment rejected event", "error", err, "paymentID", payment.ID)
		}
	}

	return payment, nil
}
