package service

import (
	"context"
	"errors"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/internal/kafka/producer"
	"github.com/Dhoini/Entitlement-service/internal/metrics"
	"github.com/Dhoini/Entitlement-service/internal/repository"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/google/uuid"
)

// EntitlementService projects verified payments into access grants
type EntitlementService interface {
	GetAll(ctx context.Context) ([]domain.EntitlementRecord, error)
	GetByID(ctx context.Context, id string) (domain.EntitlementRecord, error)
	GetByKey(ctx context.Context, key domain.DedupKey) (domain.EntitlementRecord, error)
	GetByUserID(ctx context.Context, userID string) ([]domain.EntitlementRecord, error)
	Activate(ctx context.Context, paymentID string, actor domain.Actor) (domain.EntitlementRecord, error)
	ActivateFromPayment(ctx context.Context, payment domain.PaymentRecord, actor domain.Actor) (domain.EntitlementRecord, error)
}

type entitlementService struct {
	repo        repository.EntitlementRepository
	paymentRepo repository.PaymentRepository
	events      producer.EntitlementProducer
	metrics     metrics.EntitlementMetrics
	log         *logger.Logger
	now         func() time.Time
}

// NewEntitlementService creates a new entitlement service. The events
// producer and metrics may be nil when eventing or metrics are disabled.
func NewEntitlementService(
	repo repository.EntitlementRepository,
	paymentRepo repository.PaymentRepository,
	events producer.EntitlementProducer,
	m metrics.EntitlementMetrics,
	log *logger.Logger,
) EntitlementService {
	return &entitlementService{
		repo:        repo,
		paymentRepo: paymentRepo,
		events:      events,
		metrics:     m,
		log:         log,
		now:         time.Now,
	}
}

func (s *entitlementService) GetAll(ctx context.Context) ([]domain.EntitlementRecord, error) {
	s.log.Debug("Getting all entitlements")
	return s.repo.GetAll(ctx)
}

func (s *entitlementService) GetByID(ctx context.Context, id string) (domain.EntitlementRecord, error) {
	s.log.Debug("Getting entitlement by ID: %s", id)

	uuidID, err := uuid.Parse(id)
	if err != nil {
		s.log.Warn("Invalid UUID format: %s", id)
		return domain.EntitlementRecord{}, repository.ErrInvalidData
	}

	return s.repo.GetByID(ctx, uuidID)
}

func (s *entitlementService) GetByKey(ctx context.Context, key domain.DedupKey) (domain.EntitlementRecord, error) {
	s.log.Debug("Getting entitlement by key: %s", key)
	return s.repo.GetByKey(ctx, key)
}

func (s *entitlementService) GetByUserID(ctx context.Context, userID string) ([]domain.EntitlementRecord, error) {
	s.log.Debug("Getting entitlements for user: %s", userID)
	return s.repo.GetByUserID(ctx, userID)
}

// Activate loads a payment and projects it into an entitlement. This
// is the manual replay path for recovering a verified payment whose
// automatic activation failed.
func (s *entitlementService) Activate(ctx context.Context, paymentID string, actor domain.Actor) (domain.EntitlementRecord, error) {
	s.log.Debug("Activating entitlement from payment: %s", paymentID)

	uuidID, err := uuid.Parse(paymentID)
	if err != nil {
		s.log.Warn("Invalid UUID format: %s", paymentID)
		return domain.EntitlementRecord{}, repository.ErrInvalidData
	}

	payment, err := s.paymentRepo.GetByID(ctx, uuidID)
	if err != nil {
		return domain.EntitlementRecord{}, err
	}

	return s.ActivateFromPayment(ctx, payment, actor)
}

// ActivateFromPayment performs the idempotent insert-if-absent
// projection. Only success payments activate; the dedup key
// (payment reference, amount) admits at most one record, enforced by
// the repository's atomic CreateIfAbsent.
func (s *entitlementService) ActivateFromPayment(ctx context.Context, payment domain.PaymentRecord, actor domain.Actor) (domain.EntitlementRecord, error) {
	if payment.Status != domain.PaymentStatusSuccess {
		s.log.Warn("Refusing activation from payment %s in status %s", payment.ID, payment.Status)
		return domain.EntitlementRecord{}, domain.NewInvalidStateError(payment.ID.String(), payment.Status, domain.PaymentStatusSuccess)
	}

	window := domain.InferWindow(payment.PlanName, payment.Amount, s.now())

	record := domain.EntitlementRecord{
		ID:               uuid.New(),
		UserID:           payment.UserID,
		UserEmail:        payment.UserEmail,
		PlanName:         payment.PlanName,
		Amount:           payment.Amount,
		PaymentReference: payment.PaymentReference,
		Status:           domain.EntitlementStatusActive,
		StartDate:        window.StartDate,
		ExpiryDate:       window.ExpiryDate,
		SourcePaymentID:  payment.ID,
		ActivatedBy:      actor.UserID,
	}

	created, err := s.repo.CreateIfAbsent(ctx, record)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Non-fatal: the desired end state already holds.
			s.log.Infow("Activation deduplicated", "paymentReference", payment.PaymentReference, "amount", payment.Amount)
			if s.metrics != nil {
				s.metrics.IncDuplicateActivation()
			}
			return domain.EntitlementRecord{}, domain.NewDuplicateEntitlementError(payment.PaymentReference, payment.Amount)
		}
		return domain.EntitlementRecord{}, err
	}

	s.log.Infow("Entitlement activated",
		"entitlementID", created.ID,
		"userID", created.UserID,
		"plan", created.PlanName,
		"expires", created.ExpiryDate,
	)

	if s.metrics != nil {
		s.metrics.IncEntitlementActivated(created.PlanName)
	}

	if s.events != nil {
		if err := s.events.PublishEntitlementActivated(ctx, created); err != nil {
			// Activation is durable; a lost notification only delays readers.
			s.log.Warnw("Failed to publish entitlement activated event", "error", err, "entitlementID", created.ID)
		}
	}

	return created, nil
}
