package service

import (
	"context"
	"testing"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/internal/repository"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.New(logger.ERROR)
}

func successPayment(reference string, amount int64, plan string) domain.PaymentRecord {
	return domain.PaymentRecord{
		ID:               uuid.New(),
		Amount:           amount,
		PaymentReference: reference,
		PaymentMethod:    "bank_transfer",
		PlanName:         plan,
		Status:           domain.PaymentStatusSuccess,
		UserID:           uuid.NewString(),
		UserEmail:        "buyer@example.com",
	}
}

func TestActivateFromPayment(t *testing.T) {
	log := testLogger()
	repo := repository.NewInMemoryEntitlementRepository(log)
	paymentRepo := repository.NewInMemoryPaymentRepository(log)
	events := &stubProducer{}
	svc := NewEntitlementService(repo, paymentRepo, events, nil, log)

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	svc.(*entitlementService).now = func() time.Time { return now }

	payment := successPayment("TXN-1", 449, "Premium")
	actor := domain.Actor{UserID: "admin-1", Role: "admin"}

	entitlement, err := svc.ActivateFromPayment(context.Background(), payment, actor)
	require.NoError(t, err)

	assert.Equal(t, payment.UserID, entitlement.UserID)
	assert.Equal(t, domain.EntitlementStatusActive, entitlement.Status)
	assert.Equal(t, now, entitlement.StartDate)
	assert.Equal(t, now.AddDate(0, 1, 0), entitlement.ExpiryDate)
	assert.Equal(t, payment.ID, entitlement.SourcePaymentID)
	assert.Equal(t, "admin-1", entitlement.ActivatedBy)
	assert.Equal(t, 1, events.activated)
}

func TestActivateFromPaymentRejectsNonSuccess(t *testing.T) {
	log := testLogger()
	repo := repository.NewInMemoryEntitlementRepository(log)
	paymentRepo := repository.NewInMemoryPaymentRepository(log)
	svc := NewEntitlementService(repo, paymentRepo, nil, nil, log)

	for _, status := range []domain.PaymentStatus{domain.PaymentStatusPending, domain.PaymentStatusRejected} {
		payment := successPayment("TXN-2", 449, "Premium")
		payment.Status = status

		_, err := svc.ActivateFromPayment(context.Background(), payment, domain.Actor{UserID: "admin-1"})
		assert.ErrorIs(t, err, domain.ErrInvalidState, "status %s must not activate", status)
	}

	all, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestActivateFromPaymentDeduplicates(t *testing.T) {
	log := testLogger()
	repo := repository.NewInMemoryEntitlementRepository(log)
	paymentRepo := repository.NewInMemoryPaymentRepository(log)
	events := &stubProducer{}
	svc := NewEntitlementService(repo, paymentRepo, events, nil, log)

	payment := successPayment("TXN-3", 4308, "Premium Yearly")
	actor := domain.Actor{UserID: "admin-1"}

	first, err := svc.ActivateFromPayment(context.Background(), payment, actor)
	require.NoError(t, err)

	// Replaying the same payment grants nothing twice.
	_, err = svc.ActivateFromPayment(context.Background(), payment, actor)
	assert.ErrorIs(t, err, domain.ErrDuplicateEntitlement)

	var dupErr *domain.DuplicateEntitlementError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "TXN-3", dupErr.PaymentReference)

	all, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, 1, events.activated)
}

func TestActivateLoadsPaymentByID(t *testing.T) {
	log := testLogger()
	repo := repository.NewInMemoryEntitlementRepository(log)
	paymentRepo := repository.NewInMemoryPaymentRepository(log)
	svc := NewEntitlementService(repo, paymentRepo, nil, nil, log)

	payment := successPayment("TXN-4", 449, "Monthly")
	created, err := paymentRepo.Create(context.Background(), payment)
	require.NoError(t, err)

	entitlement, err := svc.Activate(context.Background(), created.ID.String(), domain.Actor{UserID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, entitlement.SourcePaymentID)

	_, err = svc.Activate(context.Background(), "not-a-uuid", domain.Actor{UserID: "admin-1"})
	assert.ErrorIs(t, err, repository.ErrInvalidData)

	_, err = svc.Activate(context.Background(), uuid.NewString(), domain.Actor{UserID: "admin-1"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
