package service

import (
	"context"
	"sync"
	"testing"

	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verificationFixture struct {
	svc          VerificationService
	payments     *repository.InMemoryPaymentRepository
	entitlements *repository.InMemoryEntitlementRepository
	claims       *fakeClaimsService
	events       *stubProducer
}

func newVerificationFixture(t *testing.T) *verificationFixture {
	t.Helper()
	log := testLogger()

	payments := repository.NewInMemoryPaymentRepository(log)
	entitlements := repository.NewInMemoryEntitlementRepository(log)
	claims := newFakeClaimsService()
	events := &stubProducer{}

	entitlementSvc := NewEntitlementService(entitlements, payments, events, nil, log)
	syncSvc := NewClaimsSyncService(claims, events, nil, SyncConfig{AdminRole: "admin", RequireAdminRole: true}, log)
	svc := NewVerificationService(payments, entitlementSvc, syncSvc, events, nil, log)

	return &verificationFixture{
		svc:          svc,
		payments:     payments,
		entitlements: entitlements,
		claims:       claims,
		events:       events,
	}
}

func (f *verificationFixture) submit(t *testing.T, amount int64, plan string) domain.PaymentRecord {
	t.Helper()
	payment, err := f.svc.Submit(context.Background(), domain.PaymentSubmission{
		Amount:           amount,
		PaymentReference: "TXN-" + plan,
		PaymentMethod:    "bank_transfer",
		PlanName:         plan,
	}, domain.Actor{UserID: "user-1", Email: "buyer@example.com"})
	require.NoError(t, err)
	return payment
}

var admin = domain.Actor{UserID: "admin-1", Email: "admin@example.com", Role: "admin"}

func TestSubmit(t *testing.T) {
	f := newVerificationFixture(t)

	payment := f.submit(t, 449, "Premium")
	assert.Equal(t, domain.PaymentStatusPending, payment.Status)
	assert.Equal(t, "user-1", payment.UserID)
	assert.Empty(t, payment.VerifiedBy)
}

func TestSubmitRequiresActorAndReference(t *testing.T) {
	f := newVerificationFixture(t)

	_, err := f.svc.Submit(context.Background(), domain.PaymentSubmission{
		Amount:           449,
		PaymentReference: "TXN-1",
		PaymentMethod:    "bank_transfer",
		PlanName:         "Premium",
	}, domain.Actor{})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = f.svc.Submit(context.Background(), domain.PaymentSubmission{
		Amount:           449,
		PaymentReference: "   ",
		PaymentMethod:    "bank_transfer",
		PlanName:         "Premium",
	}, domain.Actor{UserID: "user-1"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestVerifyActivatesAndSyncs(t *testing.T) {
	f := newVerificationFixture(t)
	payment := f.submit(t, 449, "Premium")

	result, err := f.svc.Verify(context.Background(), payment.ID.String(), admin, "looks good")
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentStatusSuccess, result.Payment.Status)
	assert.Equal(t, "looks good", result.Payment.Remarks)
	assert.Equal(t, admin.UserID, result.Payment.VerifiedBy)
	require.NotNil(t, result.Payment.VerifiedAt)

	require.NotNil(t, result.Entitlement)
	assert.Equal(t, domain.EntitlementStatusActive, result.Entitlement.Status)

	require.NotNil(t, result.Sync)
	assert.True(t, result.Sync.Succeeded())
	assert.Empty(t, result.ActivationError)
	assert.Empty(t, result.SyncError)

	// The external snapshot converged.
	snapshot, err := f.claims.GetClaims(context.Background(), payment.UserID)
	require.NoError(t, err)
	assert.True(t, snapshot.Claims.IsPremium)
	assert.Equal(t, "Premium", snapshot.Claims.PlanName)

	assert.Equal(t, 1, f.events.verified)
	assert.Equal(t, 1, f.events.activated)
	assert.Equal(t, 1, f.events.synced)
}

func TestVerifyUsesDefaultNote(t *testing.T) {
	f := newVerificationFixture(t)
	payment := f.submit(t, 449, "Premium")

	result, err := f.svc.Verify(context.Background(), payment.ID.String(), admin, "   ")
	require.NoError(t, err)
	assert.Equal(t, defaultVerifyNote, result.Payment.Remarks)
}

func TestVerifyIsOneWay(t *testing.T) {
	f := newVerificationFixture(t)
	payment := f.submit(t, 449, "Premium")

	_, err := f.svc.Verify(context.Background(), payment.ID.String(), admin, "")
	require.NoError(t, err)

	// Terminal states never transition again, in either direction.
	_, err = f.svc.Verify(context.Background(), payment.ID.String(), admin, "")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.svc.Reject(context.Background(), payment.ID.String(), admin, "changed my mind")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestVerifyRecoversExistingEntitlement(t *testing.T) {
	f := newVerificationFixture(t)
	payment := f.submit(t, 449, "Premium")

	// The entitlement already exists, as after a crash between the
	// activation write and the response.
	stored, err := f.payments.GetByID(context.Background(), payment.ID)
	require.NoError(t, err)
	pre := successPayment(stored.PaymentReference, stored.Amount, stored.PlanName)
	pre.UserID = stored.UserID
	entitlementSvc := NewEntitlementService(f.entitlements, f.payments, nil, nil, testLogger())
	existing, err := entitlementSvc.ActivateFromPayment(context.Background(), pre, admin)
	require.NoError(t, err)

	result, err := f.svc.Verify(context.Background(), payment.ID.String(), admin, "")
	require.NoError(t, err)

	require.NotNil(t, result.Entitlement)
	assert.Equal(t, existing.ID, result.Entitlement.ID)
	assert.Empty(t, result.ActivationError)
	require.NotNil(t, result.Sync)
	assert.True(t, result.Sync.Succeeded())
}

func TestVerifyReportsSyncFailure(t *testing.T) {
	f := newVerificationFixture(t)
	payment := f.submit(t, 449, "Premium")

	f.claims.updateErr = domain.NewUpstreamError("authz", "updateClaims", 503, nil)

	result, err := f.svc.Verify(context.Background(), payment.ID.String(), admin, "")
	require.NoError(t, err)

	// The durable transition and the activation survive; the sync
	// failure is reported for manual replay, not rolled back.
	assert.Equal(t, domain.PaymentStatusSuccess, result.Payment.Status)
	require.NotNil(t, result.Entitlement)
	assert.NotEmpty(t, result.SyncError)
	require.NotNil(t, result.Sync)
	assert.False(t, result.Sync.Succeeded())
	assert.Contains(t, result.Sync.StepsFailed, StepUpdateClaims)
	assert.Contains(t, result.Sync.StepsNotProcessed, StepPublishEvent)
}

func TestReject(t *testing.T) {
	f := newVerificationFixture(t)
	payment := f.submit(t, 449, "Premium")

	rejected, err := f.svc.Reject(context.Background(), payment.ID.String(), admin, "screenshot does not match")
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentStatusRejected, rejected.Status)
	assert.Equal(t, "screenshot does not match", rejected.Remarks)
	assert.Equal(t, admin.UserID, rejected.VerifiedBy)
	assert.Equal(t, 1, f.events.rejected)

	// A rejected payment never activates.
	entitlements, err := f.entitlements.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entitlements)
}

func TestRejectRequiresReason(t *testing.T) {
	f := newVerificationFixture(t)
	payment := f.submit(t, 449, "Premium")

	_, err := f.svc.Reject(context.Background(), payment.ID.String(), admin, "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	// The refused command left the payment untouched.
	stored, err := f.payments.GetByID(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, stored.Status)
	assert.Nil(t, stored.VerifiedAt)
}

func TestVerifyInvalidID(t *testing.T) {
	f := newVerificationFixture(t)

	_, err := f.svc.Verify(context.Background(), "not-a-uuid", admin, "")
	assert.ErrorIs(t, err, repository.ErrInvalidData)
}

// gatedPaymentRepo holds every GetByID call until release is closed,
// forcing the read-then-write interleaving between concurrent callers.
type gatedPaymentRepo struct {
	repository.PaymentRepository
	arrivals chan struct{}
	release  chan struct{}
}

func (r *gatedPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.PaymentRecord, error) {
	select {
	case r.arrivals <- struct{}{}:
	default:
	}
	<-r.release
	return r.PaymentRepository.GetByID(ctx, id)
}

func TestConcurrentVerifyRejectOneWinner(t *testing.T) {
	log := testLogger()
	store := repository.NewInMemoryPaymentRepository(log)
	gated := &gatedPaymentRepo{
		PaymentRepository: store,
		arrivals:          make(chan struct{}, 4),
		release:           make(chan struct{}),
	}
	entitlements := repository.NewInMemoryEntitlementRepository(log)
	claims := newFakeClaimsService()
	events := &stubProducer{}

	entitlementSvc := NewEntitlementService(entitlements, store, events, nil, log)
	syncSvc := NewClaimsSyncService(claims, events, nil, SyncConfig{AdminRole: "admin", RequireAdminRole: true}, log)
	svc := NewVerificationService(gated, entitlementSvc, syncSvc, events, nil, log)

	payment, err := svc.Submit(context.Background(), domain.PaymentSubmission{
		Amount:           449,
		PaymentReference: "TXN-RACE",
		PaymentMethod:    "bank_transfer",
		PlanName:         "Premium",
	}, domain.Actor{UserID: "user-1", Email: "buyer@example.com"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var verifyErr, rejectErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, verifyErr = svc.Verify(context.Background(), payment.ID.String(), admin, "looks legitimate")
	}()
	go func() {
		defer wg.Done()
		_, rejectErr = svc.Reject(context.Background(), payment.ID.String(), admin, "duplicate claim")
	}()

	// Both callers have passed the status read before either writes.
	<-gated.arrivals
	<-gated.arrivals
	close(gated.release)
	wg.Wait()

	final, err := store.GetByID(context.Background(), payment.ID)
	require.NoError(t, err)
	stored, err := entitlements.GetAll(context.Background())
	require.NoError(t, err)

	// Exactly one command committed; the loser saw InvalidState and an
	// activation exists only when verification won.
	if verifyErr == nil {
		assert.ErrorIs(t, rejectErr, domain.ErrInvalidState)
		assert.Equal(t, domain.PaymentStatusSuccess, final.Status)
		assert.Len(t, stored, 1)
	} else {
		assert.ErrorIs(t, verifyErr, domain.ErrInvalidState)
		require.NoError(t, rejectErr)
		assert.Equal(t, domain.PaymentStatusRejected, final.Status)
		assert.Empty(t, stored)
	}
}
