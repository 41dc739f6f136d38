package service

import (
	"context"
	"testing"

	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reconciliationFixture struct {
	svc          ReconciliationService
	payments     *repository.InMemoryPaymentRepository
	entitlements *repository.InMemoryEntitlementRepository
	claims       *fakeClaimsService
}

func newReconciliationFixture(t *testing.T) *reconciliationFixture {
	t.Helper()
	log := testLogger()
	payments := repository.NewInMemoryPaymentRepository(log)
	entitlements := repository.NewInMemoryEntitlementRepository(log)
	claims := newFakeClaimsService()

	return &reconciliationFixture{
		svc:          NewReconciliationService(payments, entitlements, claims, nil, log),
		payments:     payments,
		entitlements: entitlements,
		claims:       claims,
	}
}

// addSynced stores a payment, its entitlement and a matching claims
// snapshot, the state every subject should be in.
func (f *reconciliationFixture) addSynced(t *testing.T, reference string) domain.EntitlementRecord {
	t.Helper()
	ctx := context.Background()

	payment := successPayment(reference, 449, "Premium")
	_, err := f.payments.Create(ctx, payment)
	require.NoError(t, err)

	entitlement := newEntitlementFor(payment)
	created, err := f.entitlements.CreateIfAbsent(ctx, entitlement)
	require.NoError(t, err)

	_, err = f.claims.SetClaims(ctx, payment.UserID, domain.ClaimsFromEntitlement(created))
	require.NoError(t, err)

	return created
}

func newEntitlementFor(payment domain.PaymentRecord) domain.EntitlementRecord {
	window := domain.InferWindow(payment.PlanName, payment.Amount, payment.CreatedAt)
	record := newTestServiceEntitlement(payment.PaymentReference, payment.Amount)
	record.UserID = payment.UserID
	record.UserEmail = payment.UserEmail
	record.PlanName = payment.PlanName
	record.StartDate = window.StartDate
	record.ExpiryDate = window.ExpiryDate
	record.SourcePaymentID = payment.ID
	return record
}

func newTestServiceEntitlement(reference string, amount int64) domain.EntitlementRecord {
	record := activeEntitlement()
	record.PaymentReference = reference
	record.Amount = amount
	return record
}

func TestListDriftClean(t *testing.T) {
	f := newReconciliationFixture(t)
	f.addSynced(t, "TXN-OK")

	cases, err := f.svc.ListDrift(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cases)
}

func TestListDriftMissingActivation(t *testing.T) {
	f := newReconciliationFixture(t)
	ctx := context.Background()

	verified := successPayment("TXN-LOST", 449, "Premium")
	_, err := f.payments.Create(ctx, verified)
	require.NoError(t, err)

	cases, err := f.svc.ListDrift(ctx)
	require.NoError(t, err)

	require.Len(t, cases, 1)
	assert.Equal(t, domain.DriftMissingActivation, cases[0].Kind)
	require.NotNil(t, cases[0].PaymentID)
	assert.Equal(t, verified.ID, *cases[0].PaymentID)
	assert.Equal(t, verified.UserID, cases[0].UserID)
}

func TestListDriftIgnoresNonTerminalPayments(t *testing.T) {
	f := newReconciliationFixture(t)
	ctx := context.Background()

	pending := successPayment("TXN-PENDING", 449, "Premium")
	pending.Status = domain.PaymentStatusPending
	_, err := f.payments.Create(ctx, pending)
	require.NoError(t, err)

	rejected := successPayment("TXN-REJECTED", 449, "Premium")
	rejected.Status = domain.PaymentStatusRejected
	_, err = f.payments.Create(ctx, rejected)
	require.NoError(t, err)

	cases, err := f.svc.ListDrift(ctx)
	require.NoError(t, err)
	assert.Empty(t, cases)
}

func TestListDriftStaleClaimsMissingSnapshot(t *testing.T) {
	f := newReconciliationFixture(t)
	ctx := context.Background()

	entitlement := f.addSynced(t, "TXN-STALE")
	delete(f.claims.snapshots, entitlement.UserID)

	cases, err := f.svc.ListDrift(ctx)
	require.NoError(t, err)

	require.Len(t, cases, 1)
	assert.Equal(t, domain.DriftStaleClaims, cases[0].Kind)
	require.NotNil(t, cases[0].EntitlementID)
	assert.Equal(t, entitlement.ID, *cases[0].EntitlementID)
}

func TestListDriftStaleClaimsDisagreement(t *testing.T) {
	f := newReconciliationFixture(t)
	ctx := context.Background()

	entitlement := f.addSynced(t, "TXN-MISMATCH")

	snapshot := f.claims.snapshots[entitlement.UserID]
	snapshot.Claims.IsPremium = false
	f.claims.snapshots[entitlement.UserID] = snapshot

	cases, err := f.svc.ListDrift(ctx)
	require.NoError(t, err)

	require.Len(t, cases, 1)
	assert.Equal(t, domain.DriftStaleClaims, cases[0].Kind)
	assert.Contains(t, cases[0].Detail, "non-premium")
}

func TestListDriftSkipsUnreadableSubjects(t *testing.T) {
	f := newReconciliationFixture(t)
	ctx := context.Background()

	f.addSynced(t, "TXN-UNREACHABLE")
	f.claims.getErr = domain.NewUpstreamError("authz", "getClaims", 503, nil)

	// Display-only path: an unreadable upstream degrades the report
	// instead of failing it.
	cases, err := f.svc.ListDrift(ctx)
	require.NoError(t, err)
	assert.Empty(t, cases)
}
