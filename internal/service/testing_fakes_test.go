package service

import (
	"context"
	"sync"

	"github.com/Dhoini/Entitlement-service/internal/domain"
)

// fakeClaimsService is an in-memory stand-in for the external
// authorization service, with injectable failures.
type fakeClaimsService struct {
	mu        sync.Mutex
	snapshots map[string]domain.ClaimsSnapshot
	updateErr error
	setErr    error
	deleteErr error
	getErr    error
	calls     int
}

func newFakeClaimsService() *fakeClaimsService {
	return &fakeClaimsService{snapshots: make(map[string]domain.ClaimsSnapshot)}
}

func (f *fakeClaimsService) GetClaims(ctx context.Context, subjectID string) (*domain.ClaimsSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	snapshot, ok := f.snapshots[subjectID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &snapshot, nil
}

func (f *fakeClaimsService) GetClaimsByEmail(ctx context.Context, email string) (*domain.ClaimsSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, snapshot := range f.snapshots {
		if snapshot.Email == email {
			return &snapshot, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeClaimsService) SetClaims(ctx context.Context, subjectID string, claims domain.Claims) (*domain.ClaimsSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.setErr != nil {
		return nil, f.setErr
	}
	snapshot := domain.ClaimsSnapshot{SubjectID: subjectID, Claims: claims}
	f.snapshots[subjectID] = snapshot
	return &snapshot, nil
}

func (f *fakeClaimsService) UpdateClaims(ctx context.Context, subjectID string, update domain.ClaimsUpdate) (*domain.ClaimsSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	snapshot := f.snapshots[subjectID]
	snapshot.SubjectID = subjectID
	if update.IsPremium != nil {
		snapshot.Claims.IsPremium = *update.IsPremium
	}
	if update.PlanName != nil {
		snapshot.Claims.PlanName = *update.PlanName
	}
	if update.StartDate != nil {
		snapshot.Claims.StartDate = update.StartDate
	}
	if update.EndDate != nil {
		snapshot.Claims.EndDate = update.EndDate
	}
	if update.Role != nil {
		snapshot.Claims.Role = *update.Role
	}
	f.snapshots[subjectID] = snapshot
	return &snapshot, nil
}

func (f *fakeClaimsService) DeleteClaims(ctx context.Context, subjectID string, fields []string) (*domain.ClaimsSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	snapshot := f.snapshots[subjectID]
	snapshot.SubjectID = subjectID
	for _, field := range fields {
		switch field {
		case "is_premium":
			snapshot.Claims.IsPremium = false
		case "plan_name":
			snapshot.Claims.PlanName = ""
		case "start_date":
			snapshot.Claims.StartDate = nil
		case "end_date":
			snapshot.Claims.EndDate = nil
		case "role":
			snapshot.Claims.Role = ""
		}
	}
	f.snapshots[subjectID] = snapshot
	return &snapshot, nil
}

// stubProducer counts published events and can fail on demand.
type stubProducer struct {
	mu         sync.Mutex
	publishErr error
	verified   int
	rejected   int
	activated  int
	synced     int
}

func (p *stubProducer) PublishPaymentVerified(ctx context.Context, payment domain.PaymentRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.publishErr != nil {
		return p.publishErr
	}
	p.verified++
	return nil
}

func (p *stubProducer) PublishPaymentRejected(ctx context.Context, payment domain.PaymentRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.publishErr != nil {
		return p.publishErr
	}
	p.rejected++
	return nil
}

func (p *stubProducer) PublishEntitlementActivated(ctx context.Context, entitlement domain.EntitlementRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.publishErr != nil {
		return p.publishErr
	}
	p.activated++
	return nil
}

func (p *stubProducer) PublishEntitlementSynced(ctx context.Context, entitlement domain.EntitlementRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.publishErr != nil {
		return p.publishErr
	}
	p.synced++
	return nil
}

func (p *stubProducer) Close() error { return nil }
