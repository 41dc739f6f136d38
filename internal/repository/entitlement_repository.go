package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/google/uuid"
)

// EntitlementRepository is the idempotent projection store of verified
// payments into access grants. CreateIfAbsent must be atomic with
// respect to the dedup key: concurrent inserts for the same key must
// never both succeed.
type EntitlementRepository interface {
	GetAll(ctx context.Context) ([]domain.EntitlementRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.EntitlementRecord, error)
	GetByKey(ctx context.Context, key domain.DedupKey) (domain.EntitlementRecord, error)
	GetByUserID(ctx context.Context, userID string) ([]domain.EntitlementRecord, error)
	GetByStatus(ctx context.Context, status domain.EntitlementStatus) ([]domain.EntitlementRecord, error)
	CreateIfAbsent(ctx context.Context, entitlement domain.EntitlementRecord) (domain.EntitlementRecord, error)
	Update(ctx context.Context, entitlement domain.EntitlementRecord) error
}

// InMemoryEntitlementRepository is an in-memory entitlement store.
// A single mutex serializes the check-and-insert, closing the
// concurrent-duplicate race.
type InMemoryEntitlementRepository struct {
	records map[uuid.UUID]domain.EntitlementRecord
	byKey   map[domain.DedupKey]uuid.UUID
	mutex   sync.RWMutex
	log     *logger.Logger
}

// NewInMemoryEntitlementRepository creates a new in-memory entitlement store
func NewInMemoryEntitlementRepository(log *logger.Logger) *InMemoryEntitlementRepository {
	return &InMemoryEntitlementRepository{
		records: make(map[uuid.UUID]domain.EntitlementRecord),
		byKey:   make(map[domain.DedupKey]uuid.UUID),
		log:     log,
	}
}

// GetAll returns every entitlement
func (r *InMemoryEntitlementRepository) GetAll(ctx context.Context) ([]domain.EntitlementRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	records := make([]domain.EntitlementRecord, 0, len(r.records))
	for _, record := range r.records {
		records = append(records, record)
	}

	return records, nil
}

// GetByID returns an entitlement by ID
func (r *InMemoryEntitlementRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.EntitlementRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	record, exists := r.records[id]
	if !exists {
		return domain.EntitlementRecord{}, ErrNotFound
	}

	return record, nil
}

// GetByKey returns the entitlement for a dedup key
func (r *InMemoryEntitlementRepository) GetByKey(ctx context.Context, key domain.DedupKey) (domain.EntitlementRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	id, exists := r.byKey[key]
	if !exists {
		return domain.EntitlementRecord{}, ErrNotFound
	}

	return r.records[id], nil
}

// GetByUserID returns all entitlements held by a user
func (r *InMemoryEntitlementRepository) GetByUserID(ctx context.Context, userID string) ([]domain.EntitlementRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var records []domain.EntitlementRecord
	for _, record := range r.records {
		if record.UserID == userID {
			records = append(records, record)
		}
	}

	return records, nil
}

// GetByStatus returns all entitlements with the given status
func (r *InMemoryEntitlementRepository) GetByStatus(ctx context.Context, status domain.EntitlementStatus) ([]domain.EntitlementRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var records []domain.EntitlementRecord
	for _, record := range r.records {
		if record.Status == status {
			records = append(records, record)
		}
	}

	return records, nil
}

// CreateIfAbsent inserts an entitlement unless one already exists for
// its dedup key. Returns ErrDuplicate without touching the store when
// the key is taken. Check and insert happen under one write lock.
func (r *InMemoryEntitlementRepository) CreateIfAbsent(ctx context.Context, entitlement domain.EntitlementRecord) (domain.EntitlementRecord, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := entitlement.Key()
	if _, exists := r.byKey[key]; exists {
		return domain.EntitlementRecord{}, ErrDuplicate
	}

	entitlement.CreatedAt = time.Now()
	entitlement.UpdatedAt = time.Now()

	r.records[entitlement.ID] = entitlement
	r.byKey[key] = entitlement.ID

	return entitlement, nil
}

// Update overwrites an existing entitlement, preserving its creation time
func (r *InMemoryEntitlementRepository) Update(ctx context.Context, entitlement domain.EntitlementRecord) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, exists := r.records[entitlement.ID]
	if !exists {
		return ErrNotFound
	}

	entitlement.CreatedAt = existing.CreatedAt
	entitlement.UpdatedAt = time.Now()

	r.records[entitlement.ID] = entitlement

	return nil
}
