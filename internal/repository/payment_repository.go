package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/google/uuid"
)

// PaymentRepository is the durable payment ledger
type PaymentRepository interface {
	GetAll(ctx context.Context) ([]domain.PaymentRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.PaymentRecord, error)
	GetByStatus(ctx context.Context, status domain.PaymentStatus) ([]domain.PaymentRecord, error)
	GetByUserID(ctx context.Context, userID string) ([]domain.PaymentRecord, error)
	Create(ctx context.Context, payment domain.PaymentRecord) (domain.PaymentRecord, error)
	// Transition writes the payment's mutable fields only while the
	// stored status still equals from. A lost race returns
	// ErrStateConflict and leaves the record untouched.
	Transition(ctx context.Context, payment domain.PaymentRecord, from domain.PaymentStatus) error
}

// InMemoryPaymentRepository is an in-memory payment ledger
type InMemoryPaymentRepository struct {
	payments map[uuid.UUID]domain.PaymentRecord
	mutex    sync.RWMutex
	log      *logger.Logger
}

// NewInMemoryPaymentRepository creates a new in-memory payment ledger
func NewInMemoryPaymentRepository(log *logger.Logger) *InMemoryPaymentRepository {
	return &InMemoryPaymentRepository{
		payments: make(map[uuid.UUID]domain.PaymentRecord),
		log:      log,
	}
}

// GetAll returns every payment in the ledger
func (r *InMemoryPaymentRepository) GetAll(ctx context.Context) ([]domain.PaymentRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	payments := make([]domain.PaymentRecord, 0, len(r.payments))
	for _, payment := range r.payments {
		payments = append(payments, payment)
	}

	return payments, nil
}

// GetByID returns a payment by ID
func (r *InMemoryPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.PaymentRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	payment, exists := r.payments[id]
	if !exists {
		return domain.PaymentRecord{}, ErrNotFound
	}

	return payment, nil
}

// GetByStatus returns all payments with the given status
func (r *InMemoryPaymentRepository) GetByStatus(ctx context.Context, status domain.PaymentStatus) ([]domain.PaymentRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var payments []domain.PaymentRecord
	for _, payment := range r.payments {
		if payment.Status == status {
			payments = append(payments, payment)
		}
	}

	return payments, nil
}

// GetByUserID returns all payments submitted by a user
func (r *InMemoryPaymentRepository) GetByUserID(ctx context.Context, userID string) ([]domain.PaymentRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var payments []domain.PaymentRecord
	for _, payment := range r.payments {
		if payment.UserID == userID {
			payments = append(payments, payment)
		}
	}

	return payments, nil
}

// Create records a new claimed payment
func (r *InMemoryPaymentRepository) Create(ctx context.Context, payment domain.PaymentRecord) (domain.PaymentRecord, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	payment.CreatedAt = time.Now()
	payment.UpdatedAt = time.Now()

	r.payments[payment.ID] = payment

	return payment, nil
}

// Transition is the check-and-write done atomically under the write
// lock, so concurrent callers cannot both move the same payment.
func (r *InMemoryPaymentRepository) Transition(ctx context.Context, payment domain.PaymentRecord, from domain.PaymentStatus) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, exists := r.payments[payment.ID]
	if !exists {
		return ErrNotFound
	}
	if existing.Status != from {
		return ErrStateConflict
	}

	payment.CreatedAt = existing.CreatedAt
	payment.UpdatedAt = time.Now()

	r.payments[payment.ID] = payment

	return nil
}
