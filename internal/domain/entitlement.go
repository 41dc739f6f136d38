package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EntitlementStatus is the lifecycle state of an access grant
type EntitlementStatus string

const (
	EntitlementStatusActive    EntitlementStatus = "active"
	EntitlementStatusExpired   EntitlementStatus = "expired"
	EntitlementStatusCancelled EntitlementStatus = "cancelled"
)

// DedupKey is the composite key guaranteeing at most one entitlement
// per real transaction.
type DedupKey struct {
	PaymentReference string
	Amount           int64
}

// String renders the key in its canonical form
func (k DedupKey) String() string {
	return fmt.Sprintf("%s:%d", k.PaymentReference, k.Amount)
}

// EntitlementRecord is the materialized right to access a paid plan
// for a bounded time window, projected from a verified payment.
type EntitlementRecord struct {
	ID               uuid.UUID         `json:"id"`
	UserID           string            `json:"user_id"`
	UserEmail        string            `json:"user_email"`
	PlanName         string            `json:"plan_name"`
	Amount           int64             `json:"amount"`
	PaymentReference string            `json:"payment_reference"`
	Status           EntitlementStatus `json:"status"`
	StartDate        time.Time         `json:"start_date"`
	ExpiryDate       time.Time         `json:"expiry_date"`
	SourcePaymentID  uuid.UUID         `json:"source_payment_id"`
	ActivatedBy      string            `json:"activated_by,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Key returns the record's dedup key
func (e EntitlementRecord) Key() DedupKey {
	return DedupKey{PaymentReference: e.PaymentReference, Amount: e.Amount}
}

// PaymentKey returns the dedup key a payment would project to
func PaymentKey(p PaymentRecord) DedupKey {
	return DedupKey{PaymentReference: p.PaymentReference, Amount: p.Amount}
}
