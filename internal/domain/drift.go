package domain

import "github.com/google/uuid"

// DriftKind classifies a cross-store inconsistency
type DriftKind string

const (
	// DriftMissingActivation a success payment has no entitlement for its dedup key
	DriftMissingActivation DriftKind = "missing_activation"

	// DriftStaleClaims an active entitlement disagrees with the external snapshot
	DriftStaleClaims DriftKind = "stale_claims"
)

// DriftCase is one operator-visible inconsistency between the payment
// ledger, the entitlement store and the external claims snapshot.
type DriftCase struct {
	Kind          DriftKind  `json:"kind"`
	PaymentID     *uuid.UUID `json:"payment_id,omitempty"`
	EntitlementID *uuid.UUID `json:"entitlement_id,omitempty"`
	UserID        string     `json:"user_id"`
	UserEmail     string     `json:"user_email,omitempty"`
	Detail        string     `json:"detail"`
}
