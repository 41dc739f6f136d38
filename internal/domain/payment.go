package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the verification state of a claimed payment
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusSuccess  PaymentStatus = "success"
	PaymentStatusRejected PaymentStatus = "rejected"
)

// IsTerminal reports whether the status permits no further transition
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusRejected
}

// PaymentRecord is the durable record of a claimed transaction.
// Immutable after submission except status, verifier and remarks.
type PaymentRecord struct {
	ID               uuid.UUID     `json:"id"`
	Amount           int64         `json:"amount"` // minor currency units
	PaymentReference string        `json:"payment_reference"`
	PaymentMethod    string        `json:"payment_method"`
	ScreenshotRef    string        `json:"screenshot_ref,omitempty"`
	PlanName         string        `json:"plan_name"`
	Status           PaymentStatus `json:"status"`
	Remarks          string        `json:"remarks,omitempty"`
	UserID           string        `json:"user_id"`
	UserEmail        string        `json:"user_email"`
	VerifiedBy       string        `json:"verified_by,omitempty"`
	VerifiedAt       *time.Time    `json:"verified_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// PaymentSubmission is the request to record a claimed payment
type PaymentSubmission struct {
	Amount           int64  `json:"amount" binding:"required,gt=0"`
	PaymentReference string `json:"payment_reference" binding:"required"`
	PaymentMethod    string `json:"payment_method" binding:"required"`
	ScreenshotRef    string `json:"screenshot_ref,omitempty"`
	PlanName         string `json:"plan_name" binding:"required"`
}

// VerifyRequest carries optional verifier notes
type VerifyRequest struct {
	Notes string `json:"notes,omitempty"`
}

// RejectRequest carries the mandatory rejection reason
type RejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}
