package domain

import (
	"errors"
	"fmt"
)

// Application errors
var (
	// ErrNotFound record not found
	ErrNotFound = errors.New("record not found")

	// ErrValidation required input is missing or malformed
	ErrValidation = errors.New("validation failed")

	// ErrInvalidState transition attempted from the wrong status
	ErrInvalidState = errors.New("invalid state transition")

	// ErrDuplicateEntitlement dedup-key collision, desired end state already holds
	ErrDuplicateEntitlement = errors.New("duplicate entitlement")

	// ErrAccessDenied caller does not carry the admin role
	ErrAccessDenied = errors.New("access denied")

	// ErrUpstreamUnavailable external service failed or timed out
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")

	// ErrPartialFailure some but not all synchronization steps completed
	ErrPartialFailure = errors.New("partial failure")

	// ErrUnauthenticated caller is not authenticated
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ValidationError reports a single invalid field
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s - %s", e.Field, e.Message)
}

// Is matches against ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// InvalidStateError reports a forbidden payment status transition
type InvalidStateError struct {
	PaymentID string
	From      PaymentStatus
	To        PaymentStatus
}

// Error implements the error interface
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("payment %s: cannot transition %s -> %s", e.PaymentID, e.From, e.To)
}

// Is matches against ErrInvalidState
func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

// NewInvalidStateError creates a new invalid state error
func NewInvalidStateError(paymentID string, from, to PaymentStatus) *InvalidStateError {
	return &InvalidStateError{PaymentID: paymentID, From: from, To: to}
}

// DuplicateEntitlementError reports a dedup-key collision
type DuplicateEntitlementError struct {
	PaymentReference string
	Amount           int64
}

// Error implements the error interface
func (e *DuplicateEntitlementError) Error() string {
	return fmt.Sprintf("entitlement for payment reference '%s' amount %d already exists", e.PaymentReference, e.Amount)
}

// Is matches against ErrDuplicateEntitlement
func (e *DuplicateEntitlementError) Is(target error) bool {
	return target == ErrDuplicateEntitlement
}

// NewDuplicateEntitlementError creates a new duplicate entitlement error
func NewDuplicateEntitlementError(reference string, amount int64) *DuplicateEntitlementError {
	return &DuplicateEntitlementError{PaymentReference: reference, Amount: amount}
}

// UpstreamError reports a failed call to an external service
type UpstreamError struct {
	Service     string
	Operation   string
	StatusCode  int
	OriginalErr error
}

// Error implements the error interface
func (e *UpstreamError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("%s service error on %s: %v", e.Service, e.Operation, e.OriginalErr)
	}
	return fmt.Sprintf("%s service error on %s: status %d", e.Service, e.Operation, e.StatusCode)
}

// Unwrap returns the original error
func (e *UpstreamError) Unwrap() error {
	return e.OriginalErr
}

// Is matches against ErrUpstreamUnavailable
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}

// NewUpstreamError creates a new upstream error
func NewUpstreamError(service, operation string, statusCode int, err error) *UpstreamError {
	return &UpstreamError{
		Service:     service,
		Operation:   operation,
		StatusCode:  statusCode,
		OriginalErr: err,
	}
}

// PartialFailureError reports a sync that completed only some of its steps.
// The step report carries enough detail for a manual idempotent retry.
type PartialFailureError struct {
	Subject string
	Outcome SyncOutcome
}

// Error implements the error interface
func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("claims sync for subject %s partially failed: %d completed, %d failed, %d not processed",
		e.Subject, len(e.Outcome.StepsCompleted), len(e.Outcome.StepsFailed), len(e.Outcome.StepsNotProcessed))
}

// Is matches against ErrPartialFailure
func (e *PartialFailureError) Is(target error) bool {
	return target == ErrPartialFailure
}

// NewPartialFailureError creates a new partial failure error
func NewPartialFailureError(subject string, outcome SyncOutcome) *PartialFailureError {
	return &PartialFailureError{Subject: subject, Outcome: outcome}
}

// NotFoundError reports a missing record
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Entity, e.ID)
}

// Is matches against ErrNotFound
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}
