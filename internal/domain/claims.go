package domain

import "time"

// Claims is the external, authoritative record of a subject's
// entitlement used by other systems to gate access. Owned by the
// authorization service; referenced here, never stored.
type Claims struct {
	IsPremium bool       `json:"is_premium"`
	PlanName  string     `json:"plan_name,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Role      string     `json:"role,omitempty"`
}

// ClaimsSnapshot pairs a subject with its current external claims
type ClaimsSnapshot struct {
	SubjectID string `json:"subject_id"`
	Email     string `json:"email,omitempty"`
	Claims    Claims `json:"claims"`
}

// ClaimsUpdate is a partial claims mutation; nil fields are untouched
type ClaimsUpdate struct {
	IsPremium *bool      `json:"is_premium,omitempty"`
	PlanName  *string    `json:"plan_name,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Role      *string    `json:"role,omitempty"`
}

// SyncOutcome is the step report returned by every synchronizer call.
// The three collections are disjoint; callers must surface all of them
// instead of collapsing the result to a boolean.
type SyncOutcome struct {
	StepsCompleted    []string `json:"steps_completed"`
	StepsFailed       []string `json:"steps_failed"`
	StepsNotProcessed []string `json:"steps_not_processed"`
	Claims            *Claims  `json:"claims,omitempty"`
}

// Succeeded reports whether every attempted step completed
func (o SyncOutcome) Succeeded() bool {
	return len(o.StepsFailed) == 0 && len(o.StepsNotProcessed) == 0
}

// Partial reports whether some but not all steps completed
func (o SyncOutcome) Partial() bool {
	return len(o.StepsCompleted) > 0 && !o.Succeeded()
}

// ClaimsFromEntitlement projects an entitlement into the claims the
// external snapshot should eventually reflect.
func ClaimsFromEntitlement(e EntitlementRecord) Claims {
	start := e.StartDate
	end := e.ExpiryDate
	return Claims{
		IsPremium: e.Status == EntitlementStatusActive,
		PlanName:  e.PlanName,
		StartDate: &start,
		EndDate:   &end,
	}
}
