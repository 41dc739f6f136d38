package domain

// Actor is the verified identity performing an operation. Role is
// re-derived from the caller's credential by the server; a
// client-supplied role value is never trusted.
type Actor struct {
	UserID string
	Email  string
	Role   string
}
