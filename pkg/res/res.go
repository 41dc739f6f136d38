package res

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON envelope for error replies.
type ErrorResponse struct {
	Error     string `json:"error"`                // Human-readable message
	ErrorCode int    `json:"error_code,omitempty"` // Machine-readable code
	Details   any    `json:"details,omitempty"`    // Validation details, step reports, etc.
}

// JsonResponse writes a JSON response with the given status.
func JsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
