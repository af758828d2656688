// Package types holds the wire shapes shared by every HTTP handler.
package types

// SuccessEnvelope wraps every successful response body under a "data" key so
// clients can always decode the same top-level shape.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the client-facing error body. Code is a stable machine-readable
// string (for example "invalid_transition" or "insufficient_balance");
// Message is safe to show to end users.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps APIError under an "error" key, mirroring SuccessEnvelope.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
