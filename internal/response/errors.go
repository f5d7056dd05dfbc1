package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrMethodNotAllowed ErrCode = "METHOD_NOT_ALLOWED"

	// ─── Jobs ──────────────────────────────────────────────────────────
	ErrBusy ErrCode = "OPERATION_IN_PROGRESS"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrDatabase ErrCode = "DATABASE_UNAVAILABLE"
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidPayload:
		return "Invalid request payload."

	case ErrNotFound:
		return "Page not found."
	case ErrMethodNotAllowed:
		return "Method not allowed."

	case ErrBusy:
		return "An operation is already running. Please wait for it to finish."

	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	case ErrDatabase:
		return "The database is unavailable."
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
