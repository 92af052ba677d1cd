package errors

// Error codes for categorizing errors. They are stable strings surfaced in JSON error bodies
// and map onto HTTP status codes in http.go.
const (
	CodeInternal           = "INTERNAL"
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeConflict           = "CONFLICT"
	CodeTimeout            = "TIMEOUT"
	CodeRateLimit          = "RATE_LIMIT_EXCEEDED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeDatabaseError      = "DATABASE_ERROR"
	CodeCacheError         = "CACHE_ERROR"
	CodeConfigError        = "CONFIG_ERROR"
	CodeCryptoError        = "CRYPTO_ERROR"

	// CodeSecurityAlert marks a detected credential replay. Clients treat it as
	// "log out everywhere".
	CodeSecurityAlert = "SECURITY_ALERT"
)

// IsRetryable returns true if an error with the given code should be retried.
func IsRetryable(code string) bool {
	switch code {
	case CodeTimeout, CodeServiceUnavailable, CodeDatabaseError, CodeCacheError:
		return true
	default:
		return false
	}
}
