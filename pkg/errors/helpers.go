package errors

import "errors"

// IsNotFound checks if an error indicates a resource was not found.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr) || errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr) || errors.Is(err, ErrInvalidInput)
}

// IsUnauthorized checks if an error indicates lack of authentication, including security alerts.
func IsUnauthorized(err error) bool {
	if err == nil {
		return false
	}
	var unauthorizedErr *UnauthorizedError
	return errors.As(err, &unauthorizedErr) || errors.Is(err, ErrUnauthorized)
}

// IsSecurityAlert reports whether err signals a replayed credential.
func IsSecurityAlert(err error) bool {
	return GetErrorCode(err) == CodeSecurityAlert
}

// IsConflict checks if an error indicates a resource conflict.
func IsConflict(err error) bool {
	var conflictErr *ConflictError
	return errors.As(err, &conflictErr) || errors.Is(err, ErrConflict)
}

// IsServiceUnavailable checks if an error indicates a downstream dependency failed.
func IsServiceUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var serviceErr *ServiceError
	var timeoutErr *TimeoutError
	return errors.As(err, &serviceErr) || errors.As(err, &timeoutErr) ||
		errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrTimeout)
}

// ShouldRetry checks if an operation should be retried based on the error.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	return IsRetryable(GetErrorCode(err))
}

// GetErrorCode extracts the error code from an error, INTERNAL for untyped errors.
func GetErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var customErr Error
	if errors.As(err, &customErr) {
		return customErr.Code()
	}
	return CodeInternal
}

// Cause walks the Unwrap chain to the innermost error.
func Cause(err error) error {
	for err != nil {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
	return nil
}

// Is and As re-export the standard helpers so callers need a single import.
var (
	Is = errors.Is
	As = errors.As
)
