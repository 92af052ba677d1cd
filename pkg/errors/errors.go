package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors for quick checks
var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConflict           = errors.New("resource already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrTimeout            = errors.New("operation timeout")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// Error is implemented by every typed error in this package.
type Error interface {
	error
	Code() string
	Message() string
	Unwrap() error
}

// BaseError carries a code, a client-safe message and an optional cause. The cause is
// logged but never rendered to clients.
type BaseError struct {
	code    string
	message string
	cause   error
}

func (e *BaseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *BaseError) Code() string    { return e.code }
func (e *BaseError) Message() string { return e.message }
func (e *BaseError) Unwrap() error   { return e.cause }

// ValidationError represents an input validation error.
type ValidationError struct {
	*BaseError
	Field string
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		BaseError: &BaseError{code: CodeValidation, message: message},
		Field:     field,
	}
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.message)
	}
	return fmt.Sprintf("validation error: %s", e.message)
}

// NotFoundError represents a missing resource.
type NotFoundError struct {
	*BaseError
	Resource string
	ID       string
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(resource, id string) *NotFoundError {
	message := fmt.Sprintf("%s not found", resource)
	if id != "" {
		message = fmt.Sprintf("%s %q not found", resource, id)
	}
	return &NotFoundError{
		BaseError: &BaseError{code: CodeNotFound, message: message},
		Resource:  resource,
		ID:        id,
	}
}

// UnauthorizedError represents an authentication failure. Detail is an optional second line
// rendered as "message" in the JSON body.
type UnauthorizedError struct {
	*BaseError
	Realm  string
	Detail string
}

// NewUnauthorizedError creates a new unauthorized error.
func NewUnauthorizedError(message string) *UnauthorizedError {
	if message == "" {
		message = "Unauthorized"
	}
	return &UnauthorizedError{
		BaseError: &BaseError{code: CodeUnauthorized, message: message},
	}
}

// WithRealm sets the authentication realm advertised in WWW-Authenticate.
func (e *UnauthorizedError) WithRealm(realm string) *UnauthorizedError {
	e.Realm = realm
	return e
}

// WithDetail sets the human-readable detail line.
func (e *UnauthorizedError) WithDetail(detail string) *UnauthorizedError {
	e.Detail = detail
	return e
}

// WithCause attaches the underlying error for logging.
func (e *UnauthorizedError) WithCause(cause error) *UnauthorizedError {
	e.cause = cause
	return e
}

// NewSecurityAlertError is an UnauthorizedError with its own code so callers can tell a
// replayed credential apart from an ordinary auth failure.
func NewSecurityAlertError(detail string, cause error) *UnauthorizedError {
	return &UnauthorizedError{
		BaseError: &BaseError{code: CodeSecurityAlert, message: "Security alert", cause: cause},
		Detail:    detail,
	}
}

// ForbiddenError represents an authorization error.
type ForbiddenError struct {
	*BaseError
}

// NewForbiddenError creates a new forbidden error.
func NewForbiddenError(message string) *ForbiddenError {
	if message == "" {
		message = "Forbidden"
	}
	return &ForbiddenError{BaseError: &BaseError{code: CodeForbidden, message: message}}
}

// ConflictError represents a resource conflict error.
type ConflictError struct {
	*BaseError
	Resource string
}

// NewConflictError creates a new conflict error.
func NewConflictError(resource, message string) *ConflictError {
	if message == "" {
		message = fmt.Sprintf("%s already exists", resource)
	}
	return &ConflictError{
		BaseError: &BaseError{code: CodeConflict, message: message},
		Resource:  resource,
	}
}

// InternalError represents an internal server error.
type InternalError struct {
	*BaseError
	Operation string
}

// NewInternalError creates a new internal error.
func NewInternalError(message string, cause error) *InternalError {
	if message == "" {
		message = "internal error"
	}
	return &InternalError{BaseError: &BaseError{code: CodeInternal, message: message, cause: cause}}
}

// WithOperation sets the operation context.
func (e *InternalError) WithOperation(op string) *InternalError {
	e.Operation = op
	return e
}

// ServiceError represents an unavailable or failing downstream dependency (store, cache,
// social provider). Always retryable.
type ServiceError struct {
	*BaseError
	Service string
}

// NewServiceError creates a new service error.
func NewServiceError(service, message string, cause error) *ServiceError {
	if message == "" {
		message = "Service unavailable"
	}
	return &ServiceError{
		BaseError: &BaseError{code: CodeServiceUnavailable, message: message, cause: cause},
		Service:   service,
	}
}

// TimeoutError represents a timeout error.
type TimeoutError struct {
	*BaseError
	Operation string
}

// NewTimeoutError creates a new timeout error.
func NewTimeoutError(operation string, cause error) *TimeoutError {
	message := "operation timeout"
	if operation != "" {
		message = fmt.Sprintf("%s timeout", operation)
	}
	return &TimeoutError{
		BaseError: &BaseError{code: CodeTimeout, message: message, cause: cause},
		Operation: operation,
	}
}

// RateLimitError represents a rate limiting error.
type RateLimitError struct {
	*BaseError
	RetryAfter int // seconds
}

// NewRateLimitError creates a new rate limit error.
func NewRateLimitError(retryAfter int) *RateLimitError {
	return &RateLimitError{
		BaseError:  &BaseError{code: CodeRateLimit, message: "rate limit exceeded"},
		RetryAfter: retryAfter,
	}
}
