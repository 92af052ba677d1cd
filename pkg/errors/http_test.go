package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{name: "nil error", err: nil, expectedStatus: http.StatusOK},
		{name: "validation error", err: NewValidationError("address", "required"), expectedStatus: http.StatusBadRequest},
		{name: "not found error", err: NewNotFoundError("account", "42"), expectedStatus: http.StatusNotFound},
		{name: "unauthorized error", err: NewUnauthorizedError("Authentication failed"), expectedStatus: http.StatusUnauthorized},
		{name: "security alert", err: NewSecurityAlertError("reused", nil), expectedStatus: http.StatusUnauthorized},
		{name: "forbidden error", err: NewForbiddenError(""), expectedStatus: http.StatusForbidden},
		{name: "conflict error", err: NewConflictError("social link", ""), expectedStatus: http.StatusConflict},
		{name: "rate limit error", err: NewRateLimitError(60), expectedStatus: http.StatusTooManyRequests},
		{name: "service error", err: NewServiceError("rqlite", "", errors.New("dial tcp")), expectedStatus: http.StatusInternalServerError},
		{name: "timeout error", err: NewTimeoutError("lookup", nil), expectedStatus: http.StatusInternalServerError},
		{name: "sentinel unauthorized", err: fmt.Errorf("wrap: %w", ErrUnauthorized), expectedStatus: http.StatusUnauthorized},
		{name: "standard error", err: errors.New("boom"), expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCode(tt.err); got != tt.expectedStatus {
				t.Errorf("StatusCode() = %d, want %d", got, tt.expectedStatus)
			}
		})
	}
}

func TestToHTTPError_HidesCauses(t *testing.T) {
	err := NewServiceError("rqlite", "", errors.New("password=hunter2"))
	httpErr := ToHTTPError(err)
	if httpErr.Error != "Service unavailable" {
		t.Fatalf("error = %q, want Service unavailable", httpErr.Error)
	}
	if httpErr.Message != "" {
		t.Fatalf("message should be empty, got %q", httpErr.Message)
	}

	internal := ToHTTPError(errors.New("raw driver text"))
	if internal.Error != "Internal server error" {
		t.Fatalf("untyped error leaked: %q", internal.Error)
	}
}

func TestWriteHTTPError_SecurityAlert(t *testing.T) {
	w := httptest.NewRecorder()
	WriteHTTPError(w, NewSecurityAlertError("Refresh token reused; all sessions in this family have been revoked", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "Security alert" {
		t.Errorf("error = %q", body["error"])
	}
	if body["message"] != "Refresh token reused; all sessions in this family have been revoked" {
		t.Errorf("message = %q", body["message"])
	}
	if body["code"] != CodeSecurityAlert {
		t.Errorf("code = %q", body["code"])
	}
}

func TestWriteHTTPError_Headers(t *testing.T) {
	w := httptest.NewRecorder()
	WriteHTTPError(w, NewUnauthorizedError("Unauthorized").WithRealm("walletauth").WithDetail("Missing bearer token"))
	if got := w.Header().Get("WWW-Authenticate"); got != `Bearer realm="walletauth"` {
		t.Errorf("WWW-Authenticate = %q", got)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	w = httptest.NewRecorder()
	WriteHTTPError(w, NewRateLimitError(30))
	if got := w.Header().Get("Retry-After"); got != "30" {
		t.Errorf("Retry-After = %q, want 30", got)
	}
}
