package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			appErr:   SessionNotFound(),
			expected: "SESSION_NOT_FOUND: Booking session not found",
		},
		{
			name:     "with underlying error",
			appErr:   Internal("Failed to reserve slot", errors.New("connection reset")),
			expected: "INTERNAL_ERROR: Failed to reserve slot (caused by: connection reset)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	appErr := Wrap(originalErr, CodeInternal, "wrapped", http.StatusInternalServerError)

	if !errors.Is(appErr, originalErr) {
		t.Errorf("errors.Is should see through AppError")
	}
}

func TestAppError_StatusCodeDefaultsToInternal(t *testing.T) {
	err := &AppError{Code: "SOMETHING"}
	if err.StatusCode() != http.StatusInternalServerError {
		t.Errorf("StatusCode() = %d, want %d", err.StatusCode(), http.StatusInternalServerError)
	}
}

func TestDomainErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"slot unavailable", SlotUnavailable(), CodeSlotUnavailable, http.StatusConflict},
		{"session not found", SessionNotFound(), CodeSessionNotFound, http.StatusNotFound},
		{"session expired", SessionExpired(), CodeSessionExpired, http.StatusGone},
		{"invalid draft", InvalidDraft(nil), CodeInvalidDraft, http.StatusUnprocessableEntity},
		{"otp mismatch", OTPMismatch(2), CodeOTPMismatch, http.StatusBadRequest},
		{"otp exhausted", OTPExhausted(), CodeOTPExhausted, http.StatusTooManyRequests},
		{"otp expired", OTPExpired(), CodeOTPExpired, http.StatusGone},
		{"resend limited", ResendRateLimited(10), CodeResendRateLimited, http.StatusTooManyRequests},
		{"upstream", Unavailable("Identity registry"), CodeUnavailable, http.StatusServiceUnavailable},
		{"conflict", Conflict("bad state"), CodeConflict, http.StatusConflict},
		{"validation", Validation("bad", nil), CodeValidation, http.StatusUnprocessableEntity},
		{"invalid input", InvalidInput("bad"), CodeInvalidInput, http.StatusBadRequest},
		{"not found", NotFound("Branch"), CodeNotFound, http.StatusNotFound},
		{"timeout", Timeout("slow"), CodeTimeout, http.StatusGatewayTimeout},
		{"rate limited", RateLimited("slow down"), CodeRateLimited, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, tt.err.Code)
			}
			if tt.err.StatusCode() != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, tt.err.StatusCode())
			}
		})
	}
}

func TestOTPMismatch_RemainingAttempts(t *testing.T) {
	err := OTPMismatch(1)
	if err.Details["remaining_attempts"] != 1 {
		t.Errorf("expected remaining_attempts 1, got %v", err.Details["remaining_attempts"])
	}
}

func TestResendRateLimited_RetryAfter(t *testing.T) {
	if err := ResendRateLimited(0); err.Details != nil {
		t.Errorf("expected no details without retry_after, got %v", err.Details)
	}
	if err := ResendRateLimited(25); err.Details["retry_after"] != 25 {
		t.Errorf("expected retry_after 25, got %v", err.Details["retry_after"])
	}
}

func TestNotFoundWithID(t *testing.T) {
	err := NotFoundWithID("Branch", "12345")

	if err.Details["id"] != "12345" {
		t.Errorf("expected id '12345', got %v", err.Details["id"])
	}
	if err.Details["resource"] != "Branch" {
		t.Errorf("expected resource 'Branch', got %v", err.Details["resource"])
	}
}

func TestWithDetail(t *testing.T) {
	err := Conflict("bad state").WithDetail("state", "CONFIRMED")
	if err.Details["state"] != "CONFIRMED" {
		t.Errorf("expected state detail, got %v", err.Details)
	}
}

func TestAsAppError(t *testing.T) {
	appErr := SessionExpired()
	wrapped := fmt.Errorf("verify: %w", appErr)
	regularErr := errors.New("regular error")

	if AsAppError(wrapped) != appErr {
		t.Errorf("AsAppError() should unwrap to the same AppError")
	}

	result := AsAppError(regularErr)
	if result.Code != CodeInternal {
		t.Errorf("AsAppError() should wrap regular error as internal error")
	}
	if result.Err != regularErr {
		t.Errorf("AsAppError() should wrap the original error")
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("start: %w", SlotUnavailable())
	if !HasCode(err, CodeSlotUnavailable) {
		t.Error("expected HasCode to match wrapped code")
	}
	if HasCode(err, CodeNotFound) {
		t.Error("expected HasCode to reject other codes")
	}
	if HasCode(errors.New("plain"), CodeInternal) {
		t.Error("expected HasCode to reject plain errors")
	}
}

func TestAppError_ToJSON_HidesCause(t *testing.T) {
	err := Internal("Failed to confirm", errors.New("mongo: secret host down"))
	body := string(err.ToJSON())

	if !strings.Contains(body, CodeInternal) {
		t.Errorf("ToJSON() should contain error code, got %s", body)
	}
	if strings.Contains(body, "secret host") {
		t.Errorf("ToJSON() must not leak the cause, got %s", body)
	}
}
