package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
	CodeTimeout      = "TIMEOUT"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeInvalidInput = "INVALID_INPUT"
	CodeRateLimited  = "RATE_LIMITED"

	CodeSlotUnavailable   = "SLOT_UNAVAILABLE"
	CodeSessionNotFound   = "SESSION_NOT_FOUND"
	CodeSessionExpired    = "SESSION_EXPIRED"
	CodeInvalidDraft      = "INVALID_DRAFT"
	CodeOTPMismatch       = "OTP_MISMATCH"
	CodeOTPExhausted      = "OTP_EXHAUSTED"
	CodeOTPExpired        = "OTP_EXPIRED"
	CodeResendRateLimited = "RESEND_RATE_LIMITED"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	if e.HTTPStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.HTTPStatus
}

func (e *AppError) ToJSON() []byte {
	data, _ := json.Marshal(e.Response())
	return data
}

// Response is the public view of the error; the cause is never exposed.
func (e *AppError) Response() ErrorResponse {
	return ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func Timeout(message string) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    message,
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

func Unavailable(service string) *AppError {
	return &AppError{
		Code:       CodeUnavailable,
		Message:    fmt.Sprintf("%s is temporarily unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

func RateLimited(message string) *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    message,
		HTTPStatus: http.StatusTooManyRequests,
	}
}

func SlotUnavailable() *AppError {
	return &AppError{
		Code:       CodeSlotUnavailable,
		Message:    "This time is no longer available, please choose another",
		HTTPStatus: http.StatusConflict,
	}
}

func SessionNotFound() *AppError {
	return &AppError{
		Code:       CodeSessionNotFound,
		Message:    "Booking session not found",
		HTTPStatus: http.StatusNotFound,
	}
}

func SessionExpired() *AppError {
	return &AppError{
		Code:       CodeSessionExpired,
		Message:    "Booking session expired, please start again",
		HTTPStatus: http.StatusGone,
	}
}

func InvalidDraft(details map[string]any) *AppError {
	return &AppError{
		Code:       CodeInvalidDraft,
		Message:    "Client details are missing or invalid",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func OTPMismatch(remaining int) *AppError {
	return &AppError{
		Code:       CodeOTPMismatch,
		Message:    "Incorrect verification code",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"remaining_attempts": remaining},
	}
}

func OTPExhausted() *AppError {
	return &AppError{
		Code:       CodeOTPExhausted,
		Message:    "Too many incorrect attempts, request a new code",
		HTTPStatus: http.StatusTooManyRequests,
	}
}

func OTPExpired() *AppError {
	return &AppError{
		Code:       CodeOTPExpired,
		Message:    "Verification code expired, request a new code",
		HTTPStatus: http.StatusGone,
	}
}

func ResendRateLimited(retryAfterSeconds int) *AppError {
	e := &AppError{
		Code:       CodeResendRateLimited,
		Message:    "Too many code requests, please wait before trying again",
		HTTPStatus: http.StatusTooManyRequests,
	}
	if retryAfterSeconds > 0 {
		e.Details = map[string]any{"retry_after": retryAfterSeconds}
	}
	return e
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
