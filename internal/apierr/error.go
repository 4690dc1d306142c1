package apierr

import (
	"fmt"
	"time"
)

// TimestampLayout is ISO-8601 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

type APIError struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	Timestamp string `json:"timestamp"`
	Path      string `json:"path,omitempty"`
	Method    string `json:"method,omitempty"`
	UserID    string `json:"userId,omitempty"`

	Status int   `json:"-"`
	Err    error `json:"-"`
}

func (e *APIError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func New(code Code, message string, details any) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: Timestamp(time.Now()),
		Status:    StatusFor(code),
	}
}

// Wrap is New with the originating cause attached. The cause is logged, never
// serialised.
func Wrap(code Code, message string, details any, cause error) *APIError {
	e := New(code, message, details)
	e.Err = cause
	return e
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func Validation(errs []FieldError) *APIError {
	return New(CodeValidationError, "Validation failed", map[string]any{
		"validationErrors": errs,
	})
}

func Unauthenticated(message string) *APIError {
	if message == "" {
		message = "Authentication required"
	}
	return New(CodeUnauthenticated, message, nil)
}

func Unauthorized(message string) *APIError {
	if message == "" {
		message = "Insufficient permissions"
	}
	return New(CodeUnauthorized, message, nil)
}

func NotFound(resource string) *APIError {
	if resource == "" {
		resource = "Resource"
	}
	return New(CodeNotFound, resource+" not found", nil)
}

func RateLimited(retryAfter time.Duration) *APIError {
	seconds := int(retryAfter.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return New(CodeRateLimitExceeded, "Too many requests, please try again later", map[string]any{
		"retryAfter": seconds,
	})
}

func Internal(cause error) *APIError {
	return Wrap(CodeInternalServerError, "An unexpected error occurred", nil, cause)
}
