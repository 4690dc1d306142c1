package apierr

import "net/http"

// Code is a symbolic taxonomy key, independent of status and message text.
type Code string

const (
	CodeDatabaseError        Code = "DATABASE_ERROR"
	CodeDuplicateEntry       Code = "DUPLICATE_ENTRY"
	CodeForeignKeyViolation  Code = "FOREIGN_KEY_VIOLATION"
	CodeFunctionNotFound     Code = "FUNCTION_NOT_FOUND"
	CodeColumnNotFound       Code = "COLUMN_NOT_FOUND"
	CodeRelationshipNotFound Code = "RELATIONSHIP_NOT_FOUND"
	CodeValidationError      Code = "VALIDATION_ERROR"
	CodeUnauthenticated      Code = "UNAUTHENTICATED"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeNotFound             Code = "NOT_FOUND"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"
	CodeInternalServerError  Code = "INTERNAL_SERVER_ERROR"
)

// Duplicate entries and FK violations are caused by the client and answer
// 409/400. LegacyStatusFor keeps the old 500 mapping for callers that still
// depend on it.
var statusByCode = map[Code]int{
	CodeDatabaseError:        http.StatusInternalServerError,
	CodeDuplicateEntry:       http.StatusConflict,
	CodeForeignKeyViolation:  http.StatusBadRequest,
	CodeFunctionNotFound:     http.StatusInternalServerError,
	CodeColumnNotFound:       http.StatusInternalServerError,
	CodeRelationshipNotFound: http.StatusInternalServerError,
	CodeValidationError:      http.StatusBadRequest,
	CodeUnauthenticated:      http.StatusUnauthorized,
	CodeUnauthorized:         http.StatusForbidden,
	CodeNotFound:             http.StatusNotFound,
	CodeRateLimitExceeded:    http.StatusTooManyRequests,
	CodeInternalServerError:  http.StatusInternalServerError,
}

func StatusFor(code Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func LegacyStatusFor(code Code) int {
	switch code {
	case CodeDuplicateEntry, CodeForeignKeyViolation:
		return http.StatusInternalServerError
	}
	return StatusFor(code)
}
