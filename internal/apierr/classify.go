package apierr

import (
	"context"
	"errors"

	errorsUtils "github.com/Egor213/JewelCRM/pkg/errors"
	"github.com/jackc/pgx/v5"
)

// FromDatabase classifies a database failure by SQLSTATE. Details only carry
// the SQLSTATE and constraint name; driver messages stay in the logs.
func FromDatabase(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return Wrap(CodeNotFound, "Resource not found", nil, err)
	}

	state, _ := errorsUtils.SQLState(err)
	details := databaseDetails(state, errorsUtils.Constraint(err))

	switch {
	case errorsUtils.IsUniqueViolation(err):
		return Wrap(CodeDuplicateEntry, "A record with this value already exists", details, err)
	case errorsUtils.IsForeignKeyViolation(err):
		return Wrap(CodeForeignKeyViolation, "Referenced record does not exist", details, err)
	case errorsUtils.IsUndefinedFunction(err):
		return Wrap(CodeFunctionNotFound, "Database function not found", details, err)
	case errorsUtils.IsUndefinedColumn(err):
		return Wrap(CodeColumnNotFound, "Database column not found", details, err)
	case errorsUtils.IsUndefinedRelationship(err):
		return Wrap(CodeRelationshipNotFound, "Database relationship not found", details, err)
	}
	return Wrap(CodeDatabaseError, "Database operation failed", details, err)
}

// Classify maps any error onto the taxonomy. Unknown failures become
// INTERNAL_SERVER_ERROR with a generic message.
func Classify(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if _, ok := errorsUtils.SQLState(err); ok || errors.Is(err, pgx.ErrNoRows) {
		return FromDatabase(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(CodeInternalServerError, "Request timed out", nil, err)
	}
	return Internal(err)
}

func databaseDetails(state, constraint string) map[string]any {
	if state == "" && constraint == "" {
		return nil
	}
	details := map[string]any{}
	if state != "" {
		details["sqlState"] = state
	}
	if constraint != "" {
		details["constraint"] = constraint
	}
	return details
}
