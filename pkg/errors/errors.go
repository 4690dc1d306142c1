package errorsUtils

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes plus the PostgREST schema cache codes that the
// hosted database used to surface for the same conditions.
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeNotNullViolation    = "23502"
	CodeUndefinedFunction   = "42883"
	CodeUndefinedColumn     = "42703"
	CodeUndefinedTable      = "42P01"

	CodeSchemaFunctionNotFound     = "PGRST202"
	CodeSchemaColumnNotFound       = "PGRST204"
	CodeSchemaRelationshipNotFound = "PGRST200"
)

// sqlStater is implemented by *pgconn.PgError and by any driver error that
// carries a SQLSTATE.
type sqlStater interface {
	SQLState() string
}

// SQLState returns the SQLSTATE of the first error in the chain that has one.
func SQLState(err error) (string, bool) {
	var st sqlStater
	if errors.As(err, &st) {
		return st.SQLState(), true
	}
	return "", false
}

// Constraint returns the violated constraint name of a Postgres error.
func Constraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

func Is(err error, code string) bool {
	state, ok := SQLState(err)
	return ok && state == code
}

func IsUniqueViolation(err error) bool {
	return Is(err, CodeUniqueViolation)
}

func IsForeignKeyViolation(err error) bool {
	return Is(err, CodeForeignKeyViolation)
}

func IsNotNullViolation(err error) bool {
	return Is(err, CodeNotNullViolation)
}

func IsUndefinedFunction(err error) bool {
	return Is(err, CodeUndefinedFunction) || Is(err, CodeSchemaFunctionNotFound)
}

func IsUndefinedColumn(err error) bool {
	return Is(err, CodeUndefinedColumn) || Is(err, CodeSchemaColumnNotFound)
}

func IsUndefinedRelationship(err error) bool {
	return Is(err, CodeUndefinedTable) || Is(err, CodeSchemaRelationshipNotFound)
}

func WrapPathErr(err error) error {
	pc, _, line, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc).Name()
	return fmt.Errorf("[%s:%d] %w", fn, line, err)
}
