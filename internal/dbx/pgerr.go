package dbx

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes we act on.
const (
	codeUniqueViolation = "23505"
	classIntegrity      = "23"
	classDataException  = "22"
)

func pgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// IsUniqueViolation reports whether err is a PostgreSQL unique_violation.
func IsUniqueViolation(err error) bool {
	pgErr, ok := pgError(err)
	return ok && pgErr.Code == codeUniqueViolation
}

// IsConstraintViolation reports whether err belongs to the integrity
// constraint (23) or data exception (22) SQLSTATE classes.
func IsConstraintViolation(err error) bool {
	pgErr, ok := pgError(err)
	if !ok || len(pgErr.Code) < 2 {
		return false
	}
	class := pgErr.Code[:2]
	return class == classIntegrity || class == classDataException
}

// ConstraintName returns the violated constraint, if any.
func ConstraintName(err error) string {
	if pgErr, ok := pgError(err); ok {
		return pgErr.ConstraintName
	}
	return ""
}
