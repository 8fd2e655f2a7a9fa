package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the repositories react to.
const (
	CodeForeignKeyViolation = "23503"
	CodeUniqueViolation     = "23505"
)

// SQLState returns the SQLSTATE code carried by err, or "".
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsQueryShapeError reports whether err means the statement itself is at fault:
// class 42 (syntax error or access rule violation) or class 22 (data
// exception). These are correctable by whoever wrote the SQL.
func IsQueryShapeError(err error) bool {
	code := SQLState(err)
	if len(code) != 5 {
		return false
	}
	switch code[:2] {
	case "42", "22":
		return true
	}
	return false
}
