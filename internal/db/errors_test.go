package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsQueryShapeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"syntax error", &pgconn.PgError{Code: "42601"}, true},
		{"undefined column", fmt.Errorf("query: %w", &pgconn.PgError{Code: "42703"}), true},
		{"insufficient privilege", &pgconn.PgError{Code: "42501"}, true},
		{"invalid interval", &pgconn.PgError{Code: "22007"}, true},
		{"read only transaction", &pgconn.PgError{Code: "25006"}, false},
		{"connection failure", &pgconn.PgError{Code: "08006"}, false},
		{"plain error", errors.New("timeout"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsQueryShapeError(tt.err); got != tt.want {
				t.Errorf("IsQueryShapeError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSQLState(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: CodeForeignKeyViolation})
	if got := SQLState(err); got != CodeForeignKeyViolation {
		t.Errorf("SQLState() = %q, want %q", got, CodeForeignKeyViolation)
	}
	if got := SQLState(errors.New("x")); got != "" {
		t.Errorf("SQLState() = %q, want empty", got)
	}
}
