// Package sqlguard decides whether generated SQL text may be executed.
//
// The check is lexical and best-effort. It runs in front of an executor
// that uses a read-only transaction and, in production, a database role
// without write grants.
package sqlguard

import (
	"fmt"
	"strings"

	"github.com/septivank/energy-insights/internal/apperr"
)

// forbiddenKeywords may not appear as a space-delimited word.
var forbiddenKeywords = []string{"UPDATE", "DELETE", "INSERT", "DROP", "ALTER", "TRUNCATE", "CREATE"}

// ErrNotReadOnly is returned by Check for rejected statements.
var ErrNotReadOnly = fmt.Errorf("%w: read-only queries only", apperr.ErrInvalidInput)

// IsReadOnly reports whether sql looks like a read-only statement: after
// trimming, its upper-cased form starts with SELECT or WITH, and no forbidden
// keyword appears with a space on both sides.
//
// Known gaps, kept on purpose: a keyword at the very start or end of the
// text, next to punctuation, or separated by tabs or newlines is not seen, so
// "SELECT 1;DELETE FROM t" passes. A keyword inside a string literal, such as
// "SELECT ' DROP ' AS x", is rejected.
func IsReadOnly(sql string) bool {
	upper := strings.ToUpper(strings.TrimSpace(sql))
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return false
	}
	for _, kw := range forbiddenKeywords {
		if strings.Contains(upper, " "+kw+" ") {
			return false
		}
	}
	return true
}

// Check returns ErrNotReadOnly when sql fails IsReadOnly.
func Check(sql string) error {
	if !IsReadOnly(sql) {
		return ErrNotReadOnly
	}
	return nil
}
