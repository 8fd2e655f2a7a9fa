// Package query executes validated, generated SQL and shapes the rows for
// transport.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/septivank/energy-insights/internal/apperr"
	"github.com/septivank/energy-insights/internal/db"
	"go.uber.org/zap"
)

// codeReadOnlyTransaction is raised when a statement tries to write inside a
// READ ONLY transaction.
const codeReadOnlyTransaction = "25006"

// TxBeginner is satisfied by *pgxpool.Pool and *db.QueryPool.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Result is a transport-safe table. Every cell is nil, bool, int64, float64
// or string. Truncated is set when rows past the executor's row cap were
// dropped.
type Result struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	Truncated bool     `json:"truncated,omitempty"`
}

// Executor runs SQL text against the store
type Executor struct {
	pool    TxBeginner
	timeout time.Duration
	maxRows int
	logger  *zap.Logger
}

// NewExecutor creates an executor. A zero timeout or maxRows means no limit.
func NewExecutor(pool TxBeginner, timeout time.Duration, maxRows int, logger *zap.Logger) *Executor {
	return &Executor{
		pool:    pool,
		timeout: timeout,
		maxRows: maxRows,
		logger:  logger,
	}
}

// Execute runs sql inside a READ ONLY transaction that is always rolled back.
// Callers must have passed sql through sqlguard first; Execute applies no
// ownership filter of its own.
//
// Statement errors (SQLSTATE class 42 or 22, or a write attempt) are
// apperr.ErrInvalidInput. Everything else is apperr.ErrStorage.
func (e *Executor) Execute(ctx context.Context, sql string) (*Result, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	tx, err := e.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to begin read-only transaction: %w", apperr.ErrStorage, err)
	}
	defer tx.Rollback(context.Background())

	rows, err := tx.Query(ctx, sql)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	result := &Result{
		Columns: make([]string, len(fields)),
		Rows:    [][]any{},
	}
	for i, f := range fields {
		result.Columns[i] = f.Name
	}

	for rows.Next() {
		if e.maxRows > 0 && len(result.Rows) >= e.maxRows {
			e.logger.Warn("query result truncated", zap.Int("max_rows", e.maxRows))
			result.Truncated = true
			break
		}

		values, err := rows.Values()
		if err != nil {
			return nil, classify(err)
		}

		row := make([]any, len(values))
		for i, v := range values {
			row[i] = NormalizeValue(v)
		}
		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	return result, nil
}

func classify(err error) error {
	if db.IsQueryShapeError(err) || db.SQLState(err) == codeReadOnlyTransaction {
		return fmt.Errorf("%w: query could not be executed: %w", apperr.ErrInvalidInput, err)
	}
	return fmt.Errorf("%w: query execution failed: %w", apperr.ErrStorage, err)
}
