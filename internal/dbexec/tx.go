package dbexec

import (
	"context"
	"database/sql"
	"fmt"
)

// TxExecutor executes queries on a single open transaction.
type TxExecutor struct {
	tx *sql.Tx
}

// NewTxExecutor wraps an open transaction.
func NewTxExecutor(tx *sql.Tx) *TxExecutor {
	return &TxExecutor{tx: tx}
}

func (e *TxExecutor) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	if e.tx == nil {
		return nil, sql.ErrTxDone
	}
	return e.tx.QueryContext(ctx, query, args...)
}

func (e *TxExecutor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if e.tx == nil {
		return nil, sql.ErrTxDone
	}
	return e.tx.ExecContext(ctx, query, args...)
}

// WithTransaction runs fn with an executor bound to a fresh transaction.
// The transaction commits when fn returns nil and rolls back otherwise; a
// rollback failure is attached to the returned error.
func WithTransaction(ctx context.Context, db *sql.DB, fn func(QueryExecutor) error) error {
	if db == nil {
		return sql.ErrConnDone
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(NewTxExecutor(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
