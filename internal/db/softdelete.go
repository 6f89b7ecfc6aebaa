package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// hardDeleteKey is the context key for hard delete operations.
type hardDeleteKey struct{}

// WithHardDelete returns a context that bypasses soft-delete and performs
// permanent deletion. Use sparingly - only for cleanup tasks or explicit
// permanent deletion requests.
func WithHardDelete(ctx context.Context) context.Context {
	return context.WithValue(ctx, hardDeleteKey{}, true)
}

// isHardDelete checks if the context allows permanent deletion.
func isHardDelete(ctx context.Context) bool {
	hardDelete, ok := ctx.Value(hardDeleteKey{}).(bool)
	return ok && hardDelete
}

// Executor is satisfied by both *sql.DB and *sql.Tx, letting soft-delete run
// inside or outside an existing transaction.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SoftDelete marks a row as deleted by setting deleted_at instead of removing
// it, unless the context was produced by WithHardDelete, in which case the
// row is permanently removed. table must be a trusted literal (never
// user-supplied) since it is interpolated into the query.
//
// Returns apierr-free sql.ErrNoRows semantics: callers get a false bool when
// no row matched (already deleted, or id unknown).
func SoftDelete(ctx context.Context, exec Executor, table string, id string) (bool, error) {
	var (
		query string
		args  []interface{}
	)

	if isHardDelete(ctx) {
		query = fmt.Sprintf("DELETE FROM %s WHERE id = $1", table)
		args = []interface{}{id}
	} else {
		query = fmt.Sprintf("UPDATE %s SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL", table)
		args = []interface{}{time.Now().UTC(), id}
	}

	res, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("soft-delete %s %s: %w", table, id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("soft-delete %s %s: rows affected: %w", table, id, err)
	}

	return n > 0, nil
}
