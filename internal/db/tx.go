// Package db provides database/sql transaction and soft-delete helpers
// shared by the store implementations.
package db

import (
	"context"
	"database/sql"
	"fmt"
)

// WithTx wraps a function in a database transaction.
// It handles transaction creation, commit, rollback, and panic recovery.
//
// Usage:
//
//	err := db.WithTx(ctx, conn, func(tx *sql.Tx) error {
//	    _, err := tx.ExecContext(ctx, "UPDATE alerts SET status = $1 WHERE id = $2", status, id)
//	    return err
//	})
//
// If the function returns an error, the transaction is rolled back.
// If a panic occurs, the transaction is rolled back and the panic is re-raised.
// If the function completes successfully, the transaction is committed.
func WithTx(ctx context.Context, conn *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	// Defer handles both panics and rollbacks
	defer func() {
		if v := recover(); v != nil {
			//nolint:errcheck // Rollback on panic is best-effort
			tx.Rollback()
			panic(v)
		}
	}()

	// Execute the function
	if err := fn(tx); err != nil {
		// Attempt rollback and wrap errors
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("%w: rolling back transaction: %v", err, rerr)
		}
		return err
	}

	// Commit the transaction
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
