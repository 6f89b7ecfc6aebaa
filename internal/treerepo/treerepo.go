// Package treerepo provides the Tree Repository: a read-only view onto the
// tree inventory the dispatch engine never mutates.
package treerepo

import (
	"context"
	"database/sql"
	"fmt"

	"treewatch/internal/apierr"
	"treewatch/internal/geo"
)

// Tree is the engine's read-only projection of a tree record. The engine
// never writes to trees; the canonical tree model lives in an external
// system.
type Tree struct {
	ID       string
	Name     string
	Species  string
	Location geo.Point
	Active   bool
}

// Repository lists active trees and fetches one by id. Implementations are
// pluggable; the SQL-backed implementation below is the default for a
// single-process deployment where the tree inventory is colocated.
type Repository interface {
	ListActive(ctx context.Context) ([]Tree, error)
	Get(ctx context.Context, id string) (Tree, error)
}

// SQLRepository implements Repository against a trees table shared with the
// rest of the platform. It performs no writes.
type SQLRepository struct {
	db *sql.DB
}

// NewSQLRepository wraps an existing *sql.DB. The caller owns the
// connection's lifecycle.
func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) ListActive(ctx context.Context) ([]Tree, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, species, lat, lng, active
		FROM trees
		WHERE active = true
	`)
	if err != nil {
		return nil, fmt.Errorf("treerepo: list active: %w", err)
	}
	defer rows.Close()

	var trees []Tree
	for rows.Next() {
		var t Tree
		if err := rows.Scan(&t.ID, &t.Name, &t.Species, &t.Location.Lat, &t.Location.Lng, &t.Active); err != nil {
			return nil, fmt.Errorf("treerepo: scan: %w", err)
		}
		trees = append(trees, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("treerepo: rows: %w", err)
	}

	return trees, nil
}

func (r *SQLRepository) Get(ctx context.Context, id string) (Tree, error) {
	var t Tree
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, species, lat, lng, active
		FROM trees
		WHERE id = $1
	`, id).Scan(&t.ID, &t.Name, &t.Species, &t.Location.Lat, &t.Location.Lng, &t.Active)

	if err == sql.ErrNoRows {
		return Tree{}, apierr.ErrTreeNotFound
	}
	if err != nil {
		return Tree{}, fmt.Errorf("treerepo: get %s: %w", id, err)
	}

	return t, nil
}
