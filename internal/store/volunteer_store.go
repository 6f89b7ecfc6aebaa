package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"treewatch/internal/apierr"
	"treewatch/internal/db"
	"treewatch/internal/enum"
)

// VolunteerStore persists volunteer records. Availability is mutated only
// through SetAvailability, called exclusively by the Lifecycle Manager
// (§3: "availability is mutated only by the Lifecycle Manager").
type VolunteerStore interface {
	Get(ctx context.Context, id string) (Volunteer, error)
	ListAvailable(ctx context.Context) ([]Volunteer, error)
	ListAvailableInBox(ctx context.Context, minLat, minLng, maxLat, maxLng float64) ([]Volunteer, error)
	SetAvailability(ctx context.Context, id string, availability enum.VolunteerAvailability) error
	HasActiveAssignment(ctx context.Context, id string) (bool, error)
	SoftDelete(ctx context.Context, id string) (bool, error)
	// CountByAvailability backs GET /admin/stats's volunteer counts.
	CountByAvailability(ctx context.Context) (map[enum.VolunteerAvailability]int, error)
}

// SQLVolunteerStore implements VolunteerStore over database/sql.
type SQLVolunteerStore struct {
	db     *sql.DB
	driver string
}

// NewSQLVolunteerStore wraps an existing *sql.DB for the given driver name.
func NewSQLVolunteerStore(conn *sql.DB, driver string) *SQLVolunteerStore {
	return &SQLVolunteerStore{db: conn, driver: driver}
}

const volunteerColumns = `id, email, credential_hash, role, availability, active, lat, lng, preferred_radius_km, deleted_at`

func scanVolunteer(scanner interface {
	Scan(dest ...interface{}) error
}) (Volunteer, error) {
	var (
		v                 Volunteer
		role, availability string
		preferredRadius   sql.NullFloat64
		deletedAt         sql.NullTime
	)

	err := scanner.Scan(&v.ID, &v.Email, &v.CredentialHash, &role, &availability, &v.Active,
		&v.Location.Lat, &v.Location.Lng, &preferredRadius, &deletedAt)
	if err != nil {
		return Volunteer{}, err
	}

	v.Role = enum.Role(role)
	v.Availability = enum.VolunteerAvailability(availability)
	if preferredRadius.Valid {
		r := preferredRadius.Float64
		v.PreferredRadiusKM = &r
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		v.DeletedAt = &t
	}

	return v, nil
}

func (s *SQLVolunteerStore) Get(ctx context.Context, id string) (Volunteer, error) {
	row := s.db.QueryRowContext(ctx, rebind(s.driver, `
		SELECT `+volunteerColumns+` FROM volunteers WHERE id = $1 AND deleted_at IS NULL
	`), id)

	v, err := scanVolunteer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Volunteer{}, apierr.ErrVolunteerNotFound
	}
	if err != nil {
		return Volunteer{}, fmt.Errorf("store: get volunteer %s: %w", id, err)
	}
	return v, nil
}

func (s *SQLVolunteerStore) ListAvailable(ctx context.Context) ([]Volunteer, error) {
	rows, err := s.db.QueryContext(ctx, rebind(s.driver, `
		SELECT `+volunteerColumns+` FROM volunteers
		WHERE availability = $1 AND active = $2 AND deleted_at IS NULL
	`), string(enum.VolunteerAvailable), true)
	if err != nil {
		return nil, fmt.Errorf("store: list available volunteers: %w", err)
	}
	defer rows.Close()

	return scanVolunteerRows(rows)
}

func (s *SQLVolunteerStore) ListAvailableInBox(ctx context.Context, minLat, minLng, maxLat, maxLng float64) ([]Volunteer, error) {
	rows, err := s.db.QueryContext(ctx, rebind(s.driver, `
		SELECT `+volunteerColumns+` FROM volunteers
		WHERE availability = $1 AND active = $2 AND deleted_at IS NULL
		AND lat BETWEEN $3 AND $4 AND lng BETWEEN $5 AND $6
	`), string(enum.VolunteerAvailable), true, minLat, maxLat, minLng, maxLng)
	if err != nil {
		return nil, fmt.Errorf("store: list available volunteers in box: %w", err)
	}
	defer rows.Close()

	return scanVolunteerRows(rows)
}

func scanVolunteerRows(rows *sql.Rows) ([]Volunteer, error) {
	var out []Volunteer
	for rows.Next() {
		v, err := scanVolunteer(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan volunteer: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLVolunteerStore) SetAvailability(ctx context.Context, id string, availability enum.VolunteerAvailability) error {
	res, err := s.db.ExecContext(ctx, rebind(s.driver, `
		UPDATE volunteers SET availability = $1 WHERE id = $2 AND deleted_at IS NULL
	`), string(availability), id)
	if err != nil {
		return fmt.Errorf("store: set availability for %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: set availability rows affected: %w", err)
	}
	if n == 0 {
		return apierr.ErrVolunteerNotFound
	}
	return nil
}

// HasActiveAssignment reports whether the volunteer is already the assignee
// of an alert in {accepted, in_progress} — the second half of accept()'s
// VolunteerBusy check.
func (s *SQLVolunteerStore) HasActiveAssignment(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, rebind(s.driver, `
		SELECT COUNT(*) FROM alerts
		WHERE assigned_volunteer = $1 AND status IN ($2, $3)
	`), id, string(enum.AlertStatusAccepted), string(enum.AlertStatusInProgress)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("store: has active assignment for %s: %w", id, err)
	}
	return count > 0, nil
}

// CountByAvailability groups non-deleted volunteers by availability.
func (s *SQLVolunteerStore) CountByAvailability(ctx context.Context) (map[enum.VolunteerAvailability]int, error) {
	rows, err := s.db.QueryContext(ctx, rebind(s.driver, `
		SELECT availability, COUNT(*) FROM volunteers
		WHERE deleted_at IS NULL
		GROUP BY availability
	`))
	if err != nil {
		return nil, fmt.Errorf("store: count volunteers by availability: %w", err)
	}
	defer rows.Close()

	counts := make(map[enum.VolunteerAvailability]int)
	for rows.Next() {
		var availability string
		var count int
		if err := rows.Scan(&availability, &count); err != nil {
			return nil, fmt.Errorf("store: scan availability count: %w", err)
		}
		counts[enum.VolunteerAvailability(availability)] = count
	}
	return counts, rows.Err()
}

// SoftDelete marks a volunteer deleted, only when available. A busy
// volunteer yields apierr.ErrVolunteerBusy and an unknown or already deleted
// one yields the error from Get; false with a nil error means no row was
// updated.
func (s *SQLVolunteerStore) SoftDelete(ctx context.Context, id string) (bool, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if v.Availability != enum.VolunteerAvailable {
		return false, apierr.ErrVolunteerBusy
	}

	return db.SoftDelete(ctx, s.db, "volunteers", id)
}
