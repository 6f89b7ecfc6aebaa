package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"treewatch/internal/apierr"
	"treewatch/internal/enum"
)

// AlertFilter narrows AlertStore.List per the GET /alerts query parameters.
type AlertFilter struct {
	Status *enum.AlertStatus
	Source *enum.AlertSource
	TreeID *string
}

// AlertStore persists alerts and implements the race-free transitions the
// Lifecycle Manager depends on. The conditional UPDATE ... WHERE status = X
// statements here are the serialization point described in §5: whichever
// caller's UPDATE matches the row wins, and RowsAffected tells it so.
type AlertStore interface {
	Create(ctx context.Context, a Alert) (Alert, error)
	Get(ctx context.Context, id string) (Alert, error)
	List(ctx context.Context, filter AlertFilter) ([]Alert, error)
	FindActiveByTreeAndType(ctx context.Context, treeID string, alertType enum.AlertType) (*Alert, error)
	FindActiveByCalendarEvent(ctx context.Context, eventID string) (*Alert, error)
	ListSearching(ctx context.Context) ([]Alert, error)
	UpdateNotifiedAndRetry(ctx context.Context, id string, notified []string, retryCount int) error

	// CompareAndSetAccepted implements accept()'s CAS: status searching ->
	// accepted, conditional on current status = searching. Returns false,
	// nil if no row matched (caller re-reads to distinguish NotFound from
	// AlreadyTaken).
	CompareAndSetAccepted(ctx context.Context, id, volunteerID string) (bool, error)
	// CompareAndSetStatus transitions fromStatus -> toStatus for the given
	// alert, optionally requiring assignee to match. Used by start/resolve.
	CompareAndSetStatus(ctx context.Context, id string, fromStatus, toStatus enum.AlertStatus, requireAssignee string) (bool, error)
	// CancelNonTerminal transitions any non-terminal alert to cancelled,
	// used by adminCancel and retry exhaustion.
	CancelNonTerminal(ctx context.Context, id string) (bool, error)
}

// SQLAlertStore implements AlertStore over database/sql. driver is either
// "postgres" or "sqlite3"; queries are written in Postgres placeholder
// syntax and rebound per rebind().
type SQLAlertStore struct {
	db     *sql.DB
	driver string
}

// NewSQLAlertStore wraps an existing *sql.DB for the given driver name.
func NewSQLAlertStore(db *sql.DB, driver string) *SQLAlertStore {
	return &SQLAlertStore{db: db, driver: driver}
}

func (s *SQLAlertStore) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return s.db.ExecContext(ctx, rebind(s.driver, query), args...)
}

func (s *SQLAlertStore) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, rebind(s.driver, query), args...)
}

func (s *SQLAlertStore) queryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return s.db.QueryRowContext(ctx, rebind(s.driver, query), args...)
}

const alertColumns = `
	id, tree_id, type, source, status, assigned_volunteer,
	weather_temperature, weather_wind_speed, weather_humidity, weather_rainfall, weather_description,
	calendar_event_id, breached_field, breached_value, breached_threshold,
	lat, lng, notified_volunteers, retry_count, created_at, updated_at
`

func (s *SQLAlertStore) Create(ctx context.Context, a Alert) (Alert, error) {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	var (
		temp, wind, hum, rain *float64
		desc                  string
	)
	if a.WeatherSnapshot != nil {
		temp, wind, hum, rain = a.WeatherSnapshot.Temperature, a.WeatherSnapshot.WindSpeed, a.WeatherSnapshot.Humidity, a.WeatherSnapshot.Rainfall
		desc = a.WeatherSnapshot.Description
	}

	breachedValue, err := marshalBreach(a.ThresholdBreached.Value)
	if err != nil {
		return Alert{}, fmt.Errorf("store: create alert: encode breached value: %w", err)
	}
	breachedThreshold, err := marshalBreach(a.ThresholdBreached.Threshold)
	if err != nil {
		return Alert{}, fmt.Errorf("store: create alert: encode breached threshold: %w", err)
	}

	_, err = s.exec(ctx, `
		INSERT INTO alerts (`+alertColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
	`,
		a.ID, a.TreeID, string(a.Type), string(a.Source), string(a.Status), a.AssignedVolunteer,
		temp, wind, hum, rain, desc,
		a.CalendarEventID, a.ThresholdBreached.Field, breachedValue, breachedThreshold,
		a.Location.Lat, a.Location.Lng, joinIDs(a.NotifiedVolunteers), a.RetryCount, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return Alert{}, fmt.Errorf("store: create alert: %w", err)
	}
	return a, nil
}

// marshalBreach encodes a ThresholdBreached.Value/.Threshold (a float64 for
// weather rules, a string or []string for calendar events) as JSON text for
// the breached_value/breached_threshold columns.
func marshalBreach(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// unmarshalBreach decodes a breached_value/breached_threshold column back
// into the interface{} ThresholdBreached carries. json.Unmarshal into an
// interface{} yields float64 for JSON numbers, string for JSON strings, and
// []interface{} for JSON arrays, which is exactly the shape callers expect.
func unmarshalBreach(raw string) (interface{}, error) {
	if raw == "" {
		return nil, nil
	}
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *SQLAlertStore) scanAlert(scanner interface {
	Scan(dest ...interface{}) error
}) (Alert, error) {
	var (
		a                          Alert
		typ, src, status           string
		temp, wind, hum, rain      sql.NullFloat64
		desc                       sql.NullString
		assignedVolunteer          sql.NullString
		calendarEventID            sql.NullString
		notified                   string
		breachedValue, breachedThr string
	)

	err := scanner.Scan(
		&a.ID, &a.TreeID, &typ, &src, &status, &assignedVolunteer,
		&temp, &wind, &hum, &rain, &desc,
		&calendarEventID, &a.ThresholdBreached.Field, &breachedValue, &breachedThr,
		&a.Location.Lat, &a.Location.Lng, &notified, &a.RetryCount, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return Alert{}, err
	}

	if a.ThresholdBreached.Value, err = unmarshalBreach(breachedValue); err != nil {
		return Alert{}, fmt.Errorf("store: decode breached value: %w", err)
	}
	if a.ThresholdBreached.Threshold, err = unmarshalBreach(breachedThr); err != nil {
		return Alert{}, fmt.Errorf("store: decode breached threshold: %w", err)
	}

	a.Type = enum.AlertType(typ)
	a.Source = enum.AlertSource(src)
	a.Status = enum.AlertStatus(status)
	if assignedVolunteer.Valid {
		v := assignedVolunteer.String
		a.AssignedVolunteer = &v
	}
	if calendarEventID.Valid {
		v := calendarEventID.String
		a.CalendarEventID = &v
	}
	if a.Source == enum.AlertSourceWeather {
		a.WeatherSnapshot = &WeatherSnapshot{}
		if temp.Valid {
			v := temp.Float64
			a.WeatherSnapshot.Temperature = &v
		}
		if wind.Valid {
			v := wind.Float64
			a.WeatherSnapshot.WindSpeed = &v
		}
		if hum.Valid {
			v := hum.Float64
			a.WeatherSnapshot.Humidity = &v
		}
		if rain.Valid {
			v := rain.Float64
			a.WeatherSnapshot.Rainfall = &v
		}
		a.WeatherSnapshot.Description = desc.String
	}
	a.NotifiedVolunteers = splitIDs(notified)

	return a, nil
}

func (s *SQLAlertStore) Get(ctx context.Context, id string) (Alert, error) {
	row := s.queryRow(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id)
	a, err := s.scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Alert{}, apierr.ErrAlertNotFound
	}
	if err != nil {
		return Alert{}, fmt.Errorf("store: get alert %s: %w", id, err)
	}
	return a, nil
}

func (s *SQLAlertStore) List(ctx context.Context, filter AlertFilter) ([]Alert, error) {
	q := `SELECT ` + alertColumns + ` FROM alerts WHERE 1=1`
	var args []interface{}
	n := 0

	addArg := func(clause string, val interface{}) {
		n++
		q += fmt.Sprintf(" AND %s $%d", clause, n)
		args = append(args, val)
	}

	if filter.Status != nil {
		addArg("status =", string(*filter.Status))
	}
	if filter.Source != nil {
		addArg("source =", string(*filter.Source))
	}
	if filter.TreeID != nil {
		addArg("tree_id =", *filter.TreeID)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list alerts: %w", err)
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		a, err := s.scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLAlertStore) FindActiveByTreeAndType(ctx context.Context, treeID string, alertType enum.AlertType) (*Alert, error) {
	row := s.queryRow(ctx, `
		SELECT `+alertColumns+` FROM alerts
		WHERE tree_id = $1 AND type = $2 AND status IN ($3,$4,$5)
		LIMIT 1
	`, treeID, string(alertType),
		string(enum.AlertStatusSearching), string(enum.AlertStatusAccepted), string(enum.AlertStatusInProgress))

	a, err := s.scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: find active by tree+type: %w", err)
	}
	return &a, nil
}

func (s *SQLAlertStore) FindActiveByCalendarEvent(ctx context.Context, eventID string) (*Alert, error) {
	row := s.queryRow(ctx, `
		SELECT `+alertColumns+` FROM alerts
		WHERE calendar_event_id = $1 AND status IN ($2,$3,$4)
		LIMIT 1
	`, eventID, string(enum.AlertStatusSearching), string(enum.AlertStatusAccepted), string(enum.AlertStatusInProgress))

	a, err := s.scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: find active by calendar event: %w", err)
	}
	return &a, nil
}

func (s *SQLAlertStore) ListSearching(ctx context.Context) ([]Alert, error) {
	status := enum.AlertStatusSearching
	return s.List(ctx, AlertFilter{Status: &status})
}

func (s *SQLAlertStore) UpdateNotifiedAndRetry(ctx context.Context, id string, notified []string, retryCount int) error {
	res, err := s.exec(ctx, `
		UPDATE alerts SET notified_volunteers = $1, retry_count = $2, updated_at = $3
		WHERE id = $4
	`, joinIDs(notified), retryCount, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("store: update notified/retry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update notified/retry rows affected: %w", err)
	}
	if n == 0 {
		return apierr.ErrAlertNotFound
	}
	return nil
}

func (s *SQLAlertStore) CompareAndSetAccepted(ctx context.Context, id, volunteerID string) (bool, error) {
	res, err := s.exec(ctx, `
		UPDATE alerts SET status = $1, assigned_volunteer = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`, string(enum.AlertStatusAccepted), volunteerID, time.Now().UTC(), id, string(enum.AlertStatusSearching))
	if err != nil {
		return false, fmt.Errorf("store: accept alert %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: accept alert %s rows affected: %w", id, err)
	}
	return n > 0, nil
}

func (s *SQLAlertStore) CompareAndSetStatus(ctx context.Context, id string, fromStatus, toStatus enum.AlertStatus, requireAssignee string) (bool, error) {
	q := `UPDATE alerts SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	args := []interface{}{string(toStatus), time.Now().UTC(), id, string(fromStatus)}

	if requireAssignee != "" {
		q += ` AND assigned_volunteer = $5`
		args = append(args, requireAssignee)
	}

	res, err := s.exec(ctx, q, args...)
	if err != nil {
		return false, fmt.Errorf("store: transition alert %s %s->%s: %w", id, fromStatus, toStatus, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: transition alert %s rows affected: %w", id, err)
	}
	return n > 0, nil
}

func (s *SQLAlertStore) CancelNonTerminal(ctx context.Context, id string) (bool, error) {
	res, err := s.exec(ctx, `
		UPDATE alerts SET status = $1, updated_at = $2
		WHERE id = $3 AND status NOT IN ($4,$5)
	`, string(enum.AlertStatusCancelled), time.Now().UTC(), id,
		string(enum.AlertStatusResolved), string(enum.AlertStatusCancelled))
	if err != nil {
		return false, fmt.Errorf("store: cancel alert %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: cancel alert %s rows affected: %w", id, err)
	}
	return n > 0, nil
}

// joinIDs/splitIDs encode a set of volunteer ids as a comma-separated
// column. NotifiedVolunteers must behave as a set; callers are responsible
// for union-ing before calling UpdateNotifiedAndRetry.
func joinIDs(ids []string) string {
	return strings.Join(ids, ",")
}

func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
