package store

// postgresSchema creates the three collections named in the persisted
// layout (alerts, volunteers, trees) plus the indexes the matcher and
// dedupe checks rely on. Location is stored as two plain float columns
// rather than a native geometry type: no 2D-sphere index exists in this
// driver set, so the bounding-box + haversine substitute (see
// internal/matcher) needs only a btree index on lat/lng.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS trees (
	id      TEXT PRIMARY KEY,
	name    TEXT NOT NULL,
	species TEXT NOT NULL DEFAULT '',
	lat     DOUBLE PRECISION NOT NULL,
	lng     DOUBLE PRECISION NOT NULL,
	active  BOOLEAN NOT NULL DEFAULT true
);

CREATE TABLE IF NOT EXISTS volunteers (
	id                  TEXT PRIMARY KEY,
	email               TEXT NOT NULL UNIQUE,
	credential_hash     TEXT NOT NULL,
	role                TEXT NOT NULL DEFAULT 'volunteer',
	availability        TEXT NOT NULL DEFAULT 'available',
	active              BOOLEAN NOT NULL DEFAULT true,
	lat                 DOUBLE PRECISION NOT NULL,
	lng                 DOUBLE PRECISION NOT NULL,
	preferred_radius_km DOUBLE PRECISION,
	deleted_at          TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_volunteers_availability ON volunteers (availability);
CREATE INDEX IF NOT EXISTS idx_volunteers_lat_lng ON volunteers (lat, lng);

CREATE TABLE IF NOT EXISTS alerts (
	id                  TEXT PRIMARY KEY,
	tree_id             TEXT NOT NULL,
	type                TEXT NOT NULL,
	source              TEXT NOT NULL,
	status              TEXT NOT NULL,
	assigned_volunteer  TEXT,
	weather_temperature DOUBLE PRECISION,
	weather_wind_speed  DOUBLE PRECISION,
	weather_humidity    DOUBLE PRECISION,
	weather_rainfall    DOUBLE PRECISION,
	weather_description TEXT,
	calendar_event_id   TEXT,
	breached_field       TEXT NOT NULL,
	breached_value       TEXT NOT NULL,
	breached_threshold   TEXT NOT NULL,
	lat                 DOUBLE PRECISION NOT NULL,
	lng                 DOUBLE PRECISION NOT NULL,
	notified_volunteers TEXT NOT NULL DEFAULT '',
	retry_count         INTEGER NOT NULL DEFAULT 0,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_alerts_tree_status ON alerts (tree_id, status);
CREATE INDEX IF NOT EXISTS idx_alerts_assignee_status ON alerts (assigned_volunteer, status);
CREATE INDEX IF NOT EXISTS idx_alerts_status_created ON alerts (status, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_alerts_calendar_event ON alerts (calendar_event_id);
`

// sqliteSchema is the same layout translated for local development and
// tests: no TIMESTAMPTZ, booleans as integers, text primary keys untouched.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS trees (
	id      TEXT PRIMARY KEY,
	name    TEXT NOT NULL,
	species TEXT NOT NULL DEFAULT '',
	lat     REAL NOT NULL,
	lng     REAL NOT NULL,
	active  INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS volunteers (
	id                  TEXT PRIMARY KEY,
	email               TEXT NOT NULL UNIQUE,
	credential_hash     TEXT NOT NULL,
	role                TEXT NOT NULL DEFAULT 'volunteer',
	availability        TEXT NOT NULL DEFAULT 'available',
	active              INTEGER NOT NULL DEFAULT 1,
	lat                 REAL NOT NULL,
	lng                 REAL NOT NULL,
	preferred_radius_km REAL,
	deleted_at          DATETIME
);
CREATE INDEX IF NOT EXISTS idx_volunteers_availability ON volunteers (availability);
CREATE INDEX IF NOT EXISTS idx_volunteers_lat_lng ON volunteers (lat, lng);

CREATE TABLE IF NOT EXISTS alerts (
	id                  TEXT PRIMARY KEY,
	tree_id             TEXT NOT NULL,
	type                TEXT NOT NULL,
	source              TEXT NOT NULL,
	status              TEXT NOT NULL,
	assigned_volunteer  TEXT,
	weather_temperature REAL,
	weather_wind_speed  REAL,
	weather_humidity    REAL,
	weather_rainfall    REAL,
	weather_description TEXT,
	calendar_event_id   TEXT,
	breached_field       TEXT NOT NULL,
	breached_value       TEXT NOT NULL,
	breached_threshold   TEXT NOT NULL,
	lat                 REAL NOT NULL,
	lng                 REAL NOT NULL,
	notified_volunteers TEXT NOT NULL DEFAULT '',
	retry_count         INTEGER NOT NULL DEFAULT 0,
	created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_alerts_tree_status ON alerts (tree_id, status);
CREATE INDEX IF NOT EXISTS idx_alerts_assignee_status ON alerts (assigned_volunteer, status);
CREATE INDEX IF NOT EXISTS idx_alerts_status_created ON alerts (status, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_alerts_calendar_event ON alerts (calendar_event_id);
`

// Schema returns the DDL for the given driver name ("postgres" or
// "sqlite3"), used by the migrate CLI subcommand.
func Schema(driver string) string {
	if driver == "sqlite3" {
		return sqliteSchema
	}
	return postgresSchema
}
