package matcher

import (
	"context"
	"database/sql"
	"math"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treewatch/internal/enum"
	"treewatch/internal/geo"
	"treewatch/internal/store"
)

func openTestDB(t *testing.T, name string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+name+"?mode=memory&cache=shared&_fk=1")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(store.Schema("sqlite3"))
	require.NoError(t, err)
	return db
}

func seedVolunteer(t *testing.T, db *sql.DB, id string, lat, lng float64, availability enum.VolunteerAvailability, active bool) {
	t.Helper()
	activeInt := 0
	if active {
		activeInt = 1
	}
	_, err := db.Exec(
		`INSERT INTO volunteers (id, email, credential_hash, role, availability, active, lat, lng) VALUES (?,?,?,?,?,?,?,?)`,
		id, id+"@example.com", "hash", string(enum.RoleVolunteer), string(availability), activeInt, lat, lng,
	)
	require.NoError(t, err)
}

func TestMatcher_FindNearbyAvailable_OrdersByDistance(t *testing.T) {
	db := openTestDB(t, "matcher_nearby")
	volStore := store.NewSQLVolunteerStore(db, "sqlite3")
	m := New(volStore)

	center := geo.Point{Lat: 40.0, Lng: -73.0}
	seedVolunteer(t, db, "far", 40.03, -73.0, enum.VolunteerAvailable, true)
	seedVolunteer(t, db, "near", 40.01, -73.0, enum.VolunteerAvailable, true)
	seedVolunteer(t, db, "busy", 40.005, -73.0, enum.VolunteerBusy, true)
	seedVolunteer(t, db, "inactive", 40.002, -73.0, enum.VolunteerAvailable, false)

	ids, err := m.FindNearbyAvailable(context.Background(), center, 5000)
	require.NoError(t, err)
	require.Equal(t, []string{"near", "far"}, ids)
}

func TestMatcher_FindNearbyAvailable_RespectsRadius(t *testing.T) {
	db := openTestDB(t, "matcher_radius")
	volStore := store.NewSQLVolunteerStore(db, "sqlite3")
	m := New(volStore)

	center := geo.Point{Lat: 40.0, Lng: -73.0}
	seedVolunteer(t, db, "in-range", 40.01, -73.0, enum.VolunteerAvailable, true)
	seedVolunteer(t, db, "out-of-range", 41.0, -73.0, enum.VolunteerAvailable, true)

	ids, err := m.FindNearbyAvailable(context.Background(), center, 5000)
	require.NoError(t, err)
	assert.Equal(t, []string{"in-range"}, ids)
}

func TestMatcher_FindNearbyAvailable_RadiusBoundary(t *testing.T) {
	db := openTestDB(t, "matcher_boundary")
	volStore := store.NewSQLVolunteerStore(db, "sqlite3")
	m := New(volStore)

	const radius = 5000.0
	center := geo.Point{Lat: 40.0, Lng: -73.0}
	// Degrees of latitude spanning the given meters along a meridian.
	latDegrees := func(meters float64) float64 { return meters / 6371000.0 * 180 / math.Pi }
	seedVolunteer(t, db, "radius-minus-1", center.Lat+latDegrees(radius-1), center.Lng, enum.VolunteerAvailable, true)
	seedVolunteer(t, db, "radius-plus-1", center.Lat+latDegrees(radius+1), center.Lng, enum.VolunteerAvailable, true)

	ids, err := m.FindNearbyAvailable(context.Background(), center, radius)
	require.NoError(t, err)
	assert.Equal(t, []string{"radius-minus-1"}, ids)
}

func TestMatcher_FindNearbyAvailable_CapsAtMaxResults(t *testing.T) {
	db := openTestDB(t, "matcher_cap")
	volStore := store.NewSQLVolunteerStore(db, "sqlite3")
	m := New(volStore)
	m.maxResults = 2

	center := geo.Point{Lat: 40.0, Lng: -73.0}
	seedVolunteer(t, db, "v1", 40.001, -73.0, enum.VolunteerAvailable, true)
	seedVolunteer(t, db, "v2", 40.002, -73.0, enum.VolunteerAvailable, true)
	seedVolunteer(t, db, "v3", 40.003, -73.0, enum.VolunteerAvailable, true)

	ids, err := m.FindNearbyAvailable(context.Background(), center, 5000)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestMatcher_FindAllAvailable(t *testing.T) {
	db := openTestDB(t, "matcher_all")
	volStore := store.NewSQLVolunteerStore(db, "sqlite3")
	m := New(volStore)

	seedVolunteer(t, db, "v1", 40.0, -73.0, enum.VolunteerAvailable, true)
	seedVolunteer(t, db, "v2", 50.0, -80.0, enum.VolunteerAvailable, true)
	seedVolunteer(t, db, "v3", 40.0, -73.0, enum.VolunteerBusy, true)

	ids, err := m.FindAllAvailable(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"v1", "v2"}, ids)
}
