package dispatch

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treewatch/internal/bus"
	"treewatch/internal/enum"
	"treewatch/internal/geo"
	"treewatch/internal/matcher"
	"treewatch/internal/pushbus"
	"treewatch/internal/store"
	"treewatch/internal/threshold"
	"treewatch/internal/treerepo"
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

func seedTree(t *testing.T, db *sql.DB, id, name string, lat, lng float64, active bool) {
	t.Helper()
	activeInt := 0
	if active {
		activeInt = 1
	}
	_, err := db.Exec(`INSERT INTO trees (id, name, species, lat, lng, active) VALUES (?,?,?,?,?,?)`,
		id, name, "oak", lat, lng, activeInt)
	require.NoError(t, err)
}

func seedVolunteer(t *testing.T, db *sql.DB, id string, lat, lng float64) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO volunteers (id, email, credential_hash, role, availability, active, lat, lng) VALUES (?,?,?,?,?,?,?,?)`,
		id, id+"@example.com", "hash", string(enum.RoleVolunteer), string(enum.VolunteerAvailable), 1, lat, lng,
	)
	require.NoError(t, err)
}

func TestDispatch_CreateAlert_HappyPath(t *testing.T) {
	db := openTestDB(t, "dispatch_happy")
	seedTree(t, db, "t1", "Big Oak", 40.0, -73.0, true)
	seedVolunteer(t, db, "v1", 40.001, -73.0)

	trees := treerepo.NewSQLRepository(db)
	alertStore := store.NewSQLAlertStore(db, "sqlite3")
	volunteerStore := store.NewSQLVolunteerStore(db, "sqlite3")
	m := matcher.New(volunteerStore)
	ps := bus.NewMemoryPubSub()
	defer ps.Close()
	push := pushbus.New(ps, pushbus.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, unsub := ps.Subscribe(ctx, bus.VolunteerTopic("v1"))
	defer unsub()

	engine := New(trees, alertStore, m, push, 5000)

	result, err := engine.CreateAlert(ctx, "t1", enum.AlertTypeHighTemperature, enum.AlertSourceWeather,
		&store.WeatherSnapshot{Temperature: floatPtr(40.0)},
		nil,
		threshold.ThresholdBreached{Field: "temperature", Value: 40.0, Threshold: 35.0},
	)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, 1, result.NotifiedCount)
	assert.Equal(t, enum.AlertStatusSearching, result.Alert.Status)

	msg := <-ch
	var env struct {
		Event   bus.EventType       `json:"event"`
		Payload bus.NewAlertPayload `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg, &env))
	assert.Equal(t, bus.EventNewAlert, env.Event)
	assert.Equal(t, result.Alert.ID, env.Payload.AlertID)
}

func TestDispatch_CreateAlert_DedupesActiveAlert(t *testing.T) {
	db := openTestDB(t, "dispatch_dedupe")
	seedTree(t, db, "t1", "Big Oak", 40.0, -73.0, true)

	trees := treerepo.NewSQLRepository(db)
	alertStore := store.NewSQLAlertStore(db, "sqlite3")
	volunteerStore := store.NewSQLVolunteerStore(db, "sqlite3")
	m := matcher.New(volunteerStore)
	ps := bus.NewMemoryPubSub()
	defer ps.Close()
	push := pushbus.New(ps, pushbus.Config{})

	engine := New(trees, alertStore, m, push, 5000)
	ctx := context.Background()

	breached := threshold.ThresholdBreached{Field: "temperature", Value: 40.0, Threshold: 35.0}
	first, err := engine.CreateAlert(ctx, "t1", enum.AlertTypeHighTemperature, enum.AlertSourceWeather,
		&store.WeatherSnapshot{Temperature: floatPtr(40.0)}, nil, breached)
	require.NoError(t, err)
	require.False(t, first.Skipped)

	second, err := engine.CreateAlert(ctx, "t1", enum.AlertTypeHighTemperature, enum.AlertSourceWeather,
		&store.WeatherSnapshot{Temperature: floatPtr(41.0)}, nil, breached)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Equal(t, first.Alert.ID, second.Alert.ID)
}

func TestDispatch_CreateAlert_InactiveTreeFails(t *testing.T) {
	db := openTestDB(t, "dispatch_inactive")
	seedTree(t, db, "t1", "Dead Oak", 40.0, -73.0, false)

	trees := treerepo.NewSQLRepository(db)
	alertStore := store.NewSQLAlertStore(db, "sqlite3")
	volunteerStore := store.NewSQLVolunteerStore(db, "sqlite3")
	m := matcher.New(volunteerStore)
	engine := New(trees, alertStore, m, nil, 5000)

	_, err := engine.CreateAlert(context.Background(), "t1", enum.AlertTypeHighWind, enum.AlertSourceWeather,
		nil, nil, threshold.ThresholdBreached{})
	assert.Error(t, err)
}

func TestDispatch_CreateAlert_NoNearbyVolunteers(t *testing.T) {
	db := openTestDB(t, "dispatch_nonearby")
	seedTree(t, db, "t1", "Lone Oak", 40.0, -73.0, true)

	trees := treerepo.NewSQLRepository(db)
	alertStore := store.NewSQLAlertStore(db, "sqlite3")
	volunteerStore := store.NewSQLVolunteerStore(db, "sqlite3")
	m := matcher.New(volunteerStore)
	engine := New(trees, alertStore, m, nil, 5000)

	result, err := engine.CreateAlert(context.Background(), "t1", enum.AlertTypeHighWind, enum.AlertSourceWeather,
		nil, nil, threshold.ThresholdBreached{Field: "windSpeed", Value: 70, Threshold: 60})
	require.NoError(t, err)
	assert.Equal(t, 0, result.NotifiedCount)
}

func floatPtr(v float64) *float64 { return &v }

var _ = geo.Point{}
