package admin

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treewatch/internal/dispatch"
	"treewatch/internal/enum"
	"treewatch/internal/lifecycle"
	"treewatch/internal/matcher"
	"treewatch/internal/scheduler"
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

func seedVolunteer(t *testing.T, db *sql.DB, id string, availability enum.VolunteerAvailability) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO volunteers (id, email, credential_hash, role, availability, active, lat, lng) VALUES (?,?,?,?,?,1,40.0,-73.0)`,
		id, id+"@example.com", "hash", string(enum.RoleVolunteer), string(availability),
	)
	require.NoError(t, err)
}

func TestComputeStats(t *testing.T) {
	db := openTestDB(t, "admin_stats")
	alerts := store.NewSQLAlertStore(db, "sqlite3")
	volunteers := store.NewSQLVolunteerStore(db, "sqlite3")

	seedVolunteer(t, db, "v1", enum.VolunteerAvailable)
	seedVolunteer(t, db, "v2", enum.VolunteerBusy)

	_, err := alerts.Create(context.Background(), store.Alert{
		ID: "a1", TreeID: "t1", Type: enum.AlertTypeHighWind, Source: enum.AlertSourceWeather, Status: enum.AlertStatusSearching,
	})
	require.NoError(t, err)
	_, err = alerts.Create(context.Background(), store.Alert{
		ID: "a2", TreeID: "t2", Type: enum.AlertTypeDrought, Source: enum.AlertSourceWeather, Status: enum.AlertStatusResolved,
	})
	require.NoError(t, err)

	stats, err := ComputeStats(context.Background(), alerts, volunteers)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.AlertsByStatus[string(enum.AlertStatusSearching)])
	assert.Equal(t, 1, stats.AlertsByStatus[string(enum.AlertStatusResolved)])
	assert.Equal(t, 2, stats.AlertsBySource[string(enum.AlertSourceWeather)])
	assert.Equal(t, 1, stats.VolunteersAvailable)
	assert.Equal(t, 1, stats.VolunteersBusy)
}

func TestFacade_CancelAlert(t *testing.T) {
	db := openTestDB(t, "admin_cancel")
	alerts := store.NewSQLAlertStore(db, "sqlite3")
	volunteers := store.NewSQLVolunteerStore(db, "sqlite3")
	_, err := alerts.Create(context.Background(), store.Alert{
		ID: "a1", TreeID: "t1", Type: enum.AlertTypeHighWind, Source: enum.AlertSourceWeather, Status: enum.AlertStatusSearching,
	})
	require.NoError(t, err)

	lm := lifecycle.New(alerts, volunteers, nil)
	facade := New(lm, alerts, nil, nil, nil)

	cancelled, err := facade.CancelAlert(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, enum.AlertStatusCancelled, cancelled.Status)
}

func TestFacade_TriggerWeatherCheck_NotConfigured(t *testing.T) {
	facade := New(nil, nil, nil, nil, nil)
	err := facade.TriggerWeatherCheck(context.Background())
	assert.Error(t, err)
}

func TestFacade_TriggerAll_AggregatesErrors(t *testing.T) {
	db := openTestDB(t, "admin_trigger_all")
	alerts := store.NewSQLAlertStore(db, "sqlite3")
	trees := treerepo.NewSQLRepository(db)
	volunteers := store.NewSQLVolunteerStore(db, "sqlite3")
	m := matcher.New(volunteers)
	engine := dispatch.New(trees, alerts, m, nil, 5000)

	weather := scheduler.NewWeatherSweep(trees, nil, engine, threshold.Config{})
	facade := New(nil, alerts, weather, nil, nil)

	err := facade.TriggerAll(context.Background())
	require.Error(t, err)
}
