package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treewatch/internal/admin"
	"treewatch/internal/apierr"
	"treewatch/internal/dispatch"
	"treewatch/internal/enum"
	"treewatch/internal/identity"
	"treewatch/internal/lifecycle"
	"treewatch/internal/matcher"
	"treewatch/internal/store"
	"treewatch/internal/treerepo"
)

// fakeIdentity authenticates a bearer token as a fixed subject, keyed by
// the token string itself, so tests can mint "volunteer-1", "admin-1" etc.
type fakeIdentity struct {
	subjects map[string]identity.Subject
}

func (f fakeIdentity) Authenticate(_ context.Context, token string) (identity.Subject, error) {
	s, ok := f.subjects[token]
	if !ok {
		return identity.Subject{}, apierr.New(apierr.KindUnauthenticated, "InvalidToken", "invalid test token")
	}
	return s, nil
}

func openTestDB(t *testing.T, name string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+name+"?mode=memory&cache=shared&_fk=1")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(store.Schema("sqlite3"))
	require.NoError(t, err)
	return db
}

func seedTree(t *testing.T, db *sql.DB, id string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO trees (id, name, species, lat, lng, active) VALUES (?,?,?,?,?,1)`, id, "Big Oak", "oak", 40.0, -73.0)
	require.NoError(t, err)
}

func seedVolunteer(t *testing.T, db *sql.DB, id string) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO volunteers (id, email, credential_hash, role, availability, active, lat, lng) VALUES (?,?,?,?,?,1,40.001,-73.0)`,
		id, id+"@example.com", "hash", string(enum.RoleVolunteer), string(enum.VolunteerAvailable),
	)
	require.NoError(t, err)
}

func newTestRouter(t *testing.T, db *sql.DB, subjects map[string]identity.Subject) http.Handler {
	t.Helper()
	trees := treerepo.NewSQLRepository(db)
	alerts := store.NewSQLAlertStore(db, "sqlite3")
	volunteers := store.NewSQLVolunteerStore(db, "sqlite3")
	m := matcher.New(volunteers)
	engine := dispatch.New(trees, alerts, m, nil, 5000)
	lm := lifecycle.New(alerts, volunteers, nil)
	facade := admin.New(lm, alerts, nil, nil, nil)

	return NewRouter(Config{
		Identity:            fakeIdentity{subjects: subjects},
		Dispatch:            engine,
		Lifecycle:           lm,
		Admin:               facade,
		Alerts:              alerts,
		Volunteers:          volunteers,
		AllowedClientOrigin: "http://localhost:5173",
	})
}

func TestCreateAlert_HappyPath(t *testing.T) {
	db := openTestDB(t, "httpapi_create")
	seedTree(t, db, "t1")
	seedVolunteer(t, db, "v1")

	router := newTestRouter(t, db, map[string]identity.Subject{
		"admin-token": {SubjectID: "admin-1", Role: enum.RoleAdmin, Type: enum.SubjectTypeUser},
	})

	body := `{"treeId":"t1","alertType":"high_wind","alertSource":"weather","thresholdBreached":{"field":"wind_speed","value":80,"threshold":60}}`
	req := httptest.NewRequest(http.MethodPost, "/alerts", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer admin-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp createAlertResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.NotifiedCount)
	assert.Equal(t, enum.AlertStatusSearching, resp.Alert.Status)
}

func TestCreateAlert_MissingTokenIsUnauthenticated(t *testing.T) {
	db := openTestDB(t, "httpapi_noauth")
	router := newTestRouter(t, db, map[string]identity.Subject{})

	req := httptest.NewRequest(http.MethodPost, "/alerts", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateAlert_InvalidBodyIsValidationError(t *testing.T) {
	db := openTestDB(t, "httpapi_invalid_body")
	router := newTestRouter(t, db, map[string]identity.Subject{
		"admin-token": {SubjectID: "admin-1", Role: enum.RoleAdmin, Type: enum.SubjectTypeUser},
	})

	req := httptest.NewRequest(http.MethodPost, "/alerts", strings.NewReader(`{"treeId":"t1"}`))
	req.Header.Set("Authorization", "Bearer admin-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAcceptAlert_RequiresVolunteerRole(t *testing.T) {
	db := openTestDB(t, "httpapi_accept_role")
	seedTree(t, db, "t1")

	alerts := store.NewSQLAlertStore(db, "sqlite3")
	_, err := alerts.Create(context.Background(), store.Alert{
		ID: "a1", TreeID: "t1", Type: enum.AlertTypeHighWind, Source: enum.AlertSourceWeather, Status: enum.AlertStatusSearching,
	})
	require.NoError(t, err)

	router := newTestRouter(t, db, map[string]identity.Subject{
		"admin-token": {SubjectID: "admin-1", Role: enum.RoleAdmin, Type: enum.SubjectTypeUser},
	})

	req := httptest.NewRequest(http.MethodPut, "/alerts/a1/accept", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAcceptAlert_VolunteerSucceeds(t *testing.T) {
	db := openTestDB(t, "httpapi_accept_ok")
	seedTree(t, db, "t1")
	seedVolunteer(t, db, "v1")

	alerts := store.NewSQLAlertStore(db, "sqlite3")
	_, err := alerts.Create(context.Background(), store.Alert{
		ID: "a1", TreeID: "t1", Type: enum.AlertTypeHighWind, Source: enum.AlertSourceWeather, Status: enum.AlertStatusSearching,
	})
	require.NoError(t, err)

	router := newTestRouter(t, db, map[string]identity.Subject{
		"volunteer-token": {SubjectID: "v1", Role: enum.RoleVolunteer, Type: enum.SubjectTypeVolunteer},
	})

	req := httptest.NewRequest(http.MethodPut, "/alerts/a1/accept", nil)
	req.Header.Set("Authorization", "Bearer volunteer-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp alertResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, enum.AlertStatusAccepted, resp.Status)
	require.NotNil(t, resp.AssignedVolunteer)
	assert.Equal(t, "v1", *resp.AssignedVolunteer)
}

func TestAdminStats_RequiresAdminRole(t *testing.T) {
	db := openTestDB(t, "httpapi_stats_role")
	router := newTestRouter(t, db, map[string]identity.Subject{
		"volunteer-token": {SubjectID: "v1", Role: enum.RoleVolunteer, Type: enum.SubjectTypeVolunteer},
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer volunteer-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminStats_Succeeds(t *testing.T) {
	db := openTestDB(t, "httpapi_stats_ok")
	seedVolunteer(t, db, "v1")

	router := newTestRouter(t, db, map[string]identity.Subject{
		"admin-token": {SubjectID: "admin-1", Role: enum.RoleAdmin, Type: enum.SubjectTypeUser},
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var stats admin.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.VolunteersAvailable)
}
