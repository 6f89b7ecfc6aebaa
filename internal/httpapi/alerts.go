package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"treewatch/internal/admin"
	"treewatch/internal/apierr"
	"treewatch/internal/dispatch"
	"treewatch/internal/enum"
	"treewatch/internal/identity"
	"treewatch/internal/lifecycle"
	"treewatch/internal/store"
)

type handlers struct {
	admin      *admin.Facade
	dispatch   *dispatch.Engine
	lifecycle  *lifecycle.Manager
	alerts     store.AlertStore
	volunteers store.VolunteerStore
}

func (h *handlers) createAlert(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, apierr.New(apierr.KindValidation, "InvalidBody", "could not read request body"))
		return
	}
	if err := validateCreateAlertBody(body); err != nil {
		writeError(w, apierr.Wrap(apierr.KindValidation, "InvalidBody", err.Error(), err))
		return
	}

	var req createAlertRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, apierr.Wrap(apierr.KindValidation, "InvalidBody", "malformed JSON", err))
		return
	}

	result, err := h.dispatch.CreateAlert(r.Context(), req.TreeID, req.AlertType, req.AlertSource,
		req.WeatherSnapshot.toStore(), req.CalendarEventID, req.ThresholdBreached)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Skipped {
		status = http.StatusOK
	}
	writeJSON(w, status, createAlertResponse{
		Alert:         toAlertResponse(result.Alert),
		NotifiedCount: result.NotifiedCount,
		Skipped:       result.Skipped,
	})
}

func (h *handlers) listAlerts(w http.ResponseWriter, r *http.Request) {
	var filter store.AlertFilter
	if v := r.URL.Query().Get("status"); v != "" {
		s := enum.AlertStatus(v)
		filter.Status = &s
	}
	if v := r.URL.Query().Get("alertSource"); v != "" {
		s := enum.AlertSource(v)
		filter.Source = &s
	}
	if v := r.URL.Query().Get("treeId"); v != "" {
		filter.TreeID = &v
	}

	alerts, err := h.alerts.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]alertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, toAlertResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) getAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := h.alerts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAlertResponse(alert))
}

func (h *handlers) acceptAlert(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.Accept)
}

func (h *handlers) startAlert(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.Start)
}

func (h *handlers) resolveAlert(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.Resolve)
}

func (h *handlers) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, alertID, volunteerID string) (store.Alert, error)) {
	subject, err := identity.FromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	alert, err := fn(r.Context(), chi.URLParam(r, "id"), subject.SubjectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAlertResponse(alert))
}

func (h *handlers) cancelAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := h.admin.CancelAlert(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAlertResponse(alert))
}
