package httpapi

import (
	"net/http"

	"treewatch/internal/admin"
)

func (h *handlers) triggerWeatherCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.TriggerWeatherCheck(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "weather check completed"})
}

func (h *handlers) triggerCalendarCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.TriggerCalendarCheck(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "calendar check completed"})
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := admin.ComputeStats(r.Context(), h.alerts, h.volunteers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
