package bus

import (
	"time"

	"treewatch/internal/enum"
	"treewatch/internal/geo"
	"treewatch/internal/store"
	"treewatch/internal/threshold"
)

// EventType names the Push Bus event kinds the Dispatch Engine and
// Lifecycle Manager emit.
type EventType string

const (
	EventNewAlert       EventType = "new_alert"
	EventAlertAccepted  EventType = "alert_accepted"
	EventAlertProgress  EventType = "alert_progress"
	EventAlertResolved  EventType = "alert_resolved"
	EventAlertCancelled EventType = "alert_cancelled"
	EventAlertNoVolunteer EventType = "alert_no_volunteer"
)

// TreeProjection is the read-only tree view embedded in alert event
// payloads.
type TreeProjection struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Species  string    `json:"species"`
	Location geo.Point `json:"location"`
}

// NewAlertPayload is new_alert's per-volunteer payload.
type NewAlertPayload struct {
	AlertID         string                   `json:"alertId"`
	AlertType       enum.AlertType           `json:"alertType"`
	AlertSource     enum.AlertSource         `json:"alertSource"`
	WeatherSnapshot *store.WeatherSnapshot   `json:"weatherSnapshot,omitempty"`
	ThresholdBreached threshold.ThresholdBreached `json:"thresholdBreached"`
	Tree            TreeProjection           `json:"tree"`
	CreatedAt       time.Time                `json:"createdAt"`
	RetryBroadcast  bool                     `json:"retryBroadcast,omitempty"`
}

// AlertAcceptedPayload is alert_accepted's payload, sent to the non-
// accepting notified volunteers (dismissal) and to admins.
type AlertAcceptedPayload struct {
	AlertID       string `json:"alertId"`
	Message       string `json:"message,omitempty"`
	VolunteerID   string `json:"volunteerId,omitempty"`
	VolunteerName string `json:"volunteerName,omitempty"`
}

// AlertProgressPayload is alert_progress's payload, sent to admins.
type AlertProgressPayload struct {
	AlertID     string `json:"alertId"`
	VolunteerID string `json:"volunteerId"`
}

// AlertResolvedPayload is alert_resolved's payload, broadcast globally.
type AlertResolvedPayload struct {
	AlertID string `json:"alertId"`
	TreeID  string `json:"treeId"`
}

// AlertCancelledPayload is alert_cancelled's payload, sent to admins.
type AlertCancelledPayload struct {
	AlertID string `json:"alertId"`
}

// AlertNoVolunteerPayload is alert_no_volunteer's payload, sent to admins
// when a retry-exhausted alert is auto-cancelled.
type AlertNoVolunteerPayload struct {
	AlertID string         `json:"alertId"`
	Tree    TreeProjection `json:"tree"`
	Message string         `json:"message"`
}
