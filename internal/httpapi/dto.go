package httpapi

import (
	"time"

	"treewatch/internal/enum"
	"treewatch/internal/geo"
	"treewatch/internal/store"
	"treewatch/internal/threshold"
)

// createAlertRequest is POST /alerts's body, matching §6's documented
// shape exactly.
type createAlertRequest struct {
	TreeID            string                    `json:"treeId"`
	AlertType         enum.AlertType            `json:"alertType"`
	AlertSource       enum.AlertSource          `json:"alertSource"`
	WeatherSnapshot   *weatherSnapshotDTO       `json:"weatherSnapshot,omitempty"`
	CalendarEventID   *string                   `json:"calendarEventId,omitempty"`
	ThresholdBreached threshold.ThresholdBreached `json:"thresholdBreached"`
}

type weatherSnapshotDTO struct {
	Temperature *float64 `json:"temperature,omitempty"`
	WindSpeed   *float64 `json:"windSpeed,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Rainfall    *float64 `json:"rainfall,omitempty"`
	Description string   `json:"description,omitempty"`
}

func (d *weatherSnapshotDTO) toStore() *store.WeatherSnapshot {
	if d == nil {
		return nil
	}
	return &store.WeatherSnapshot{
		Temperature: d.Temperature,
		WindSpeed:   d.WindSpeed,
		Humidity:    d.Humidity,
		Rainfall:    d.Rainfall,
		Description: d.Description,
	}
}

// alertResponse is the JSON projection returned for every alert-bearing
// endpoint.
type alertResponse struct {
	ID                 string                      `json:"id"`
	TreeID             string                      `json:"treeId"`
	Type               enum.AlertType              `json:"alertType"`
	Source             enum.AlertSource            `json:"alertSource"`
	Status             enum.AlertStatus            `json:"status"`
	AssignedVolunteer  *string                     `json:"assignedVolunteer,omitempty"`
	WeatherSnapshot    *weatherSnapshotDTO         `json:"weatherSnapshot,omitempty"`
	CalendarEventID    *string                     `json:"calendarEventId,omitempty"`
	ThresholdBreached  threshold.ThresholdBreached `json:"thresholdBreached"`
	Location           geo.Point                   `json:"location"`
	NotifiedVolunteers []string                    `json:"notifiedVolunteers"`
	RetryCount         int                         `json:"retryCount"`
	CreatedAt          time.Time                   `json:"createdAt"`
	UpdatedAt          time.Time                   `json:"updatedAt"`
}

func toAlertResponse(a store.Alert) alertResponse {
	var snapshot *weatherSnapshotDTO
	if a.WeatherSnapshot != nil {
		snapshot = &weatherSnapshotDTO{
			Temperature: a.WeatherSnapshot.Temperature,
			WindSpeed:   a.WeatherSnapshot.WindSpeed,
			Humidity:    a.WeatherSnapshot.Humidity,
			Rainfall:    a.WeatherSnapshot.Rainfall,
			Description: a.WeatherSnapshot.Description,
		}
	}
	return alertResponse{
		ID:                 a.ID,
		TreeID:             a.TreeID,
		Type:               a.Type,
		Source:             a.Source,
		Status:             a.Status,
		AssignedVolunteer:  a.AssignedVolunteer,
		WeatherSnapshot:    snapshot,
		CalendarEventID:    a.CalendarEventID,
		ThresholdBreached:  a.ThresholdBreached,
		Location:           a.Location,
		NotifiedVolunteers: a.NotifiedVolunteers,
		RetryCount:         a.RetryCount,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

// createAlertResponse wraps the Dispatch Engine's Result for the client.
type createAlertResponse struct {
	Alert         alertResponse `json:"alert"`
	NotifiedCount int           `json:"notifiedCount"`
	Skipped       bool          `json:"skipped"`
}
