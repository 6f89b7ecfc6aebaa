// Package store implements the Alert Store and Volunteer Store over
// database/sql, with Postgres and SQLite schemas.
package store

import (
	"time"

	"treewatch/internal/enum"
	"treewatch/internal/geo"
	"treewatch/internal/threshold"
)

// WeatherSnapshot is the immutable weather capture attached to a
// weather-sourced alert.
type WeatherSnapshot struct {
	Temperature *float64
	WindSpeed   *float64
	Humidity    *float64
	Rainfall    *float64
	Description string
}

// Alert is the persisted record backing the accept/lifecycle state machine.
type Alert struct {
	ID                 string
	TreeID             string
	Type               enum.AlertType
	Source             enum.AlertSource
	Status             enum.AlertStatus
	AssignedVolunteer  *string
	WeatherSnapshot    *WeatherSnapshot
	CalendarEventID    *string
	ThresholdBreached  threshold.ThresholdBreached
	Location           geo.Point
	NotifiedVolunteers []string
	RetryCount         int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Volunteer is the persisted record whose availability the Lifecycle
// Manager mutates.
type Volunteer struct {
	ID                string
	Email             string
	CredentialHash    string
	Role              enum.Role
	Availability      enum.VolunteerAvailability
	Active            bool
	Location          geo.Point
	PreferredRadiusKM *float64
	DeletedAt         *time.Time
}
