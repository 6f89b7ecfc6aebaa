package enum

// AlertType represents the category of condition that triggered an alert.
type AlertType string

const (
	AlertTypeHighTemperature AlertType = "high_temperature"
	AlertTypeHighWind        AlertType = "high_wind"
	AlertTypeDrought         AlertType = "drought"
	AlertTypeStorm           AlertType = "storm"
	AlertTypeCalendarEvent   AlertType = "calendar_event"
)

// Values returns all possible alert type values.
func (AlertType) Values() []string {
	return []string{
		string(AlertTypeHighTemperature),
		string(AlertTypeHighWind),
		string(AlertTypeDrought),
		string(AlertTypeStorm),
		string(AlertTypeCalendarEvent),
	}
}

// AlertSource represents what subsystem raised an alert.
type AlertSource string

const (
	AlertSourceWeather  AlertSource = "weather"
	AlertSourceCalendar AlertSource = "calendar"
)

// Values returns all possible alert source values.
func (AlertSource) Values() []string {
	return []string{
		string(AlertSourceWeather),
		string(AlertSourceCalendar),
	}
}
