// Package admin implements the Admin Facade: privileged operations that
// trigger sweeps synchronously, cancel alerts, and read system aggregates.
package admin

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"treewatch/internal/enum"
	"treewatch/internal/lifecycle"
	"treewatch/internal/scheduler"
	"treewatch/internal/store"
)

// Facade wires the synchronous-trigger sweeps, the Lifecycle Manager's
// adminCancel, and the aggregate-stats query together.
type Facade struct {
	lifecycle *lifecycle.Manager
	alerts    store.AlertStore
	weather   *scheduler.WeatherSweep
	retry     *scheduler.RetrySweep
	calendar  *scheduler.CalendarSweep
}

// New builds an Admin Facade. Any sweep may be nil if its provider is not
// configured; the corresponding trigger returns an error.
func New(lifecycleManager *lifecycle.Manager, alerts store.AlertStore, weather *scheduler.WeatherSweep, retry *scheduler.RetrySweep, calendar *scheduler.CalendarSweep) *Facade {
	return &Facade{lifecycle: lifecycleManager, alerts: alerts, weather: weather, retry: retry, calendar: calendar}
}

// TriggerWeatherCheck runs the Weather Sweep synchronously. Per §7, a
// provider failure inside a sweep is normally logged and skipped per-tree;
// an admin-triggered sweep has no single outcome to report back beyond
// "ran", since per-tree failures are already isolated inside Run.
func (f *Facade) TriggerWeatherCheck(ctx context.Context) error {
	if f.weather == nil {
		return fmt.Errorf("admin: weather sweep not configured")
	}
	f.weather.Run(ctx)
	return nil
}

// TriggerCalendarCheck runs the Calendar Sweep synchronously.
func (f *Facade) TriggerCalendarCheck(ctx context.Context) error {
	if f.calendar == nil {
		return fmt.Errorf("admin: calendar sweep not configured")
	}
	f.calendar.Run(ctx)
	return nil
}

// TriggerRetryCheck runs the Retry Sweep synchronously. Not part of the
// core endpoint table but exposed for completeness and operational use.
func (f *Facade) TriggerRetryCheck(ctx context.Context) error {
	if f.retry == nil {
		return fmt.Errorf("admin: retry sweep not configured")
	}
	f.retry.Run(ctx)
	return nil
}

// TriggerAll runs every configured sweep and aggregates any setup errors
// with go-multierror; each sweep's own internal failures are still
// per-tree-isolated and only logged.
func (f *Facade) TriggerAll(ctx context.Context) error {
	var result *multierror.Error
	if err := f.TriggerWeatherCheck(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := f.TriggerRetryCheck(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := f.TriggerCalendarCheck(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// CancelAlert implements adminCancel(alertId).
func (f *Facade) CancelAlert(ctx context.Context, alertID string) (store.Alert, error) {
	return f.lifecycle.AdminCancel(ctx, alertID)
}

// Stats is GET /admin/stats's response shape: counts of alerts by status
// and source, plus volunteer availability counts.
type Stats struct {
	AlertsByStatus      map[string]int `json:"alertsByStatus"`
	AlertsBySource      map[string]int `json:"alertsBySource"`
	VolunteersAvailable int            `json:"volunteersAvailable"`
	VolunteersBusy      int            `json:"volunteersBusy"`
}

// ComputeStats reads every alert and volunteer availability count to build
// the aggregate view. Acceptable at this module's scale (the Non-goals
// exclude a dedicated metrics pipeline); a larger deployment would push
// these counts into a materialized view or a metrics backend instead.
func ComputeStats(ctx context.Context, alerts store.AlertStore, volunteers store.VolunteerStore) (Stats, error) {
	all, err := alerts.List(ctx, store.AlertFilter{})
	if err != nil {
		return Stats{}, fmt.Errorf("admin: compute stats: list alerts: %w", err)
	}

	stats := Stats{
		AlertsByStatus: map[string]int{},
		AlertsBySource: map[string]int{},
	}
	for _, a := range all {
		stats.AlertsByStatus[string(a.Status)]++
		stats.AlertsBySource[string(a.Source)]++
	}

	counts, err := volunteers.CountByAvailability(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("admin: compute stats: count volunteers: %w", err)
	}
	stats.VolunteersAvailable = counts[enum.VolunteerAvailable]
	stats.VolunteersBusy = counts[enum.VolunteerBusy]

	return stats, nil
}
