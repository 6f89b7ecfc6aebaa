// Package lifecycle implements the Lifecycle Manager: the accept / start /
// resolve / adminCancel state machine that moves an alert from searching
// through to a terminal status.
package lifecycle

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"treewatch/internal/apierr"
	"treewatch/internal/bus"
	"treewatch/internal/enum"
	"treewatch/internal/logger"
	"treewatch/internal/pushbus"
	"treewatch/internal/store"
)

// Manager wires the Alert Store and Volunteer Store together to implement
// the accept/start/resolve/adminCancel transitions and their paired
// volunteer-availability updates.
type Manager struct {
	alerts     store.AlertStore
	volunteers store.VolunteerStore
	push       *pushbus.PushBus
}

// New builds a Lifecycle Manager. push may be nil, in which case event
// emission is a no-op (useful for tests that only care about state).
func New(alerts store.AlertStore, volunteers store.VolunteerStore, push *pushbus.PushBus) *Manager {
	return &Manager{alerts: alerts, volunteers: volunteers, push: push}
}

// Accept implements accept(alertId, volunteerId). Race-free: of N concurrent
// callers for the same alert, exactly one succeeds via the store's
// conditional update; the rest receive AlreadyTaken.
func (m *Manager) Accept(ctx context.Context, alertID, volunteerID string) (store.Alert, error) {
	ctx = logger.WithVolunteer(logger.WithAlert(ctx, alertID), volunteerID)
	log := logger.GetLogger(ctx)

	volunteer, err := m.volunteers.Get(ctx, volunteerID)
	if err != nil {
		return store.Alert{}, err
	}
	if volunteer.Availability != enum.VolunteerAvailable {
		return store.Alert{}, apierr.ErrVolunteerBusy
	}
	busy, err := m.volunteers.HasActiveAssignment(ctx, volunteerID)
	if err != nil {
		return store.Alert{}, fmt.Errorf("lifecycle: check active assignment: %w", err)
	}
	if busy {
		return store.Alert{}, apierr.ErrVolunteerBusy
	}

	ok, err := m.alerts.CompareAndSetAccepted(ctx, alertID, volunteerID)
	if err != nil {
		return store.Alert{}, fmt.Errorf("lifecycle: accept alert %s: %w", alertID, err)
	}
	if !ok {
		if _, getErr := m.alerts.Get(ctx, alertID); getErr != nil {
			return store.Alert{}, getErr
		}
		return store.Alert{}, apierr.ErrAlreadyTaken
	}

	if err := m.volunteers.SetAvailability(ctx, volunteerID, enum.VolunteerBusy); err != nil {
		log.Error("lifecycle: volunteer busy transition failed after accept", zap.Error(err))
	}

	accepted, err := m.alerts.Get(ctx, alertID)
	if err != nil {
		return store.Alert{}, err
	}

	m.broadcastAccepted(ctx, accepted, volunteer, volunteerID)

	log.Info("lifecycle: alert accepted", zap.String("status", string(accepted.Status)))

	return accepted, nil
}

func (m *Manager) broadcastAccepted(ctx context.Context, alert store.Alert, volunteer store.Volunteer, accepterID string) {
	if m.push == nil {
		return
	}

	dismiss := make([]string, 0, len(alert.NotifiedVolunteers))
	for _, id := range alert.NotifiedVolunteers {
		if id != accepterID {
			dismiss = append(dismiss, id)
		}
	}

	payload := bus.AlertAcceptedPayload{
		AlertID:       alert.ID,
		Message:       "this alert has been accepted by another volunteer",
		VolunteerID:   accepterID,
		VolunteerName: volunteer.Email,
	}

	log := logger.GetLogger(ctx)

	if len(dismiss) > 0 {
		if err := m.push.ToVolunteers(ctx, dismiss, bus.EventAlertAccepted, payload); err != nil {
			log.Error("lifecycle: broadcast alert_accepted dismissal failed", zap.String("alert_id", alert.ID), zap.Error(err))
		}
	}
	if err := m.push.ToAdmins(ctx, bus.EventAlertAccepted, payload); err != nil {
		log.Error("lifecycle: broadcast alert_accepted to admins failed", zap.String("alert_id", alert.ID), zap.Error(err))
	}
}

// Start implements start(alertId, volunteerId): accepted -> in_progress,
// preconditioned on the caller being the assignee.
func (m *Manager) Start(ctx context.Context, alertID, volunteerID string) (store.Alert, error) {
	ctx = logger.WithVolunteer(logger.WithAlert(ctx, alertID), volunteerID)
	log := logger.GetLogger(ctx)

	ok, err := m.alerts.CompareAndSetStatus(ctx, alertID, enum.AlertStatusAccepted, enum.AlertStatusInProgress, volunteerID)
	if err != nil {
		return store.Alert{}, fmt.Errorf("lifecycle: start alert %s: %w", alertID, err)
	}
	if !ok {
		if _, getErr := m.alerts.Get(ctx, alertID); getErr != nil {
			return store.Alert{}, getErr
		}
		return store.Alert{}, apierr.New(apierr.KindConflict, "InvalidTransition", "alert is not accepted by this volunteer")
	}

	alert, err := m.alerts.Get(ctx, alertID)
	if err != nil {
		return store.Alert{}, err
	}

	if m.push != nil {
		if err := m.push.ToAdmins(ctx, bus.EventAlertProgress, bus.AlertProgressPayload{AlertID: alert.ID, VolunteerID: volunteerID}); err != nil {
			log.Error("lifecycle: broadcast alert_progress failed", zap.Error(err))
		}
	}

	log.Info("lifecycle: alert started", zap.String("status", string(alert.Status)))

	return alert, nil
}

// Resolve implements resolve(alertId, volunteerId): in_progress -> resolved,
// preconditioned on the caller being the assignee, then releases the
// volunteer back to available.
func (m *Manager) Resolve(ctx context.Context, alertID, volunteerID string) (store.Alert, error) {
	ctx = logger.WithVolunteer(logger.WithAlert(ctx, alertID), volunteerID)
	log := logger.GetLogger(ctx)

	ok, err := m.alerts.CompareAndSetStatus(ctx, alertID, enum.AlertStatusInProgress, enum.AlertStatusResolved, volunteerID)
	if err != nil {
		return store.Alert{}, fmt.Errorf("lifecycle: resolve alert %s: %w", alertID, err)
	}
	if !ok {
		if _, getErr := m.alerts.Get(ctx, alertID); getErr != nil {
			return store.Alert{}, getErr
		}
		return store.Alert{}, apierr.New(apierr.KindConflict, "InvalidTransition", "alert is not in progress for this volunteer")
	}

	if err := m.volunteers.SetAvailability(ctx, volunteerID, enum.VolunteerAvailable); err != nil {
		log.Error("lifecycle: volunteer available transition failed after resolve", zap.Error(err))
	}

	alert, err := m.alerts.Get(ctx, alertID)
	if err != nil {
		return store.Alert{}, err
	}

	if m.push != nil {
		payload := bus.AlertResolvedPayload{AlertID: alert.ID, TreeID: alert.TreeID}
		if err := m.push.ToGlobal(ctx, bus.EventAlertResolved, payload); err != nil {
			log.Error("lifecycle: broadcast alert_resolved failed", zap.Error(err))
		}
		if err := m.push.ToAdmins(ctx, bus.EventAlertResolved, payload); err != nil {
			log.Error("lifecycle: broadcast alert_resolved to admins failed", zap.Error(err))
		}
	}

	log.Info("lifecycle: alert resolved", zap.String("status", string(alert.Status)))

	return alert, nil
}

// AdminCancel implements adminCancel(alertId): allowed from any non-terminal
// status, transitions to cancelled and releases any assignee.
func (m *Manager) AdminCancel(ctx context.Context, alertID string) (store.Alert, error) {
	ctx = logger.WithAlert(ctx, alertID)
	log := logger.GetLogger(ctx)

	alert, err := m.alerts.Get(ctx, alertID)
	if err != nil {
		return store.Alert{}, err
	}

	ok, err := m.alerts.CancelNonTerminal(ctx, alertID)
	if err != nil {
		return store.Alert{}, fmt.Errorf("lifecycle: cancel alert %s: %w", alertID, err)
	}
	if !ok {
		return store.Alert{}, apierr.New(apierr.KindConflict, "InvalidTransition", "alert is already in a terminal status")
	}

	if alert.AssignedVolunteer != nil {
		if err := m.volunteers.SetAvailability(ctx, *alert.AssignedVolunteer, enum.VolunteerAvailable); err != nil {
			log.Error("lifecycle: volunteer available transition failed after cancel", zap.Error(err))
		}
	}

	cancelled, err := m.alerts.Get(ctx, alertID)
	if err != nil {
		return store.Alert{}, err
	}

	if m.push != nil {
		if err := m.push.ToAdmins(ctx, bus.EventAlertCancelled, bus.AlertCancelledPayload{AlertID: cancelled.ID}); err != nil {
			log.Error("lifecycle: broadcast alert_cancelled failed", zap.Error(err))
		}
	}

	log.Info("lifecycle: alert cancelled", zap.String("status", string(cancelled.Status)))

	return cancelled, nil
}
