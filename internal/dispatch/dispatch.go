// Package dispatch implements the Dispatch Engine: the single entry point
// for turning a triggered rule into a persisted, matched, broadcast alert.
package dispatch

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"treewatch/internal/apierr"
	"treewatch/internal/bus"
	"treewatch/internal/enum"
	"treewatch/internal/logger"
	"treewatch/internal/matcher"
	"treewatch/internal/pushbus"
	"treewatch/internal/store"
	"treewatch/internal/threshold"
	"treewatch/internal/treerepo"
)

// DefaultMatchRadiusMeters is createAlert's default nearby-volunteer search
// radius, configurable per deployment.
const DefaultMatchRadiusMeters = 5000.0

// Result is createAlert's return value.
type Result struct {
	Alert         store.Alert
	NotifiedCount int
	Skipped       bool
}

// Engine wires the Tree Repository, Alert Store, Matcher, and Push Bus
// together to implement createAlert's 7-step contract.
type Engine struct {
	trees             treerepo.Repository
	alerts            store.AlertStore
	matcher           *matcher.Matcher
	push              *pushbus.PushBus
	matchRadiusMeters float64
}

// New builds a Dispatch Engine. matchRadiusMeters <= 0 falls back to
// DefaultMatchRadiusMeters.
func New(trees treerepo.Repository, alerts store.AlertStore, m *matcher.Matcher, push *pushbus.PushBus, matchRadiusMeters float64) *Engine {
	if matchRadiusMeters <= 0 {
		matchRadiusMeters = DefaultMatchRadiusMeters
	}
	return &Engine{trees: trees, alerts: alerts, matcher: m, push: push, matchRadiusMeters: matchRadiusMeters}
}

// CreateAlert implements createAlert(treeId, type, source, snapshot?,
// calendarEventId?, thresholdBreached).
func (e *Engine) CreateAlert(
	ctx context.Context,
	treeID string,
	alertType enum.AlertType,
	source enum.AlertSource,
	snapshot *store.WeatherSnapshot,
	calendarEventID *string,
	breached threshold.ThresholdBreached,
) (Result, error) {
	tree, err := e.trees.Get(ctx, treeID)
	if err != nil {
		return Result{}, err
	}
	if !tree.Active {
		return Result{}, apierr.ErrTreeNotFound
	}

	existing, err := e.alerts.FindActiveByTreeAndType(ctx, treeID, alertType)
	if err != nil {
		return Result{}, fmt.Errorf("dispatch: dedupe check: %w", err)
	}
	if existing != nil {
		return Result{Alert: *existing, Skipped: true}, nil
	}

	alert := store.Alert{
		ID:                 uuid.NewString(),
		TreeID:             treeID,
		Type:               alertType,
		Source:             source,
		Status:             enum.AlertStatusSearching,
		WeatherSnapshot:    snapshot,
		CalendarEventID:    calendarEventID,
		ThresholdBreached:  breached,
		Location:           tree.Location,
		NotifiedVolunteers: []string{},
	}

	created, err := e.alerts.Create(ctx, alert)
	if err != nil {
		return Result{}, fmt.Errorf("dispatch: persist alert: %w", err)
	}

	ctx = logger.WithTree(logger.WithAlert(ctx, created.ID), created.TreeID)
	log := logger.GetLogger(ctx)

	notified, err := e.matcher.FindNearbyAvailable(ctx, tree.Location, e.matchRadiusMeters)
	if err != nil {
		log.Error("dispatch: matcher lookup failed", zap.Error(err))
		notified = nil
	}

	if len(notified) > 0 {
		if err := e.alerts.UpdateNotifiedAndRetry(ctx, created.ID, notified, created.RetryCount); err != nil {
			log.Error("dispatch: record notified volunteers failed", zap.Error(err))
		} else {
			created.NotifiedVolunteers = notified
		}
	}

	e.broadcastNewAlert(ctx, created, tree, notified)

	log.Info("dispatch: alert created",
		zap.String("status", string(created.Status)),
		zap.String("alert_type", string(created.Type)),
		zap.Int("notified_count", len(notified)),
	)

	return Result{Alert: created, NotifiedCount: len(notified)}, nil
}

func (e *Engine) broadcastNewAlert(ctx context.Context, alert store.Alert, tree treerepo.Tree, notified []string) {
	if e.push == nil || len(notified) == 0 {
		return
	}

	payload := bus.NewAlertPayload{
		AlertID:           alert.ID,
		AlertType:         alert.Type,
		AlertSource:       alert.Source,
		WeatherSnapshot:   alert.WeatherSnapshot,
		ThresholdBreached: alert.ThresholdBreached,
		Tree: bus.TreeProjection{
			ID:       tree.ID,
			Name:     tree.Name,
			Species:  tree.Species,
			Location: tree.Location,
		},
		CreatedAt: alert.CreatedAt,
	}

	if err := e.push.ToVolunteers(ctx, notified, bus.EventNewAlert, payload); err != nil {
		logger.GetLogger(ctx).Error("dispatch: broadcast new_alert failed", zap.String("alert_id", alert.ID), zap.Error(err))
	}
}
