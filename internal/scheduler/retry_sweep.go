package scheduler

import (
	"context"

	"go.uber.org/zap"

	"treewatch/internal/bus"
	"treewatch/internal/enum"
	"treewatch/internal/logger"
	"treewatch/internal/matcher"
	"treewatch/internal/pushbus"
	"treewatch/internal/store"
	"treewatch/internal/treerepo"
)

// MaxRetryCount is the retry count at which a searching alert is cancelled
// for lack of a volunteer, per §4.5.
const MaxRetryCount = 3

// RetrySweep re-broadcasts or cancels alerts that have been searching too
// long without an accept.
type RetrySweep struct {
	alerts  store.AlertStore
	trees   treerepo.Repository
	matcher *matcher.Matcher
	push    *pushbus.PushBus
}

// NewRetrySweep builds a Retry Sweep tick function.
func NewRetrySweep(alerts store.AlertStore, trees treerepo.Repository, m *matcher.Matcher, push *pushbus.PushBus) *RetrySweep {
	return &RetrySweep{alerts: alerts, trees: trees, matcher: m, push: push}
}

// Run examines every alert in status searching and either escalates or
// cancels it per §4.5's retry rule.
func (r *RetrySweep) Run(ctx context.Context) {
	log := logger.GetLogger(ctx)

	searching, err := r.alerts.ListSearching(ctx)
	if err != nil {
		log.Error("scheduler: retry sweep: list searching failed", zap.Error(err))
		return
	}

	log.Info("scheduler: retry sweep tick", zap.Int("searching_count", len(searching)))

	for _, alert := range searching {
		if alert.RetryCount >= MaxRetryCount {
			r.exhaust(ctx, alert)
		} else {
			r.escalate(ctx, alert)
		}
	}
}

func (r *RetrySweep) exhaust(ctx context.Context, alert store.Alert) {
	ctx = logger.WithAlert(ctx, alert.ID)
	log := logger.GetLogger(ctx)

	ok, err := r.alerts.CancelNonTerminal(ctx, alert.ID)
	if err != nil {
		log.Error("scheduler: retry sweep: cancel exhausted alert failed", zap.Error(err))
		return
	}
	if !ok {
		return
	}

	log.Info("scheduler: retry sweep exhausted alert", zap.String("status", string(enum.AlertStatusCancelled)))

	if r.push == nil {
		return
	}

	tree, err := r.trees.Get(ctx, alert.TreeID)
	if err != nil {
		log.Error("scheduler: retry sweep: load tree for exhausted alert failed", zap.Error(err))
		return
	}

	payload := bus.AlertNoVolunteerPayload{
		AlertID: alert.ID,
		Tree:    bus.TreeProjection{ID: tree.ID, Name: tree.Name, Species: tree.Species, Location: tree.Location},
		Message: "no volunteer accepted this alert after repeated broadcast",
	}
	if err := r.push.ToAdmins(ctx, bus.EventAlertNoVolunteer, payload); err != nil {
		log.Error("scheduler: retry sweep: broadcast alert_no_volunteer failed", zap.Error(err))
	}
}

func (r *RetrySweep) escalate(ctx context.Context, alert store.Alert) {
	ctx = logger.WithAlert(ctx, alert.ID)
	log := logger.GetLogger(ctx)

	available, err := r.matcher.FindAllAvailable(ctx)
	if err != nil {
		log.Error("scheduler: retry sweep: find all available failed", zap.Error(err))
		return
	}

	union := unionIDs(alert.NotifiedVolunteers, available)
	newRetryCount := alert.RetryCount + 1

	if err := r.alerts.UpdateNotifiedAndRetry(ctx, alert.ID, union, newRetryCount); err != nil {
		log.Error("scheduler: retry sweep: update notified/retry failed", zap.Error(err))
		return
	}

	log.Info("scheduler: retry sweep escalated alert", zap.Int("retry_count", newRetryCount), zap.Int("notified_count", len(union)))

	if r.push == nil || len(available) == 0 {
		return
	}

	tree, err := r.trees.Get(ctx, alert.TreeID)
	if err != nil {
		log.Error("scheduler: retry sweep: load tree for retry broadcast failed", zap.Error(err))
		return
	}

	payload := bus.NewAlertPayload{
		AlertID:           alert.ID,
		AlertType:         alert.Type,
		AlertSource:       alert.Source,
		WeatherSnapshot:   alert.WeatherSnapshot,
		ThresholdBreached: alert.ThresholdBreached,
		Tree:              bus.TreeProjection{ID: tree.ID, Name: tree.Name, Species: tree.Species, Location: tree.Location},
		CreatedAt:         alert.CreatedAt,
		RetryBroadcast:    true,
	}
	if err := r.push.ToVolunteers(ctx, available, bus.EventNewAlert, payload); err != nil {
		log.Error("scheduler: retry sweep: broadcast retry new_alert failed", zap.Error(err))
	}
}

func unionIDs(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, id := range a {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, id := range b {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
