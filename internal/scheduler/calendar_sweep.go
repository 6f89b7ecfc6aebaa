package scheduler

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"treewatch/internal/calendar"
	"treewatch/internal/calendarscan"
	"treewatch/internal/dispatch"
	"treewatch/internal/enum"
	"treewatch/internal/logger"
	"treewatch/internal/store"
	"treewatch/internal/threshold"
	"treewatch/internal/treerepo"
)

// DefaultCalendarLookahead is how far ahead the Calendar Sweep looks for
// events, per §4.7.
const DefaultCalendarLookahead = 7 * 24 * time.Hour

// CalendarSweep scans upcoming calendar events for tree-related, care-
// relevant work and dispatches an alert for each one not already tracked.
type CalendarSweep struct {
	trees     treerepo.Repository
	calendar  calendar.Provider
	alerts    store.AlertStore
	engine    *dispatch.Engine
	keywords  []string
	lookahead time.Duration
}

// NewCalendarSweep builds a Calendar Sweep tick function. keywords defaults
// to calendarscan.DefaultCareKeywords when empty.
func NewCalendarSweep(trees treerepo.Repository, provider calendar.Provider, alerts store.AlertStore, engine *dispatch.Engine, keywords []string) *CalendarSweep {
	if len(keywords) == 0 {
		keywords = calendarscan.DefaultCareKeywords
	}
	return &CalendarSweep{trees: trees, calendar: provider, alerts: alerts, engine: engine, keywords: keywords, lookahead: DefaultCalendarLookahead}
}

// Run lists events in [now, now+lookahead] once using the system-level
// calendar credential, then matches them against every active tree.
func (c *CalendarSweep) Run(ctx context.Context) {
	log := logger.GetLogger(ctx)

	trees, err := c.trees.ListActive(ctx)
	if err != nil {
		log.Error("scheduler: calendar sweep: list active trees failed", zap.Error(err))
		return
	}

	now := time.Now().UTC()
	events, err := c.calendar.ListEvents(ctx, now, now.Add(c.lookahead))
	if err != nil {
		log.Warn("scheduler: calendar sweep: list events failed", zap.Error(err))
		return
	}

	log.Info("scheduler: calendar sweep tick", zap.Int("tree_count", len(trees)), zap.Int("event_count", len(events)))

	for _, tree := range trees {
		for _, event := range events {
			c.checkEvent(ctx, tree, event)
		}
	}
}

func (c *CalendarSweep) checkEvent(ctx context.Context, tree treerepo.Tree, event calendar.Event) {
	ctx = logger.WithTree(ctx, tree.ID)
	log := logger.GetLogger(ctx)

	match := calendarscan.Scan(event, calendarscan.Tree{ID: tree.ID, Name: tree.Name, Species: tree.Species}, c.keywords)
	if match == nil {
		return
	}

	existing, err := c.alerts.FindActiveByCalendarEvent(ctx, event.ID)
	if err != nil {
		log.Error("scheduler: calendar sweep: dedupe check failed", zap.String("event_id", event.ID), zap.Error(err))
		return
	}
	if existing != nil {
		return
	}

	eventID := event.ID
	breached := threshold.ThresholdBreached{
		Field:     "calendar_event",
		Value:     event.Summary,
		Threshold: match.MatchedKeywords,
	}

	result, err := c.engine.CreateAlert(ctx, tree.ID, enum.AlertTypeCalendarEvent, enum.AlertSourceCalendar, nil, &eventID, breached)
	if err != nil {
		log.Error("scheduler: calendar sweep: create alert failed", zap.String("event_id", event.ID), zap.Error(err))
		return
	}
	if result.Skipped {
		return
	}
	log.Info("scheduler: calendar sweep dispatched alert",
		zap.String("alert_id", result.Alert.ID),
		zap.String("event_summary", event.Summary),
		zap.String("matched_keywords", strings.Join(match.MatchedKeywords, ",")),
	)
}
