package scheduler

import (
	"context"

	"go.uber.org/zap"

	"treewatch/internal/dispatch"
	"treewatch/internal/enum"
	"treewatch/internal/logger"
	"treewatch/internal/store"
	"treewatch/internal/threshold"
	"treewatch/internal/treerepo"
	"treewatch/internal/weather"
)

// WeatherSweep fetches a snapshot per active tree, evaluates it against the
// configured thresholds, and calls the Dispatch Engine for each triggered
// rule. Dedupe inside Dispatch makes repeated sweeps idempotent.
type WeatherSweep struct {
	trees    treerepo.Repository
	provider weather.Provider
	engine   *dispatch.Engine
	config   threshold.Config
}

// NewWeatherSweep builds a Weather Sweep tick function ready to hand to
// NewSweeper.
func NewWeatherSweep(trees treerepo.Repository, provider weather.Provider, engine *dispatch.Engine, config threshold.Config) *WeatherSweep {
	return &WeatherSweep{trees: trees, provider: provider, engine: engine, config: config}
}

// Run executes one pass over every active tree, sequentially per §4.6's
// ordering note (provider back-pressure makes unlimited parallelism
// unsafe).
func (w *WeatherSweep) Run(ctx context.Context) {
	log := logger.GetLogger(ctx)

	trees, err := w.trees.ListActive(ctx)
	if err != nil {
		log.Error("scheduler: weather sweep: list active trees failed", zap.Error(err))
		return
	}

	log.Info("scheduler: weather sweep tick", zap.Int("tree_count", len(trees)))

	for _, tree := range trees {
		w.checkTree(ctx, tree)
	}
}

func (w *WeatherSweep) checkTree(ctx context.Context, tree treerepo.Tree) {
	ctx = logger.WithTree(ctx, tree.ID)
	log := logger.GetLogger(ctx)

	snapshot, err := w.provider.Snapshot(ctx, tree.Location)
	if err != nil {
		log.Warn("scheduler: weather sweep: provider failed", zap.Error(err))
		return
	}

	triggered := threshold.Evaluate(snapshot, w.config)
	for _, rule := range triggered {
		w.dispatchRule(ctx, tree, snapshot, rule)
	}
}

func (w *WeatherSweep) dispatchRule(ctx context.Context, tree treerepo.Tree, snapshot threshold.Snapshot, rule threshold.TriggeredRule) {
	log := logger.GetLogger(ctx)

	weatherSnapshot := &store.WeatherSnapshot{
		Temperature: snapshot.Temperature,
		WindSpeed:   snapshot.WindSpeed,
		Humidity:    snapshot.Humidity,
		Rainfall:    snapshot.Rainfall,
		Description: snapshot.Description,
	}

	result, err := w.engine.CreateAlert(ctx, tree.ID, rule.Type, enum.AlertSourceWeather, weatherSnapshot, nil, rule.ThresholdBreached)
	if err != nil {
		log.Error("scheduler: weather sweep: create alert failed", zap.String("alert_type", string(rule.Type)), zap.Error(err))
		return
	}
	if result.Skipped {
		return
	}
	log.Info("scheduler: weather sweep dispatched alert",
		zap.String("alert_type", string(rule.Type)),
		zap.String("alert_id", result.Alert.ID),
		zap.Int("notified_count", result.NotifiedCount),
	)
}
