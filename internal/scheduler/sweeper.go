// Package scheduler runs the Weather, Retry, and Calendar sweeps on
// independent timers, and exposes each sweep's tick function directly so
// tests and admin-triggered runs can call it synchronously.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"treewatch/internal/logger"
)

// Sweeper runs a named tick function on a timer until stopped. Grounded on
// the bot monitor's start/stop/ticker-loop shape: an initial tick fires
// immediately, then the ticker takes over.
type Sweeper struct {
	name     string
	interval time.Duration
	tick     func(ctx context.Context)

	log *zap.Logger

	stopChan chan struct{}
	doneChan chan struct{}
}

// NewSweeper builds a Sweeper. tick is also exposed as Tick so it can be
// invoked directly outside the timer loop (admin-triggered sweeps, tests).
func NewSweeper(name string, interval time.Duration, tick func(ctx context.Context)) *Sweeper {
	return &Sweeper{
		name:     name,
		interval: interval,
		tick:     tick,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Tick runs one sweep pass synchronously.
func (s *Sweeper) Tick(ctx context.Context) {
	s.tick(ctx)
}

// Start begins the sweep loop in a background goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	s.log = logger.GetLogger(ctx).With(zap.String("sweep", s.name))
	s.log.Info("scheduler: starting sweep", zap.Duration("interval", s.interval))
	go s.loop(ctx)
}

// Stop halts the sweep loop and waits for the in-flight tick to finish.
func (s *Sweeper) Stop() {
	close(s.stopChan)
	<-s.doneChan
	if s.log != nil {
		s.log.Info("scheduler: sweep stopped")
	}
}

func (s *Sweeper) loop(ctx context.Context) {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}
