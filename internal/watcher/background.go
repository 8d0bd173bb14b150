package watcher

import (
	"context"
	"log"
	"time"

	"geofence-attendance-backend/internal/geo"
)

// Snapshotter yields the device's most recent location fix on demand.
type Snapshotter interface {
	Current() (geo.LocationSample, bool)
}

// Background is the low-frequency evaluation path standing in for the
// OS-scheduled task. It is constructed over its own engine and store
// instance and shares no memory with the foreground watcher; the persisted
// store is the only coordination channel. There is no debounce here: the
// coarse interval already damps GPS jitter.
type Background struct {
	engine   Evaluator
	source   Snapshotter
	interval time.Duration
}

// NewBackground creates the background runner.
func NewBackground(engine Evaluator, source Snapshotter, interval time.Duration) *Background {
	return &Background{
		engine:   engine,
		source:   source,
		interval: interval,
	}
}

// Run evaluates once per interval until the context is cancelled. The OS
// scheduler this models makes no frequency or ordering guarantees relative
// to the foreground path, and the runner must tolerate running concurrently
// with it.
func (b *Background) Run(ctx context.Context) {
	log.Println("Starting background runner...")

	b.RunOnce(ctx)

	timer := time.NewTimer(b.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Background runner shutting down.")
			return
		case <-timer.C:
			b.RunOnce(ctx)
			timer.Reset(b.interval)
		}
	}
}

// RunOnce performs a single background evaluation cycle.
func (b *Background) RunOnce(ctx context.Context) {
	sample, ok := b.source.Current()
	if !ok {
		log.Println("Background cycle skipped: no location fix available yet.")
		return
	}
	if err := b.engine.EvaluateSample(ctx, sample); err != nil {
		log.Printf("background evaluation failed: %v", err)
	}
}
