package watcher

import (
	"context"
	"log"
	"time"

	"geofence-attendance-backend/internal/geo"
)

// Evaluator is the engine surface the watchers drive.
type Evaluator interface {
	EvaluateSample(ctx context.Context, sample geo.LocationSample) error
}

// Foreground is the high-frequency evaluation loop. It debounces incoming
// samples: a transition is only acted upon after the location has been
// stable for a short quiet period, which absorbs GPS jitter. The loop is a
// single goroutine, so evaluations within this context never overlap.
type Foreground struct {
	samples  <-chan geo.LocationSample
	engine   Evaluator
	debounce time.Duration
}

// NewForeground creates the foreground watcher.
func NewForeground(samples <-chan geo.LocationSample, engine Evaluator, debounce time.Duration) *Foreground {
	return &Foreground{
		samples:  samples,
		engine:   engine,
		debounce: debounce,
	}
}

// Run consumes samples until the context is cancelled. The debounce timer is
// reset whenever a newer sample supersedes the pending one, and stopped on
// teardown.
func (w *Foreground) Run(ctx context.Context) {
	log.Println("Starting foreground watcher...")

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	var pending *geo.LocationSample
	for {
		select {
		case <-ctx.Done():
			log.Println("Foreground watcher shutting down.")
			return
		case s := <-w.samples:
			pending = &s
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
		case <-timer.C:
			if pending == nil {
				continue
			}
			sample := *pending
			pending = nil
			if err := w.engine.EvaluateSample(ctx, sample); err != nil {
				log.Printf("foreground evaluation failed: %v", err)
			}
		}
	}
}
