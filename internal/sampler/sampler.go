package sampler

import (
	"sync"

	"geofence-attendance-backend/internal/geo"
)

// Feed is a push-based location source standing in for the device's
// positioning service. The device layer pushes samples in; the foreground
// watcher consumes the bounded channel, and the background runner reads the
// retained latest fix through Current, the way an OS-scheduled task asks for
// a one-shot location.
type Feed struct {
	ch chan geo.LocationSample

	mu     sync.RWMutex
	latest *geo.LocationSample
}

// NewFeed creates a feed with a bounded queue for the foreground path.
func NewFeed(queueSize int) *Feed {
	return &Feed{
		ch: make(chan geo.LocationSample, queueSize),
	}
}

// Push accepts a new sample. When the foreground queue is full the oldest
// queued sample is dropped so the freshest fix is never lost.
func (f *Feed) Push(s geo.LocationSample) {
	f.mu.Lock()
	f.latest = &s
	f.mu.Unlock()

	for {
		select {
		case f.ch <- s:
			return
		default:
			select {
			case <-f.ch:
			default:
			}
		}
	}
}

// Samples is the foreground watcher's consumption side.
func (f *Feed) Samples() <-chan geo.LocationSample {
	return f.ch
}

// Current returns the most recent sample, if any fix has arrived yet.
func (f *Feed) Current() (geo.LocationSample, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.latest == nil {
		return geo.LocationSample{}, false
	}
	return *f.latest, true
}
