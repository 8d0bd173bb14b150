package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/patrickmn/go-cache"

	"geofence-attendance-backend/internal/geo"
	"geofence-attendance-backend/internal/model"
	"geofence-attendance-backend/internal/remote"
	"geofence-attendance-backend/internal/store"
)

// ErrNotCheckedIn is returned by ManualCheckout when there is nothing to
// check out from.
var ErrNotCheckedIn = errors.New("not checked in")

// Notifier delivers user-facing attendance notifications. Deduplication of
// repeated GPS retriggers happens behind this interface.
type Notifier interface {
	Arrived(geofenceID, locationName string)
	Left(geofenceID, locationName string)
}

// Options configures an Engine instance. Each execution context constructs
// its own Engine over its own Store; the two instances share no memory.
type Options struct {
	Store    store.Store
	API      remote.API
	Notifier Notifier
	Scope    store.Scope
	Filter   geo.SampleFilter
	Device   remote.DeviceInfo

	// Cooldown is the per-direction window; GlobalLock covers any check-in
	// or check-out and differs between the two contexts.
	Cooldown   time.Duration
	GlobalLock time.Duration

	WindowPad    time.Duration
	DefaultHours WorkingHours
	Location     *time.Location

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// Engine is the attendance state machine for one user scope. It owns the
// persisted attendance snapshot and executes check-in/check-out side effects
// behind cooldown guards.
type Engine struct {
	opts      Options
	geofences *cache.Cache

	// inflight serializes evaluations within this context so overlapping
	// remote-call latency cannot double-fire a transition.
	inflight chan struct{}
}

// New creates an Engine.
func New(opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Engine{
		opts:      opts,
		geofences: cache.New(5*time.Minute, 10*time.Minute),
		inflight:  make(chan struct{}, 1),
	}
}

// EvaluateSample runs one evaluation cycle for a location sample: filter,
// working-hours gate, containment, transition, side effects. Every failure
// mode degrades to "skip this cycle"; only side-effect errors propagate so
// the caller can log them.
func (e *Engine) EvaluateSample(ctx context.Context, sample geo.LocationSample) error {
	select {
	case e.inflight <- struct{}{}:
		defer func() { <-e.inflight }()
	default:
		log.Printf("evaluation already in flight, skipping sample from %s", sample.CapturedAt.Format(time.RFC3339))
		return nil
	}

	if !e.opts.Filter.Accept(sample) {
		return nil
	}

	now := e.opts.Now().In(e.opts.Location)
	if !e.trackingActive(ctx, now) {
		return nil
	}

	snap, err := e.loadSnapshot(ctx, now)
	if err != nil {
		return err
	}

	selected, err := e.opts.Store.SelectedGeofence(ctx, e.opts.Scope)
	if err != nil {
		return err
	}

	// No geofence selected: containment is never evaluated, but a warm
	// checked-in state is itself a "left" transition requiring check-out.
	if selected == "" {
		if snap.IsCheckedIn {
			return e.onLeave(ctx, snap, &sample, now)
		}
		return nil
	}

	gf, err := e.geofence(ctx, selected)
	if err != nil {
		// Transient listing failure: leave state untouched, retry next cycle.
		log.Printf("geofence lookup failed, skipping cycle: %v", err)
		return nil
	}

	inside := false
	if gf != nil {
		inside, err = geo.Contains(gf, sample.Latitude, sample.Longitude)
		if err != nil {
			log.Printf("containment evaluation failed, treating as outside: %v", err)
			inside = false
		}
	} else {
		log.Printf("selected geofence %q is not in the remote listing, treating as outside", selected)
	}

	wasInside := snap.IsCheckedIn && snap.GeofenceID == selected

	switch Detect(wasInside, inside) {
	case Entered:
		return e.onEnter(ctx, gf, sample, now)
	case Left:
		return e.onLeave(ctx, snap, &sample, now)
	default:
		return nil
	}
}

// ManualCheckout is the user-invoked check-out. It clears the leave cooldown
// for the current geofence and the global lock before delegating, so a
// manual action is never blocked by automatic-tracking cooldowns.
func (e *Engine) ManualCheckout(ctx context.Context, sample *geo.LocationSample) error {
	now := e.opts.Now().In(e.opts.Location)

	snap, err := e.loadSnapshot(ctx, now)
	if err != nil {
		return err
	}
	if !snap.IsCheckedIn {
		return ErrNotCheckedIn
	}

	keys := []string{model.LeaveKey(snap.GeofenceID), model.KeyLastAction}
	if err := e.opts.Store.ClearCooldowns(ctx, e.opts.Scope, keys...); err != nil {
		return err
	}

	return e.onLeave(ctx, snap, sample, now)
}

// Verify reconciles the local snapshot against the server's authoritative
// attendance view. When the server reports not-checked-in while local state
// says checked-in, local state is forced to OUTSIDE; the server wins.
func (e *Engine) Verify(ctx context.Context) error {
	now := e.opts.Now().In(e.opts.Location)

	snap, err := e.loadSnapshot(ctx, now)
	if err != nil {
		return err
	}
	if !snap.IsCheckedIn {
		return nil
	}

	cur, err := e.opts.API.Current(ctx)
	if err != nil {
		return fmt.Errorf("attendance verify failed: %w", err)
	}
	if cur.IsCheckedIn {
		return nil
	}

	log.Printf("server reports not checked in, clearing local state for geofence %s", snap.GeofenceID)
	return e.clearLocal(ctx, now)
}

// SelectGeofence switches the tracked geofence. Selecting a different
// geofence while checked in at the previous one triggers an implicit
// check-out when a current sample is available, or a silent local clear when
// not.
func (e *Engine) SelectGeofence(ctx context.Context, geofenceID string, sample *geo.LocationSample) error {
	now := e.opts.Now().In(e.opts.Location)

	snap, err := e.loadSnapshot(ctx, now)
	if err != nil {
		return err
	}

	if snap.IsCheckedIn && snap.GeofenceID != geofenceID {
		if sample != nil {
			if err := e.onLeave(ctx, snap, sample, now); err != nil {
				log.Printf("implicit check-out on geofence switch failed: %v", err)
			}
		} else if err := e.clearLocal(ctx, now); err != nil {
			return err
		}
	}

	return e.opts.Store.SetSelectedGeofence(ctx, e.opts.Scope, geofenceID)
}

// Snapshot exposes the current (day-rolled) attendance record for the
// status surface.
func (e *Engine) Snapshot(ctx context.Context) (*model.AttendanceRecord, error) {
	now := e.opts.Now().In(e.opts.Location)
	return e.loadSnapshot(ctx, now)
}

// onEnter executes the check-in side effects, guarded by the enter cooldown
// and the global lock. Any remote failure leaves local state unchanged; the
// reservation is only persisted on success, so the next qualifying
// transition retries naturally.
func (e *Engine) onEnter(ctx context.Context, gf *geo.Geofence, sample geo.LocationSample, now time.Time) error {
	if gf == nil {
		return nil
	}

	ledger, err := e.opts.Store.CooldownLedger(ctx, e.opts.Scope)
	if err != nil {
		return err
	}
	if !ledger.CheckAndReserve(model.EnterKey(gf.ID), now, e.opts.Cooldown, e.opts.GlobalLock) {
		log.Printf("check-in for geofence %s suppressed by cooldown", gf.ID)
		return nil
	}

	_, err = e.opts.API.CheckIn(ctx, remote.CheckInRequest{
		LocationID:   gf.ID,
		LocationName: gf.Name,
		Latitude:     sample.Latitude,
		Longitude:    sample.Longitude,
		Timestamp:    remote.Timestamp(sample.CapturedAt),
		Accuracy:     sample.AccuracyMeters,
		DeviceInfo:   e.opts.Device,
		Speed:        sample.SpeedMPS,
		Altitude:     sample.Altitude,
		Heading:      sample.Heading,
	})
	if err != nil {
		return fmt.Errorf("remote check-in failed: %w", err)
	}

	checkInAt := now
	rec := &model.AttendanceRecord{
		Namespace:    e.opts.Scope.Namespace,
		UserID:       e.opts.Scope.UserID,
		IsCheckedIn:  true,
		GeofenceID:   gf.ID,
		LocationName: gf.Name,
		CheckInAt:    &checkInAt,
		DayKey:       model.DayKey(now),
	}
	if err := e.opts.Store.SaveSnapshot(ctx, rec); err != nil {
		return err
	}
	if err := e.opts.Store.SaveCooldownLedger(ctx, e.opts.Scope, ledger); err != nil {
		return err
	}

	if e.opts.Notifier != nil {
		e.opts.Notifier.Arrived(gf.ID, gf.Name)
	}

	// Device binding is best-effort; failure never rolls back the check-in.
	if err := e.opts.API.BindDevice(ctx, e.opts.Device); err != nil {
		log.Printf("device bind failed (ignored): %v", err)
	}

	log.Printf("checked in at %s (%s)", gf.Name, gf.ID)
	return nil
}

// onLeave executes the check-out side effects, guarded by the leave cooldown
// and the global lock, with the same persist-on-success semantics as onEnter.
func (e *Engine) onLeave(ctx context.Context, snap *model.AttendanceRecord, sample *geo.LocationSample, now time.Time) error {
	ledger, err := e.opts.Store.CooldownLedger(ctx, e.opts.Scope)
	if err != nil {
		return err
	}
	if !ledger.CheckAndReserve(model.LeaveKey(snap.GeofenceID), now, e.opts.Cooldown, e.opts.GlobalLock) {
		log.Printf("check-out for geofence %s suppressed by cooldown", snap.GeofenceID)
		return nil
	}

	req := remote.CheckOutRequest{
		LocationID: snap.GeofenceID,
		Timestamp:  remote.Timestamp(now),
		DeviceInfo: e.opts.Device,
	}
	if sample != nil {
		req.Latitude = sample.Latitude
		req.Longitude = sample.Longitude
		req.Accuracy = sample.AccuracyMeters
		req.Timestamp = remote.Timestamp(sample.CapturedAt)
	}
	if err := e.opts.API.CheckOut(ctx, req); err != nil {
		return fmt.Errorf("remote check-out failed: %w", err)
	}

	if err := e.clearLocal(ctx, now); err != nil {
		return err
	}
	if err := e.opts.Store.SaveCooldownLedger(ctx, e.opts.Scope, ledger); err != nil {
		return err
	}

	// Stopping a running time entry is best-effort; "no active entry" is a
	// normal condition, not a failure.
	if err := e.opts.API.StopTime(ctx, "auto checkout"); err != nil && !errors.Is(err, remote.ErrNoActiveEntry) {
		log.Printf("time entry stop failed (ignored): %v", err)
	}

	if e.opts.Notifier != nil {
		e.opts.Notifier.Left(snap.GeofenceID, snap.LocationName)
	}

	log.Printf("checked out from %s (%s)", snap.LocationName, snap.GeofenceID)
	return nil
}

// clearLocal writes an OUTSIDE snapshot without any remote call.
func (e *Engine) clearLocal(ctx context.Context, now time.Time) error {
	checkOutAt := now
	rec := &model.AttendanceRecord{
		Namespace:  e.opts.Scope.Namespace,
		UserID:     e.opts.Scope.UserID,
		CheckOutAt: &checkOutAt,
		DayKey:     model.DayKey(now),
	}
	return e.opts.Store.SaveSnapshot(ctx, rec)
}

// loadSnapshot reads the persisted snapshot, applying the day-boundary
// reset: a stale day key forces OUTSIDE with state cleared and no remote
// check-out attempted.
func (e *Engine) loadSnapshot(ctx context.Context, now time.Time) (*model.AttendanceRecord, error) {
	today := model.DayKey(now)

	snap, err := e.opts.Store.Snapshot(ctx, e.opts.Scope)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return &model.AttendanceRecord{
			Namespace: e.opts.Scope.Namespace,
			UserID:    e.opts.Scope.UserID,
			DayKey:    today,
		}, nil
	}

	if snap.DayKey != "" && snap.DayKey != today {
		log.Printf("attendance day rolled over (%s -> %s), resetting state", snap.DayKey, today)
		rec := &model.AttendanceRecord{
			Namespace: e.opts.Scope.Namespace,
			UserID:    e.opts.Scope.UserID,
			DayKey:    today,
		}
		if err := e.opts.Store.SaveSnapshot(ctx, rec); err != nil {
			return nil, err
		}
		return rec, nil
	}
	return snap, nil
}

// trackingActive applies the working-hours window gate. Unparsable hours
// mean "always track" rather than a crashed cycle.
func (e *Engine) trackingActive(ctx context.Context, now time.Time) bool {
	value, err := e.opts.Store.WorkingHours(ctx, e.opts.Scope)
	if err != nil {
		log.Printf("working hours read failed, tracking anyway: %v", err)
		return true
	}

	hours := e.opts.DefaultHours
	if value != "" {
		parsed, err := ParseWorkingHours(value)
		if err != nil {
			log.Printf("unparsable working hours %q, tracking anyway: %v", value, err)
			return true
		}
		hours = parsed
	}

	window, err := hours.Window(e.opts.WindowPad)
	if err != nil {
		log.Printf("unparsable working hours %q, tracking anyway: %v", hours, err)
		return true
	}
	return window.Contains(now)
}

// geofence resolves a geofence id against the remote listing through a
// short-lived local cache. A nil result with nil error means the listing was
// fetched but does not contain the id.
func (e *Engine) geofence(ctx context.Context, id string) (*geo.Geofence, error) {
	if v, ok := e.geofences.Get(id); ok {
		gf := v.(geo.Geofence)
		return &gf, nil
	}

	list, err := e.opts.API.Geofences(ctx)
	if err != nil {
		return nil, err
	}

	var found *geo.Geofence
	for i := range list {
		e.geofences.Set(list[i].ID, list[i], cache.DefaultExpiration)
		if list[i].ID == id {
			found = &list[i]
		}
	}
	return found, nil
}
