package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"geofence-attendance-backend/config"
	"geofence-attendance-backend/internal/engine"
	"geofence-attendance-backend/internal/geo"
	"geofence-attendance-backend/internal/model"
	"geofence-attendance-backend/internal/remote"
	"geofence-attendance-backend/internal/store"
)

// fakeBackend is a scripted attendance backend tracking remote call counts.
type fakeBackend struct {
	mu           sync.Mutex
	checkIns     int
	checkOuts    int
	stopCalls    int
	bindCalls    int
	currentState bool
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/locations/geofences", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"geofences": []map[string]any{
				{
					"id":           "hq",
					"name":         "Headquarters",
					"kind":         "circle",
					"center":       map[string]float64{"lon": 114.057868, "lat": 22.543099},
					"radiusMeters": 150,
				},
			},
		})
	})
	mux.HandleFunc("/api/employees/attendance/checkin", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.checkIns++
		b.currentState = true
		b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"success": true, "attendanceId": "att-1", "validationStatus": "valid"})
	})
	mux.HandleFunc("/api/employees/attendance/checkout", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.checkOuts++
		b.currentState = false
		b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	mux.HandleFunc("/api/employees/attendance/current", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		state := b.currentState
		b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"success": true, "isCheckedIn": state})
	})
	mux.HandleFunc("/api/time/stop", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.stopCalls++
		b.mu.Unlock()
		// No running time entry; the engine must treat this as normal.
		http.Error(w, "no active entry", http.StatusNotFound)
	})
	mux.HandleFunc("/api/devices/bind", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.bindCalls++
		b.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (b *fakeBackend) counts() (checkIns, checkOuts int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.checkIns, b.checkOuts
}

// TestAttendanceLifecycle walks a full day of attendance through both
// execution contexts: foreground check-in, a redundant background cycle that
// must observe the persisted state instead of double-firing, and an automatic
// check-out once the user has left and the cooldowns have expired.
func TestAttendanceLifecycle(t *testing.T) {
	// 1. Two connections onto the same in-memory database, one per context.
	dsn := "file:lifecycle?mode=memory&cache=shared"
	fgDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := fgDB.DB()
	defer sqlDB.Close()

	require.NoError(t, fgDB.AutoMigrate(&model.AttendanceRecord{}, &model.Setting{}, &model.CooldownEntry{}))

	bgDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	// 2. Scripted remote backend.
	backend := &fakeBackend{}
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	client := remote.NewClient(&config.RemoteConfig{
		BaseURL:   server.URL,
		AuthToken: "token",
		Timeout:   5 * time.Second,
	})

	// 3. One engine per context over its own store; they share no memory.
	scope := store.Scope{Namespace: "prod", UserID: "u1"}
	fgStore := store.NewGormStore(fgDB)
	bgStore := store.NewGormStore(bgDB)

	var clockMu sync.Mutex
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		clockMu.Lock()
		now = now.Add(d)
		clockMu.Unlock()
	}

	newEngine := func(s store.Store, lock time.Duration) *engine.Engine {
		return engine.New(engine.Options{
			Store:        s,
			API:          client,
			Scope:        scope,
			Filter:       geo.SampleFilter{MaxAccuracyMeters: 100, MaxSpeedMPS: 27.8},
			Device:       remote.DeviceInfo{DeviceID: "dev-1", Platform: "test"},
			Cooldown:     60 * time.Second,
			GlobalLock:   lock,
			WindowPad:    60 * time.Minute,
			DefaultHours: engine.WorkingHours{Start: "08:00", End: "17:00"},
			Location:     time.UTC,
			Now:          clock,
		})
	}
	fgEngine := newEngine(fgStore, 30*time.Second)
	bgEngine := newEngine(bgStore, 60*time.Second)

	require.NoError(t, fgStore.SetSelectedGeofence(context.Background(), scope, "hq"))

	inside := geo.LocationSample{Latitude: 22.543099, Longitude: 114.057868, AccuracyMeters: 10, CapturedAt: clock()}
	outside := geo.LocationSample{Latitude: 22.60, Longitude: 114.20, AccuracyMeters: 10, CapturedAt: clock()}

	t.Run("Foreground check-in on arrival", func(t *testing.T) {
		require.NoError(t, fgEngine.EvaluateSample(context.Background(), inside))

		checkIns, checkOuts := backend.counts()
		assert.Equal(t, 1, checkIns)
		assert.Equal(t, 0, checkOuts)

		var rec model.AttendanceRecord
		require.NoError(t, fgDB.Where("namespace = ? AND user_id = ?", scope.Namespace, scope.UserID).First(&rec).Error)
		assert.True(t, rec.IsCheckedIn)
		assert.Equal(t, "hq", rec.GeofenceID)
		assert.Equal(t, "2024-3-15", rec.DayKey)

		var cooldowns int64
		fgDB.Model(&model.CooldownEntry{}).Where("namespace = ? AND user_id = ?", scope.Namespace, scope.UserID).Count(&cooldowns)
		assert.Equal(t, int64(2), cooldowns, "enter key and global lock are persisted")
	})

	t.Run("Background cycle observes persisted state", func(t *testing.T) {
		advance(10 * time.Second)
		require.NoError(t, bgEngine.EvaluateSample(context.Background(), inside))

		checkIns, _ := backend.counts()
		assert.Equal(t, 1, checkIns, "the background context must not double-fire a check-in")
	})

	t.Run("Verify agrees with the server", func(t *testing.T) {
		require.NoError(t, fgEngine.Verify(context.Background()))

		var rec model.AttendanceRecord
		require.NoError(t, fgDB.First(&rec).Error)
		assert.True(t, rec.IsCheckedIn)
	})

	t.Run("Automatic check-out after leaving", func(t *testing.T) {
		advance(8 * time.Hour)
		require.NoError(t, bgEngine.EvaluateSample(context.Background(), outside))

		_, checkOuts := backend.counts()
		assert.Equal(t, 1, checkOuts)
		assert.Equal(t, 1, backend.stopCalls, "a missing time entry is tolerated")

		var rec model.AttendanceRecord
		require.NoError(t, fgDB.First(&rec).Error)
		assert.False(t, rec.IsCheckedIn)
		assert.Empty(t, rec.GeofenceID)
		require.NotNil(t, rec.CheckOutAt)
	})

	t.Run("Jittery re-entry stays quiet", func(t *testing.T) {
		// A GPS blip back inside seconds after the check-out must not
		// immediately reopen the day from either context.
		advance(5 * time.Second)
		require.NoError(t, fgEngine.EvaluateSample(context.Background(), inside))
		require.NoError(t, bgEngine.EvaluateSample(context.Background(), inside))

		checkIns, _ := backend.counts()
		assert.Equal(t, 1, checkIns)
	})
}
