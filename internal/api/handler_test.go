package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geofence-attendance-backend/internal/sampler"
	"geofence-attendance-backend/internal/store"
)

func setupSampleRouter(feed *sampler.Feed) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.Default()
	handler := NewHandler(nil, store.Scope{}, nil, feed, nil, nil)
	r.POST("/api/samples", handler.PostSample)
	r.PUT("/api/working-hours", handler.PutWorkingHours)
	return r
}

func TestPostSample(t *testing.T) {
	feed := sampler.NewFeed(4)
	router := setupSampleRouter(feed)

	t.Run("missing coordinates", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/samples", bytes.NewBufferString(`{"accuracy":10}`))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("accepted and queued", func(t *testing.T) {
		w := httptest.NewRecorder()
		body := `{"latitude":22.54,"longitude":114.05,"accuracy":12,"speed":1.5}`
		req, _ := http.NewRequest("POST", "/api/samples", bytes.NewBufferString(body))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)

		sample, ok := feed.Current()
		require.True(t, ok)
		assert.Equal(t, 22.54, sample.Latitude)
		assert.Equal(t, 12.0, sample.AccuracyMeters)
		require.NotNil(t, sample.SpeedMPS)
		assert.Equal(t, 1.5, *sample.SpeedMPS)
		assert.WithinDuration(t, time.Now(), sample.CapturedAt, 5*time.Second, "missing capture time defaults to now")
	})

	t.Run("zero coordinates are still coordinates", func(t *testing.T) {
		w := httptest.NewRecorder()
		body := `{"latitude":0,"longitude":0,"accuracy":5}`
		req, _ := http.NewRequest("POST", "/api/samples", bytes.NewBufferString(body))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)
	})
}

func TestPutWorkingHours(t *testing.T) {
	router := setupSampleRouter(sampler.NewFeed(1))

	cases := []struct {
		name string
		body string
	}{
		{"missing field", `{}`},
		{"not a range", `{"workingHours":"whenever"}`},
		{"hour out of range", `{"workingHours":"25:00-17:00"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("PUT", "/api/working-hours", bytes.NewBufferString(tc.body))
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestPutSubscriptionBadRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.Default()
	handler := NewHandler(nil, store.Scope{}, nil, nil, nil, nil)
	r.PUT("/api/subscriptions", handler.PutSubscription)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/subscriptions", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
