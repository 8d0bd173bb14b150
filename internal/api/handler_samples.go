package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"geofence-attendance-backend/internal/geo"
)

type postSampleRequest struct {
	Latitude   *float64  `json:"latitude" binding:"required"`
	Longitude  *float64  `json:"longitude" binding:"required"`
	Accuracy   float64   `json:"accuracy"`
	Speed      *float64  `json:"speed"`
	Altitude   *float64  `json:"altitude"`
	Heading    *float64  `json:"heading"`
	CapturedAt time.Time `json:"capturedAt"`
}

// PostSample ingests one location sample from the device layer. Samples are
// queued for the foreground watcher and retained as the latest fix for the
// background runner; they are never persisted.
func (h *Handler) PostSample(c *gin.Context) {
	var req postSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	capturedAt := req.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}

	h.feed.Push(geo.LocationSample{
		Latitude:       *req.Latitude,
		Longitude:      *req.Longitude,
		AccuracyMeters: req.Accuracy,
		SpeedMPS:       req.Speed,
		Altitude:       req.Altitude,
		Heading:        req.Heading,
		CapturedAt:     capturedAt,
	})

	c.Status(http.StatusAccepted)
}
