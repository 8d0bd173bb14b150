package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// statusResponse is the flattened attendance view for the device layer.
type statusResponse struct {
	IsCheckedIn      bool       `json:"isCheckedIn"`
	GeofenceID       string     `json:"geofenceId,omitempty"`
	LocationName     string     `json:"locationName,omitempty"`
	CheckInAt        *time.Time `json:"checkInAt,omitempty"`
	CheckOutAt       *time.Time `json:"checkOutAt,omitempty"`
	DayKey           string     `json:"dayKey"`
	SelectedGeofence string     `json:"selectedGeofence,omitempty"`
	WorkingHours     string     `json:"workingHours,omitempty"`
}

// GetStatus handles the GET /api/status request. Reading through the engine
// applies the day-rollover reset, so a stale snapshot never leaks out.
func (h *Handler) GetStatus(c *gin.Context) {
	snap, err := h.engine.Snapshot(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load attendance state"})
		return
	}

	selected, err := h.store.SelectedGeofence(c.Request.Context(), h.scope)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load selected geofence"})
		return
	}
	hours, err := h.store.WorkingHours(c.Request.Context(), h.scope)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load working hours"})
		return
	}

	c.JSON(http.StatusOK, statusResponse{
		IsCheckedIn:      snap.IsCheckedIn,
		GeofenceID:       snap.GeofenceID,
		LocationName:     snap.LocationName,
		CheckInAt:        snap.CheckInAt,
		CheckOutAt:       snap.CheckOutAt,
		DayKey:           snap.DayKey,
		SelectedGeofence: selected,
		WorkingHours:     hours,
	})
}
