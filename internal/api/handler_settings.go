package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"geofence-attendance-backend/internal/engine"
	"geofence-attendance-backend/internal/geo"
)

type putGeofenceRequest struct {
	GeofenceID string `json:"geofenceId"`
}

// PutSelectedGeofence switches the tracked geofence. An empty id deselects
// tracking entirely. Switching away from a geofence the user is checked in
// at triggers an implicit check-out inside the engine.
func (h *Handler) PutSelectedGeofence(c *gin.Context) {
	var req putGeofenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var sample *geo.LocationSample
	if s, ok := h.feed.Current(); ok {
		sample = &s
	}

	if err := h.engine.SelectGeofence(c.Request.Context(), req.GeofenceID, sample); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

type putWorkingHoursRequest struct {
	WorkingHours string `json:"workingHours" binding:"required"`
}

// PutWorkingHours stores the user's working hours ("HH:MM-HH:MM"), which
// derive the daily tracking window.
func (h *Handler) PutWorkingHours(c *gin.Context) {
	var req putWorkingHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hours, err := engine.ParseWorkingHours(req.WorkingHours)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.SetWorkingHours(c.Request.Context(), h.scope, hours.String()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}
