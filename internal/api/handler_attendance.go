package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"geofence-attendance-backend/internal/engine"
	"geofence-attendance-backend/internal/geo"
)

// PostManualCheckout handles the user-invoked check-out. Cooldowns from
// automatic tracking never block it; the engine clears them first.
func (h *Handler) PostManualCheckout(c *gin.Context) {
	var sample *geo.LocationSample
	if s, ok := h.feed.Current(); ok {
		sample = &s
	}

	err := h.engine.ManualCheckout(c.Request.Context(), sample)
	if errors.Is(err, engine.ErrNotCheckedIn) {
		c.JSON(http.StatusConflict, gin.H{"error": "not checked in"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

// PostVerify reconciles local state against the server's authoritative view.
// The device layer calls this on app foregrounding.
func (h *Handler) PostVerify(c *gin.Context) {
	if err := h.engine.Verify(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
