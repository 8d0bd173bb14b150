package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetGeofences proxies the remote geofence listing. The route sits behind
// the response cache so polling devices do not hammer the backend.
func (h *Handler) GetGeofences(c *gin.Context) {
	geofences, err := h.remote.Geofences(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch geofences"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"geofences": geofences})
}
