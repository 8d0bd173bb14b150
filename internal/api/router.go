package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"geofence-attendance-backend/config"
	"geofence-attendance-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router for the control/ingest
// API.
func NewRouter(cfg *config.ServerConfig, handler *Handler) *gin.Engine {
	r := gin.Default()

	limit := rate.Limit(cfg.RateLimitPerSec)
	if limit <= 0 {
		limit = rate.Limit(10)
	}
	rateLimiter := mw.RateLimiter(limit, 5)

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/samples", handler.PostSample)
		api.GET("/status", handler.GetStatus)
		api.GET("/geofences", caching, handler.GetGeofences)

		api.POST("/attendance/checkout", handler.PostManualCheckout)
		api.POST("/attendance/verify", handler.PostVerify)

		api.PUT("/geofence", handler.PutSelectedGeofence)
		api.PUT("/working-hours", handler.PutWorkingHours)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
