package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"geofence-attendance-backend/internal/engine"
	"geofence-attendance-backend/internal/remote"
	"geofence-attendance-backend/internal/sampler"
	"geofence-attendance-backend/internal/store"
)

// Handler holds shared dependencies for API handlers. The engine here is the
// foreground instance; the background runner is never driven over HTTP.
type Handler struct {
	store   store.Store
	scope   store.Scope
	engine  *engine.Engine
	feed    *sampler.Feed
	remote  remote.API
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, scope store.Scope, eng *engine.Engine, feed *sampler.Feed, api remote.API, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:   s,
		scope:   scope,
		engine:  eng,
		feed:    feed,
		remote:  api,
		webpush: webpushOptions,
	}
}
