package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"geofence-attendance-backend/internal/model"
)

// Event is one user-facing attendance notification.
type Event struct {
	Kind         string // "arrived" or "left"
	GeofenceID   string
	LocationName string
}

// Key is the dedup key: repeated GPS retriggers of the same directional
// event for the same geofence collapse into one notification per window.
func (e Event) Key() string {
	return e.Kind + ":" + e.GeofenceID
}

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool manages a pool of workers delivering attendance notifications
// to the persisted push subscriptions of one user scope.
type WorkerPool struct {
	size      int
	jobs      chan Event
	db        *gorm.DB
	webpush   *webpush.Options
	sender    NotificationSender
	dedup     *cache.Cache
	namespace string
	userID    string
}

// NewWorkerPool creates a new worker pool. dedupWindow bounds how often the
// same directional event for the same geofence may notify.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options, namespace, userID string, dedupWindow time.Duration) *WorkerPool {
	return &WorkerPool{
		size:      size,
		jobs:      make(chan Event, size),
		db:        db,
		webpush:   webpushOptions,
		sender:    &WebPushSender{},
		dedup:     cache.New(dedupWindow, 2*dedupWindow),
		namespace: namespace,
		userID:    userID,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Notification worker %d started", id)
	for {
		select {
		case ev := <-wp.jobs:
			log.Printf("Notification worker %d processing %s", id, ev.Key())
			wp.deliver(ctx, ev)
		case <-ctx.Done():
			log.Printf("Notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues an event unless its dedup window is still open.
func (wp *WorkerPool) Dispatch(ev Event) {
	if err := wp.dedup.Add(ev.Key(), true, cache.DefaultExpiration); err != nil {
		log.Printf("Notification %s suppressed by dedup window", ev.Key())
		return
	}
	wp.jobs <- ev
}

// Arrived implements engine.Notifier for check-in events.
func (wp *WorkerPool) Arrived(geofenceID, locationName string) {
	wp.Dispatch(Event{Kind: "arrived", GeofenceID: geofenceID, LocationName: locationName})
}

// Left implements engine.Notifier for check-out events.
func (wp *WorkerPool) Left(geofenceID, locationName string) {
	wp.Dispatch(Event{Kind: "left", GeofenceID: geofenceID, LocationName: locationName})
}

// deliver fetches the scope's subscriptions and sends the notification to
// each of them.
func (wp *WorkerPool) deliver(ctx context.Context, ev Event) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Where("namespace = ? AND user_id = ?", wp.namespace, wp.userID).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Error fetching subscriptions for %s: %v", ev.Key(), err)
		return
	}

	if len(subscriptions) == 0 {
		return
	}

	var message string
	switch ev.Kind {
	case "arrived":
		message = fmt.Sprintf("Checked in at %s", ev.LocationName)
	case "left":
		message = fmt.Sprintf("Checked out from %s", ev.LocationName)
	default:
		message = fmt.Sprintf("Attendance update at %s", ev.LocationName)
	}

	log.Printf("Sending %d notifications for %s", len(subscriptions), ev.Key())
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
