package notification

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestWorkerPool_Dispatch(t *testing.T) {
	db, _ := newTestDB(t)
	wp := NewWorkerPool(1, db, &webpush.Options{}, "prod", "u1", 2*time.Minute)

	wp.Dispatch(Event{Kind: "arrived", GeofenceID: "hq", LocationName: "Headquarters"})

	select {
	case job := <-wp.jobs:
		assert.Equal(t, "arrived:hq", job.Key())
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_DedupWindow(t *testing.T) {
	db, _ := newTestDB(t)
	wp := NewWorkerPool(4, db, &webpush.Options{}, "prod", "u1", 2*time.Minute)

	// A GPS retrigger of the same directional event within the window is
	// suppressed; the opposite direction is not.
	wp.Arrived("hq", "Headquarters")
	wp.Arrived("hq", "Headquarters")
	wp.Left("hq", "Headquarters")

	assert.Len(t, wp.jobs, 2)
	first := <-wp.jobs
	second := <-wp.jobs
	assert.Equal(t, "arrived:hq", first.Key())
	assert.Equal(t, "left:hq", second.Key())
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	subscriptionQuery := regexp.QuoteMeta(`SELECT * FROM "push_subscriptions" WHERE namespace = $1 AND user_id = $2`)

	t.Run("sends notification for one subscription", func(t *testing.T) {
		gormDB, mock := newTestDB(t)
		wp := NewWorkerPool(1, gormDB, &webpush.Options{}, "prod", "u1", 2*time.Minute)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		wp.Start(ctx)

		var wg sync.WaitGroup
		wg.Add(1)

		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				assert.Equal(t, "https://example.com/push", sub.Endpoint)
				assert.Equal(t, "Checked in at Headquarters", string(payload))
				wg.Done()
				return &http.Response{
					StatusCode: http.StatusCreated,
					Body:       io.NopCloser(bytes.NewBufferString("")),
				}, nil
			},
		}

		mock.ExpectQuery(subscriptionQuery).
			WithArgs("prod", "u1").
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "namespace", "user_id", "p256dh", "auth", "created_at"}).
				AddRow("https://example.com/push", "prod", "u1", "test_p256dh", "test_auth", time.Now()))

		wp.Dispatch(Event{Kind: "arrived", GeofenceID: "hq", LocationName: "Headquarters"})
		wg.Wait()
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deletes expired subscription", func(t *testing.T) {
		gormDB, mock := newTestDB(t)
		wp := NewWorkerPool(1, gormDB, &webpush.Options{}, "prod", "u1", 2*time.Minute)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		wp.Start(ctx)

		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				return &http.Response{
					StatusCode: http.StatusGone,
					Body:       io.NopCloser(bytes.NewBufferString("")),
				}, nil
			},
		}

		mock.ExpectQuery(subscriptionQuery).
			WithArgs("prod", "u1").
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "namespace", "user_id", "p256dh", "auth", "created_at"}).
				AddRow("https://example.com/expired", "prod", "u1", "test_p256dh", "test_auth", time.Now()))

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "push_subscriptions" WHERE "push_subscriptions"."endpoint" = $1`)).
			WithArgs("https://example.com/expired").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		wp.Dispatch(Event{Kind: "left", GeofenceID: "hq", LocationName: "Headquarters"})

		// A short sleep to allow the worker to process the job
		time.Sleep(100 * time.Millisecond)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
