package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"geofence-attendance-backend/config"
	"geofence-attendance-backend/internal/geo"
)

// ErrNoActiveEntry is returned by StopTime when the server reports there is
// no running time-tracking entry. Callers treat it as a tolerated condition,
// not a failure.
var ErrNoActiveEntry = errors.New("no active time entry")

// API is the remote attendance backend surface the engine depends on.
type API interface {
	Geofences(ctx context.Context) ([]geo.Geofence, error)
	CheckIn(ctx context.Context, req CheckInRequest) (*CheckInResponse, error)
	CheckOut(ctx context.Context, req CheckOutRequest) error
	Current(ctx context.Context) (*CurrentAttendance, error)
	StopTime(ctx context.Context, notes string) error
	BindDevice(ctx context.Context, info DeviceInfo) error
}

// Client is a bearer-token JSON client for the attendance backend. The HTTP
// client timeout is the only bound on in-flight call latency.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a client from the remote configuration.
func NewClient(cfg *config.RemoteConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.AuthToken,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Geofences fetches the geofence listing.
func (c *Client) Geofences(ctx context.Context) ([]geo.Geofence, error) {
	var list geofenceList
	if err := c.do(ctx, http.MethodGet, "/api/locations/geofences", nil, &list); err != nil {
		return nil, err
	}
	return list.Geofences, nil
}

// CheckIn records a check-in at a geofence.
func (c *Client) CheckIn(ctx context.Context, req CheckInRequest) (*CheckInResponse, error) {
	var resp CheckInResponse
	if err := c.do(ctx, http.MethodPost, "/api/employees/attendance/checkin", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CheckOut records a check-out from a geofence.
func (c *Client) CheckOut(ctx context.Context, req CheckOutRequest) error {
	return c.do(ctx, http.MethodPost, "/api/employees/attendance/checkout", req, nil)
}

// Current fetches the server's authoritative attendance view.
func (c *Client) Current(ctx context.Context) (*CurrentAttendance, error) {
	var resp CurrentAttendance
	if err := c.do(ctx, http.MethodGet, "/api/employees/attendance/current", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StopTime stops any running time-tracking entry. A 404 or an explicit
// "no active entry" message maps to ErrNoActiveEntry.
func (c *Client) StopTime(ctx context.Context, notes string) error {
	body := map[string]string{"notes": notes}
	err := c.do(ctx, http.MethodPost, "/api/time/stop", body, nil)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && (se.code == http.StatusNotFound || strings.Contains(strings.ToLower(se.body), "no active entry")) {
			return ErrNoActiveEntry
		}
		return err
	}
	return nil
}

// BindDevice registers device metadata with the backend.
func (c *Client) BindDevice(ctx context.Context, info DeviceInfo) error {
	return c.do(ctx, http.MethodPost, "/api/devices/bind", info, nil)
}

// statusError carries a non-2xx response for callers that need to
// distinguish tolerated statuses.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("received non-2xx status code: %d", e.code)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var reqBody io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request payload: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &statusError{code: resp.StatusCode, body: string(body)}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

// Timestamp formats a sample capture time the way the backend expects.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
