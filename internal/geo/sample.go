package geo

import "time"

// LocationSample is one reading from the device's positioning service. It is
// ephemeral: samples drive state derivation and are never persisted.
type LocationSample struct {
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	AccuracyMeters float64   `json:"accuracy"`
	SpeedMPS       *float64  `json:"speed,omitempty"`
	Altitude       *float64  `json:"altitude,omitempty"`
	Heading        *float64  `json:"heading,omitempty"`
	CapturedAt     time.Time `json:"capturedAt"`
}

// SampleFilter rejects samples that cannot plausibly represent someone
// walking into a geofence: poor GPS accuracy, or vehicle-grade speed.
// Filtering is stateless and applied independently in each execution context.
type SampleFilter struct {
	MaxAccuracyMeters float64
	MaxSpeedMPS       float64
}

// Accept reports whether the sample should update attendance state.
func (f SampleFilter) Accept(s LocationSample) bool {
	if s.AccuracyMeters > f.MaxAccuracyMeters {
		return false
	}
	if s.SpeedMPS != nil && *s.SpeedMPS > f.MaxSpeedMPS {
		return false
	}
	return true
}
