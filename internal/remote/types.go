package remote

import "geofence-attendance-backend/internal/geo"

// DeviceInfo is the device metadata sent with check-ins and device binding.
type DeviceInfo struct {
	DeviceID   string `json:"deviceId"`
	Platform   string `json:"platform"`
	AppVersion string `json:"appVersion"`
}

// CheckInRequest is the body of POST /api/employees/attendance/checkin.
type CheckInRequest struct {
	LocationID   string     `json:"locationId"`
	LocationName string     `json:"locationName"`
	Latitude     float64    `json:"latitude"`
	Longitude    float64    `json:"longitude"`
	Timestamp    string     `json:"timestamp"`
	Accuracy     float64    `json:"accuracy"`
	DeviceInfo   DeviceInfo `json:"deviceInfo"`
	Speed        *float64   `json:"speed,omitempty"`
	Altitude     *float64   `json:"altitude,omitempty"`
	Heading      *float64   `json:"heading,omitempty"`
}

// CheckInResponse is the attendance record returned by a check-in.
type CheckInResponse struct {
	Success          bool   `json:"success"`
	AttendanceID     string `json:"attendanceId"`
	ValidationStatus string `json:"validationStatus"`
}

// CheckOutRequest is the body of POST /api/employees/attendance/checkout.
type CheckOutRequest struct {
	LocationID string     `json:"locationId"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	Timestamp  string     `json:"timestamp"`
	Accuracy   float64    `json:"accuracy"`
	DeviceInfo DeviceInfo `json:"deviceInfo"`
}

// CurrentAttendance is the authoritative server view used for
// reconciliation. The server always wins a conflict.
type CurrentAttendance struct {
	Success     bool `json:"success"`
	IsCheckedIn bool `json:"isCheckedIn"`
}

// geofenceList is the body of GET /api/locations/geofences.
type geofenceList struct {
	Geofences []geo.Geofence `json:"geofences"`
}
