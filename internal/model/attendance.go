package model

import (
	"fmt"
	"time"
)

// AttendanceRecord is the persisted attendance snapshot for one user scope.
// It is owned exclusively by the attendance state machine and rewritten after
// every mutation. Invariant: IsCheckedIn implies GeofenceID and CheckInAt are
// set and DayKey equals the local calendar day of CheckInAt.
type AttendanceRecord struct {
	Namespace    string `gorm:"primaryKey;size:128"`
	UserID       string `gorm:"primaryKey;size:128"`
	IsCheckedIn  bool   `gorm:"not null"`
	GeofenceID   string `gorm:"size:128"`
	LocationName string `gorm:"size:256"`
	CheckInAt    *time.Time
	CheckOutAt   *time.Time
	DayKey       string `gorm:"size:16"`
	UpdatedAt    time.Time
}

// DayKey formats a time as the local-calendar day key used for rollover
// detection, e.g. "2024-3-15". No zero padding, matching the stored format.
func DayKey(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d", t.Year(), int(t.Month()), t.Day())
}

// Setting is a namespaced key/value record for user-scoped configuration that
// both execution contexts read: the selected geofence id and working hours.
type Setting struct {
	Namespace string `gorm:"primaryKey;size:128"`
	UserID    string `gorm:"primaryKey;size:128"`
	Name      string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"size:512"`
	UpdatedAt time.Time
}

// Setting names.
const (
	SettingSelectedGeofence = "selectedGeofence"
	SettingWorkingHours     = "workingHours"
)

// CooldownEntry records the last time a directional attendance event fired
// for a geofence. Keys are "enter:<geofenceId>", "leave:<geofenceId>", or
// KeyLastAction for the global lock. Entries are overwritten, never deleted,
// except by the explicit clear operations behind manual checkout.
type CooldownEntry struct {
	Namespace string    `gorm:"primaryKey;size:128"`
	UserID    string    `gorm:"primaryKey;size:128"`
	Key       string    `gorm:"primaryKey;size:160"`
	FiredAt   time.Time `gorm:"not null"`
}

// KeyLastAction is the ledger key of the global lock covering any check-in
// or check-out, regardless of direction or geofence.
const KeyLastAction = "lastAction"

// EnterKey returns the cooldown ledger key for check-in at a geofence.
func EnterKey(geofenceID string) string { return "enter:" + geofenceID }

// LeaveKey returns the cooldown ledger key for check-out at a geofence.
func LeaveKey(geofenceID string) string { return "leave:" + geofenceID }
