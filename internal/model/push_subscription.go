package model

import "time"

// PushSubscription holds the information for a browser push subscription
// that receives arrived/left attendance notifications for one user scope.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	Namespace string    `gorm:"index;size:128"`
	UserID    string    `gorm:"index;size:128"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}
