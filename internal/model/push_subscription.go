package model

import "time"

// PushSubscription is a browser endpoint that receives machine status alerts.
type PushSubscription struct {
	Endpoint     string    `gorm:"primaryKey"`
	P256DH       string    `gorm:"column:p256dh;not null"`
	Auth         string    `gorm:"not null"`
	CriticalOnly bool      `gorm:"not null;default:false"` // skip warning-level alerts
	CreatedAt    time.Time `gorm:"not null"`

	Machines []*Machine `gorm:"many2many:subscription_machine_mapping;"`
}
