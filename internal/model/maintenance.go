package model

import "time"

// MaintenanceRecord logs one maintenance event performed on a machine.
type MaintenanceRecord struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	MachineID     int64     `gorm:"not null;index" json:"machine_id"`
	Date          time.Time `gorm:"not null;index" json:"date"` // UTC midnight
	Type          string    `gorm:"size:32;not null" json:"type"`
	Description   string    `gorm:"type:text" json:"description"`
	Technician    *string   `gorm:"size:128" json:"technician"`
	PartsReplaced *string   `gorm:"type:text" json:"parts_replaced"`
	Cost          *float64  `json:"cost"`
	DurationHours *float64  `json:"duration_hours"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName keeps the table name singular like the maintenance log it models.
func (MaintenanceRecord) TableName() string {
	return "maintenance"
}
