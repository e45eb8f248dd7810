package model

import "time"

// MachineStatus is the operational state of a monitored machine.
type MachineStatus string

const (
	StatusOperational MachineStatus = "operational"
	StatusMaintenance MachineStatus = "maintenance"
	StatusWarning     MachineStatus = "warning"
	StatusCritical    MachineStatus = "critical"
)

// Statuses lists every valid machine status in display order.
var Statuses = []MachineStatus{StatusOperational, StatusMaintenance, StatusWarning, StatusCritical}

// Valid reports whether s is one of the known statuses.
func (s MachineStatus) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Alerting reports whether entering s should notify subscribers.
func (s MachineStatus) Alerting() bool {
	return s == StatusWarning || s == StatusCritical
}

// Machine represents a monitored piece of equipment.
type Machine struct {
	ID               int64         `gorm:"primaryKey" json:"id"`
	Name             string        `gorm:"size:128;not null;index" json:"name"`
	Type             string        `gorm:"size:64" json:"type"`
	Location         string        `gorm:"size:128" json:"location"`
	InstallationDate time.Time     `gorm:"not null" json:"installation_date"`
	Status           MachineStatus `gorm:"size:16;not null;default:operational;index" json:"status"`
	LastMaintenance  *time.Time    `json:"last_maintenance"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`

	// Associations
	Readings           []SensorReading     `gorm:"foreignKey:MachineID;constraint:OnDelete:CASCADE" json:"-"`
	MaintenanceRecords []MaintenanceRecord `gorm:"foreignKey:MachineID;constraint:OnDelete:CASCADE" json:"-"`
}

// Severity orders alerting statuses: operational and maintenance are 0,
// warning 1, critical 2.
func (s MachineStatus) Severity() int {
	switch s {
	case StatusWarning:
		return 1
	case StatusCritical:
		return 2
	default:
		return 0
	}
}
