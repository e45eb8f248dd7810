package store

import (
	"time"

	"predictive-maintenance-backend/internal/model"
)

// Page bounds a list query.
type Page struct {
	Skip  int
	Limit int
}

// MachineUpdate carries the fields of a partial machine update. Nil fields
// are left unchanged.
type MachineUpdate struct {
	Name             *string              `json:"name"`
	Type             *string              `json:"type"`
	Location         *string              `json:"location"`
	InstallationDate *time.Time           `json:"installation_date"`
	Status           *model.MachineStatus `json:"status"`
	LastMaintenance  *time.Time           `json:"last_maintenance"`
}

func (u MachineUpdate) columns() map[string]any {
	cols := make(map[string]any)
	if u.Name != nil {
		cols["name"] = *u.Name
	}
	if u.Type != nil {
		cols["type"] = *u.Type
	}
	if u.Location != nil {
		cols["location"] = *u.Location
	}
	if u.InstallationDate != nil {
		cols["installation_date"] = *u.InstallationDate
	}
	if u.Status != nil {
		cols["status"] = *u.Status
	}
	if u.LastMaintenance != nil {
		cols["last_maintenance"] = *u.LastMaintenance
	}
	return cols
}

// MaintenanceUpdate carries the fields of a partial maintenance record update.
type MaintenanceUpdate struct {
	Date          *time.Time `json:"date"`
	Type          *string    `json:"type"`
	Description   *string    `json:"description"`
	Technician    *string    `json:"technician"`
	PartsReplaced *string    `json:"parts_replaced"`
	Cost          *float64   `json:"cost"`
	DurationHours *float64   `json:"duration_hours"`
}

func (u MaintenanceUpdate) columns() map[string]any {
	cols := make(map[string]any)
	if u.Date != nil {
		cols["date"] = *u.Date
	}
	if u.Type != nil {
		cols["type"] = *u.Type
	}
	if u.Description != nil {
		cols["description"] = *u.Description
	}
	if u.Technician != nil {
		cols["technician"] = *u.Technician
	}
	if u.PartsReplaced != nil {
		cols["parts_replaced"] = *u.PartsReplaced
	}
	if u.Cost != nil {
		cols["cost"] = *u.Cost
	}
	if u.DurationHours != nil {
		cols["duration_hours"] = *u.DurationHours
	}
	return cols
}
