package notification

import (
	"fmt"
	"time"

	"predictive-maintenance-backend/internal/model"
)

// Alert announces that a machine entered a warning or critical state.
type Alert struct {
	MachineID   int64               `json:"machine_id"`
	MachineName string              `json:"machine_name"`
	Status      model.MachineStatus `json:"status"`
	Previous    model.MachineStatus `json:"previous_status"`
	Reason      string              `json:"reason"`
	HealthScore *float64            `json:"health_score,omitempty"`
	RaisedAt    time.Time           `json:"raised_at"`
}

// Title is the short line shown in a push notification.
func (a Alert) Title() string {
	label := a.MachineName
	if label == "" {
		label = fmt.Sprintf("#%d", a.MachineID)
	}
	return fmt.Sprintf("Machine %s is %s", label, a.Status)
}

type pushPayload struct {
	Title     string              `json:"title"`
	Body      string              `json:"body"`
	MachineID int64               `json:"machine_id"`
	Status    model.MachineStatus `json:"status"`
}
