package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"predictive-maintenance-backend/internal/analytics"
	"predictive-maintenance-backend/internal/model"
	"predictive-maintenance-backend/internal/parse"
	"predictive-maintenance-backend/internal/store"
)

type createMaintenanceRequest struct {
	MachineID     int64    `json:"machine_id" binding:"required"`
	Date          string   `json:"date"`
	Type          string   `json:"type" binding:"required"`
	Description   string   `json:"description" binding:"required"`
	Technician    *string  `json:"technician"`
	PartsReplaced *string  `json:"parts_replaced"`
	Cost          *float64 `json:"cost"`
	DurationHours *float64 `json:"duration_hours"`
}

type updateMaintenanceRequest struct {
	Date          *string  `json:"date"`
	Type          *string  `json:"type"`
	Description   *string  `json:"description"`
	Technician    *string  `json:"technician"`
	PartsReplaced *string  `json:"parts_replaced"`
	Cost          *float64 `json:"cost"`
	DurationHours *float64 `json:"duration_hours"`
}

// ListMaintenance handles GET /api/maintenance.
func (h *Handler) ListMaintenance(c *gin.Context) {
	skip, err := parse.Skip(c.Query("skip"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit, err := parse.Limit(c.Query("limit"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	records, err := h.store.ListMaintenance(c.Request.Context(), store.Page{Skip: skip, Limit: limit})
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, records)
}

// MachineMaintenance handles GET /api/maintenance/:id where id is a machine.
func (h *Handler) MachineMaintenance(c *gin.Context) {
	id, ok := pathID(c)
	if !ok || !h.requireMachine(c, id) {
		return
	}
	records, err := h.store.MachineMaintenance(c.Request.Context(), id, 0)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, records)
}

// CreateMaintenance handles POST /api/maintenance. The machine's
// last_maintenance is bumped in the same transaction.
func (h *Handler) CreateMaintenance(c *gin.Context) {
	var req createMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	now := h.now()
	date := now
	if req.Date != "" {
		t, err := parse.Time(req.Date)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		date = t
	}

	rec := model.MaintenanceRecord{
		MachineID:     req.MachineID,
		Date:          analytics.Day(date),
		Type:          req.Type,
		Description:   req.Description,
		Technician:    req.Technician,
		PartsReplaced: req.PartsReplaced,
		Cost:          req.Cost,
		DurationHours: req.DurationHours,
	}
	if err := h.store.RecordMaintenance(c.Request.Context(), &rec, now); err != nil {
		h.fail(c, err, "Machine not found")
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// LatestMaintenance handles GET /api/maintenance/:id/latest.
func (h *Handler) LatestMaintenance(c *gin.Context) {
	id, ok := pathID(c)
	if !ok || !h.requireMachine(c, id) {
		return
	}
	rec, err := h.store.LatestMaintenance(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	if rec == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "No maintenance records found for this machine"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// UpdateMaintenance handles PUT /api/maintenance/:id where id is a record.
func (h *Handler) UpdateMaintenance(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u := store.MaintenanceUpdate{
		Type:          req.Type,
		Description:   req.Description,
		Technician:    req.Technician,
		PartsReplaced: req.PartsReplaced,
		Cost:          req.Cost,
		DurationHours: req.DurationHours,
	}
	if req.Date != nil {
		t, err := parse.Time(*req.Date)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		day := analytics.Day(t)
		u.Date = &day
	}

	rec, err := h.store.UpdateMaintenance(c.Request.Context(), id, u, h.now())
	if err != nil {
		h.fail(c, err, "Maintenance record not found")
		return
	}
	c.JSON(http.StatusOK, rec)
}

// DeleteMaintenance handles DELETE /api/maintenance/:id where id is a record.
func (h *Handler) DeleteMaintenance(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.store.DeleteMaintenance(c.Request.Context(), id); err != nil {
		h.fail(c, err, "Maintenance record not found")
		return
	}
	c.Status(http.StatusNoContent)
}

// MaintenanceSchedule handles GET /api/maintenance/:id/schedule.
func (h *Handler) MaintenanceSchedule(c *gin.Context) {
	id, ok := pathID(c)
	if !ok || !h.requireMachine(c, id) {
		return
	}
	ctx := c.Request.Context()
	analyzer := h.analyzers.Get()

	latest, err := h.store.LatestMaintenance(ctx, id)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	recent, err := h.store.MachineMaintenance(ctx, id, analyzer.Params().MaintenanceHistory)
	if err != nil {
		h.fail(c, err, "")
		return
	}

	s := analyzer.PlanMaintenance(latest, recent, h.now())
	c.JSON(http.StatusOK, gin.H{
		"machine_id":           id,
		"last_maintenance":     dateOrNil(s.LastMaintenance),
		"next_scheduled":       dateOrNil(s.NextScheduled),
		"days_until_next":      s.DaysUntilNext,
		"maintenance_history":  s.History,
		"maintenance_interval": s.IntervalDays,
		"recommendation":       s.Recommendation,
	})
}

func dateOrNil(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.DateOnly)
	return &s
}
