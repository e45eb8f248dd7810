package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"predictive-maintenance-backend/internal/model"
	"predictive-maintenance-backend/internal/parse"
	"predictive-maintenance-backend/internal/store"
)

type createMachineRequest struct {
	Name             string `json:"name" binding:"required"`
	Type             string `json:"type" binding:"required"`
	Location         string `json:"location" binding:"required"`
	InstallationDate string `json:"installation_date"`
	Status           string `json:"status"`
}

type updateMachineRequest struct {
	Name            *string `json:"name"`
	Type            *string `json:"type"`
	Location        *string `json:"location"`
	Status          *string `json:"status"`
	LastMaintenance *string `json:"last_maintenance"`
}

// machineStatusResponse is the body of both status routes.
type machineStatusResponse struct {
	MachineID   int64               `json:"machine_id"`
	Status      model.MachineStatus `json:"status"`
	LastUpdated *time.Time          `json:"last_updated"`
}

func statusOf(m *model.Machine) machineStatusResponse {
	return machineStatusResponse{MachineID: m.ID, Status: m.Status, LastUpdated: m.LastMaintenance}
}

// ListMachines handles GET /api/machines.
func (h *Handler) ListMachines(c *gin.Context) {
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

	machines, err := h.store.ListMachines(c.Request.Context(), store.Page{Skip: skip, Limit: limit})
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, machines)
}

// CreateMachine handles POST /api/machines.
func (h *Handler) CreateMachine(c *gin.Context) {
	var req createMachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m := model.Machine{
		Name:             req.Name,
		Type:             req.Type,
		Location:         req.Location,
		InstallationDate: h.now(),
		Status:           model.StatusOperational,
	}
	if req.InstallationDate != "" {
		t, err := parse.Time(req.InstallationDate)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		m.InstallationDate = t
	}
	if req.Status != "" {
		status, err := parse.Status(req.Status)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		m.Status = status
	}

	if err := h.store.CreateMachine(c.Request.Context(), &m); err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusCreated, m)
}

// GetMachine handles GET /api/machines/:id.
func (h *Handler) GetMachine(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	m, err := h.store.GetMachine(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Machine not found")
		return
	}
	c.JSON(http.StatusOK, m)
}

// UpdateMachine handles PUT /api/machines/:id. Only the fields present in
// the body are changed.
func (h *Handler) UpdateMachine(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateMachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u := store.MachineUpdate{Name: req.Name, Type: req.Type, Location: req.Location}
	if req.Status != nil {
		status, err := parse.Status(*req.Status)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		u.Status = &status
	}
	if req.LastMaintenance != nil {
		t, err := parse.Time(*req.LastMaintenance)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		u.LastMaintenance = &t
	}

	ctx := c.Request.Context()
	before, err := h.store.GetMachine(ctx, id)
	if err != nil {
		h.fail(c, err, "Machine not found")
		return
	}
	m, err := h.store.UpdateMachine(ctx, id, u)
	if err != nil {
		h.fail(c, err, "Machine not found")
		return
	}
	h.alertOnEscalation(m, before.Status, fmt.Sprintf("Status set to %s by operator", m.Status))
	c.JSON(http.StatusOK, m)
}

// DeleteMachine handles DELETE /api/machines/:id.
func (h *Handler) DeleteMachine(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.store.DeleteMachine(c.Request.Context(), id); err != nil {
		h.fail(c, err, "Machine not found")
		return
	}
	c.Status(http.StatusNoContent)
}

// GetMachineStatus handles GET /api/machines/:id/status.
func (h *Handler) GetMachineStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	m, err := h.store.GetMachine(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Machine not found")
		return
	}
	c.JSON(http.StatusOK, statusOf(m))
}

// PutMachineStatus handles PUT /api/machines/:id/status?status=.
func (h *Handler) PutMachineStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	status, err := parse.Status(c.Query("status"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	before, err := h.store.GetMachine(ctx, id)
	if err != nil {
		h.fail(c, err, "Machine not found")
		return
	}
	m, err := h.store.SetMachineStatus(ctx, id, status)
	if err != nil {
		h.fail(c, err, "Machine not found")
		return
	}
	h.alertOnEscalation(m, before.Status, fmt.Sprintf("Status set to %s by operator", status))
	c.JSON(http.StatusOK, statusOf(m))
}
