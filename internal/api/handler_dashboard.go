package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// DashboardSummary handles GET /api/dashboard/summary.
func (h *Handler) DashboardSummary(c *gin.Context) {
	ctx := c.Request.Context()
	counts, err := h.store.CountMachinesByStatus(ctx)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	now := h.now()
	readings, err := h.store.CountReadingsSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		h.fail(c, err, "")
		return
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	live := 0
	if h.hub != nil {
		live = h.hub.Count()
	}
	c.JSON(http.StatusOK, gin.H{
		"total_machines":     total,
		"machines_by_status": counts,
		"readings_last_24h":  readings,
		"model_loaded":       h.predictor.Loaded(),
		"live_clients":       live,
		"generated_at":       now,
	})
}
