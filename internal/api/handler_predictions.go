package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"predictive-maintenance-backend/internal/analytics"
	"predictive-maintenance-backend/internal/model"
)

// recent loads the newest window readings of the machine in the :id parameter.
func (h *Handler) recent(c *gin.Context, window int) (int64, []model.SensorReading, bool) {
	id, ok := pathID(c)
	if !ok || !h.requireMachine(c, id) {
		return 0, nil, false
	}
	readings, err := h.store.RecentReadings(c.Request.Context(), id, window)
	if err != nil {
		h.fail(c, err, "")
		return 0, nil, false
	}
	return id, readings, true
}

// predictionWindow covers both the anomaly and the health window so a
// prediction sees at least what the other two routes see.
func predictionWindow(p analytics.Params) int {
	return max(p.AnomalyWindow, p.HealthWindow)
}

// Predict handles GET /api/predictions/:id.
func (h *Handler) Predict(c *gin.Context) {
	id, readings, ok := h.recent(c, predictionWindow(h.analyzers.Get().Params()))
	if !ok {
		return
	}
	p, err := h.predictor.Predict(id, readings, h.now())
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, p)
}

// Anomalies handles GET /api/predictions/:id/anomalies.
func (h *Handler) Anomalies(c *gin.Context) {
	analyzer := h.analyzers.Get()
	id, readings, ok := h.recent(c, analyzer.Params().AnomalyWindow)
	if !ok {
		return
	}
	report, err := analyzer.DetectAnomalies(readings, h.now())
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"machine_id":         id,
		"analysis_timestamp": report.AnalyzedAt,
		"anomalies_detected": report.AnomaliesDetected,
		"anomaly_details":    report.Details,
	})
}

// Health handles GET /api/predictions/:id/health.
func (h *Handler) Health(c *gin.Context) {
	analyzer := h.analyzers.Get()
	id, readings, ok := h.recent(c, analyzer.Params().HealthWindow)
	if !ok {
		return
	}
	report, err := analyzer.ScoreHealth(readings, h.now())
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"machine_id":     id,
		"health_score":   report.Score,
		"health_factors": report.Factors,
		"assessment":     report.Assessment,
		"last_updated":   report.LastUpdated,
	})
}
