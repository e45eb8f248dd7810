package api

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"predictive-maintenance-backend/internal/analytics"
	"predictive-maintenance-backend/internal/model"
	"predictive-maintenance-backend/internal/parse"
)

const (
	defaultSpan    = 7 * 24 * time.Hour
	sinkTimeout    = 10 * time.Second
	csvFloatFormat = 'f'
)

type readingFields struct {
	Timestamp   string   `json:"timestamp"`
	Temperature *float64 `json:"temperature" binding:"required"`
	Vibration   *float64 `json:"vibration" binding:"required"`
	Pressure    *float64 `json:"pressure" binding:"required"`
	RPM         *float64 `json:"rpm" binding:"required"`
	Voltage     *float64 `json:"voltage"`
	Current     *float64 `json:"current"`
	NoiseLevel  *float64 `json:"noise_level"`
}

type createReadingRequest struct {
	MachineID int64 `json:"machine_id" binding:"required"`
	readingFields
}

type batchReadingsRequest struct {
	MachineID int64           `json:"machine_id" binding:"required"`
	Readings  []readingFields `json:"readings" binding:"required,min=1,dive"`
}

func (f readingFields) toReading(machineID int64, now time.Time) (model.SensorReading, error) {
	r := model.SensorReading{
		MachineID:   machineID,
		Timestamp:   now,
		Temperature: *f.Temperature,
		Vibration:   *f.Vibration,
		Pressure:    *f.Pressure,
		RPM:         *f.RPM,
		Voltage:     f.Voltage,
		Current:     f.Current,
		NoiseLevel:  f.NoiseLevel,
	}
	if f.Timestamp != "" {
		t, err := parse.Time(f.Timestamp)
		if err != nil {
			return r, err
		}
		r.Timestamp = t
	}
	return r, nil
}

// ListReadings handles GET /api/sensor-data/:id.
func (h *Handler) ListReadings(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	start, end, err := parse.Window(c.Query("start_date"), c.Query("end_date"), h.now(), defaultSpan)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit, err := parse.Limit(c.Query("limit"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.requireMachine(c, id) {
		return
	}

	readings, err := h.store.FetchReadings(c.Request.Context(), id, start, end, limit)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, readings)
}

// LatestReading handles GET /api/sensor-data/:id/latest.
func (h *Handler) LatestReading(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if !h.requireMachine(c, id) {
		return
	}
	r, err := h.store.LatestReading(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "No sensor data found for this machine")
		return
	}
	c.JSON(http.StatusOK, r)
}

// CreateReading handles POST /api/sensor-data.
func (h *Handler) CreateReading(c *gin.Context) {
	var req createReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r, err := req.toReading(req.MachineID, h.now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.requireMachine(c, req.MachineID) {
		return
	}

	readings := []model.SensorReading{r}
	if err := h.ingest(c.Request.Context(), readings); err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusCreated, readings[0])
}

// CreateReadingsBatch handles POST /api/sensor-data/batch.
func (h *Handler) CreateReadingsBatch(c *gin.Context) {
	var req batchReadingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	now := h.now()
	readings := make([]model.SensorReading, 0, len(req.Readings))
	for i, f := range req.Readings {
		r, err := f.toReading(req.MachineID, now)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("readings[%d]: %v", i, err)})
			return
		}
		readings = append(readings, r)
	}
	if !h.requireMachine(c, req.MachineID) {
		return
	}

	if err := h.ingest(c.Request.Context(), readings); err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusCreated, readings)
}

// ingest persists readings, then fans them out to live clients, metrics
// and the mirror sink. Mirror failures are logged only.
func (h *Handler) ingest(ctx context.Context, readings []model.SensorReading) error {
	if err := h.store.CreateReadings(ctx, readings); err != nil {
		return err
	}
	if h.hub != nil {
		h.hub.Publish(readings...)
	}
	if h.metrics != nil {
		h.metrics.ReadingsIngested(len(readings))
	}
	if h.sink != nil {
		mirrored := slices.Clone(readings)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
			defer cancel()
			if err := h.sink.WriteReadings(ctx, mirrored); err != nil {
				log.Printf("Failed to mirror %d readings: %v", len(mirrored), err)
			}
		}()
	}
	return nil
}

// lookback returns the [now-days, now) window of the days query parameter.
func (h *Handler) lookback(c *gin.Context) (time.Time, time.Time, bool) {
	days, err := parse.Days(c.Query("days"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return time.Time{}, time.Time{}, false
	}
	end := h.now()
	return end.AddDate(0, 0, -days), end, true
}

// ReadingStats handles GET /api/sensor-data/:id/stats.
func (h *Handler) ReadingStats(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	start, end, ok := h.lookback(c)
	if !ok || !h.requireMachine(c, id) {
		return
	}

	analyzer := h.analyzers.Get()
	readings, err := h.store.FetchReadings(c.Request.Context(), id, start, end, analyzer.Params().StatsMaxRows)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	summary, err := analyzer.Summarize(readings)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"machine_id":  id,
		"start_date":  start,
		"end_date":    end,
		"data_points": summary.DataPoints,
		"statistics":  summary.Statistics,
	})
}

// AggregateReadings handles GET /api/sensor-data/:id/aggregate.
func (h *Handler) AggregateReadings(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	interval, err := parse.Interval(c.Query("interval"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, end, ok := h.lookback(c)
	if !ok || !h.requireMachine(c, id) {
		return
	}

	analyzer := h.analyzers.Get()
	readings, err := h.store.FetchReadings(c.Request.Context(), id, start, end, analyzer.Params().StatsMaxRows)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	buckets, err := analyzer.Resample(readings, interval)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"machine_id":       id,
		"interval_seconds": int64(interval / time.Second),
		"buckets":          buckets,
	})
}

var csvHeader = []string{
	"timestamp", "machine_id",
	"temperature", "vibration", "pressure", "rpm", "voltage", "current", "noise_level",
	"vibration_to_rpm_ratio", "temperature_pressure_ratio",
}

// ExportReadings handles GET /api/sensor-data/:id/export. Rows are oldest
// first; absent optional metrics are empty cells. At most StatsMaxRows of the
// newest readings in the window are exported.
func (h *Handler) ExportReadings(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	start, end, ok := h.lookback(c)
	if !ok || !h.requireMachine(c, id) {
		return
	}

	readings, err := h.store.FetchReadings(c.Request.Context(), id, start, end, h.analyzers.Get().Params().StatsMaxRows)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	if len(readings) == 0 {
		h.fail(c, analytics.ErrNoData, "")
		return
	}
	slices.Reverse(readings)

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="machine_%d_sensor_data.csv"`, id))
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	w.Write(csvHeader)
	for _, r := range readings {
		w.Write(csvRow(r))
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Printf("CSV export for machine %d aborted: %v", id, err)
	}
}

func csvRow(r model.SensorReading) []string {
	row := make([]string, 0, len(csvHeader))
	row = append(row, r.Timestamp.UTC().Format(time.RFC3339), strconv.FormatInt(r.MachineID, 10))
	for _, m := range model.Metrics {
		if v, ok := r.Value(m); ok {
			row = append(row, strconv.FormatFloat(v, csvFloatFormat, -1, 64))
		} else {
			row = append(row, "")
		}
	}
	f := analytics.Derive(r)
	row = append(row,
		strconv.FormatFloat(f.VibrationToRPM, csvFloatFormat, -1, 64),
		strconv.FormatFloat(f.TemperatureToPressure, csvFloatFormat, -1, 64),
	)
	return row
}
