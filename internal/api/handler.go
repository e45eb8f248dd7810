package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"predictive-maintenance-backend/internal/analytics"
	"predictive-maintenance-backend/internal/live"
	"predictive-maintenance-backend/internal/metrics"
	"predictive-maintenance-backend/internal/model"
	"predictive-maintenance-backend/internal/mw"
	"predictive-maintenance-backend/internal/notification"
	"predictive-maintenance-backend/internal/predict"
	"predictive-maintenance-backend/internal/store"
)

// Dispatcher queues alerts for delivery.
type Dispatcher interface {
	Dispatch(alert notification.Alert) bool
}

// ReadingSink mirrors ingested readings to a secondary store.
type ReadingSink interface {
	WriteReadings(ctx context.Context, readings []model.SensorReading) error
}

// Options carries the optional collaborators of a Handler. Nil fields
// disable the corresponding feature.
type Options struct {
	Analyzers *analytics.Holder
	Predictor *predict.Predictor
	Alerts    Dispatcher
	Hub       *live.Hub
	Sink      ReadingSink
	Metrics   *metrics.Registry
	WebPush   *webpush.Options
	// Cache is shared with writers outside the API, such as the health
	// monitor. NewRouter creates one when it is nil.
	Cache *mw.ResponseCache
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	analyzers *analytics.Holder
	predictor *predict.Predictor
	alerts    Dispatcher
	hub       *live.Hub
	sink      ReadingSink
	metrics   *metrics.Registry
	webpush   *webpush.Options
	now       func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, opts Options) *Handler {
	h := &Handler{
		store:     s,
		analyzers: opts.Analyzers,
		predictor: opts.Predictor,
		alerts:    opts.Alerts,
		hub:       opts.Hub,
		sink:      opts.Sink,
		metrics:   opts.Metrics,
		webpush:   opts.WebPush,
		now:       func() time.Time { return time.Now().UTC() },
	}
	if h.analyzers == nil {
		h.analyzers = analytics.NewHolder(analytics.New(analytics.DefaultParams()))
	}
	if h.predictor == nil {
		h.predictor = &predict.Predictor{}
	}
	return h
}

// Root is the liveness probe.
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "online", "message": "Predictive Maintenance API is running"})
}

// pathID parses the :id route parameter, answering 400 when it is invalid.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return id, true
}

// requireMachine answers 404 unless the machine exists.
func (h *Handler) requireMachine(c *gin.Context, id int64) bool {
	ok, err := h.store.MachineExists(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "")
		return false
	}
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Machine not found"})
		return false
	}
	return true
}

// fail translates an error into a JSON response. notFound is the message
// used for store.ErrNotFound.
func (h *Handler) fail(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": notFound})
	case errors.Is(err, analytics.ErrNoData):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "No sensor data found for this machine"})
	case errors.Is(err, predict.ErrNoModel):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "no prediction model is loaded"})
	default:
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// alertOnEscalation dispatches an alert when a status change raises severity.
func (h *Handler) alertOnEscalation(m *model.Machine, previous model.MachineStatus, reason string) {
	if h.alerts == nil || m.Status.Severity() <= previous.Severity() {
		return
	}
	h.alerts.Dispatch(notification.Alert{
		MachineID:   m.ID,
		MachineName: m.Name,
		Status:      m.Status,
		Previous:    previous,
		Reason:      reason,
		RaisedAt:    h.now(),
	})
}
