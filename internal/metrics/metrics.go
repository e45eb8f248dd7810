// Package metrics exposes service counters in the Prometheus text format.
package metrics

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"predictive-maintenance-backend/internal/model"
)

// StatusCounter reports how many machines are in each status.
type StatusCounter func(ctx context.Context) (map[model.MachineStatus]int64, error)

// Registry holds the process-wide counters.
type Registry struct {
	readings    atomic.Int64
	sweeps      atomic.Int64
	transitions atomic.Int64

	mu     sync.Mutex
	alerts map[[2]string]int64 // {channel, result}

	statuses StatusCounter
}

// New creates a Registry. statuses may be nil.
func New(statuses StatusCounter) *Registry {
	return &Registry{alerts: make(map[[2]string]int64), statuses: statuses}
}

// ReadingsIngested adds n to the ingested readings counter.
func (r *Registry) ReadingsIngested(n int) {
	r.readings.Add(int64(n))
}

// SweepCompleted records one monitor sweep and the status changes it made.
func (r *Registry) SweepCompleted(transitions int) {
	r.sweeps.Add(1)
	r.transitions.Add(int64(transitions))
}

// AlertDelivered counts one alert delivery attempt.
func (r *Registry) AlertDelivered(channel string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.mu.Lock()
	r.alerts[[2]string{channel, result}]++
	r.mu.Unlock()
}

// Gather snapshots every metric family.
func (r *Registry) Gather(ctx context.Context) []*dto.MetricFamily {
	families := []*dto.MetricFamily{
		counter("maintd_readings_ingested_total", "Sensor readings stored.", float64(r.readings.Load())),
		counter("maintd_monitor_sweeps_total", "Completed health monitor sweeps.", float64(r.sweeps.Load())),
		counter("maintd_monitor_status_changes_total", "Machine status changes made by the health monitor.", float64(r.transitions.Load())),
	}
	// The text format rejects families without samples.
	if alerts := r.alertFamily(); len(alerts.Metric) > 0 {
		families = append(families, alerts)
	}

	if r.statuses != nil {
		counts, err := r.statuses(ctx)
		if err != nil {
			log.Printf("metrics: counting machines: %v", err)
		} else {
			families = append(families, statusFamily(counts))
		}
	}
	return families
}

// Handler serves the text exposition format.
func (r *Registry) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var buf bytes.Buffer
		for _, mf := range r.Gather(c.Request.Context()) {
			if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		}
		c.Data(http.StatusOK, string(expfmt.NewFormat(expfmt.TypeTextPlain)), buf.Bytes())
	}
}

func (r *Registry) alertFamily() *dto.MetricFamily {
	r.mu.Lock()
	keys := make([][2]string, 0, len(r.alerts))
	for k := range r.alerts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	metrics := make([]*dto.Metric, 0, len(keys))
	for _, k := range keys {
		metrics = append(metrics, &dto.Metric{
			Label:   []*dto.LabelPair{label("channel", k[0]), label("result", k[1])},
			Counter: &dto.Counter{Value: proto.Float64(float64(r.alerts[k]))},
		})
	}
	r.mu.Unlock()

	return &dto.MetricFamily{
		Name:   proto.String("maintd_alerts_delivered_total"),
		Help:   proto.String("Alert delivery attempts by channel and result."),
		Type:   dto.MetricType_COUNTER.Enum(),
		Metric: metrics,
	}
}

func statusFamily(counts map[model.MachineStatus]int64) *dto.MetricFamily {
	metrics := make([]*dto.Metric, 0, len(model.Statuses))
	for _, s := range model.Statuses {
		metrics = append(metrics, &dto.Metric{
			Label: []*dto.LabelPair{label("status", string(s))},
			Gauge: &dto.Gauge{Value: proto.Float64(float64(counts[s]))},
		})
	}
	return &dto.MetricFamily{
		Name:   proto.String("maintd_machines"),
		Help:   proto.String("Machines by current status."),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: metrics,
	}
}

func counter(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{{Counter: &dto.Counter{Value: proto.Float64(v)}}},
	}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: proto.String(name), Value: proto.String(value)}
}
