package analytics

import (
	"sync/atomic"

	"predictive-maintenance-backend/internal/model"
)

// Penalty is a linear health penalty for one metric:
// score = clamp(100 - max(0, mean-Baseline)*Slope, 0, 100).
type Penalty struct {
	Metric   model.Metric
	Baseline float64
	Slope    float64
}

// Params is the fixed configuration the analytics functions run with.
type Params struct {
	AnomalySigma        float64
	AnomalyWindow       int
	AnomalyMetrics      []model.Metric
	HealthWindow        int
	HealthPenalties     []Penalty
	DefaultHealthScore  float64
	MaintenanceInterval int // days
	MaintenanceHistory  int
	StatsMaxRows        int
	ZeroFillMissing     bool
}

// DefaultParams returns the reference configuration.
func DefaultParams() Params {
	return Params{
		AnomalySigma:   2,
		AnomalyWindow:  100,
		AnomalyMetrics: []model.Metric{model.MetricTemperature, model.MetricVibration},
		HealthWindow:   100,
		HealthPenalties: []Penalty{
			{Metric: model.MetricTemperature, Baseline: 50, Slope: 2},
			{Metric: model.MetricVibration, Baseline: 0, Slope: 10},
		},
		DefaultHealthScore:  80,
		MaintenanceInterval: 90,
		MaintenanceHistory:  5,
		StatsMaxRows:        10000,
	}
}

// Analyzer runs the statistics, anomaly, health and schedule computations
// with one immutable parameter set. It holds no other state.
type Analyzer struct {
	params Params
}

// New creates an Analyzer. Zero-valued fields fall back to DefaultParams.
func New(p Params) *Analyzer {
	d := DefaultParams()
	if p.AnomalySigma <= 0 {
		p.AnomalySigma = d.AnomalySigma
	}
	if p.AnomalyWindow <= 0 {
		p.AnomalyWindow = d.AnomalyWindow
	}
	if len(p.AnomalyMetrics) == 0 {
		p.AnomalyMetrics = d.AnomalyMetrics
	}
	if p.HealthWindow <= 0 {
		p.HealthWindow = d.HealthWindow
	}
	if len(p.HealthPenalties) == 0 {
		p.HealthPenalties = d.HealthPenalties
	}
	if p.DefaultHealthScore <= 0 {
		p.DefaultHealthScore = d.DefaultHealthScore
	}
	if p.MaintenanceInterval <= 0 {
		p.MaintenanceInterval = d.MaintenanceInterval
	}
	if p.MaintenanceHistory <= 0 {
		p.MaintenanceHistory = d.MaintenanceHistory
	}
	if p.StatsMaxRows <= 0 {
		p.StatsMaxRows = d.StatsMaxRows
	}
	return &Analyzer{params: p}
}

// Params returns a copy of the analyzer's parameters.
func (a *Analyzer) Params() Params {
	return a.params
}

// Holder publishes the active Analyzer to concurrent readers so a config
// reload can swap parameters without tearing in-flight computations.
type Holder struct {
	v atomic.Pointer[Analyzer]
}

// NewHolder creates a Holder seeded with a.
func NewHolder(a *Analyzer) *Holder {
	h := &Holder{}
	h.v.Store(a)
	return h
}

// Get returns the current Analyzer.
func (h *Holder) Get() *Analyzer {
	return h.v.Load()
}

// Set replaces the current Analyzer.
func (h *Holder) Set(a *Analyzer) {
	h.v.Store(a)
}
