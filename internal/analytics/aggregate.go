package analytics

import (
	"errors"
	"math"
	"sort"

	"predictive-maintenance-backend/internal/model"
)

// ErrNoData is returned when a reading window is empty.
var ErrNoData = errors.New("no sensor data in window")

// Stats summarises one metric over a reading window.
// Std is the sample standard deviation (n-1 divisor), 0 for a single value.
type Stats struct {
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Std    float64 `json:"std"`
	Median float64 `json:"median"`
	Count  int     `json:"count"`
}

// Summary is the result of aggregating a reading window.
type Summary struct {
	DataPoints int                   `json:"data_points"`
	Statistics map[model.Metric]Stats `json:"statistics"`
}

// Summarize computes descriptive statistics for every metric present in
// readings. Metrics with no reported value are left out of the result.
func (a *Analyzer) Summarize(readings []model.SensorReading) (*Summary, error) {
	if len(readings) == 0 {
		return nil, ErrNoData
	}
	if len(readings) > a.params.StatsMaxRows {
		readings = readings[:a.params.StatsMaxRows]
	}

	stats := make(map[model.Metric]Stats, len(model.Metrics))
	for _, m := range model.Metrics {
		values := a.column(readings, m)
		if len(values) == 0 {
			continue
		}
		stats[m] = describe(values)
	}
	return &Summary{DataPoints: len(readings), Statistics: stats}, nil
}

// column extracts the values of m. Absent optional values are skipped
// unless ZeroFillMissing is set, in which case they count as 0.
func (a *Analyzer) column(readings []model.SensorReading, m model.Metric) []float64 {
	values := make([]float64, 0, len(readings))
	for _, r := range readings {
		v, ok := r.Value(m)
		if !ok {
			if !a.params.ZeroFillMissing {
				continue
			}
			v = 0
		}
		values = append(values, v)
	}
	return values
}

func describe(values []float64) Stats {
	s := Stats{
		Min:   math.Inf(1),
		Max:   math.Inf(-1),
		Count: len(values),
	}
	for _, v := range values {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean, s.Std = meanStd(values)
	// rounding must not push the mean outside the observed range
	s.Mean = math.Max(s.Min, math.Min(s.Max, s.Mean))
	s.Median = median(values)
	return s
}

// meanStd returns the mean and sample standard deviation of values using
// Welford's update, so a constant series yields exactly its value and 0.
func meanStd(values []float64) (float64, float64) {
	var mean, m2 float64
	for i, v := range values {
		d := v - mean
		mean += d / float64(i+1)
		m2 += d * (v - mean)
	}
	if len(values) < 2 {
		return mean, 0
	}
	return mean, math.Sqrt(m2 / float64(len(values)-1))
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
