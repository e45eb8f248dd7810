package analytics

import (
	"sort"
	"time"

	"predictive-maintenance-backend/internal/model"
)

// Bucket holds per-metric means for readings falling in [Start, Start+interval).
type Bucket struct {
	Start time.Time                `json:"start"`
	Count int                      `json:"count"`
	Means map[model.Metric]float64 `json:"means"`
}

// Resample groups readings into fixed UTC-aligned intervals and averages each
// metric per bucket. Buckets without readings are not emitted. The result is
// ordered oldest first.
func (a *Analyzer) Resample(readings []model.SensorReading, interval time.Duration) ([]Bucket, error) {
	if len(readings) == 0 {
		return nil, ErrNoData
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	grouped := make(map[time.Time][]model.SensorReading)
	for _, r := range readings {
		start := r.Timestamp.UTC().Truncate(interval)
		grouped[start] = append(grouped[start], r)
	}

	buckets := make([]Bucket, 0, len(grouped))
	for start, rs := range grouped {
		b := Bucket{Start: start, Count: len(rs), Means: make(map[model.Metric]float64)}
		for _, m := range model.Metrics {
			values := a.column(rs, m)
			if len(values) == 0 {
				continue
			}
			b.Means[m], _ = meanStd(values)
		}
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Start.Before(buckets[j].Start) })
	return buckets, nil
}

// Features are values derived from a single reading.
type Features struct {
	VibrationToRPM        float64 `json:"vibration_to_rpm_ratio"`
	TemperatureToPressure float64 `json:"temperature_pressure_ratio"`
}

// Derive computes the ratio features of r. A ratio is 0 when its
// denominator is not positive.
func Derive(r model.SensorReading) Features {
	var f Features
	if r.RPM > 0 {
		f.VibrationToRPM = r.Vibration / r.RPM
	}
	if r.Pressure > 0 {
		f.TemperatureToPressure = r.Temperature / r.Pressure
	}
	return f
}
