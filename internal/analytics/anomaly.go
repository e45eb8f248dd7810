package analytics

import (
	"time"

	"predictive-maintenance-backend/internal/model"
)

// AnomalyDetail describes a metric whose window exceeded mean + k*std.
type AnomalyDetail struct {
	Detected     bool    `json:"detected"`
	AnomalyScore float64 `json:"anomaly_score"` // percent of window samples above Threshold
	Threshold    float64 `json:"threshold"`
}

// AnomalyReport is the result of scanning a window for outliers.
// Details only contains metrics that were flagged.
type AnomalyReport struct {
	AnomaliesDetected bool                           `json:"anomalies_detected"`
	Details           map[model.Metric]AnomalyDetail `json:"anomaly_details"`
	AnalyzedAt        time.Time                      `json:"analysis_timestamp"`
}

// DetectAnomalies flags each configured metric for which some value in the
// most recent window is strictly greater than mean + AnomalySigma*std.
// readings must be ordered newest first.
func (a *Analyzer) DetectAnomalies(readings []model.SensorReading, now time.Time) (*AnomalyReport, error) {
	if len(readings) == 0 {
		return nil, ErrNoData
	}
	if len(readings) > a.params.AnomalyWindow {
		readings = readings[:a.params.AnomalyWindow]
	}

	report := &AnomalyReport{
		Details:    make(map[model.Metric]AnomalyDetail),
		AnalyzedAt: now,
	}
	for _, m := range a.params.AnomalyMetrics {
		values := a.column(readings, m)
		detail, ok := a.scan(values)
		if !ok {
			continue
		}
		report.Details[m] = detail
	}
	report.AnomaliesDetected = len(report.Details) > 0
	return report, nil
}

// scan applies the threshold rule to one metric's values.
func (a *Analyzer) scan(values []float64) (AnomalyDetail, bool) {
	if len(values) == 0 {
		return AnomalyDetail{}, false
	}
	mean, std := meanStd(values)
	if std == 0 {
		return AnomalyDetail{}, false
	}
	threshold := mean + a.params.AnomalySigma*std

	var above int
	for _, v := range values {
		if v > threshold {
			above++
		}
	}
	if above == 0 {
		return AnomalyDetail{}, false
	}
	return AnomalyDetail{
		Detected:     true,
		AnomalyScore: float64(above) / float64(len(values)) * 100,
		Threshold:    threshold,
	}, true
}
