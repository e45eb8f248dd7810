package analytics

import (
	"math"
	"time"

	"predictive-maintenance-backend/internal/model"
)

// Assessment labels for health scores.
const (
	AssessmentExcellent = "Excellent"
	AssessmentGood      = "Good"
	AssessmentFair      = "Fair"
	AssessmentPoor      = "Poor"
	AssessmentCritical  = "Critical"
)

// HealthReport is the composite health of a machine over a reading window.
type HealthReport struct {
	Score       float64                  `json:"health_score"`
	Factors     map[model.Metric]float64 `json:"health_factors"`
	Assessment  string                   `json:"assessment"`
	LastUpdated time.Time                `json:"last_updated"`
}

// ScoreHealth applies each configured penalty to the window mean of its
// metric and averages the results. If no metric could be scored the
// configured default score is returned.
func (a *Analyzer) ScoreHealth(readings []model.SensorReading, now time.Time) (*HealthReport, error) {
	if len(readings) == 0 {
		return nil, ErrNoData
	}
	if len(readings) > a.params.HealthWindow {
		readings = readings[:a.params.HealthWindow]
	}

	report := &HealthReport{
		Factors:     make(map[model.Metric]float64, len(a.params.HealthPenalties)),
		LastUpdated: now,
	}
	var total float64
	for _, p := range a.params.HealthPenalties {
		values := a.column(readings, p.Metric)
		if len(values) == 0 {
			continue
		}
		mean, _ := meanStd(values)
		score := p.Apply(mean)
		report.Factors[p.Metric] = score
		total += score
	}

	if len(report.Factors) == 0 {
		report.Score = a.params.DefaultHealthScore
	} else {
		report.Score = total / float64(len(report.Factors))
	}
	report.Assessment = Assess(report.Score)
	return report, nil
}

// Apply maps a window mean to a [0,100] score.
func (p Penalty) Apply(mean float64) float64 {
	return clamp(100-math.Max(0, mean-p.Baseline)*p.Slope, 0, 100)
}

// Assess maps a health score to its label. Each band includes its lower bound.
func Assess(score float64) string {
	switch {
	case score >= 90:
		return AssessmentExcellent
	case score >= 70:
		return AssessmentGood
	case score >= 50:
		return AssessmentFair
	case score >= 30:
		return AssessmentPoor
	default:
		return AssessmentCritical
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
