// Package predict scores failure likelihood from recent sensor readings with
// a logistic model loaded from a YAML artifact. When no artifact is present
// the Predictor reports ErrNoModel instead of producing a probability.
package predict

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"predictive-maintenance-backend/internal/analytics"
	"predictive-maintenance-backend/internal/model"
)

// ErrNoModel is returned by Predict when no model artifact was loaded.
var ErrNoModel = errors.New("no prediction model loaded")

// DefaultFeatures is the feature order used when an artifact does not list one.
var DefaultFeatures = []string{"temperature", "vibration", "pressure", "rpm", "voltage", "current", "noise_level"}

// Artifact is the on-disk form of a trained logistic model.
type Artifact struct {
	Version   string    `yaml:"version"`
	Features  []string  `yaml:"features"`
	Weights   []float64 `yaml:"weights"`
	Intercept float64   `yaml:"intercept"`
	// Optional standardisation applied before the weights: (x - mean) / scale.
	Means     []float64 `yaml:"means"`
	Scales    []float64 `yaml:"scales"`
	Threshold float64   `yaml:"threshold"`
	Timeframe string    `yaml:"timeframe"`
}

func (a *Artifact) validate() error {
	if len(a.Features) == 0 {
		a.Features = DefaultFeatures
	}
	if len(a.Weights) != len(a.Features) {
		return fmt.Errorf("model has %d weights for %d features", len(a.Weights), len(a.Features))
	}
	if len(a.Means) != 0 && len(a.Means) != len(a.Features) {
		return fmt.Errorf("model has %d means for %d features", len(a.Means), len(a.Features))
	}
	if len(a.Scales) != 0 && len(a.Scales) != len(a.Features) {
		return fmt.Errorf("model has %d scales for %d features", len(a.Scales), len(a.Features))
	}
	for _, f := range a.Features {
		if _, ok := extractors[f]; !ok {
			return fmt.Errorf("model uses unknown feature %q", f)
		}
	}
	if a.Threshold <= 0 || a.Threshold >= 1 {
		a.Threshold = 0.5
	}
	if a.Timeframe == "" {
		a.Timeframe = "7 days"
	}
	return nil
}

var extractors = map[string]func(model.SensorReading) float64{
	"vibration_to_rpm_ratio":     func(r model.SensorReading) float64 { return analytics.Derive(r).VibrationToRPM },
	"temperature_pressure_ratio": func(r model.SensorReading) float64 { return analytics.Derive(r).TemperatureToPressure },
}

func init() {
	for _, m := range model.Metrics {
		extractors[string(m)] = func(r model.SensorReading) float64 {
			v, _ := r.Value(m)
			return v
		}
	}
}

// Prediction is the failure outlook for one machine.
type Prediction struct {
	MachineID   int64     `json:"machine_id"`
	PredictedAt time.Time `json:"prediction_timestamp"`
	Probability float64   `json:"failure_probability"`
	Failure     bool      `json:"is_failure_predicted"`
	Confidence  float64   `json:"prediction_confidence"`
	Timeframe   string    `json:"timeframe"`
	Version     string    `json:"model_version,omitempty"`
}

// Predictor is safe for concurrent use; it is never mutated after Load.
type Predictor struct {
	artifact *Artifact
}

// Load reads the artifact at path. A missing file is not an error: the
// returned Predictor is in the no-model state.
func Load(path string) (*Predictor, error) {
	if path == "" {
		log.Println("No model path configured, predictions are disabled")
		return &Predictor{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("Model file not found at %s, predictions are disabled", path)
		return &Predictor{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}

	var a Artifact
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}
	if err := a.validate(); err != nil {
		return nil, fmt.Errorf("invalid model %s: %w", path, err)
	}
	log.Printf("Loaded prediction model %q with %d features", a.Version, len(a.Features))
	return &Predictor{artifact: &a}, nil
}

// New wraps an in-memory artifact.
func New(a Artifact) (*Predictor, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}
	return &Predictor{artifact: &a}, nil
}

// Loaded reports whether a model is available.
func (p *Predictor) Loaded() bool {
	return p != nil && p.artifact != nil
}

// Predict averages the per-reading failure probability over readings.
func (p *Predictor) Predict(machineID int64, readings []model.SensorReading, now time.Time) (*Prediction, error) {
	if !p.Loaded() {
		return nil, ErrNoModel
	}
	if len(readings) == 0 {
		return nil, analytics.ErrNoData
	}

	var sum float64
	for _, r := range readings {
		sum += p.probability(r)
	}
	prob := sum / float64(len(readings))

	return &Prediction{
		MachineID:   machineID,
		PredictedAt: now,
		Probability: prob,
		Failure:     prob > p.artifact.Threshold,
		Confidence:  math.Abs(0.5-prob) * 2,
		Timeframe:   p.artifact.Timeframe,
		Version:     p.artifact.Version,
	}, nil
}

func (p *Predictor) probability(r model.SensorReading) float64 {
	a := p.artifact
	z := a.Intercept
	for i, f := range a.Features {
		x := extractors[f](r)
		if len(a.Means) > 0 {
			x -= a.Means[i]
		}
		if len(a.Scales) > 0 && a.Scales[i] != 0 {
			x /= a.Scales[i]
		}
		z += a.Weights[i] * x
	}
	return 1 / (1 + math.Exp(-z))
}
