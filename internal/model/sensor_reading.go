package model

import "time"

// Metric names a numeric channel of a SensorReading.
type Metric string

const (
	MetricTemperature Metric = "temperature"
	MetricVibration   Metric = "vibration"
	MetricPressure    Metric = "pressure"
	MetricRPM         Metric = "rpm"
	MetricVoltage     Metric = "voltage"
	MetricCurrent     Metric = "current"
	MetricNoiseLevel  Metric = "noise_level"
)

// Metrics lists every metric in column order.
var Metrics = []Metric{
	MetricTemperature, MetricVibration, MetricPressure, MetricRPM,
	MetricVoltage, MetricCurrent, MetricNoiseLevel,
}

// Optional reports whether the metric may be absent from a reading.
func (m Metric) Optional() bool {
	return m == MetricVoltage || m == MetricCurrent || m == MetricNoiseLevel
}

// ParseMetric resolves a metric name, returning false for unknown names.
func ParseMetric(name string) (Metric, bool) {
	for _, m := range Metrics {
		if string(m) == name {
			return m, true
		}
	}
	return "", false
}

// SensorReading is a single immutable observation for one machine.
// Optional channels are nil when the sensor did not report them.
type SensorReading struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	MachineID   int64     `gorm:"not null;index:idx_sensor_readings_machine_ts,priority:1" json:"machine_id"`
	Timestamp   time.Time `gorm:"not null;index:idx_sensor_readings_machine_ts,priority:2,sort:desc" json:"timestamp"`
	Temperature float64   `gorm:"not null" json:"temperature"`
	Vibration   float64   `gorm:"not null" json:"vibration"`
	Pressure    float64   `gorm:"not null" json:"pressure"`
	RPM         float64   `gorm:"column:rpm;not null" json:"rpm"`
	Voltage     *float64  `json:"voltage"`
	Current     *float64  `json:"current"`
	NoiseLevel  *float64  `json:"noise_level"`
}

// Value returns the reading's value for m and whether it was reported.
func (r SensorReading) Value(m Metric) (float64, bool) {
	switch m {
	case MetricTemperature:
		return r.Temperature, true
	case MetricVibration:
		return r.Vibration, true
	case MetricPressure:
		return r.Pressure, true
	case MetricRPM:
		return r.RPM, true
	case MetricVoltage:
		return deref(r.Voltage)
	case MetricCurrent:
		return deref(r.Current)
	case MetricNoiseLevel:
		return deref(r.NoiseLevel)
	}
	return 0, false
}

func deref(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}
