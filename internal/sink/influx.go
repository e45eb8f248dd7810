// Package sink mirrors ingested readings into InfluxDB for dashboarding.
package sink

import (
	"context"
	"fmt"
	"strconv"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"predictive-maintenance-backend/internal/model"
)

// Measurement is the InfluxDB measurement readings are written to.
const Measurement = "sensor_reading"

// Influx writes readings through the blocking write API.
type Influx struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	bucket   string
}

// NewInflux creates a new Influx sink.
func NewInflux(url, token, org, bucket string) *Influx {
	client := influxdb2.NewClient(url, token)
	return &Influx{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		bucket:   bucket,
	}
}

// WriteReadings writes one point per reading, tagged with its machine id.
// Optional metrics are written only when present.
func (i *Influx) WriteReadings(ctx context.Context, readings []model.SensorReading) error {
	if len(readings) == 0 {
		return nil
	}
	points := make([]*write.Point, 0, len(readings))
	for _, r := range readings {
		points = append(points, Point(r))
	}
	if err := i.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("error writing to InfluxDB bucket %s: %w", i.bucket, err)
	}
	return nil
}

// Point converts a reading to an InfluxDB point.
func Point(r model.SensorReading) *write.Point {
	fields := make(map[string]interface{}, len(model.Metrics))
	for _, m := range model.Metrics {
		if v, ok := r.Value(m); ok {
			fields[string(m)] = v
		}
	}
	return influxdb2.NewPoint(
		Measurement,
		map[string]string{"machine_id": strconv.FormatInt(r.MachineID, 10)},
		fields,
		r.Timestamp,
	)
}

// Close releases the client's resources.
func (i *Influx) Close() {
	i.client.Close()
}
