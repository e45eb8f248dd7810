package store

import (
	"context"
	"fmt"
	"time"

	"predictive-maintenance-backend/internal/model"
)

const readingBatchSize = 500

// CreateReadings inserts readings in batches. IDs are populated on return.
func (s *gormStore) CreateReadings(ctx context.Context, readings []model.SensorReading) error {
	if len(readings) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&readings, readingBatchSize).Error; err != nil {
		return fmt.Errorf("insert %d readings: %w", len(readings), err)
	}
	return nil
}

// FetchReadings returns up to limit readings of a machine with
// start <= timestamp < end, newest first. A non-positive limit means no cap.
func (s *gormStore) FetchReadings(ctx context.Context, machineID int64, start, end time.Time, limit int) ([]model.SensorReading, error) {
	q := s.db.WithContext(ctx).
		Where("machine_id = ? AND timestamp >= ? AND timestamp < ?", machineID, start, end).
		Order("timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var readings []model.SensorReading
	if err := q.Find(&readings).Error; err != nil {
		return nil, fmt.Errorf("fetch readings for machine %d: %w", machineID, err)
	}
	return readings, nil
}

// RecentReadings returns the latest limit readings of a machine, newest first.
func (s *gormStore) RecentReadings(ctx context.Context, machineID int64, limit int) ([]model.SensorReading, error) {
	var readings []model.SensorReading
	if err := s.db.WithContext(ctx).
		Where("machine_id = ?", machineID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&readings).Error; err != nil {
		return nil, fmt.Errorf("recent readings for machine %d: %w", machineID, err)
	}
	return readings, nil
}

func (s *gormStore) LatestReading(ctx context.Context, machineID int64) (*model.SensorReading, error) {
	var r model.SensorReading
	if err := s.db.WithContext(ctx).
		Where("machine_id = ?", machineID).
		Order("timestamp DESC").
		First(&r).Error; err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (s *gormStore) CountReadingsSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.SensorReading{}).
		Where("timestamp >= ?", since).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count readings: %w", err)
	}
	return count, nil
}
