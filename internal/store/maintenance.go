package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"predictive-maintenance-backend/internal/model"
)

func (s *gormStore) ListMaintenance(ctx context.Context, page Page) ([]model.MaintenanceRecord, error) {
	var records []model.MaintenanceRecord
	if err := s.db.WithContext(ctx).Scopes(paginate(page)).
		Order("date DESC, id DESC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list maintenance: %w", err)
	}
	return records, nil
}

// MachineMaintenance returns a machine's records, most recent date first.
func (s *gormStore) MachineMaintenance(ctx context.Context, machineID int64, limit int) ([]model.MaintenanceRecord, error) {
	q := s.db.WithContext(ctx).Where("machine_id = ?", machineID).Order("date DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var records []model.MaintenanceRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("maintenance for machine %d: %w", machineID, err)
	}
	return records, nil
}

// LatestMaintenance returns nil without error when the machine has no records.
func (s *gormStore) LatestMaintenance(ctx context.Context, machineID int64) (*model.MaintenanceRecord, error) {
	var rec model.MaintenanceRecord
	err := s.db.WithContext(ctx).
		Where("machine_id = ?", machineID).
		Order("date DESC, id DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest maintenance for machine %d: %w", machineID, err)
	}
	return &rec, nil
}

func (s *gormStore) GetMaintenance(ctx context.Context, id int64) (*model.MaintenanceRecord, error) {
	var rec model.MaintenanceRecord
	if err := s.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

// RecordMaintenance stores rec and, in the same transaction, stamps the
// machine's last maintenance time and returns it to operational if it was
// under maintenance. ErrNotFound is returned for an unknown machine.
func (s *gormStore) RecordMaintenance(ctx context.Context, rec *model.MaintenanceRecord, now time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.Machine
		if err := tx.First(&m, rec.MachineID).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("create maintenance record: %w", err)
		}

		cols := map[string]any{"last_maintenance": now, "updated_at": now}
		if m.Status == model.StatusMaintenance {
			cols["status"] = model.StatusOperational
		}
		if err := tx.Model(&m).Updates(cols).Error; err != nil {
			return fmt.Errorf("update machine %d after maintenance: %w", m.ID, err)
		}
		return nil
	})
}

func (s *gormStore) UpdateMaintenance(ctx context.Context, id int64, u MaintenanceUpdate, now time.Time) (*model.MaintenanceRecord, error) {
	var rec model.MaintenanceRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rec, id).Error; err != nil {
			return notFound(err)
		}
		cols := u.columns()
		cols["updated_at"] = now
		if err := tx.Model(&rec).Updates(cols).Error; err != nil {
			return fmt.Errorf("update maintenance record %d: %w", id, err)
		}
		return tx.First(&rec, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *gormStore) DeleteMaintenance(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.MaintenanceRecord{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete maintenance record %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
