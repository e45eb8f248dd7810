package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"predictive-maintenance-backend/internal/model"
)

func (s *gormStore) ListMachines(ctx context.Context, page Page) ([]model.Machine, error) {
	var machines []model.Machine
	if err := s.db.WithContext(ctx).Scopes(paginate(page)).Order("id").Find(&machines).Error; err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	return machines, nil
}

func (s *gormStore) GetMachine(ctx context.Context, id int64) (*model.Machine, error) {
	var m model.Machine
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (s *gormStore) MachineExists(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Machine{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check machine %d: %w", id, err)
	}
	return count > 0, nil
}

func (s *gormStore) CreateMachine(ctx context.Context, m *model.Machine) error {
	if m.Status == "" {
		m.Status = model.StatusOperational
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("create machine: %w", err)
	}
	return nil
}

func (s *gormStore) UpdateMachine(ctx context.Context, id int64, u MachineUpdate) (*model.Machine, error) {
	var m model.Machine
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&m, id).Error; err != nil {
			return notFound(err)
		}
		if cols := u.columns(); len(cols) > 0 {
			if err := tx.Model(&m).Updates(cols).Error; err != nil {
				return fmt.Errorf("update machine %d: %w", id, err)
			}
		}
		return tx.First(&m, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// DeleteMachine removes the machine together with its readings and
// maintenance records.
func (s *gormStore) DeleteMachine(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.Machine
		if err := tx.First(&m, id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Where("machine_id = ?", id).Delete(&model.SensorReading{}).Error; err != nil {
			return fmt.Errorf("delete readings of machine %d: %w", id, err)
		}
		if err := tx.Where("machine_id = ?", id).Delete(&model.MaintenanceRecord{}).Error; err != nil {
			return fmt.Errorf("delete maintenance of machine %d: %w", id, err)
		}
		if err := tx.Exec("DELETE FROM subscription_machine_mapping WHERE machine_id = ?", id).Error; err != nil {
			return fmt.Errorf("unlink subscriptions of machine %d: %w", id, err)
		}
		if err := tx.Delete(&m).Error; err != nil {
			return fmt.Errorf("delete machine %d: %w", id, err)
		}
		return nil
	})
}

func (s *gormStore) SetMachineStatus(ctx context.Context, id int64, status model.MachineStatus) (*model.Machine, error) {
	return s.UpdateMachine(ctx, id, MachineUpdate{Status: &status})
}

func (s *gormStore) CountMachinesByStatus(ctx context.Context) (map[model.MachineStatus]int64, error) {
	var rows []struct {
		Status model.MachineStatus
		Count  int64
	}
	if err := s.db.WithContext(ctx).Model(&model.Machine{}).
		Select("status, count(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count machines by status: %w", err)
	}

	counts := make(map[model.MachineStatus]int64, len(model.Statuses))
	for _, st := range model.Statuses {
		counts[st] = 0
	}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
