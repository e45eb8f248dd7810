package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"predictive-maintenance-backend/internal/model"
)

// SubscriptionsForMachine returns the push subscriptions registered for alerts
// on the given machine.
func (s *gormStore) SubscriptionsForMachine(ctx context.Context, machineID int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).
		Joins("JOIN subscription_machine_mapping ON subscription_machine_mapping.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("subscription_machine_mapping.machine_id = ?", machineID).
		Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("subscriptions for machine %d: %w", machineID, err)
	}
	return subs, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	sub := model.PushSubscription{Endpoint: endpoint}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&sub).Association("Machines").Clear(); err != nil {
			return fmt.Errorf("unlink subscription: %w", err)
		}
		if err := tx.Delete(&sub).Error; err != nil {
			return fmt.Errorf("delete subscription: %w", err)
		}
		return nil
	})
}
