package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"predictive-maintenance-backend/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	ListMachines(ctx context.Context, page Page) ([]model.Machine, error)
	GetMachine(ctx context.Context, id int64) (*model.Machine, error)
	MachineExists(ctx context.Context, id int64) (bool, error)
	CreateMachine(ctx context.Context, m *model.Machine) error
	UpdateMachine(ctx context.Context, id int64, u MachineUpdate) (*model.Machine, error)
	DeleteMachine(ctx context.Context, id int64) error
	SetMachineStatus(ctx context.Context, id int64, status model.MachineStatus) (*model.Machine, error)
	CountMachinesByStatus(ctx context.Context) (map[model.MachineStatus]int64, error)

	CreateReadings(ctx context.Context, readings []model.SensorReading) error
	FetchReadings(ctx context.Context, machineID int64, start, end time.Time, limit int) ([]model.SensorReading, error)
	RecentReadings(ctx context.Context, machineID int64, limit int) ([]model.SensorReading, error)
	LatestReading(ctx context.Context, machineID int64) (*model.SensorReading, error)
	CountReadingsSince(ctx context.Context, since time.Time) (int64, error)

	ListMaintenance(ctx context.Context, page Page) ([]model.MaintenanceRecord, error)
	MachineMaintenance(ctx context.Context, machineID int64, limit int) ([]model.MaintenanceRecord, error)
	LatestMaintenance(ctx context.Context, machineID int64) (*model.MaintenanceRecord, error)
	GetMaintenance(ctx context.Context, id int64) (*model.MaintenanceRecord, error)
	RecordMaintenance(ctx context.Context, rec *model.MaintenanceRecord, now time.Time) error
	UpdateMaintenance(ctx context.Context, id int64, u MaintenanceUpdate, now time.Time) (*model.MaintenanceRecord, error)
	DeleteMaintenance(ctx context.Context, id int64) error

	SubscriptionsForMachine(ctx context.Context, machineID int64) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func paginate(page Page) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page.Skip > 0 {
			db = db.Offset(page.Skip)
		}
		if page.Limit > 0 {
			db = db.Limit(page.Limit)
		}
		return db
	}
}
