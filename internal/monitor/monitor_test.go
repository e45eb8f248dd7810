package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"predictive-maintenance-backend/config"
	"predictive-maintenance-backend/internal/analytics"
	"predictive-maintenance-backend/internal/db"
	"predictive-maintenance-backend/internal/model"
	"predictive-maintenance-backend/internal/notification"
	"predictive-maintenance-backend/internal/store"
)

type fakeDispatcher struct {
	mu     sync.Mutex
	alerts []notification.Alert
}

func (f *fakeDispatcher) Dispatch(a notification.Alert) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
	return true
}

type sweepCounter struct{ sweeps, transitions int }

func (c *sweepCounter) SweepCompleted(n int) {
	c.sweeps++
	c.transitions += n
}

type flushCounter struct{ flushes int }

func (f *flushCounter) Flush() { f.flushes++ }

func newStore(t *testing.T) store.Store {
	t.Helper()
	gormDB, err := db.Init(&config.DatabaseConfig{Driver: "sqlite"})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return store.NewGormStore(gormDB)
}

func addMachine(t *testing.T, s store.Store, name string, status model.MachineStatus, temp, vib float64, n int) *model.Machine {
	t.Helper()
	ctx := context.Background()
	m := &model.Machine{Name: name, InstallationDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), Status: status}
	require.NoError(t, s.CreateMachine(ctx, m))

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var readings []model.SensorReading
	for i := 0; i < n; i++ {
		readings = append(readings, model.SensorReading{
			MachineID:   m.ID,
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
			Temperature: temp,
			Vibration:   vib,
			Pressure:    100,
			RPM:         1500,
		})
	}
	require.NoError(t, s.CreateReadings(ctx, readings))
	return m
}

func TestService_SweepOnce(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	hot := addMachine(t, s, "hot", model.StatusOperational, 100, 5, 10)           // 0 and 50 -> 25 Critical
	warm := addMachine(t, s, "warm", model.StatusOperational, 85, 4, 10)          // 30 and 60 -> 45 Poor
	recovered := addMachine(t, s, "recovered", model.StatusCritical, 40, 0.5, 10) // 100 and 95 -> Excellent
	serviced := addMachine(t, s, "serviced", model.StatusMaintenance, 100, 9, 10)
	idle := addMachine(t, s, "idle", model.StatusOperational, 0, 0, 0)

	alerts := &fakeDispatcher{}
	counter := &sweepCounter{}
	svc := NewService(config.MonitorConfig{Enabled: true, PageSize: 2}, s, analytics.NewHolder(analytics.New(analytics.Params{})), alerts)
	svc.SetRecorder(counter)
	cache := &flushCounter{}
	svc.SetInvalidator(cache)
	svc.now = func() time.Time { return time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC) }

	res, err := svc.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Checked)
	assert.Equal(t, 2, res.Skipped)
	require.Len(t, res.Changes, 3)

	expected := map[int64]model.MachineStatus{
		hot.ID:       model.StatusCritical,
		warm.ID:      model.StatusWarning,
		recovered.ID: model.StatusOperational,
		serviced.ID:  model.StatusMaintenance,
		idle.ID:      model.StatusOperational,
	}
	for id, status := range expected {
		m, err := s.GetMachine(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, status, m.Status, "machine %d", id)
	}

	require.Len(t, alerts.alerts, 2)
	assert.Equal(t, hot.ID, alerts.alerts[0].MachineID)
	assert.Equal(t, model.StatusCritical, alerts.alerts[0].Status)
	assert.Equal(t, "hot", alerts.alerts[0].MachineName)
	require.NotNil(t, alerts.alerts[0].HealthScore)
	assert.InDelta(t, 25.0, *alerts.alerts[0].HealthScore, 1e-9)
	assert.Equal(t, warm.ID, alerts.alerts[1].MachineID)
	assert.Equal(t, model.StatusWarning, alerts.alerts[1].Status)

	assert.Equal(t, 1, counter.sweeps)
	assert.Equal(t, 3, counter.transitions)
	assert.Equal(t, 1, cache.flushes)

	// A second sweep over unchanged data is a no-op.
	res, err = svc.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Changes)
	assert.Len(t, alerts.alerts, 2)
	assert.Equal(t, 1, cache.flushes)
}

func TestDecide(t *testing.T) {
	testCases := []struct {
		current    model.MachineStatus
		assessment string
		expected   model.MachineStatus
	}{
		{model.StatusOperational, analytics.AssessmentCritical, model.StatusCritical},
		{model.StatusWarning, analytics.AssessmentCritical, model.StatusCritical},
		{model.StatusOperational, analytics.AssessmentPoor, model.StatusWarning},
		{model.StatusCritical, analytics.AssessmentPoor, model.StatusWarning},
		{model.StatusCritical, analytics.AssessmentFair, model.StatusOperational},
		{model.StatusWarning, analytics.AssessmentGood, model.StatusOperational},
		{model.StatusOperational, analytics.AssessmentExcellent, model.StatusOperational},
	}

	for _, tc := range testCases {
		t.Run(string(tc.current)+"/"+tc.assessment, func(t *testing.T) {
			assert.Equal(t, tc.expected, Decide(tc.current, tc.assessment))
		})
	}
}

func TestService_RunDisabledReturns(t *testing.T) {
	svc := NewService(config.MonitorConfig{Enabled: false}, nil, nil, nil)
	done := make(chan struct{})
	go func() {
		svc.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled monitor did not return")
	}
}

func TestService_RunStopsOnCancel(t *testing.T) {
	s := newStore(t)
	svc := NewService(config.MonitorConfig{Enabled: true, Interval: 10 * time.Millisecond}, s, analytics.NewHolder(analytics.New(analytics.Params{})), nil)
	counter := &sweepCounter{}
	svc.SetRecorder(counter)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}
