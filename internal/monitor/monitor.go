// Package monitor periodically re-scores machine health and moves machines
// between operational, warning and critical.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"predictive-maintenance-backend/config"
	"predictive-maintenance-backend/internal/analytics"
	"predictive-maintenance-backend/internal/model"
	"predictive-maintenance-backend/internal/notification"
	"predictive-maintenance-backend/internal/store"
)

// Dispatcher queues alerts for delivery.
type Dispatcher interface {
	Dispatch(alert notification.Alert) bool
}

// Recorder observes completed sweeps.
type Recorder interface {
	SweepCompleted(transitions int)
}

// Invalidator drops cached API responses after the sweep changed a status.
type Invalidator interface {
	Flush()
}

// Change is one status transition made by a sweep.
type Change struct {
	MachineID int64
	From      model.MachineStatus
	To        model.MachineStatus
	Score     float64
}

// Result summarizes a sweep.
type Result struct {
	Checked int
	Skipped int
	Changes []Change
}

// Service runs the health sweep.
type Service struct {
	cfg       config.MonitorConfig
	store     store.Store
	analyzers *analytics.Holder
	alerts    Dispatcher
	recorder  Recorder
	cache     Invalidator
	now       func() time.Time
}

// NewService creates a monitor. alerts may be nil.
func NewService(cfg config.MonitorConfig, s store.Store, analyzers *analytics.Holder, alerts Dispatcher) *Service {
	return &Service{
		cfg:       cfg,
		store:     s,
		analyzers: analyzers,
		alerts:    alerts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetRecorder installs an observer for sweep results.
func (s *Service) SetRecorder(r Recorder) {
	s.recorder = r
}

// SetInvalidator installs the response cache flushed after status changes.
func (s *Service) SetInvalidator(c Invalidator) {
	s.cache = c
}

// Run sweeps once immediately and then every configured interval until ctx
// is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Println("Health monitor is disabled. Not starting.")
		return
	}
	log.Printf("Starting health monitor, interval %s", s.cfg.Interval)

	s.sweep(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Health monitor shutting down.")
			return
		case <-timer.C:
			s.sweep(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	res, err := s.SweepOnce(ctx)
	if err != nil {
		log.Printf("Health sweep failed: %v", err)
		return
	}
	log.Printf("Health sweep checked %d machines, skipped %d, changed %d", res.Checked, res.Skipped, len(res.Changes))
}

// SweepOnce scores every machine that is not under maintenance and applies
// the resulting status. Machines without readings are skipped.
func (s *Service) SweepOnce(ctx context.Context) (Result, error) {
	var res Result
	analyzer := s.analyzers.Get()
	window := analyzer.Params().HealthWindow
	pageSize := s.cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	for skip := 0; ; skip += pageSize {
		machines, err := s.store.ListMachines(ctx, store.Page{Skip: skip, Limit: pageSize})
		if err != nil {
			return res, fmt.Errorf("list machines: %w", err)
		}

		for _, m := range machines {
			if m.Status == model.StatusMaintenance {
				res.Skipped++
				continue
			}
			readings, err := s.store.RecentReadings(ctx, m.ID, window)
			if err != nil {
				return res, err
			}
			report, err := analyzer.ScoreHealth(readings, s.now())
			if errors.Is(err, analytics.ErrNoData) {
				res.Skipped++
				continue
			}
			if err != nil {
				return res, err
			}
			res.Checked++

			next := Decide(m.Status, report.Assessment)
			if next == m.Status {
				continue
			}
			if _, err := s.store.SetMachineStatus(ctx, m.ID, next); err != nil {
				return res, fmt.Errorf("set status of machine %d: %w", m.ID, err)
			}
			log.Printf("Machine %d status %s -> %s (health %.1f, %s)", m.ID, m.Status, next, report.Score, report.Assessment)
			res.Changes = append(res.Changes, Change{MachineID: m.ID, From: m.Status, To: next, Score: report.Score})

			if s.alerts != nil && next.Severity() > m.Status.Severity() {
				score := report.Score
				s.alerts.Dispatch(notification.Alert{
					MachineID:   m.ID,
					MachineName: m.Name,
					Status:      next,
					Previous:    m.Status,
					Reason:      fmt.Sprintf("Health score %.1f (%s)", report.Score, report.Assessment),
					HealthScore: &score,
					RaisedAt:    s.now(),
				})
			}
		}

		if len(machines) < pageSize {
			break
		}
	}

	if s.cache != nil && len(res.Changes) > 0 {
		s.cache.Flush()
	}
	if s.recorder != nil {
		s.recorder.SweepCompleted(len(res.Changes))
	}
	return res, nil
}

// Decide maps a health assessment onto a machine status. Critical health
// marks the machine critical, Poor marks it warning, and anything better
// clears a previous warning or critical.
func Decide(current model.MachineStatus, assessment string) model.MachineStatus {
	switch assessment {
	case analytics.AssessmentCritical:
		return model.StatusCritical
	case analytics.AssessmentPoor:
		return model.StatusWarning
	}
	if current.Alerting() {
		return model.StatusOperational
	}
	return current
}
