package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/tabilog/internal/trip"
)

// Refresher is the part of the planner the sweep drives.
type Refresher interface {
	Plans() ([]trip.Plan, error)
	RefreshIfStale(ctx context.Context, planID string) ([]trip.Day, bool, error)
}

// Scheduler periodically replaces reference-year weather that has entered
// the forecast window. The first sweep runs at start.
type Scheduler struct {
	scheduler *gocron.Scheduler
	planner   Refresher
	interval  time.Duration
	logger    *zap.Logger
}

// New creates a new Scheduler. It runs in local time, like the horizon it checks.
func New(planner Refresher, interval time.Duration, logger *zap.Logger) *Scheduler {
	s := gocron.NewScheduler(time.Local)
	return &Scheduler{
		scheduler: s,
		planner:   planner,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 60
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(s.Sweep)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Sweep checks every plan once. Plans are checked concurrently and a failing
// plan does not stop the others.
func (s *Scheduler) Sweep() {
	plans, err := s.planner.Plans()
	if err != nil {
		s.logger.Error("scheduler: cannot list plans", zap.Error(err))
		return
	}

	var wg sync.WaitGroup
	for _, p := range plans {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			_, refreshed, err := s.planner.RefreshIfStale(ctx, p.ID)
			if err != nil {
				s.logger.Warn("scheduler: staleness check failed", zap.String("plan", p.ID), zap.Error(err))
				return
			}
			if refreshed {
				s.logger.Info("scheduler: refreshed reference weather", zap.String("plan", p.ID))
			}
		}()
	}
	wg.Wait()
	s.logger.Debug("scheduler: sweep completed", zap.Int("plans", len(plans)))
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
