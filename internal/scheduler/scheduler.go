// Package scheduler wraps cron with the handful of trigger shapes the
// coordinator needs: fixed intervals and at-hour weekday jobs, all
// evaluated in the configured business timezone.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler manages the recurring jobs (directory refresh, scheduled
// open/close, inactivity sweep).
type Scheduler struct {
	cron   *cron.Cron
	loc    *time.Location
	logger *slog.Logger
}

// New creates a scheduler whose jobs fire according to loc's wall clock.
func New(loc *time.Location, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		loc:    loc,
		logger: logger,
	}
}

// Every registers fn to run at a fixed interval.
func (s *Scheduler) Every(d time.Duration, name string, fn func()) error {
	return s.add("@every "+d.String(), name, fn)
}

// AtHour registers fn to run at the top of the given hour on each of the
// given weekdays.
func (s *Scheduler) AtHour(hour int, weekdays []time.Weekday, name string, fn func()) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("scheduler: hour %d out of range", hour)
	}
	days := make([]string, len(weekdays))
	for i, wd := range weekdays {
		days[i] = fmt.Sprintf("%d", int(wd))
	}
	spec := fmt.Sprintf("0 %d * * %s", hour, strings.Join(days, ","))
	return s.add(spec, name, fn)
}

func (s *Scheduler) add(spec, name string, fn func()) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.logger.Info("job fired", "job", name)
		fn()
	})
	if err != nil {
		return fmt.Errorf("scheduler: invalid schedule %q for %s: %w", spec, name, err)
	}
	s.logger.Info("job registered", "job", name, "schedule", spec)
	return nil
}

// Start runs the scheduler until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron.Start()
	s.logger.Info("scheduler started", "timezone", s.loc.String())

	<-ctx.Done()
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("scheduler stopped")
	return ctx.Err()
}

// JobCount returns the number of registered jobs.
func (s *Scheduler) JobCount() int {
	return len(s.cron.Entries())
}
