// Package scheduler implements C11: evaluating ScheduleDefinitions on a
// timer and invoking AgentController.Start when due. Ground: no pack repo
// wires a cron library (robfig/cron is absent from every go.mod in the
// retrieval pack), so daily/weekly/monthly next-run computation uses
// stdlib time directly and custom-cron uses a minimal hand-rolled 5-field
// matcher rather than introducing an unverified dependency.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/fntelecomllc/kbagent/internal/logging"
	"github.com/fntelecomllc/kbagent/internal/models"
	"github.com/google/uuid"
)

// Starter is the subset of agentcontroller.Controller the scheduler
// depends on.
type Starter interface {
	Start(prefs models.RunPreferences) (uuid.UUID, error)
}

// Store persists schedules and their run history.
type Store interface {
	ListEnabled(ctx context.Context) ([]models.ScheduleDefinition, error)
	UpdateNextRun(ctx context.Context, scheduleID uuid.UUID, lastRunAt, nextRunAt time.Time) error
	RecordRun(ctx context.Context, run models.ScheduleRun) error
}

// Scheduler polls Store on a fixed tick, starting runs for any enabled
// schedule whose next_run_at has arrived.
type Scheduler struct {
	store      Store
	controller Starter
	logger     *logging.Logger
	now        func() time.Time
	tick       time.Duration
}

// New constructs a Scheduler polling every tick (default 1 minute if
// tick <= 0).
func New(store Store, controller Starter, logger *logging.Logger, tick time.Duration) *Scheduler {
	if tick <= 0 {
		tick = time.Minute
	}
	return &Scheduler{store: store, controller: controller, logger: logger, now: time.Now, tick: tick}
}

// Run blocks, polling until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evaluateOnce(ctx)
		}
	}
}

func (s *Scheduler) evaluateOnce(ctx context.Context) {
	schedules, err := s.store.ListEnabled(ctx)
	if err != nil {
		s.logf("scheduler: failed to list enabled schedules: %v", err)
		return
	}

	now := s.now()
	for _, sched := range schedules {
		if sched.NextRunAt == nil || sched.NextRunAt.After(now) {
			continue
		}
		s.fire(ctx, sched, now)
	}
}

func (s *Scheduler) fire(ctx context.Context, sched models.ScheduleDefinition, now time.Time) {
	run := models.ScheduleRun{ID: uuid.New(), ScheduleID: sched.ID, StartedAt: now}

	taskID, err := s.controller.Start(sched.PipelineConfig)
	if err != nil {
		run.Success = false
		run.Message = err.Error()
	} else {
		run.TaskID = &taskID
		run.Success = true
	}
	ended := s.now()
	run.EndedAt = &ended

	next, nextErr := NextRunAt(sched, now)
	if nextErr != nil {
		s.logf("scheduler: failed to compute next_run_at for schedule %s: %v", sched.ID, nextErr)
	}

	if err := s.store.UpdateNextRun(ctx, sched.ID, now, next); err != nil {
		s.logf("scheduler: failed to update next_run_at for schedule %s: %v", sched.ID, err)
	}
	if err := s.store.RecordRun(ctx, run); err != nil {
		s.logf("scheduler: failed to record schedule run for %s: %v", sched.ID, err)
	}
}

func (s *Scheduler) logf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(fmt.Sprintf(format, args...), nil)
	}
}

// NextRunAt computes the next trigger time for sched strictly after from,
// deterministically from its frequency.
func NextRunAt(sched models.ScheduleDefinition, from time.Time) (time.Time, error) {
	switch sched.Frequency {
	case models.ScheduleManual:
		return time.Time{}, nil
	case models.ScheduleDaily:
		return from.Add(24 * time.Hour), nil
	case models.ScheduleWeekly:
		return from.Add(7 * 24 * time.Hour), nil
	case models.ScheduleMonthly:
		return from.AddDate(0, 1, 0), nil
	case models.ScheduleCustomCron:
		return nextCronMatch(sched.CronExpr, from)
	default:
		return time.Time{}, fmt.Errorf("scheduler: unknown schedule frequency %q", sched.Frequency)
	}
}
