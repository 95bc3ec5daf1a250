package sync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/njoerd114/possync/internal/model"
)

const spanScheduleCheck = "sync.schedule_check"

// ScheduledEntities are synced, in order, by every scheduled run. Receipts
// are left to manual runs because of their volume.
var ScheduledEntities = []model.EntityType{
	model.EntityCategories,
	model.EntityItems,
	model.EntityCustomers,
}

// SchedulerState is the Scheduler's current activity.
type SchedulerState string

const (
	SchedulerIdle     SchedulerState = "idle"
	SchedulerChecking SchedulerState = "checking"
	SchedulerSyncing  SchedulerState = "syncing"
)

// EntitySyncer runs one entity sync. Implemented by [Orchestrator].
type EntitySyncer interface {
	Sync(ctx context.Context, entity model.EntityType, opts Options) (Result, error)
}

// SettingsSource exposes the settings in effect. Implemented by
// [SettingsManager].
type SettingsSource interface {
	Current() model.SyncSettings
}

// Scheduler checks on a fixed tick whether a sync is due and, if so, runs
// ScheduledEntities one after another. Create one with [NewScheduler] and
// start it with [Scheduler.Run].
type Scheduler struct {
	syncer   EntitySyncer
	status   *StatusTracker
	history  HistoryStore
	settings SettingsSource
	tick     time.Duration
	log      *slog.Logger
	now      func() time.Time
	tracer   trace.Tracer

	mu    sync.Mutex
	state SchedulerState
}

// NewScheduler creates a Scheduler.
func NewScheduler(syncer EntitySyncer, status *StatusTracker, history HistoryStore, settings SettingsSource, tick time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		syncer:   syncer,
		status:   status,
		history:  history,
		settings: settings,
		tick:     tick,
		log:      logger,
		now:      time.Now,
		tracer:   otel.Tracer(otelScope),
		state:    SchedulerIdle,
	}
}

// State returns the current scheduler state.
func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) setState(st SchedulerState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Check reports whether a scheduled sync is due. It is never due while
// scheduling is disabled or any entity type is mid-sync. With no successful
// history entry it is due at once; otherwise it is due when the time since
// the latest successful entry of any type reaches the configured interval.
func (s *Scheduler) Check(ctx context.Context) (bool, error) {
	s.setState(SchedulerChecking)
	defer s.setState(SchedulerIdle)

	ctx, span := s.tracer.Start(ctx, spanScheduleCheck)
	defer span.End()

	settings := s.settings.Current()
	if !settings.ScheduledSyncEnabled {
		return false, nil
	}
	if s.status.AnyBusy() {
		s.log.Debug("schedule check skipped, sync in progress")
		return false, nil
	}

	has, err := s.history.HasHistory(ctx)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	if !has {
		s.log.Info("no sync history, initial sync is due")
		span.SetAttributes(attribute.Bool("schedule.due", true))
		return true, nil
	}

	last, err := s.history.LastSuccess(ctx, "")
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	if last == nil {
		span.SetAttributes(attribute.Bool("schedule.due", true))
		return true, nil
	}

	elapsed := s.now().Sub(last.Timestamp)
	due := elapsed >= settings.Interval()
	span.SetAttributes(
		attribute.Bool("schedule.due", due),
		attribute.Float64("schedule.elapsed_minutes", elapsed.Minutes()),
	)
	s.log.Debug("schedule check",
		"elapsed_minutes", int(elapsed.Minutes()),
		"interval_minutes", settings.IntervalMinutes,
		"due", due,
	)
	return due, nil
}

// RunScheduled syncs ScheduledEntities in order. A failure of one entity
// type is logged and the chain continues.
func (s *Scheduler) RunScheduled(ctx context.Context) {
	s.setState(SchedulerSyncing)
	defer s.setState(SchedulerIdle)

	for _, entity := range ScheduledEntities {
		if ctx.Err() != nil {
			return
		}
		_, err := s.syncer.Sync(ctx, entity, Options{Trigger: TriggerScheduled})
		switch {
		case errors.Is(err, ErrSyncInProgress):
			s.log.Info("scheduled sync skipped, already running", "entity", entity)
		case err != nil:
			s.log.Error("scheduled sync failed", "entity", entity, "error", err)
		}
	}
}

// tickOnce runs one check and, when due, the scheduled chain.
func (s *Scheduler) tickOnce(ctx context.Context) {
	due, err := s.Check(ctx)
	if err != nil {
		s.log.Error("schedule check failed", "error", err)
		return
	}
	if due {
		s.RunScheduled(ctx)
	}
}

// Run checks immediately and then on every tick. It blocks until ctx is
// cancelled. Ticks that arrive while a chain is running are dropped.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.tickOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.tickOnce(ctx)
		}
	}
}
