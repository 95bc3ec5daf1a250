package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/njoerd114/possync/internal/model"
	"github.com/njoerd114/possync/internal/state"
)

const (
	otelScope         = "possync/sync"
	spanEntity        = "sync.entity"
	spanStock         = "sync.stock"
	metricNew         = "possync.sync.records.new"
	metricUpdated     = "possync.sync.records.updated"
	metricSkipped     = "possync.sync.records.skipped"
	metricFailed      = "possync.sync.records.failed"
	metricRuns        = "possync.sync.runs"
	metricAdjustments = "possync.stock.adjustments"
)

// ErrSyncInProgress is returned when the entity type is already mid-sync.
// No history entry is written for a rejected run.
var ErrSyncInProgress = errors.New("sync already in progress")

// Trigger records who started a run.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
)

// Options controls a single Sync call.
type Options struct {
	Trigger Trigger
	// Quick limits a receipt sync to records created since the last
	// successful receipt sync. Ignored for other entity types.
	Quick bool
}

// Result describes one completed run.
type Result struct {
	Entity model.EntityType `json:"entity"`
	RunID  string           `json:"run_id"`
	Counts Counts           `json:"counts"`

	// Since is the created_at lower bound used by a quick receipt sync.
	Since time.Time `json:"since,omitempty"`

	Stock *StockResult `json:"stock,omitempty"`
}

// Orchestrator runs one sync per entity type: guard, fetch, batch write,
// history. It is safe for concurrent use; concurrent runs of the same entity
// type are rejected with ErrSyncInProgress.
type Orchestrator struct {
	remote RemoteSource
	store  StateStore
	exec   *Executor
	status *StatusTracker
	log    *slog.Logger

	now      func() time.Time
	newRunID func() string

	// OTel instruments, no-op when telemetry is disabled.
	tracer         trace.Tracer
	cntNew         metric.Int64Counter
	cntUpdated     metric.Int64Counter
	cntSkipped     metric.Int64Counter
	cntFailed      metric.Int64Counter
	cntRuns        metric.Int64Counter
	cntAdjustments metric.Int64Counter
}

// NewOrchestrator wires an Orchestrator.
func NewOrchestrator(remote RemoteSource, store StateStore, exec *Executor, status *StatusTracker, logger *slog.Logger) *Orchestrator {
	meter := otel.Meter(otelScope)
	mustCounter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			logger.Error("creating OTel counter", "name", name, "error", err)
			return noop.Int64Counter{}
		}
		return c
	}

	return &Orchestrator{
		remote:   remote,
		store:    store,
		exec:     exec,
		status:   status,
		log:      logger,
		now:      time.Now,
		newRunID: uuid.NewString,

		tracer:         otel.Tracer(otelScope),
		cntNew:         mustCounter(metricNew, "Records inserted by sync"),
		cntUpdated:     mustCounter(metricUpdated, "Records updated by sync"),
		cntSkipped:     mustCounter(metricSkipped, "Records skipped as unchanged"),
		cntFailed:      mustCounter(metricFailed, "Records that failed to write"),
		cntRuns:        mustCounter(metricRuns, "Sync runs by entity and outcome"),
		cntAdjustments: mustCounter(metricAdjustments, "Stock adjustments written"),
	}
}

// Status returns the tracker shared with the Scheduler and the HTTP API.
func (o *Orchestrator) Status() *StatusTracker {
	return o.status
}

// Sync dispatches to the per-entity procedure.
func (o *Orchestrator) Sync(ctx context.Context, entity model.EntityType, opts Options) (Result, error) {
	if opts.Trigger == "" {
		opts.Trigger = TriggerManual
	}
	switch entity {
	case model.EntityCategories:
		return o.SyncCategories(ctx, opts.Trigger)
	case model.EntityItems:
		return o.SyncItems(ctx, opts.Trigger)
	case model.EntityCustomers:
		return o.SyncCustomers(ctx, opts.Trigger)
	case model.EntityReceipts:
		return o.SyncReceipts(ctx, opts.Quick, opts.Trigger)
	case model.EntityStock:
		return o.SyncStock(ctx, opts.Trigger)
	}
	return Result{}, fmt.Errorf("unknown entity type %q", entity)
}

// SyncCategories mirrors the remote categories.
func (o *Orchestrator) SyncCategories(ctx context.Context, trigger Trigger) (Result, error) {
	return o.run(ctx, model.EntityCategories, trigger, o.remote.Categories, nil)
}

// SyncItems mirrors the remote catalog items, preserving locally owned stock.
func (o *Orchestrator) SyncItems(ctx context.Context, trigger Trigger) (Result, error) {
	return o.run(ctx, model.EntityItems, trigger, o.remote.Items, nil)
}

// SyncCustomers mirrors the remote customers.
func (o *Orchestrator) SyncCustomers(ctx context.Context, trigger Trigger) (Result, error) {
	return o.run(ctx, model.EntityCustomers, trigger, o.remote.Customers, nil)
}

// SyncReceipts mirrors the remote receipts. With quick set and a stored
// watermark, only receipts created at or after the watermark are fetched;
// without a watermark it falls back to a full sync. After a successful run
// the watermark is moved to the run's start time.
func (o *Orchestrator) SyncReceipts(ctx context.Context, quick bool, trigger Trigger) (Result, error) {
	var since time.Time
	start := o.now().UTC()

	fetch := func(ctx context.Context) ([]model.Record, error) {
		if quick {
			t, ok, err := o.store.GetMarker(ctx, state.MarkerLatestReceipts)
			if err != nil {
				return nil, fmt.Errorf("reading receipt watermark: %w", err)
			}
			if ok {
				since = t
			} else {
				o.log.Info("no receipt watermark, running full receipt sync")
			}
		}
		return o.remote.Receipts(ctx, since)
	}
	after := func(ctx context.Context) error {
		return o.store.SetMarker(ctx, state.MarkerLatestReceipts, start)
	}

	res, err := o.run(ctx, model.EntityReceipts, trigger, fetch, after)
	res.Since = since
	return res, err
}

// run is the shared guard → fetch → write → history sequence.
func (o *Orchestrator) run(
	ctx context.Context,
	entity model.EntityType,
	trigger Trigger,
	fetch func(context.Context) ([]model.Record, error),
	after func(context.Context) error,
) (Result, error) {
	runID := o.newRunID()
	if !o.status.Begin(entity, runID) {
		o.log.Info("sync skipped, already running", "entity", entity, "trigger", trigger)
		return Result{}, ErrSyncInProgress
	}
	defer o.status.End(entity)

	res := Result{Entity: entity, RunID: runID}
	log := o.log.With("entity", entity, "trigger", trigger, "run_id", runID)

	ctx, span := o.tracer.Start(ctx, spanEntity, trace.WithAttributes(
		attribute.String("sync.entity", string(entity)),
		attribute.String("sync.trigger", string(trigger)),
	))
	defer span.End()

	log.Info("sync started")

	records, err := fetch(ctx)
	if err != nil {
		err = fmt.Errorf("fetching %s: %w", entity, err)
		o.fail(ctx, span, log, res, trigger, err)
		return res, err
	}

	o.status.SetPhase(entity, PhaseWriting)
	counts, err := o.exec.SmartSync(ctx, entity, records, func(done, total int) {
		o.status.Report(entity, done, total)
	})
	res.Counts = counts
	if err != nil {
		err = fmt.Errorf("writing %s: %w", entity, err)
		o.fail(ctx, span, log, res, trigger, err)
		return res, err
	}

	if after != nil {
		if err := after(ctx); err != nil {
			log.Error("post-sync step failed", "error", err)
		}
	}

	o.record(ctx, model.SyncHistoryEntry{
		RunID:       runID,
		Type:        entity,
		Success:     true,
		Count:       counts.Total,
		New:         counts.New,
		Updated:     counts.Updated,
		Skipped:     counts.Skipped,
		IsScheduled: trigger == TriggerScheduled,
	}, log)

	attrs := metric.WithAttributes(attribute.String("entity", string(entity)))
	o.cntNew.Add(ctx, int64(counts.New), attrs)
	o.cntUpdated.Add(ctx, int64(counts.Updated), attrs)
	o.cntSkipped.Add(ctx, int64(counts.Skipped), attrs)
	o.cntFailed.Add(ctx, int64(counts.Failed), attrs)
	o.cntRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", string(entity)),
		attribute.Bool("success", true),
	))
	span.SetAttributes(
		attribute.Int("sync.total", counts.Total),
		attribute.Int("sync.new", counts.New),
		attribute.Int("sync.updated", counts.Updated),
		attribute.Int("sync.skipped", counts.Skipped),
		attribute.Int("sync.failed", counts.Failed),
	)

	log.Info("sync complete",
		"total", counts.Total,
		"new", counts.New,
		"updated", counts.Updated,
		"skipped", counts.Skipped,
		"failed", counts.Failed,
	)
	return res, nil
}

// fail records a failed run in history, metrics and the span.
func (o *Orchestrator) fail(ctx context.Context, span trace.Span, log *slog.Logger, res Result, trigger Trigger, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	o.cntRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", string(res.Entity)),
		attribute.Bool("success", false),
	))
	log.Error("sync failed", "error", err)

	// The run context may already be cancelled; the ledger entry must still land.
	o.record(context.WithoutCancel(ctx), model.SyncHistoryEntry{
		RunID:       res.RunID,
		Type:        res.Entity,
		Success:     false,
		Count:       res.Counts.Total,
		New:         res.Counts.New,
		Updated:     res.Counts.Updated,
		Skipped:     res.Counts.Skipped,
		Error:       err.Error(),
		IsScheduled: trigger == TriggerScheduled,
	}, log)
}

// record appends a history entry stamped with the current time. A ledger
// write failure is logged and does not change the run's outcome.
func (o *Orchestrator) record(ctx context.Context, e model.SyncHistoryEntry, log *slog.Logger) {
	e.Timestamp = o.now().UTC()
	e.ID = model.HistoryID(e.Type, e.Timestamp)
	if err := o.store.AppendHistory(ctx, e); err != nil {
		log.Error("appending sync history", "error", err)
	}
}
