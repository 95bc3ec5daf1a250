package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/njoerd114/possync/internal/model"
)

// DefaultBatchSize is the number of records written concurrently per batch.
const DefaultBatchSize = 50

// Counts aggregates the outcome of one SmartSync call. Failed records are
// excluded from New, Updated and Skipped.
type Counts struct {
	New     int `json:"new"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}

// ProgressFunc receives the number of processed records after each batch.
type ProgressFunc func(done, total int)

// Executor writes incoming records into the local store in bounded batches.
type Executor struct {
	store     DocumentStore
	detector  *Detector
	batchSize int
	log       *slog.Logger
	now       func() time.Time
}

// NewExecutor creates an Executor. A non-positive batchSize selects
// DefaultBatchSize.
func NewExecutor(store DocumentStore, detector *Detector, batchSize int, logger *slog.Logger) *Executor {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Executor{
		store:     store,
		detector:  detector,
		batchSize: batchSize,
		log:       logger,
		now:       time.Now,
	}
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeNew
	outcomeUpdated
	outcomeFailed
)

// SmartSync loads the local collection of entity once, then writes every
// incoming record that the Detector says needs a write. Records within a
// batch are written concurrently; batches run one after another. Duplicate
// incoming ids are collapsed, the last occurrence winning.
//
// Only a failure to load the local collection is returned as an error.
// Per-record write failures are logged and counted as Failed.
func (e *Executor) SmartSync(ctx context.Context, entity model.EntityType, incoming []model.Record, progress ProgressFunc) (Counts, error) {
	existing, err := e.store.GetAll(ctx, entity.Collection())
	if err != nil {
		return Counts{}, fmt.Errorf("loading local %s: %w", entity.Collection(), err)
	}

	records := dedupe(incoming)
	counts := Counts{Total: len(records)}
	var mu sync.Mutex

	for start := 0; start < len(records); start += e.batchSize {
		if err := ctx.Err(); err != nil {
			return counts, err
		}
		end := min(start+e.batchSize, len(records))
		batch := records[start:end]

		var g errgroup.Group
		g.SetLimit(len(batch))
		for i := range batch {
			rec := &batch[i]
			g.Go(func() error {
				o := e.apply(ctx, existing[rec.ID], rec)
				mu.Lock()
				defer mu.Unlock()
				switch o {
				case outcomeNew:
					counts.New++
				case outcomeUpdated:
					counts.Updated++
				case outcomeSkipped:
					counts.Skipped++
				case outcomeFailed:
					counts.Failed++
				}
				return nil
			})
		}
		_ = g.Wait()

		if progress != nil {
			progress(end, len(records))
		}
	}

	e.log.Debug("smart sync complete",
		"entity", entity,
		"total", counts.Total,
		"new", counts.New,
		"updated", counts.Updated,
		"skipped", counts.Skipped,
		"failed", counts.Failed,
	)
	return counts, nil
}

// apply decides and writes a single record. existing must not be mutated.
func (e *Executor) apply(ctx context.Context, existing *model.Record, incoming *model.Record) outcome {
	rec := incoming.Clone()
	if err := rec.Validate(); err != nil {
		e.log.Error("rejecting invalid record", "entity", rec.Entity, "id", rec.ID, "error", err)
		return outcomeFailed
	}

	PreserveStock(existing, rec)

	decision := e.detector.Decide(existing, rec)
	if decision == DecisionSkip {
		return outcomeSkipped
	}

	rec.SyncedAt = e.now().UTC()
	if err := e.store.Put(ctx, rec); err != nil {
		e.log.Error("writing record", "entity", rec.Entity, "id", rec.ID, "error", err)
		return outcomeFailed
	}
	if decision == DecisionInsert {
		return outcomeNew
	}
	return outcomeUpdated
}

// dedupe keeps one record per id: the last occurrence, at the position of
// the first.
func dedupe(in []model.Record) []model.Record {
	pos := make(map[string]int, len(in))
	out := make([]model.Record, 0, len(in))
	for _, r := range in {
		if i, ok := pos[r.ID]; ok {
			out[i] = r
			continue
		}
		pos[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}
