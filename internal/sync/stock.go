package sync

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/njoerd114/possync/internal/model"
	"github.com/njoerd114/possync/internal/state"
)

// StockReason is recorded on every adjustment written by SyncStock.
const StockReason = "remote inventory reconciliation"

// StockResult counts the outcome of a stock reconciliation. NotFound items
// exist remotely but not locally and are informational only.
type StockResult struct {
	Items     int `json:"items"`
	Adjusted  int `json:"adjusted"`
	Unchanged int `json:"unchanged"`
	NotFound  int `json:"not_found"`
	Failed    int `json:"failed"`
}

// itemStock is the remote stock of one item summed across stores.
type itemStock struct {
	total   decimal.Decimal
	byStore map[string]decimal.Decimal
}

// aggregateLevels sums inventory levels per item, and per store within each
// item so multiple variants at one store collapse into one level.
func aggregateLevels(levels []model.InventoryLevel) map[string]*itemStock {
	out := make(map[string]*itemStock)
	for _, l := range levels {
		agg, ok := out[l.ItemID]
		if !ok {
			agg = &itemStock{byStore: make(map[string]decimal.Decimal)}
			out[l.ItemID] = agg
		}
		q := decimal.NewFromFloat(l.Quantity)
		agg.total = agg.total.Add(q)
		agg.byStore[l.StoreID] = agg.byStore[l.StoreID].Add(q)
	}
	return out
}

func (s *itemStock) levels() []model.StoreLevel {
	stores := slices.Sorted(maps.Keys(s.byStore))
	out := make([]model.StoreLevel, 0, len(stores))
	for _, id := range stores {
		q, _ := s.byStore[id].Round(3).Float64()
		out = append(out, model.StoreLevel{StoreID: id, Quantity: q})
	}
	return out
}

// SyncStock reconciles local item stock with the remote inventory levels.
// For each item whose summed remote quantity differs from the local stock
// (an undefined local stock always differs), it writes the new stock,
// stamps LastInventorySync and appends a StockAdjustment. Only the
// stock-bearing fields of the item are touched.
func (o *Orchestrator) SyncStock(ctx context.Context, trigger Trigger) (Result, error) {
	entity := model.EntityStock
	runID := o.newRunID()
	if !o.status.Begin(entity, runID) {
		o.log.Info("stock sync skipped, already running", "trigger", trigger)
		return Result{}, ErrSyncInProgress
	}
	defer o.status.End(entity)

	res := Result{Entity: entity, RunID: runID, Stock: &StockResult{}}
	log := o.log.With("entity", entity, "trigger", trigger, "run_id", runID)

	ctx, span := o.tracer.Start(ctx, spanStock, trace.WithAttributes(
		attribute.String("sync.trigger", string(trigger)),
	))
	defer span.End()

	log.Info("stock sync started")

	levels, err := o.remote.InventoryLevels(ctx)
	if err != nil {
		err = fmt.Errorf("fetching inventory levels: %w", err)
		o.fail(ctx, span, log, res, trigger, err)
		return res, err
	}
	remote := aggregateLevels(levels)

	o.status.SetPhase(entity, PhaseWriting)
	local, err := o.store.GetAll(ctx, entity.Collection())
	if err != nil {
		err = fmt.Errorf("loading local items: %w", err)
		o.fail(ctx, span, log, res, trigger, err)
		return res, err
	}

	ids := slices.Sorted(maps.Keys(remote))
	sr := res.Stock
	sr.Items = len(ids)
	for i, id := range ids {
		o.status.Report(entity, i, len(ids))

		rec, ok := local[id]
		if !ok || rec.Item == nil {
			sr.NotFound++
			log.Debug("inventory for unknown item", "id", id)
			continue
		}

		agg := remote[id]
		newStock, _ := agg.total.Round(3).Float64()
		if rec.Item.Stock != nil && *rec.Item.Stock == newStock {
			sr.Unchanged++
			continue
		}

		adj, err := o.applyStock(ctx, id, newStock, agg.levels())
		if err != nil {
			sr.Failed++
			log.Error("writing stock", "id", id, "error", err)
			continue
		}
		sr.Adjusted++
		log.Debug("stock adjusted",
			"id", id,
			"previous", adj.PreviousStock,
			"new", adj.NewStock,
			"delta", adj.Delta,
		)
	}
	o.status.Report(entity, len(ids), len(ids))

	res.Counts = Counts{
		Updated: sr.Adjusted,
		Skipped: sr.Unchanged,
		Failed:  sr.Failed,
		Total:   sr.Items,
	}
	o.record(ctx, model.SyncHistoryEntry{
		RunID:       runID,
		Type:        entity,
		Success:     true,
		Count:       sr.Adjusted,
		Updated:     sr.Adjusted,
		Skipped:     sr.Unchanged,
		IsScheduled: trigger == TriggerScheduled,
	}, log)

	o.cntAdjustments.Add(ctx, int64(sr.Adjusted))
	o.cntRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", string(entity)),
		attribute.Bool("success", true),
	))
	span.SetAttributes(
		attribute.Int("stock.items", sr.Items),
		attribute.Int("stock.adjusted", sr.Adjusted),
		attribute.Int("stock.not_found", sr.NotFound),
	)
	if sr.Failed > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d stock writes failed", sr.Failed))
	}

	log.Info("stock sync complete",
		"items", sr.Items,
		"adjusted", sr.Adjusted,
		"unchanged", sr.Unchanged,
		"not_found", sr.NotFound,
		"failed", sr.Failed,
	)
	return res, nil
}

// applyStock updates the stock-bearing fields of one item and logs the
// adjustment. The adjustment is only written once the item update committed.
func (o *Orchestrator) applyStock(ctx context.Context, id string, newStock float64, levels []model.StoreLevel) (*model.StockAdjustment, error) {
	now := o.now().UTC()
	var previous float64

	err := o.store.Update(ctx, model.EntityItems.Collection(), id, func(r *model.Record) error {
		if r.Item == nil {
			return fmt.Errorf("record %q has no item attributes", id)
		}
		if r.Item.Stock != nil {
			previous = *r.Item.Stock
		}
		stock := newStock
		inStock := newStock > 0
		stamp := now
		r.Item.Stock = &stock
		r.Item.InStock = &inStock
		r.Item.InventoryLevels = levels
		r.Item.LastInventorySync = &stamp
		r.SyncedAt = now
		return nil
	})
	if errors.Is(err, state.ErrNotFound) {
		return nil, fmt.Errorf("item disappeared during reconciliation: %w", err)
	}
	if err != nil {
		return nil, err
	}

	delta, _ := decimal.NewFromFloat(newStock).Sub(decimal.NewFromFloat(previous)).Round(3).Float64()
	adj := &model.StockAdjustment{
		ProductID:     id,
		PreviousStock: previous,
		NewStock:      newStock,
		Delta:         delta,
		Reason:        StockReason,
		Timestamp:     now,
	}
	if err := o.store.AppendAdjustment(ctx, adj); err != nil {
		return nil, fmt.Errorf("logging adjustment: %w", err)
	}
	return adj, nil
}
