// Package sync implements the one-way sync engine that copies the remote
// point-of-sale collections into the local datastore.
//
// The package contains these main components:
//
//   - [Detector] and [PreserveStock] decide whether and how an incoming
//     record is written.
//   - [Executor] writes a collection in bounded concurrent batches.
//   - [Orchestrator] runs one sync per entity type and records history.
//   - [Scheduler] triggers the catalog and customer syncs when they are due.
package sync

import (
	"context"
	"time"

	"github.com/njoerd114/possync/internal/model"
	"github.com/njoerd114/possync/internal/state"
)

// RemoteSource reads and transforms the remote collections.
// Implemented by [remote.Client].
type RemoteSource interface {
	Categories(ctx context.Context) ([]model.Record, error)
	Items(ctx context.Context) ([]model.Record, error)
	Customers(ctx context.Context) ([]model.Record, error)
	Receipts(ctx context.Context, createdAfter time.Time) ([]model.Record, error)
	InventoryLevels(ctx context.Context) ([]model.InventoryLevel, error)
}

// DocumentStore is the keyed local collection store.
// Implemented by [state.Store].
type DocumentStore interface {
	GetAll(ctx context.Context, collection string) (map[string]*model.Record, error)
	Put(ctx context.Context, rec *model.Record) error
	Update(ctx context.Context, collection, id string, fn func(*model.Record) error) error
}

// HistoryStore is the append-only sync ledger.
// Implemented by [state.Store].
type HistoryStore interface {
	AppendHistory(ctx context.Context, e model.SyncHistoryEntry) error
	LastSuccess(ctx context.Context, t model.EntityType) (*model.SyncHistoryEntry, error)
	HasHistory(ctx context.Context) (bool, error)
}

// StateStore is everything the Orchestrator persists.
// Implemented by [state.Store].
type StateStore interface {
	DocumentStore
	HistoryStore
	SetMarker(ctx context.Context, key string, value time.Time) error
	GetMarker(ctx context.Context, key string) (time.Time, bool, error)
	AppendAdjustment(ctx context.Context, a *model.StockAdjustment) error
}

// SettingsStore persists the schedule settings singleton.
// Implemented by [state.Store].
type SettingsStore interface {
	LoadSettings(ctx context.Context) (model.SyncSettings, bool, error)
	SaveSettings(ctx context.Context, s model.SyncSettings) error
}

var (
	_ StateStore    = (*state.Store)(nil)
	_ SettingsStore = (*state.Store)(nil)
)
