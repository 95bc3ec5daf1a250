package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/njoerd114/possync/internal/model"
	"github.com/njoerd114/possync/internal/state"
)

// --- Mock Remote Source -------------------------------------------------------

type mockRemote struct {
	mu         sync.Mutex
	categories []model.Record
	items      []model.Record
	customers  []model.Record
	receipts   []model.Record
	levels     []model.InventoryLevel
	errs       map[model.EntityType]error

	receiptSince []time.Time
	calls        map[model.EntityType]int
}

func newMockRemote() *mockRemote {
	return &mockRemote{
		errs:  make(map[model.EntityType]error),
		calls: make(map[model.EntityType]int),
	}
}

func (m *mockRemote) fetch(entity model.EntityType, recs []model.Record) ([]model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[entity]++
	if err := m.errs[entity]; err != nil {
		return nil, err
	}
	out := make([]model.Record, len(recs))
	for i := range recs {
		out[i] = *recs[i].Clone()
	}
	return out, nil
}

func (m *mockRemote) Categories(context.Context) ([]model.Record, error) {
	return m.fetch(model.EntityCategories, m.categories)
}

func (m *mockRemote) Items(context.Context) ([]model.Record, error) {
	return m.fetch(model.EntityItems, m.items)
}

func (m *mockRemote) Customers(context.Context) ([]model.Record, error) {
	return m.fetch(model.EntityCustomers, m.customers)
}

// Receipts honours createdAfter like the real API does.
func (m *mockRemote) Receipts(_ context.Context, createdAfter time.Time) ([]model.Record, error) {
	m.mu.Lock()
	m.receiptSince = append(m.receiptSince, createdAfter)
	var recs []model.Record
	for _, r := range m.receipts {
		if createdAfter.IsZero() || !r.Receipt.CreatedAt.Before(createdAfter) {
			recs = append(recs, r)
		}
	}
	m.mu.Unlock()
	return m.fetch(model.EntityReceipts, recs)
}

func (m *mockRemote) InventoryLevels(context.Context) ([]model.InventoryLevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[model.EntityStock]++
	if err := m.errs[model.EntityStock]; err != nil {
		return nil, err
	}
	return append([]model.InventoryLevel(nil), m.levels...), nil
}

// --- Mock State Store ---------------------------------------------------------

type mockStore struct {
	mu          sync.Mutex
	docs        map[string]map[string]*model.Record
	history     []model.SyncHistoryEntry
	markers     map[string]time.Time
	adjustments []model.StockAdjustment
	settings    *model.SyncSettings

	failPut   map[string]bool
	failSave  bool
	getAllErr error
	puts      int
	inFlight  int
	maxFlight int
	putDelay  time.Duration
}

func newMockStore() *mockStore {
	return &mockStore{
		docs:    make(map[string]map[string]*model.Record),
		markers: make(map[string]time.Time),
		failPut: make(map[string]bool),
	}
}

func (m *mockStore) seed(recs ...*model.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recs {
		m.putLocked(r)
	}
}

func (m *mockStore) putLocked(r *model.Record) {
	coll := r.Entity.Collection()
	if m.docs[coll] == nil {
		m.docs[coll] = make(map[string]*model.Record)
	}
	m.docs[coll][r.ID] = r.Clone()
}

func (m *mockStore) GetAll(_ context.Context, collection string) (map[string]*model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getAllErr != nil {
		return nil, m.getAllErr
	}
	out := make(map[string]*model.Record, len(m.docs[collection]))
	for id, r := range m.docs[collection] {
		out[id] = r.Clone()
	}
	return out, nil
}

func (m *mockStore) Put(_ context.Context, rec *model.Record) error {
	m.mu.Lock()
	m.inFlight++
	m.maxFlight = max(m.maxFlight, m.inFlight)
	delay := m.putDelay
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight--
	if m.failPut[rec.ID] {
		return fmt.Errorf("disk full writing %s", rec.ID)
	}
	m.puts++
	m.putLocked(rec)
	return nil
}

func (m *mockStore) Update(_ context.Context, collection, id string, fn func(*model.Record) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.docs[collection][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, state.ErrNotFound)
	}
	if m.failPut[id] {
		return fmt.Errorf("disk full writing %s", id)
	}
	rec := cur.Clone()
	if err := fn(rec); err != nil {
		return err
	}
	m.docs[collection][id] = rec
	return nil
}

func (m *mockStore) AppendHistory(_ context.Context, e model.SyncHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.history {
		if h.ID == e.ID {
			return fmt.Errorf("duplicate history id %q", e.ID)
		}
	}
	m.history = append(m.history, e)
	return nil
}

func (m *mockStore) LastSuccess(_ context.Context, t model.EntityType) (*model.SyncHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *model.SyncHistoryEntry
	for i := range m.history {
		h := m.history[i]
		if !h.Success || (t != "" && h.Type != t) {
			continue
		}
		if best == nil || h.Timestamp.After(best.Timestamp) {
			best = &h
		}
	}
	return best, nil
}

func (m *mockStore) HasHistory(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history) > 0, nil
}

func (m *mockStore) SetMarker(_ context.Context, key string, value time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markers[key] = value
	return nil
}

func (m *mockStore) GetMarker(_ context.Context, key string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.markers[key]
	return v, ok, nil
}

func (m *mockStore) AppendAdjustment(_ context.Context, a *model.StockAdjustment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = int64(len(m.adjustments) + 1)
	m.adjustments = append(m.adjustments, *a)
	return nil
}

func (m *mockStore) LoadSettings(context.Context) (model.SyncSettings, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		return model.SyncSettings{}, false, nil
	}
	return *m.settings, true, nil
}

func (m *mockStore) SaveSettings(_ context.Context, s model.SyncSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("database is locked")
	}
	m.settings = &s
	return nil
}

func (m *mockStore) get(collection, id string) *model.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.docs[collection][id]; ok {
		return r.Clone()
	}
	return nil
}

func (m *mockStore) count(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs[collection])
}

func (m *mockStore) historyEntries() []model.SyncHistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]model.SyncHistoryEntry(nil), m.history...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// --- fixtures -----------------------------------------------------------------

var testEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func category(id, name string, modified time.Time) model.Record {
	return model.Record{
		Entity:     model.EntityCategories,
		ID:         id,
		Name:       name,
		ModifiedAt: modified,
		Category:   &model.CategoryAttrs{},
	}
}

func item(id, name string, price float64, stock *float64) model.Record {
	return model.Record{
		Entity:     model.EntityItems,
		ID:         id,
		Name:       name,
		ModifiedAt: testEpoch,
		Item:       &model.ItemAttrs{CategoryID: "C1", Price: price, Stock: stock},
	}
}

func receipt(id string, created time.Time) model.Record {
	return model.Record{
		Entity:     model.EntityReceipts,
		ID:         id,
		Name:       "Receipt " + id,
		ModifiedAt: created,
		Receipt:    &model.ReceiptAttrs{Type: "SALE", Total: 10, CreatedAt: created},
	}
}

func floatPtr(v float64) *float64 { return &v }

// fakeClock returns a now func that advances by step on every call.
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := cur
		cur = cur.Add(step)
		return t
	}
}
