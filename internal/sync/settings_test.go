package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/njoerd114/possync/internal/model"
)

func TestSettingsManager_SeedsOnFirstLoad(t *testing.T) {
	store := newMockStore()
	m := NewSettingsManager(store, testLogger)
	m.now = fakeClock(testEpoch, 0)

	got, err := m.Load(context.Background(), model.SyncSettings{ScheduledSyncEnabled: true, IntervalMinutes: 30})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.ScheduledSyncEnabled || got.IntervalMinutes != 30 || !got.UpdatedAt.Equal(testEpoch) {
		t.Errorf("Load = %+v", got)
	}
	if store.settings == nil || store.settings.IntervalMinutes != 30 {
		t.Error("seed was not persisted")
	}
}

func TestSettingsManager_StoredWinsOverSeed(t *testing.T) {
	store := newMockStore()
	store.settings = &model.SyncSettings{ScheduledSyncEnabled: false, IntervalMinutes: 90}
	m := NewSettingsManager(store, testLogger)

	got, err := m.Load(context.Background(), model.SyncSettings{ScheduledSyncEnabled: true, IntervalMinutes: 5})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.IntervalMinutes != 90 || got.ScheduledSyncEnabled {
		t.Errorf("Load = %+v, want stored settings", got)
	}
	if m.Current() != got {
		t.Error("Current does not match loaded settings")
	}
}

func TestSettingsManager_UpdateValidates(t *testing.T) {
	m := NewSettingsManager(newMockStore(), testLogger)
	for _, minutes := range []int{0, -5, 1441} {
		_, err := m.Update(context.Background(), model.SyncSettings{IntervalMinutes: minutes})
		if !errors.Is(err, ErrInvalidSettings) {
			t.Errorf("interval %d: error = %v, want ErrInvalidSettings", minutes, err)
		}
	}
}

func TestSettingsManager_SaveFailureKeepsCurrent(t *testing.T) {
	store := newMockStore()
	m := NewSettingsManager(store, testLogger)
	if _, err := m.Load(context.Background(), model.SyncSettings{ScheduledSyncEnabled: true, IntervalMinutes: 30}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	store.failSave = true
	_, err := m.Update(context.Background(), model.SyncSettings{ScheduledSyncEnabled: false, IntervalMinutes: 60})
	if err == nil {
		t.Fatal("expected save error")
	}
	if errors.Is(err, ErrInvalidSettings) {
		t.Error("save failure must not be reported as a validation error")
	}
	cur := m.Current()
	if !cur.ScheduledSyncEnabled || cur.IntervalMinutes != 30 {
		t.Errorf("Current = %+v, want unchanged", cur)
	}
}

// gatedSettingsStore holds the first save until release is closed.
type gatedSettingsStore struct {
	*mockStore
	entered chan struct{}
	release chan struct{}
	first   bool
}

func (g *gatedSettingsStore) SaveSettings(ctx context.Context, s model.SyncSettings) error {
	if !g.first {
		g.first = true
		close(g.entered)
		<-g.release
	}
	return g.mockStore.SaveSettings(ctx, s)
}

func TestSettingsManager_PatchKeepsUntouchedFields(t *testing.T) {
	m := NewSettingsManager(newMockStore(), testLogger)
	if _, err := m.Load(context.Background(), model.SyncSettings{ScheduledSyncEnabled: true, IntervalMinutes: 30}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := m.Patch(context.Background(), func(s *model.SyncSettings) { s.IntervalMinutes = 45 })
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if !got.ScheduledSyncEnabled || got.IntervalMinutes != 45 {
		t.Errorf("Patch = %+v", got)
	}
	if _, err := m.Patch(context.Background(), func(s *model.SyncSettings) { s.IntervalMinutes = 0 }); !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("error = %v, want ErrInvalidSettings", err)
	}
	if m.Current().IntervalMinutes != 45 {
		t.Errorf("Current = %+v, want unchanged after invalid patch", m.Current())
	}
}

func TestSettingsManager_ConcurrentPatchesBothApply(t *testing.T) {
	store := newMockStore()
	store.settings = &model.SyncSettings{ScheduledSyncEnabled: true, IntervalMinutes: 30}
	gated := &gatedSettingsStore{mockStore: store, entered: make(chan struct{}), release: make(chan struct{})}
	m := NewSettingsManager(gated, testLogger)
	if _, err := m.Load(context.Background(), model.SyncSettings{}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	errs := make(chan error, 2)
	go func() {
		_, err := m.Patch(context.Background(), func(s *model.SyncSettings) { s.IntervalMinutes = 90 })
		errs <- err
	}()
	<-gated.entered
	go func() {
		_, err := m.Patch(context.Background(), func(s *model.SyncSettings) { s.ScheduledSyncEnabled = false })
		errs <- err
	}()
	time.Sleep(20 * time.Millisecond)
	close(gated.release)

	for range 2 {
		if err := <-errs; err != nil {
			t.Fatalf("Patch: %v", err)
		}
	}
	want := model.SyncSettings{ScheduledSyncEnabled: false, IntervalMinutes: 90}
	if got := m.Current(); got.ScheduledSyncEnabled != want.ScheduledSyncEnabled || got.IntervalMinutes != want.IntervalMinutes {
		t.Errorf("Current = %+v, want %+v", got, want)
	}
	if store.settings.ScheduledSyncEnabled || store.settings.IntervalMinutes != 90 {
		t.Errorf("stored = %+v, want %+v", *store.settings, want)
	}
}
