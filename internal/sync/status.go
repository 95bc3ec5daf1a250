package sync

import (
	"sync"
	"time"

	"github.com/njoerd114/possync/internal/model"
)

// Phase is the activity of one entity type.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseFetching Phase = "fetching"
	PhaseWriting  Phase = "writing"
)

// Progress reports how far the current phase has got. Total is zero while
// fetching because the remote does not announce collection sizes.
type Progress struct {
	Current int     `json:"current"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// EntityStatus is a point-in-time view of one entity type.
type EntityStatus struct {
	Entity    model.EntityType `json:"entity"`
	Phase     Phase            `json:"phase"`
	RunID     string           `json:"run_id,omitempty"`
	StartedAt time.Time        `json:"started_at,omitempty"`
	Progress  Progress         `json:"progress"`
}

// StatusTracker holds the per-entity phase used as the "already syncing"
// guard by both manual triggers and the Scheduler.
type StatusTracker struct {
	mu      sync.Mutex
	entries map[model.EntityType]*EntityStatus
	now     func() time.Time
}

// NewStatusTracker creates a tracker with every entity type idle.
func NewStatusTracker() *StatusTracker {
	t := &StatusTracker{
		entries: make(map[model.EntityType]*EntityStatus, len(model.AllEntities)),
		now:     time.Now,
	}
	for _, e := range model.AllEntities {
		t.entries[e] = &EntityStatus{Entity: e, Phase: PhaseIdle}
	}
	return t
}

// Begin moves entity to PhaseFetching. It returns false, changing nothing,
// when entity or another type writing the same collection is already busy.
func (t *StatusTracker) Begin(entity model.EntityType, runID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.blocked(entity) {
		return false
	}
	st := t.entry(entity)
	st.Phase = PhaseFetching
	st.RunID = runID
	st.StartedAt = t.now()
	st.Progress = Progress{}
	return true
}

// SetPhase changes the phase of a running entity and resets its progress.
func (t *StatusTracker) SetPhase(entity model.EntityType, phase Phase) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.entry(entity)
	st.Phase = phase
	st.Progress = Progress{}
}

// Report records progress for entity.
func (t *StatusTracker) Report(entity model.EntityType, current, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := Progress{Current: current, Total: total}
	if total > 0 {
		p.Percent = float64(current) * 100 / float64(total)
	}
	t.entry(entity).Progress = p
}

// FetchProgress adapts Report to the remote client's page hook, which names
// collections rather than entity types.
func (t *StatusTracker) FetchProgress(collection string, fetched int) {
	entity, err := model.ParseEntityType(collection)
	if err != nil {
		entity = model.EntityStock
	}
	t.Report(entity, fetched, 0)
}

// End returns entity to PhaseIdle.
func (t *StatusTracker) End(entity model.EntityType) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.entry(entity)
	st.Phase = PhaseIdle
	st.RunID = ""
	st.StartedAt = time.Time{}
	st.Progress = Progress{}
}

// Busy reports whether entity is mid-sync.
func (t *StatusTracker) Busy(entity model.EntityType) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entry(entity).Phase != PhaseIdle
}

// Blocked reports whether Begin would currently reject entity.
func (t *StatusTracker) Blocked(entity model.EntityType) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.blocked(entity)
}

func (t *StatusTracker) blocked(entity model.EntityType) bool {
	for e, st := range t.entries {
		if st.Phase != PhaseIdle && e.Collection() == entity.Collection() {
			return true
		}
	}
	return false
}

// AnyBusy reports whether any entity type is mid-sync.
func (t *StatusTracker) AnyBusy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, st := range t.entries {
		if st.Phase != PhaseIdle {
			return true
		}
	}
	return false
}

// Snapshot returns the status of every entity type in model.AllEntities order.
func (t *StatusTracker) Snapshot() []EntityStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]EntityStatus, 0, len(model.AllEntities))
	for _, e := range model.AllEntities {
		out = append(out, *t.entry(e))
	}
	return out
}

// entry must be called with mu held.
func (t *StatusTracker) entry(entity model.EntityType) *EntityStatus {
	st, ok := t.entries[entity]
	if !ok {
		st = &EntityStatus{Entity: entity, Phase: PhaseIdle}
		t.entries[entity] = st
	}
	return st
}
