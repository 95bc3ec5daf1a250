package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/njoerd114/possync/internal/model"
)

// ErrInvalidSettings wraps validation failures from SettingsManager.Update.
var ErrInvalidSettings = errors.New("invalid sync settings")

// SettingsManager holds the schedule settings in memory and persists every
// change before it takes effect.
type SettingsManager struct {
	store    SettingsStore
	validate *validator.Validate
	log      *slog.Logger
	now      func() time.Time

	// writeMu serializes Update and Patch.
	writeMu sync.Mutex

	mu      sync.RWMutex
	current model.SyncSettings
}

// NewSettingsManager creates a manager. Call Load before use.
func NewSettingsManager(store SettingsStore, logger *slog.Logger) *SettingsManager {
	return &SettingsManager{
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      logger,
		now:      time.Now,
	}
}

// Load reads the stored settings. On first start, when nothing is stored,
// seed is validated and persisted.
func (m *SettingsManager) Load(ctx context.Context, seed model.SyncSettings) (model.SyncSettings, error) {
	s, found, err := m.store.LoadSettings(ctx)
	if err != nil {
		return model.SyncSettings{}, err
	}
	if !found {
		m.log.Info("no stored sync settings, seeding from config",
			"enabled", seed.ScheduledSyncEnabled,
			"interval_minutes", seed.IntervalMinutes,
		)
		return m.Update(ctx, seed)
	}
	if err := m.check(s); err != nil {
		return model.SyncSettings{}, err
	}

	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
	return s, nil
}

// Current returns the settings in effect.
func (m *SettingsManager) Current() model.SyncSettings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Update validates and persists s, then makes it current. When persisting
// fails the settings in effect are unchanged.
func (m *SettingsManager) Update(ctx context.Context, s model.SyncSettings) (model.SyncSettings, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.save(ctx, s)
}

// Patch applies fn to a copy of the settings in effect and saves the result
// like Update. A concurrent Patch sees the outcome of this one.
func (m *SettingsManager) Patch(ctx context.Context, fn func(*model.SyncSettings)) (model.SyncSettings, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	next := m.Current()
	fn(&next)
	return m.save(ctx, next)
}

func (m *SettingsManager) save(ctx context.Context, s model.SyncSettings) (model.SyncSettings, error) {
	if err := m.check(s); err != nil {
		return model.SyncSettings{}, err
	}
	s.UpdatedAt = m.now().UTC()
	if err := m.store.SaveSettings(ctx, s); err != nil {
		return model.SyncSettings{}, fmt.Errorf("persisting sync settings: %w", err)
	}

	m.mu.Lock()
	m.current = s
	m.mu.Unlock()

	m.log.Info("sync settings updated",
		"enabled", s.ScheduledSyncEnabled,
		"interval_minutes", s.IntervalMinutes,
	)
	return s, nil
}

func (m *SettingsManager) check(s model.SyncSettings) error {
	if err := m.validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s must satisfy %s=%s", ErrInvalidSettings, fe.Field(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return nil
}
