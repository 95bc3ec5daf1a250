package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/njoerd114/possync/internal/model"
)

// LoadSettings returns the stored settings singleton. found is false when no
// settings have been saved yet.
func (s *Store) LoadSettings(ctx context.Context) (settings model.SyncSettings, found bool, err error) {
	const q = `SELECT scheduled_sync_enabled, interval_minutes, updated_at FROM sync_settings WHERE id = 1`
	var enabled int
	var updated string
	err = s.db.QueryRowContext(ctx, q).Scan(&enabled, &settings.IntervalMinutes, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SyncSettings{}, false, nil
	}
	if err != nil {
		return model.SyncSettings{}, false, fmt.Errorf("loading settings: %w", err)
	}
	settings.ScheduledSyncEnabled = enabled == 1
	if settings.UpdatedAt, err = parseTime(updated); err != nil {
		return model.SyncSettings{}, false, fmt.Errorf("settings updated_at: %w", err)
	}
	return settings, true, nil
}

// SaveSettings replaces the settings singleton.
func (s *Store) SaveSettings(ctx context.Context, settings model.SyncSettings) error {
	const q = `
		INSERT INTO sync_settings (id, scheduled_sync_enabled, interval_minutes, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		    scheduled_sync_enabled = excluded.scheduled_sync_enabled,
		    interval_minutes       = excluded.interval_minutes,
		    updated_at             = excluded.updated_at`
	_, err := s.db.ExecContext(ctx, q,
		boolToInt(settings.ScheduledSyncEnabled),
		settings.IntervalMinutes,
		formatTime(settings.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}
