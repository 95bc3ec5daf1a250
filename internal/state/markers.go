package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// MarkerLatestReceipts is the watermark used by quick receipt syncs.
const MarkerLatestReceipts = "receipts.latest"

// SetMarker stores a named timestamp, replacing any previous value.
func (s *Store) SetMarker(ctx context.Context, key string, value time.Time) error {
	const q = `
		INSERT INTO sync_markers (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, q, key, formatTime(value), formatTime(time.Now())); err != nil {
		return fmt.Errorf("setting marker %q: %w", key, err)
	}
	return nil
}

// GetMarker returns a named timestamp. ok is false when it was never set.
func (s *Store) GetMarker(ctx context.Context, key string) (value time.Time, ok bool, err error) {
	var raw string
	err = s.db.QueryRowContext(ctx, `SELECT value FROM sync_markers WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("reading marker %q: %w", key, err)
	}
	if value, err = parseTime(raw); err != nil {
		return time.Time{}, false, fmt.Errorf("marker %q: %w", key, err)
	}
	return value, !value.IsZero(), nil
}
