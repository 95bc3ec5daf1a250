package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/njoerd114/possync/internal/model"
)

const historyColumns = `id, run_id, type, success, count, new_count, updated_count,
	skipped_count, error, timestamp, is_scheduled`

// AppendHistory stores one ledger entry. Entries are never updated.
func (s *Store) AppendHistory(ctx context.Context, e model.SyncHistoryEntry) error {
	if e.ID == "" {
		e.ID = model.HistoryID(e.Type, e.Timestamp)
	}
	const q = `INSERT INTO sync_history (` + historyColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		e.ID,
		e.RunID,
		string(e.Type),
		boolToInt(e.Success),
		e.Count,
		e.New,
		e.Updated,
		e.Skipped,
		e.Error,
		formatTime(e.Timestamp),
		boolToInt(e.IsScheduled),
	)
	if err != nil {
		return fmt.Errorf("appending history %q: %w", e.ID, err)
	}
	return nil
}

// HistoryFilter narrows ListHistory. A zero Type matches every entity type;
// a non-positive Limit returns everything.
type HistoryFilter struct {
	Type  model.EntityType
	Limit int
}

// ListHistory returns entries newest first.
func (s *Store) ListHistory(ctx context.Context, f HistoryFilter) ([]model.SyncHistoryEntry, error) {
	var (
		where []string
		args  []any
	)
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	q := `SELECT ` + historyColumns + ` FROM sync_history`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY timestamp DESC, id DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.SyncHistoryEntry
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// LastSuccess returns the most recent successful entry for t, or for any
// type when t is empty. It returns (nil, nil) when there is none.
func (s *Store) LastSuccess(ctx context.Context, t model.EntityType) (*model.SyncHistoryEntry, error) {
	q := `SELECT ` + historyColumns + ` FROM sync_history WHERE success = 1`
	var args []any
	if t != "" {
		q += " AND type = ?"
		args = append(args, string(t))
	}
	q += " ORDER BY timestamp DESC LIMIT 1"

	e, err := scanHistory(s.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // "no success yet" is not an error
	}
	return e, err
}

// HasHistory reports whether any entry has ever been written.
func (s *Store) HasHistory(ctx context.Context) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_history`).Scan(&n); err != nil {
		return false, fmt.Errorf("counting history: %w", err)
	}
	return n > 0, nil
}

func scanHistory(s scanner) (*model.SyncHistoryEntry, error) {
	var (
		e                    model.SyncHistoryEntry
		typ, ts              string
		success, isScheduled int
	)
	err := s.Scan(&e.ID, &e.RunID, &typ, &success, &e.Count, &e.New, &e.Updated,
		&e.Skipped, &e.Error, &ts, &isScheduled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning history row: %w", err)
	}
	e.Type = model.EntityType(typ)
	e.Success = success == 1
	e.IsScheduled = isScheduled == 1
	if e.Timestamp, err = parseTime(ts); err != nil {
		return nil, fmt.Errorf("history %q timestamp: %w", e.ID, err)
	}
	return &e, nil
}
