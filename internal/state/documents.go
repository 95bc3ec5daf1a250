package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/njoerd114/possync/internal/model"
)

// GetAll loads every document of collection keyed by id.
func (s *Store) GetAll(ctx context.Context, collection string) (map[string]*model.Record, error) {
	const q = `SELECT data FROM documents WHERE collection = ?`
	rows, err := s.db.QueryContext(ctx, q, collection)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", collection, err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]*model.Record)
	for rows.Next() {
		rec, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", collection, err)
		}
		out[rec.ID] = rec
	}
	return out, rows.Err()
}

// Get returns a single document or ErrNotFound.
func (s *Store) Get(ctx context.Context, collection, id string) (*model.Record, error) {
	const q = `SELECT data FROM documents WHERE collection = ? AND id = ?`
	rec, err := scanDocument(s.db.QueryRowContext(ctx, q, collection, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s/%s: %w", collection, id, err)
	}
	return rec, nil
}

// Put inserts or fully replaces a document. The collection is derived from
// the record's entity type.
func (s *Store) Put(ctx context.Context, rec *model.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	return put(ctx, s.db, rec)
}

// Update applies fn to an existing document inside a transaction and stores
// the result. Fields fn leaves untouched are preserved. It returns
// ErrNotFound when the document does not exist.
func (s *Store) Update(ctx context.Context, collection, id string, fn func(*model.Record) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning update of %s/%s: %w", collection, id, err)
	}
	defer func() { _ = tx.Rollback() }()

	const q = `SELECT data FROM documents WHERE collection = ? AND id = ?`
	rec, err := scanDocument(tx.QueryRowContext(ctx, q, collection, id))
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("reading %s/%s: %w", collection, id, err)
	}

	if err := fn(rec); err != nil {
		return err
	}
	if rec.ID != id || rec.Entity.Collection() != collection {
		return fmt.Errorf("update of %s/%s changed the document key", collection, id)
	}
	if err := put(ctx, tx, rec); err != nil {
		return err
	}
	return tx.Commit()
}

// Count returns the number of documents in collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE collection = ?`, collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", collection, err)
	}
	return n, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func put(ctx context.Context, db execer, rec *model.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", rec.Entity, rec.ID, err)
	}
	const q = `
		INSERT INTO documents (collection, id, data, modified_at, written_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
		    data        = excluded.data,
		    modified_at = excluded.modified_at,
		    written_at  = excluded.written_at`
	_, err = db.ExecContext(ctx, q,
		rec.Entity.Collection(),
		rec.ID,
		string(data),
		formatTime(rec.ModifiedAt),
		formatTime(rec.SyncedAt),
	)
	if err != nil {
		return fmt.Errorf("writing %s/%s: %w", rec.Entity, rec.ID, err)
	}
	return nil
}

func scanDocument(s scanner) (*model.Record, error) {
	var data string
	if err := s.Scan(&data); err != nil {
		return nil, err
	}
	var rec model.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return &rec, nil
}
