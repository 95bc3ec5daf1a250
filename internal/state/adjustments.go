package state

import (
	"context"
	"fmt"

	"github.com/njoerd114/possync/internal/model"
)

// AppendAdjustment logs a stock change and sets a.ID to the new row id.
func (s *Store) AppendAdjustment(ctx context.Context, a *model.StockAdjustment) error {
	const q = `
		INSERT INTO stock_adjustments (product_id, previous_stock, new_stock, delta, reason, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q,
		a.ProductID, a.PreviousStock, a.NewStock, a.Delta, a.Reason, formatTime(a.Timestamp))
	if err != nil {
		return fmt.Errorf("appending stock adjustment for %q: %w", a.ProductID, err)
	}
	if id, err := res.LastInsertId(); err == nil {
		a.ID = id
	}
	return nil
}

// ListAdjustments returns adjustments newest first, optionally restricted to
// one product. A non-positive limit returns everything.
func (s *Store) ListAdjustments(ctx context.Context, productID string, limit int) ([]model.StockAdjustment, error) {
	q := `SELECT id, product_id, previous_stock, new_stock, delta, reason, timestamp FROM stock_adjustments`
	var args []any
	if productID != "" {
		q += " WHERE product_id = ?"
		args = append(args, productID)
	}
	q += " ORDER BY id DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying stock adjustments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.StockAdjustment
	for rows.Next() {
		var a model.StockAdjustment
		var ts string
		if err := rows.Scan(&a.ID, &a.ProductID, &a.PreviousStock, &a.NewStock, &a.Delta, &a.Reason, &ts); err != nil {
			return nil, fmt.Errorf("scanning stock adjustment: %w", err)
		}
		if a.Timestamp, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("stock adjustment %d timestamp: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
