package sync

import (
	"slices"

	"github.com/njoerd114/possync/internal/model"
)

// PreserveStock copies the stock-bearing fields of existing onto incoming
// when stock is owned locally: either a reconciliation run has stamped
// LastInventorySync, or existing has a stock value and incoming carries
// none. All other fields of incoming are left alone. It reports whether the
// fields were carried over.
func PreserveStock(existing, incoming *model.Record) bool {
	if existing == nil || existing.Item == nil || incoming.Item == nil {
		return false
	}
	reconciled := existing.Item.LastInventorySync != nil
	missing := existing.Item.Stock != nil && incoming.Item.Stock == nil
	if !reconciled && !missing {
		return false
	}

	src, dst := existing.Item, incoming.Item
	dst.Stock = nil
	if src.Stock != nil {
		v := *src.Stock
		dst.Stock = &v
	}
	dst.InStock = nil
	if src.InStock != nil {
		v := *src.InStock
		dst.InStock = &v
	}
	dst.InventoryLevels = slices.Clone(src.InventoryLevels)
	dst.LastInventorySync = nil
	if src.LastInventorySync != nil {
		v := *src.LastInventorySync
		dst.LastInventorySync = &v
	}
	return true
}
