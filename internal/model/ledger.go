package model

import (
	"fmt"
	"time"
)

// SyncHistoryEntry records one sync attempt for one entity type. Entries
// are append-only.
type SyncHistoryEntry struct {
	ID          string     `json:"id"`
	RunID       string     `json:"run_id"`
	Type        EntityType `json:"type"`
	Success     bool       `json:"success"`
	Count       int        `json:"count"`
	New         int        `json:"new"`
	Updated     int        `json:"updated"`
	Skipped     int        `json:"skipped"`
	Error       string     `json:"error,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
	IsScheduled bool       `json:"is_scheduled"`
}

// HistoryID builds the ledger key "{type}-{unix millis}".
func HistoryID(t EntityType, ts time.Time) string {
	return fmt.Sprintf("%s-%d", t, ts.UnixMilli())
}

// SyncSettings is the singleton schedule configuration.
type SyncSettings struct {
	ScheduledSyncEnabled bool      `json:"scheduled_sync_enabled"`
	IntervalMinutes      int       `json:"interval_minutes" validate:"min=1,max=1440"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Interval returns IntervalMinutes as a duration.
func (s SyncSettings) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// StockAdjustment logs a remote-driven change to an item's stock.
type StockAdjustment struct {
	ID            int64     `json:"id"`
	ProductID     string    `json:"product_id"`
	PreviousStock float64   `json:"previous_stock"`
	NewStock      float64   `json:"new_stock"`
	Delta         float64   `json:"delta"`
	Reason        string    `json:"reason"`
	Timestamp     time.Time `json:"timestamp"`
}
