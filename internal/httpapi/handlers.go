package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/njoerd114/possync/internal/model"
	"github.com/njoerd114/possync/internal/state"
	"github.com/njoerd114/possync/internal/sync"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Sync modes accepted by POST /api/sync/:entity.
const (
	ModeFull  = "full"
	ModeQuick = "quick"
)

type triggerResponse struct {
	Entity model.EntityType `json:"entity"`
	Mode   string           `json:"mode"`
	Status string           `json:"status"`
}

type statusResponse struct {
	Scheduler sync.SchedulerState `json:"scheduler"`
	Entities  []sync.EntityStatus `json:"entities"`
}

// settingsRequest fields are optional; omitted ones keep their current value.
type settingsRequest struct {
	ScheduledSyncEnabled *bool `json:"scheduled_sync_enabled"`
	IntervalMinutes      *int  `json:"interval_minutes"`
}

func (s *Server) triggerSync(c *gin.Context) {
	entity, err := model.ParseEntityType(c.Param("entity"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mode := c.DefaultQuery("mode", ModeFull)
	if mode != ModeFull && mode != ModeQuick {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be quick or full"})
		return
	}
	if s.status.Blocked(entity) {
		c.JSON(http.StatusConflict, gin.H{"error": sync.ErrSyncInProgress.Error(), "entity": entity})
		return
	}

	opts := sync.Options{Trigger: sync.TriggerManual, Quick: mode == ModeQuick}
	log := s.log.With("entity", entity, "mode", mode, "request_id", c.GetString("request_id"))

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		res, err := s.syncer.Sync(s.runCtx, entity, opts)
		if err != nil {
			if errors.Is(err, sync.ErrSyncInProgress) {
				log.Info("manual sync rejected, already running")
				return
			}
			log.Error("manual sync failed", "error", err)
			return
		}
		log.Info("manual sync finished", "run_id", res.RunID, "total", res.Counts.Total)
	}()

	c.JSON(http.StatusAccepted, triggerResponse{Entity: entity, Mode: mode, Status: "accepted"})
}

func (s *Server) syncStatus(c *gin.Context) {
	c.JSON(http.StatusOK, statusResponse{
		Scheduler: s.scheduler.State(),
		Entities:  s.status.Snapshot(),
	})
}

func (s *Server) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.settings.Current())
}

func (s *Server) putSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	saved, err := s.settings.Patch(c.Request.Context(), func(next *model.SyncSettings) {
		if req.ScheduledSyncEnabled != nil {
			next.ScheduledSyncEnabled = *req.ScheduledSyncEnabled
		}
		if req.IntervalMinutes != nil {
			next.IntervalMinutes = *req.IntervalMinutes
		}
	})
	switch {
	case errors.Is(err, sync.ErrInvalidSettings):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		s.log.Error("saving settings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save settings"})
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (s *Server) listHistory(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	var f state.HistoryFilter
	f.Limit = limit
	if raw := c.Query("type"); raw != "" {
		t, err := model.ParseEntityType(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		f.Type = t
	}

	entries, err := s.ledger.ListHistory(c.Request.Context(), f)
	if err != nil {
		s.log.Error("listing history", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list history"})
		return
	}
	if entries == nil {
		entries = []model.SyncHistoryEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (s *Server) listAdjustments(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	adjustments, err := s.ledger.ListAdjustments(c.Request.Context(), c.Query("product_id"), limit)
	if err != nil {
		s.log.Error("listing stock adjustments", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list stock adjustments"})
		return
	}
	if adjustments == nil {
		adjustments = []model.StockAdjustment{}
	}
	c.JSON(http.StatusOK, gin.H{"adjustments": adjustments})
}

// parseLimit writes a 400 and returns false when ?limit= is malformed.
func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	return min(n, maxListLimit), true
}
