// Package httpapi exposes the operator surface over HTTP: trigger a sync,
// watch its progress, read and change the schedule, and browse the history
// ledger and stock adjustments.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	gosync "sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/njoerd114/possync/internal/model"
	"github.com/njoerd114/possync/internal/state"
	"github.com/njoerd114/possync/internal/sync"
)

const requestIDHeader = "X-Request-Id"

// Syncer runs one entity sync. Implemented by [sync.Orchestrator].
type Syncer interface {
	Sync(ctx context.Context, entity model.EntityType, opts sync.Options) (sync.Result, error)
}

// Settings reads and replaces the schedule. Implemented by
// [sync.SettingsManager].
type Settings interface {
	Current() model.SyncSettings
	Patch(ctx context.Context, fn func(*model.SyncSettings)) (model.SyncSettings, error)
}

// Ledger is the read side of the datastore. Implemented by [state.Store].
type Ledger interface {
	ListHistory(ctx context.Context, f state.HistoryFilter) ([]model.SyncHistoryEntry, error)
	ListAdjustments(ctx context.Context, productID string, limit int) ([]model.StockAdjustment, error)
}

// SchedulerState reports the scheduler's activity. Implemented by
// [sync.Scheduler].
type SchedulerState interface {
	State() sync.SchedulerState
}

var (
	_ Syncer         = (*sync.Orchestrator)(nil)
	_ Settings       = (*sync.SettingsManager)(nil)
	_ Ledger         = (*state.Store)(nil)
	_ SchedulerState = (*sync.Scheduler)(nil)
)

// Server is the gin-backed operator API. Syncs it accepts run in the
// background under the context passed to [New], so they stop with the
// daemon rather than with the request.
type Server struct {
	syncer    Syncer
	status    *sync.StatusTracker
	settings  Settings
	ledger    Ledger
	scheduler SchedulerState
	log       *slog.Logger

	runCtx context.Context
	runs   gosync.WaitGroup

	engine *gin.Engine
}

// New builds the router. ctx bounds every sync started through the API.
func New(ctx context.Context, syncer Syncer, status *sync.StatusTracker, settings Settings, ledger Ledger, scheduler SchedulerState, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		syncer:    syncer,
		status:    status,
		settings:  settings,
		ledger:    ledger,
		scheduler: scheduler,
		log:       logger,
		runCtx:    ctx,
	}

	r := gin.New()
	r.Use(requestID())
	r.Use(requestLogger(logger))
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	api := r.Group("/api")
	api.POST("/sync/:entity", s.triggerSync)
	api.GET("/sync/status", s.syncStatus)
	api.GET("/settings", s.getSettings)
	api.PUT("/settings", s.putSettings)
	api.GET("/history", s.listHistory)
	api.GET("/stock/adjustments", s.listAdjustments)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	s.engine = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Wait blocks until every sync started through the API has returned.
func (s *Server) Wait() {
	s.runs.Wait()
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully and waits for background syncs.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("operator API listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.Wait()
		return err
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"latency", time.Since(start).String(),
			"request_id", c.GetString("request_id"),
		)
	}
}
