package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/njoerd114/possync/internal/config"
	"github.com/njoerd114/possync/internal/model"
	"github.com/njoerd114/possync/internal/remote"
	"github.com/njoerd114/possync/internal/state"
	syncp "github.com/njoerd114/possync/internal/sync"
	"github.com/njoerd114/possync/internal/telemetry"
)

// app is the wired object graph shared by every command that syncs.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *state.Store
	client   *remote.Client
	status   *syncp.StatusTracker
	orch     *syncp.Orchestrator
	settings *syncp.SettingsManager

	shutdownTel telemetry.ShutdownFunc
}

// openApp opens the datastore, builds the remote client and wires the sync
// components. Close must be called to flush telemetry and close the store.
func openApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	a.setupTelemetry(ctx)

	store, err := state.Open(ctx, cfg.DatabasePath, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("opening datastore at %q: %w", cfg.DatabasePath, err)
	}
	a.store = store
	logger.Info("datastore opened", "path", cfg.DatabasePath)

	a.status = syncp.NewStatusTracker()
	client, err := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.APIToken, cfg.Remote.PageSize, cfg.Remote.Timeout, logger,
		remote.WithPageHook(a.status.FetchProgress),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("initialising remote client: %w", err)
	}
	a.client = client

	policy, err := cfg.SignificantFieldPolicy()
	if err != nil {
		a.Close()
		return nil, err
	}
	exec := syncp.NewExecutor(store, syncp.NewDetector(policy), cfg.BatchSize, logger)
	a.orch = syncp.NewOrchestrator(client, store, exec, a.status, logger)

	a.settings = syncp.NewSettingsManager(store, logger)
	seed := model.SyncSettings{
		ScheduledSyncEnabled: cfg.Scheduler.Enabled,
		IntervalMinutes:      cfg.Scheduler.IntervalMinutes,
	}
	if _, err := a.settings.Load(ctx, seed); err != nil {
		a.Close()
		return nil, fmt.Errorf("loading sync settings: %w", err)
	}
	return a, nil
}

func (a *app) setupTelemetry(ctx context.Context) {
	if a.cfg.Telemetry == nil {
		return
	}
	shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		OTLPEndpoint: a.cfg.Telemetry.OTLPEndpoint,
		Insecure:     a.cfg.Telemetry.Insecure,
		ServiceName:  a.cfg.Telemetry.ServiceName,
		SampleRatio:  a.cfg.Telemetry.SampleRatio,
		Headers:      a.cfg.Telemetry.Headers,
	})
	if err != nil {
		a.logger.Error("telemetry setup failed, continuing without telemetry", "error", err)
		return
	}
	a.logger.Info("telemetry enabled", "endpoint", a.cfg.Telemetry.OTLPEndpoint)
	a.shutdownTel = shutdown
}

// Close flushes telemetry and closes the datastore.
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("closing datastore", "error", err)
		}
	}
	if a.shutdownTel != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTel(flushCtx); err != nil {
			a.logger.Error("telemetry shutdown error", "error", err)
		}
	}
}
