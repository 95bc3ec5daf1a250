package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/njoerd114/possync/internal/httpapi"
	syncp "github.com/njoerd114/possync/internal/sync"
)

func newDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the scheduler and the operator API until interrupted",
		Args:  cobra.NoArgs,
		RunE:  runDaemon,
	}
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	logger := buildLogger(stderr())
	cfg := loadedCfg

	ctx, cancel := shutdownContext(cmd.Context(), logger)
	defer cancel()

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("pinging remote API", "url", cfg.Remote.BaseURL)
	if err := a.client.Ping(ctx); err != nil {
		return fmt.Errorf("connecting to remote API at %q: %w\n\nCheck remote.base_url and remote.api_token in your config file", cfg.Remote.BaseURL, err)
	}
	logger.Info("remote API reachable")

	current := a.settings.Current()
	scheduler := syncp.NewScheduler(a.orch, a.status, a.store, a.settings, cfg.Scheduler.Tick, logger)
	logger.Info("daemon starting",
		"tick", cfg.Scheduler.Tick,
		"scheduled_sync_enabled", current.ScheduledSyncEnabled,
		"interval_minutes", current.IntervalMinutes,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := scheduler.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("scheduler: %w", err)
		}
		return nil
	})
	if cfg.HTTPEnabled() {
		srv := httpapi.New(gctx, a.orch, a.status, a.settings, a.store, scheduler, logger)
		g.Go(func() error {
			if err := srv.ListenAndServe(gctx, cfg.HTTP.Listen); err != nil {
				return fmt.Errorf("operator API: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
