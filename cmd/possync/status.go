package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/njoerd114/possync/internal/config"
	"github.com/njoerd114/possync/internal/model"
	"github.com/njoerd114/possync/internal/setup"
	"github.com/njoerd114/possync/internal/state"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show service, config and datastore state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

// runStatus loads config itself so a broken or missing config is reported
// rather than fatal.
func runStatus(ctx context.Context, w io.Writer) error {
	cfgPath, err := configPath()
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "possync status")
	fmt.Fprintln(w, "──────────────")

	if setup.IsServiceActive(ctx, setup.RunSystemctl) {
		fmt.Fprintln(w, "  Service:   running (systemd --user)")
	} else {
		fmt.Fprintln(w, "  Service:   not running")
	}

	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Fprintf(w, "  Config:    not found (%s)\n", cfgPath)
		fmt.Fprintln(w, "\nRun 'possync setup' to get started.")
		return nil
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(w, "  Config:    %s (invalid: %v)\n", cfgPath, err)
		return nil
	}
	fmt.Fprintf(w, "  Config:    %s\n", cfgPath)
	fmt.Fprintf(w, "  Remote:    %s\n", cfg.Remote.BaseURL)
	if cfg.HTTPEnabled() {
		fmt.Fprintf(w, "  API:       http://%s/api/sync/status\n", cfg.HTTP.Listen)
	} else {
		fmt.Fprintln(w, "  API:       disabled")
	}

	info, err := os.Stat(cfg.DatabasePath)
	if err != nil {
		fmt.Fprintln(w, "  Datastore: not created yet")
		return nil
	}
	fmt.Fprintf(w, "  Datastore: %s (%s)\n", cfg.DatabasePath, humanSize(info.Size()))

	store, err := state.Open(ctx, cfg.DatabasePath, buildLogger(io.Discard))
	if err != nil {
		fmt.Fprintf(w, "  Datastore: cannot open: %v\n", err)
		return nil
	}
	defer func() { _ = store.Close() }()

	if s, found, err := store.LoadSettings(ctx); err == nil && found {
		sched := "disabled"
		if s.ScheduledSyncEnabled {
			sched = fmt.Sprintf("every %d minute(s)", s.IntervalMinutes)
		}
		fmt.Fprintf(w, "  Schedule:  %s\n", sched)
	}

	fmt.Fprintln(w, "\n  Last successful sync:")
	for _, entity := range model.AllEntities {
		n, _ := store.Count(ctx, entity.Collection())
		last, err := store.LastSuccess(ctx, entity)
		switch {
		case err != nil:
			fmt.Fprintf(w, "    %-10s error: %v\n", entity, err)
		case last == nil:
			fmt.Fprintf(w, "    %-10s never (%d stored)\n", entity, n)
		default:
			fmt.Fprintf(w, "    %-10s %s, %d record(s) (%d stored)\n",
				entity, last.Timestamp.Local().Format("2006-01-02 15:04:05"), last.Count, n)
		}
	}
	return nil
}
