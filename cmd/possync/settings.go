package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/njoerd114/possync/internal/model"
	syncp "github.com/njoerd114/possync/internal/sync"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the sync schedule",
	}
	cmd.AddCommand(newSettingsShowCmd())
	cmd.AddCommand(newSettingsSetCmd())
	return cmd
}

func newSettingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the schedule settings in effect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, closeStore, err := openSettings(cmd)
			if err != nil {
				return err
			}
			defer closeStore()
			return printSettings(cmd.OutOrStdout(), mgr.Current())
		},
	}
}

func newSettingsSetCmd() *cobra.Command {
	var (
		enabled  bool
		interval int
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change the schedule settings",
		Long: "Change the schedule settings. Only the flags given are changed.\n" +
			"A running daemon picks up the change on its next restart.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("enabled") && !cmd.Flags().Changed("interval") {
				return fmt.Errorf("nothing to change: pass --enabled and/or --interval")
			}
			mgr, closeStore, err := openSettings(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			saved, err := mgr.Patch(cmd.Context(), func(next *model.SyncSettings) {
				if cmd.Flags().Changed("enabled") {
					next.ScheduledSyncEnabled = enabled
				}
				if cmd.Flags().Changed("interval") {
					next.IntervalMinutes = interval
				}
			})
			if err != nil {
				return err
			}
			return printSettings(cmd.OutOrStdout(), saved)
		},
	}
	cmd.Flags().BoolVar(&enabled, "enabled", true, "enable scheduled syncs")
	cmd.Flags().IntVar(&interval, "interval", 30, "minutes between scheduled syncs (1-1440)")
	return cmd
}

// openSettings loads the settings manager over the datastore, seeding from
// config on first use.
func openSettings(cmd *cobra.Command) (*syncp.SettingsManager, func(), error) {
	store, err := openStore(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	mgr := syncp.NewSettingsManager(store, buildLogger(stderr()))
	seed := model.SyncSettings{
		ScheduledSyncEnabled: loadedCfg.Scheduler.Enabled,
		IntervalMinutes:      loadedCfg.Scheduler.IntervalMinutes,
	}
	if _, err := mgr.Load(cmd.Context(), seed); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("loading sync settings: %w", err)
	}
	return mgr, func() { _ = store.Close() }, nil
}

func printSettings(w io.Writer, s model.SyncSettings) error {
	if flagJSON {
		return writeJSON(w, s)
	}
	state := "disabled"
	if s.ScheduledSyncEnabled {
		state = "enabled"
	}
	fmt.Fprintf(w, "Scheduled sync:  %s\n", state)
	fmt.Fprintf(w, "Interval:        %d minute(s)\n", s.IntervalMinutes)
	if !s.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Updated:         %s\n", s.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}
