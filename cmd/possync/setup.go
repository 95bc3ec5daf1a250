package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/njoerd114/possync/internal/setup"
)

func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactive first-run wizard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
			slog.SetDefault(logger)

			ctx, cancel := shutdownContext(cmd.Context(), logger)
			defer cancel()

			cfgPath, err := configPath()
			if err != nil {
				return err
			}
			wiz := setup.NewWizard(cmd.InOrStdin(), cmd.OutOrStdout(), cfgPath, logger)
			return wiz.Run(ctx)
		},
	}
}

func newUninstallCmd() *cobra.Command {
	var purge bool
	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Stop and remove the systemd user service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("resolving home directory: %w", err)
			}
			w := cmd.OutOrStdout()
			ctx := cmd.Context()

			fmt.Fprintln(w, "Uninstalling possync...")

			if err := setup.DisableService(ctx, homeDir, setup.RunSystemctl); err != nil {
				fmt.Fprintf(w, "  ! %v\n", err)
			} else {
				fmt.Fprintln(w, "  Service stopped")
			}
			if err := setup.RemoveUnit(homeDir); err != nil {
				fmt.Fprintf(w, "  ! %v\n", err)
			} else {
				fmt.Fprintln(w, "  Unit removed")
			}
			_ = setup.RunSystemctl(ctx, "daemon-reload")

			if purge {
				if err := setup.PurgeUserData(homeDir); err != nil {
					fmt.Fprintf(w, "  ! %v\n", err)
				} else {
					fmt.Fprintln(w, "  Config and datastore removed")
				}
			} else {
				fmt.Fprintln(w, "\n  Config and datastore preserved.")
				fmt.Fprintln(w, "  Run with --purge to also remove them.")
			}
			fmt.Fprintln(w, "\npossync uninstalled.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "also remove config and datastore")
	return cmd
}
