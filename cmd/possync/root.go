package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/njoerd114/possync/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// Global persistent flags.
var (
	flagConfigPath string
	flagLogFormat  string
	flagVerbose    bool
	flagJSON       bool
)

// loadedCfg is set by PersistentPreRunE for every command that needs it.
var loadedCfg *config.Config

// skipConfigCommands load or bootstrap config themselves.
var skipConfigCommands = map[string]bool{
	"possync setup":     true,
	"possync status":    true,
	"possync uninstall": true,
	"possync version":   true,
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "possync",
		Short:         "Point-of-sale data sync",
		Long:          "Mirror a point-of-sale system's catalog, customers, receipts and stock into a local datastore.",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if flagLogFormat != "text" && flagLogFormat != "json" {
				return fmt.Errorf("--log-format must be text or json, got %q", flagLogFormat)
			}
			if skipConfigCommands[cmd.CommandPath()] {
				return nil
			}
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path (default ~/.config/possync/config.yaml)")
	cmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "log output format: text or json")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "print command output as JSON")

	cmd.AddCommand(newDaemonCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newStockCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newSettingsCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newSetupCmd())
	cmd.AddCommand(newUninstallCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// configPath returns --config or the default location.
func configPath() (string, error) {
	if flagConfigPath != "" {
		return flagConfigPath, nil
	}
	return config.DefaultPath()
}

func loadConfig() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config from %q: %w\n\nRun 'possync setup' to create one", path, err)
	}
	loadedCfg = cfg
	return nil
}

// buildLogger honours --log-format and --verbose and installs the result as
// the slog default.
func buildLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if flagLogFormat == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "possync", version)
		},
	}
}

func stderr() io.Writer { return os.Stderr }
