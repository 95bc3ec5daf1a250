package setup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/njoerd114/possync/internal/config"
	"github.com/njoerd114/possync/internal/remote"
)

// PingFunc checks that the remote API accepts baseURL and token.
type PingFunc func(ctx context.Context, baseURL, token string) error

// PingRemote returns a PingFunc backed by [remote.Client.Ping].
func PingRemote(logger *slog.Logger) PingFunc {
	return func(ctx context.Context, baseURL, token string) error {
		c, err := remote.NewClient(baseURL, token, 1, 15*time.Second, logger)
		if err != nil {
			return err
		}
		return c.Ping(ctx)
	}
}

// Wizard guides the user through first-run configuration and installation.
type Wizard struct {
	prompt    *Prompter
	logger    *slog.Logger
	w         io.Writer
	cfgPath   string
	ping      PingFunc
	systemctl Systemctl
	homeDir   func() (string, error)
	goos      string
}

// WizardOption customises a Wizard.
type WizardOption func(*Wizard)

// WithPing replaces the connectivity check.
func WithPing(p PingFunc) WizardOption {
	return func(w *Wizard) { w.ping = p }
}

// WithSystemctl replaces the systemctl runner.
func WithSystemctl(s Systemctl) WizardOption {
	return func(w *Wizard) { w.systemctl = s }
}

// WithHomeDir fixes the home directory used for the unit file.
func WithHomeDir(dir string) WizardOption {
	return func(w *Wizard) {
		w.homeDir = func() (string, error) { return dir, nil }
		w.goos = "linux"
	}
}

// NewWizard creates a Wizard that writes its result to cfgPath.
func NewWizard(r io.Reader, w io.Writer, cfgPath string, logger *slog.Logger, opts ...WizardOption) *Wizard {
	wiz := &Wizard{
		prompt:    NewPrompter(r, w),
		logger:    logger,
		w:         w,
		cfgPath:   cfgPath,
		ping:      PingRemote(logger),
		systemctl: RunSystemctl,
		homeDir:   os.UserHomeDir,
		goos:      runtime.GOOS,
	}
	for _, opt := range opts {
		opt(wiz)
	}
	return wiz
}

// Run executes the wizard: remote connection, schedule, operator API, save,
// then an optional service install.
func (wiz *Wizard) Run(ctx context.Context) error {
	fmt.Fprintf(wiz.w, "\nWelcome to possync setup!\n")
	fmt.Fprintf(wiz.w, "This wizard writes %s.\n\n", wiz.cfgPath)

	var existing *config.Config
	if _, statErr := os.Stat(wiz.cfgPath); statErr == nil {
		fmt.Fprintf(wiz.w, "  Existing config found at %s\n", wiz.cfgPath)
		if !wiz.prompt.Confirm("Overwrite existing configuration?", false) {
			fmt.Fprintf(wiz.w, "\n  Keeping existing config.\n")
			return wiz.offerServiceInstall(ctx)
		}
		if cfg, err := config.Load(wiz.cfgPath); err == nil {
			existing = cfg
		} else {
			wiz.logger.Warn("existing config is invalid, starting fresh", "error", err)
		}
		fmt.Fprintf(wiz.w, "\n")
	}

	fmt.Fprintf(wiz.w, "Step 1/4: Remote API\n")
	var curURL, curToken string
	if existing != nil {
		curURL, curToken = existing.Remote.BaseURL, existing.Remote.APIToken
	}
	baseURL := wiz.prompt.String("API base URL", curURL)
	token := wiz.prompt.Secret("API token", curToken)

	fmt.Fprintf(wiz.w, "  Connecting to the remote API...")
	if err := wiz.ping(ctx, baseURL, token); err != nil {
		fmt.Fprintf(wiz.w, " failed\n")
		return fmt.Errorf("cannot reach the remote API: %w\n\n  Check the URL and token, then try again", err)
	}
	fmt.Fprintf(wiz.w, " ok\n\n")

	fmt.Fprintf(wiz.w, "Step 2/4: Schedule\n")
	enabled := wiz.prompt.Confirm("Run catalog syncs on a schedule?", true)
	interval := wiz.prompt.Int("Minutes between scheduled syncs", 30, 1, 1440)
	tick := wiz.prompt.Duration("How often to check whether a sync is due", time.Minute, 10*time.Second, 10*time.Minute)
	fmt.Fprintf(wiz.w, "\n")

	fmt.Fprintf(wiz.w, "Step 3/4: Operator API\n")
	listen := wiz.prompt.String(`Listen address ("off" to disable)`, "127.0.0.1:8085")
	fmt.Fprintf(wiz.w, "\n")

	fmt.Fprintf(wiz.w, "Step 4/4: Save Configuration\n")
	cfg := &config.Config{
		Remote: config.RemoteConfig{BaseURL: baseURL, APIToken: token},
		Scheduler: config.SchedulerConfig{
			Tick:            tick,
			Enabled:         enabled,
			IntervalMinutes: interval,
		},
		HTTP: config.HTTPConfig{Listen: listen},
	}
	if existing != nil {
		cfg.DatabasePath = existing.DatabasePath
		cfg.BatchSize = existing.BatchSize
		cfg.SignificantFields = existing.SignificantFields
		cfg.Telemetry = existing.Telemetry
	}
	if err := cfg.Write(wiz.cfgPath); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(wiz.w, "  Config written to %s\n\n", wiz.cfgPath)

	return wiz.offerServiceInstall(ctx)
}

// offerServiceInstall asks whether to run the daemon as a systemd user
// service.
func (wiz *Wizard) offerServiceInstall(ctx context.Context) error {
	if wiz.goos != "linux" {
		fmt.Fprintf(wiz.w, "\n  Run the daemon with: %s daemon --config %s\n\n", BinaryName, wiz.cfgPath)
		return nil
	}
	if !wiz.prompt.Confirm("Install as a systemd user service (starts on login)?", false) {
		fmt.Fprintf(wiz.w, "\n  Skipping service install.\n")
		fmt.Fprintf(wiz.w, "  Run manually with: %s daemon --config %s\n\n", BinaryName, wiz.cfgPath)
		return nil
	}

	homeDir, err := wiz.homeDir()
	if err != nil {
		return fmt.Errorf("resolving home directory: %w", err)
	}
	bin, err := BinaryPath()
	if err != nil {
		return err
	}

	if err := WriteUnit(homeDir, bin, wiz.cfgPath); err != nil {
		return err
	}
	fmt.Fprintf(wiz.w, "  Unit written to %s\n", UnitPath(homeDir))

	if err := EnableService(ctx, wiz.systemctl); err != nil {
		return fmt.Errorf("enabling service: %w", err)
	}
	fmt.Fprintf(wiz.w, "  Service enabled and running\n")

	fmt.Fprintf(wiz.w, "\nSetup complete! possync is syncing in the background.\n")
	fmt.Fprintf(wiz.w, "  Config:  %s\n", wiz.cfgPath)
	fmt.Fprintf(wiz.w, "  Logs:    journalctl --user -u %s\n", UnitName)
	fmt.Fprintf(wiz.w, "  Status:  %s status\n", BinaryName)
	fmt.Fprintf(wiz.w, "  Remove:  %s uninstall\n\n", BinaryName)
	return nil
}
