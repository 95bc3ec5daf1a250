package setup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/njoerd114/possync/internal/config"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type systemctlRecorder struct {
	calls [][]string
	err   error
}

func (r *systemctlRecorder) run(_ context.Context, args ...string) error {
	r.calls = append(r.calls, args)
	return r.err
}

func lines(in ...string) io.Reader {
	return strings.NewReader(strings.Join(in, "\n") + "\n")
}

func newTestWizard(t *testing.T, input io.Reader, ping PingFunc, sc *systemctlRecorder) (*Wizard, string, string) {
	t.Helper()
	t.Setenv(config.TokenEnvVar, "")
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config", "config.yaml")
	home := filepath.Join(dir, "home")
	if sc == nil {
		sc = &systemctlRecorder{}
	}
	wiz := NewWizard(input, &bytes.Buffer{}, cfgPath, discardLogger,
		WithPing(ping),
		WithSystemctl(sc.run),
		WithHomeDir(home),
	)
	return wiz, cfgPath, home
}

func okPing(context.Context, string, string) error { return nil }

func TestWizard_WritesConfig(t *testing.T) {
	var gotURL, gotToken string
	ping := func(_ context.Context, u, tok string) error {
		gotURL, gotToken = u, tok
		return nil
	}
	in := lines(
		"https://api.pos.example.com/v1.0", // base URL
		"secret-token",                     // token
		"",                                 // schedule enabled (default yes)
		"45",                               // interval
		"",                                 // tick (default 1m)
		"",                                 // listen (default)
		"n",                                // install
	)
	wiz, cfgPath, _ := newTestWizard(t, in, ping, nil)

	if err := wiz.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gotURL != "https://api.pos.example.com/v1.0" || gotToken != "secret-token" {
		t.Errorf("ping got (%q, %q)", gotURL, gotToken)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load written config: %v", err)
	}
	if cfg.Remote.APIToken != "secret-token" {
		t.Errorf("APIToken = %q", cfg.Remote.APIToken)
	}
	if !cfg.Scheduler.Enabled || cfg.Scheduler.IntervalMinutes != 45 {
		t.Errorf("Scheduler = %+v", cfg.Scheduler)
	}
	if cfg.Scheduler.Tick != time.Minute {
		t.Errorf("Tick = %v, want 1m", cfg.Scheduler.Tick)
	}
	if cfg.HTTP.Listen != "127.0.0.1:8085" {
		t.Errorf("Listen = %q", cfg.HTTP.Listen)
	}
}

func TestWizard_PingFailureWritesNothing(t *testing.T) {
	ping := func(context.Context, string, string) error { return errors.New("401") }
	wiz, cfgPath, _ := newTestWizard(t, lines("https://api.pos.example.com", "bad"), ping, nil)

	if err := wiz.Run(context.Background()); err == nil {
		t.Fatal("expected error from failed ping")
	}
	if _, err := os.Stat(cfgPath); !os.IsNotExist(err) {
		t.Errorf("config should not exist, stat err = %v", err)
	}
}

func TestWizard_KeepsExistingConfig(t *testing.T) {
	wiz, cfgPath, _ := newTestWizard(t, lines("n", "n"), okPing, nil)
	orig := &config.Config{Remote: config.RemoteConfig{BaseURL: "https://old.example.com", APIToken: "old"}}
	if err := orig.Write(cfgPath); err != nil {
		t.Fatalf("Write: %v", err)
	}
	before, _ := os.ReadFile(cfgPath)

	if err := wiz.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	after, _ := os.ReadFile(cfgPath)
	if !bytes.Equal(before, after) {
		t.Error("existing config was modified")
	}
}

func TestWizard_OverwriteKeepsTokenAndExtras(t *testing.T) {
	in := lines(
		"y",  // overwrite
		"",   // keep URL
		"",   // keep token
		"n",  // schedule disabled
		"15", // interval
		"30s",
		"off",
		"n",
	)
	wiz, cfgPath, _ := newTestWizard(t, in, okPing, nil)
	orig := &config.Config{
		Remote:            config.RemoteConfig{BaseURL: "https://old.example.com", APIToken: "old"},
		BatchSize:         20,
		SignificantFields: map[string][]string{"customers": {"email"}},
	}
	if err := orig.Write(cfgPath); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := wiz.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Remote.BaseURL != "https://old.example.com" || cfg.Remote.APIToken != "old" {
		t.Errorf("Remote = %+v", cfg.Remote)
	}
	if cfg.Scheduler.Enabled || cfg.Scheduler.IntervalMinutes != 15 || cfg.Scheduler.Tick != 30*time.Second {
		t.Errorf("Scheduler = %+v", cfg.Scheduler)
	}
	if cfg.HTTPEnabled() {
		t.Error("HTTP should be disabled")
	}
	if cfg.BatchSize != 20 || len(cfg.SignificantFields["customers"]) != 1 {
		t.Errorf("extras lost: batch=%d fields=%v", cfg.BatchSize, cfg.SignificantFields)
	}
}

func TestWizard_InstallsService(t *testing.T) {
	sc := &systemctlRecorder{}
	in := lines("https://api.pos.example.com", "tok", "", "", "", "", "y")
	wiz, cfgPath, home := newTestWizard(t, in, okPing, sc)

	if err := wiz.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	unit, err := os.ReadFile(UnitPath(home))
	if err != nil {
		t.Fatalf("reading unit: %v", err)
	}
	if !strings.Contains(string(unit), "daemon --config "+cfgPath) {
		t.Errorf("unit does not reference config:\n%s", unit)
	}

	want := [][]string{{"daemon-reload"}, {"enable", "--now", UnitName}}
	if len(sc.calls) != len(want) {
		t.Fatalf("systemctl calls = %v, want %v", sc.calls, want)
	}
	for i := range want {
		if !slices.Equal(sc.calls[i], want[i]) {
			t.Errorf("call %d = %v, want %v", i, sc.calls[i], want[i])
		}
	}
}

func TestWizard_ServiceEnableFailure(t *testing.T) {
	sc := &systemctlRecorder{err: errors.New("no user bus")}
	in := lines("https://api.pos.example.com", "tok", "", "", "", "", "y")
	wiz, _, _ := newTestWizard(t, in, okPing, sc)

	if err := wiz.Run(context.Background()); err == nil {
		t.Fatal("expected error when systemctl fails")
	}
}
