package setup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderUnit(t *testing.T) {
	data, err := RenderUnit("/usr/local/bin/possync", "/home/u/.config/possync/config.yaml")
	if err != nil {
		t.Fatalf("RenderUnit: %v", err)
	}
	unit := string(data)
	for _, want := range []string{
		"ExecStart=/usr/local/bin/possync daemon --config /home/u/.config/possync/config.yaml",
		"Restart=on-failure",
		"WantedBy=default.target",
	} {
		if !strings.Contains(unit, want) {
			t.Errorf("unit missing %q:\n%s", want, unit)
		}
	}
}

func TestUnitPath(t *testing.T) {
	got := UnitPath("/home/u")
	want := filepath.Join("/home/u", ".config", "systemd", "user", "possync.service")
	if got != want {
		t.Errorf("UnitPath = %q, want %q", got, want)
	}
}

func TestDisableService_NoUnit(t *testing.T) {
	sc := &systemctlRecorder{}
	if err := DisableService(context.Background(), t.TempDir(), sc.run); err != nil {
		t.Fatalf("DisableService: %v", err)
	}
	if len(sc.calls) != 0 {
		t.Errorf("systemctl should not run without a unit, got %v", sc.calls)
	}
}

func TestDisableAndRemoveUnit(t *testing.T) {
	home := t.TempDir()
	if err := WriteUnit(home, "/bin/possync", "/cfg.yaml"); err != nil {
		t.Fatalf("WriteUnit: %v", err)
	}
	sc := &systemctlRecorder{}
	if err := DisableService(context.Background(), home, sc.run); err != nil {
		t.Fatalf("DisableService: %v", err)
	}
	if len(sc.calls) != 1 || sc.calls[0][0] != "disable" {
		t.Errorf("calls = %v", sc.calls)
	}
	if err := RemoveUnit(home); err != nil {
		t.Fatalf("RemoveUnit: %v", err)
	}
	if _, err := os.Stat(UnitPath(home)); !os.IsNotExist(err) {
		t.Errorf("unit still present: %v", err)
	}
	if err := RemoveUnit(home); err != nil {
		t.Errorf("second RemoveUnit should be a no-op: %v", err)
	}
}

func TestIsServiceActive(t *testing.T) {
	sc := &systemctlRecorder{}
	if !IsServiceActive(context.Background(), sc.run) {
		t.Error("expected active when systemctl succeeds")
	}
	sc.err = os.ErrNotExist
	if IsServiceActive(context.Background(), sc.run) {
		t.Error("expected inactive when systemctl fails")
	}
}

func TestPurgeUserData(t *testing.T) {
	home := t.TempDir()
	cfgDir := filepath.Join(home, ".config", BinaryName)
	dataDir := filepath.Join(home, ".local", "share", BinaryName)
	for _, d := range []string{cfgDir, dataDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := PurgeUserData(home); err != nil {
		t.Fatalf("PurgeUserData: %v", err)
	}
	for _, d := range []string{cfgDir, dataDir} {
		if _, err := os.Stat(d); !os.IsNotExist(err) {
			t.Errorf("%s still exists", d)
		}
	}
}
