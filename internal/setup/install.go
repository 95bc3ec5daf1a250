package setup

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed possync.service.tmpl
var unitTemplateStr string

const (
	// BinaryName is the name of the installed binary.
	BinaryName = "possync"

	// UnitName is the systemd user unit that runs the daemon.
	UnitName = "possync.service"
)

// unitData holds template values for the systemd unit.
type unitData struct {
	BinaryPath string
	ConfigPath string
}

// UnitPath returns the systemd user unit destination path.
func UnitPath(homeDir string) string {
	return filepath.Join(homeDir, ".config", "systemd", "user", UnitName)
}

// BinaryPath resolves the running executable, following symlinks, so the
// unit keeps working when invoked through a link.
func BinaryPath() (string, error) {
	self, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolving current executable path: %w", err)
	}
	self, err = filepath.EvalSymlinks(self)
	if err != nil {
		return "", fmt.Errorf("resolving executable symlinks: %w", err)
	}
	return self, nil
}

// RenderUnit renders the systemd unit for the given binary and config.
func RenderUnit(binaryPath, configPath string) ([]byte, error) {
	tmpl, err := template.New("unit").Parse(unitTemplateStr)
	if err != nil {
		return nil, fmt.Errorf("parsing unit template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, unitData{BinaryPath: binaryPath, ConfigPath: configPath}); err != nil {
		return nil, fmt.Errorf("executing unit template: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteUnit renders the unit and writes it to ~/.config/systemd/user/.
func WriteUnit(homeDir, binaryPath, configPath string) error {
	data, err := RenderUnit(binaryPath, configPath)
	if err != nil {
		return err
	}
	dest := UnitPath(homeDir)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating systemd user directory: %w", err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("writing unit to %s: %w", dest, err)
	}
	return nil
}

// Systemctl runs systemctl --user. Replaced in tests.
type Systemctl func(ctx context.Context, args ...string) error

// RunSystemctl is the production Systemctl.
func RunSystemctl(ctx context.Context, args ...string) error {
	full := append([]string{"--user"}, args...)
	//nolint:gosec // fixed binary, arguments built by this package
	cmd := exec.CommandContext(ctx, "systemctl", full...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("systemctl %s: %s: %w", strings.Join(full, " "), strings.TrimSpace(string(output)), err)
	}
	return nil
}

// EnableService reloads the user manager and starts the daemon now and on
// every login.
func EnableService(ctx context.Context, systemctl Systemctl) error {
	if err := systemctl(ctx, "daemon-reload"); err != nil {
		return err
	}
	return systemctl(ctx, "enable", "--now", UnitName)
}

// DisableService stops the daemon and removes it from login startup. A
// missing unit is not an error.
func DisableService(ctx context.Context, homeDir string, systemctl Systemctl) error {
	if _, err := os.Stat(UnitPath(homeDir)); os.IsNotExist(err) {
		return nil
	}
	return systemctl(ctx, "disable", "--now", UnitName)
}

// IsServiceActive reports whether the daemon unit is running.
func IsServiceActive(ctx context.Context, systemctl Systemctl) bool {
	return systemctl(ctx, "is-active", "--quiet", UnitName) == nil
}

// RemoveUnit deletes the unit file.
func RemoveUnit(homeDir string) error {
	path := UnitPath(homeDir)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing unit %s: %w", path, err)
	}
	return nil
}

// PurgeUserData removes the config directory and the datastore directory.
func PurgeUserData(homeDir string) error {
	dirs := []string{
		filepath.Join(homeDir, ".config", BinaryName),
		filepath.Join(homeDir, ".local", "share", BinaryName),
	}
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing %s: %w", dir, err)
		}
	}
	return nil
}
