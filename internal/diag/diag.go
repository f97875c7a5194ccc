// Package diag runs the subprocess-based readiness probes a
// PermissionReport assembles on top of: whether the media-graph server
// answers, and whether the desktop portal's ScreenCast interface
// introspects successfully. Every probe uses exec.Command with an
// explicit argument vector, never a shell string, so there is no
// interpolation risk even though every argument here is a fixed literal.
package diag

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"screencap.dev/engine/internal/processutil"
)

// ProbeResult is the outcome of one subprocess probe.
type ProbeResult struct {
	Name   string
	OK     bool
	Output string
	Err    error
}

// runProbe executes name with args under a bounded timeout and captures
// combined output for the report's Details.
func runProbe(name string, args []string, timeout time.Duration) ProbeResult {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	processutil.HideConsoleWindow(cmd)

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	return ProbeResult{Name: name, OK: err == nil, Output: buf.String(), Err: err}
}

// CheckMediaGraphServer probes whether a PipeWire (or, failing that,
// PulseAudio-compatible) media-graph server is reachable, per spec §4.10's
// "media-graph server is running" requirement.
func CheckMediaGraphServer() ProbeResult {
	result := runProbe("pw-cli", []string{"info", "0"}, 2*time.Second)
	if result.OK {
		result.Name = "pw-cli"
		return result
	}
	fallback := runProbe("pactl", []string{"info"}, 2*time.Second)
	fallback.Name = "pactl"
	return fallback
}

// CheckPortalScreenCast probes whether xdg-desktop-portal's ScreenCast
// interface introspects successfully over the session bus.
func CheckPortalScreenCast() ProbeResult {
	return runProbe("busctl", []string{
		"--user", "introspect",
		"org.freedesktop.portal.Desktop",
		"/org/freedesktop/portal/desktop",
		"org.freedesktop.portal.ScreenCast",
	}, 3*time.Second)
}

// MissingCompositorPackages names the install candidates a caller should
// suggest when the portal ScreenCast probe above fails, per spec §4.10's edge case:
// at least one of these must be offered so the user has an actionable
// next step.
func MissingCompositorPackages() []string {
	return []string{
		"compositor-gnome-portal",
		"compositor-kde-portal",
		"compositor-wlr-portal",
		"compositor-hyprland-portal",
	}
}
