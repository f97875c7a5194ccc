//go:build linux

package capture

import "os"

// sessionIsWayland reports whether this process should prefer the
// Wayland ScreenCast portal over raw X11, per spec §4.8: Wayland wins
// whenever WAYLAND_DISPLAY is set, even under XWayland where DISPLAY is
// also set, since the portal is the only path that works under a
// Wayland compositor's security model.
func sessionIsWayland() bool {
	return os.Getenv("WAYLAND_DISPLAY") != ""
}

func newBackend(opts Options) (Backend, error) {
	if sessionIsWayland() {
		return newWaylandBackend(opts)
	}
	if os.Getenv("DISPLAY") != "" {
		return newX11Backend(opts)
	}
	return nil, newError(KindConfiguration, "new",
		"neither WAYLAND_DISPLAY nor DISPLAY is set; no display server session was detected", nil)
}

func enumerateMonitors() ([]Monitor, error) {
	if sessionIsWayland() {
		return enumerateMonitorsWayland()
	}
	if os.Getenv("DISPLAY") != "" {
		return enumerateMonitorsX11()
	}
	return nil, newError(KindConfiguration, "enumerate_monitors",
		"neither WAYLAND_DISPLAY nor DISPLAY is set; no display server session was detected", nil)
}

func enumerateWindows() ([]Window, error) {
	if sessionIsWayland() {
		return enumerateWindowsWayland()
	}
	if os.Getenv("DISPLAY") != "" {
		return enumerateWindowsX11()
	}
	return nil, newError(KindConfiguration, "enumerate_windows",
		"neither WAYLAND_DISPLAY nor DISPLAY is set; no display server session was detected", nil)
}

func checkPermissions() (PermissionReport, error) {
	if sessionIsWayland() {
		return checkPermissionsWayland()
	}
	if os.Getenv("DISPLAY") != "" {
		return checkPermissionsX11()
	}
	return PermissionReport{
		Status:  PermissionError,
		Summary: "no display server session detected",
		Details: []string{"neither WAYLAND_DISPLAY nor DISPLAY is set in the environment"},
	}, nil
}
