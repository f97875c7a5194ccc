// Package capture is the public surface of the screen-capture engine: the
// data model (Rect/Monitor/Window/Image/Frame), the Backend capability
// contract each platform realizes, and the enumeration/permission entry
// points. It deliberately excludes the façade object described in spec
// §1 — callers that want call-order discipline and a movable handle wrap
// a Backend themselves.
package capture

// Backend is the capability set every platform realization exposes:
// {screenshot, start, stop, pause, resume, is_paused, set_region} from
// spec §4.3. It is the Go rendering of the original_source
// frametap::internal::Backend interface, generalized across four host
// implementations via the dispatch files in this package
// (capture_windows.go, backend_darwin.go, capture_linux.go,
// capture_unsupported.go).
type Backend interface {
	// Screenshot captures a single image. If region has non-positive
	// width/height it uses the instance's configured region, falling
	// back to the full source when that is also unset.
	Screenshot(region Rect) (Image, error)

	// Start transitions Idle/Stopped -> Running and installs cb. It
	// fails with ErrNoCallback if cb is nil.
	Start(cb FrameCallback) error

	// Stop transitions any state to Stopped, joins the producer, and
	// releases every native handle the backend holds. Idempotent.
	Stop() error

	// Pause and Resume flip the producer's discard flag; they are no-ops
	// unless the backend is Running/Paused.
	Pause()
	Resume()

	// IsPaused reads the pause flag with acquire semantics.
	IsPaused() bool

	// SetRegion updates the active crop rectangle. Safe to call from any
	// goroutine; the next produced frame reflects the new region.
	SetRegion(region Rect)
}

// Target selects what a Backend captures: the zero value means "primary
// monitor / full virtual screen", at most one of Monitor/Window should be
// set, and Region further crops whatever source that resolves to.
type Target struct {
	Monitor *Monitor
	Window  *Window
	Region  Rect
}

// Options configures backend construction.
type Options struct {
	Target Target
}

// New constructs the platform-appropriate Backend for opts. On Linux this
// dispatches to the Wayland or X11 sub-backend per spec §4.8; elsewhere it
// resolves at compile time via build-tagged files.
func New(opts Options) (Backend, error) {
	return newBackend(opts)
}

// GetMonitors enumerates displays on the current platform.
func GetMonitors() ([]Monitor, error) {
	return enumerateMonitors()
}

// GetWindows enumerates top-level windows on the current platform. On the
// Wayland path this always returns an empty list by design (spec §1,
// §4.9) — there is no programmatic window enumeration on that path.
func GetWindows() ([]Window, error) {
	return enumerateWindows()
}

// CheckPermissions runs the platform's readiness diagnostic.
func CheckPermissions() (PermissionReport, error) {
	return checkPermissions()
}
