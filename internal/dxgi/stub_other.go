//go:build !windows

// This file exists only so `go build ./...` succeeds on non-Windows hosts;
// capture/capture_windows.go (the only importer) is itself windows-only,
// so these stubs never actually run. Mirrors the teacher's
// internal/pipewire/pipewire_stub.go split.
package dxgi

import "fmt"

type Capturer struct{}

type OutputGeometry struct {
	Index, AdapterIndex, OutputIndex int
	Name                              string
	X, Y, Width, Height               int
	HMonitor                          uintptr
}

func New(int) (*Capturer, error) {
	return nil, fmt.Errorf("dxgi: not supported on this platform")
}

func EnumerateOutputs() ([]OutputGeometry, error) {
	return nil, fmt.Errorf("dxgi: not supported on this platform")
}

func (c *Capturer) Bounds() (x, y, w, h int)                           { return 0, 0, 0, 0 }
func (c *Capturer) Close()                                             {}
func (c *Capturer) AcquireFrame(uint32) ([]byte, int, int, bool, error) { return nil, 0, 0, false, nil }

func GDIScreenshot(int, int, int, int) ([]byte, error) {
	return nil, fmt.Errorf("dxgi: not supported on this platform")
}

func PrintWindowCapture(uintptr, int, int) ([]byte, error) {
	return nil, fmt.Errorf("dxgi: not supported on this platform")
}

func IsSecureDesktopActive() bool { return false }

type WindowInfo struct {
	Handle              uintptr
	Title               string
	X, Y, Width, Height int
}

func EnumerateTopLevelWindows() ([]WindowInfo, error) {
	return nil, fmt.Errorf("dxgi: not supported on this platform")
}

func DPIForOutput(uintptr) float64 { return 1.0 }
