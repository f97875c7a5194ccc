//go:build !darwin

package sckit

import (
	"fmt"
	"time"
)

type Capturer struct{}

func NewDisplayCapture(displayIndex int) (*Capturer, error) {
	return nil, fmt.Errorf("sckit: not supported on this platform")
}

func NewWindowCapture(windowID uint32) (*Capturer, error) {
	return nil, fmt.Errorf("sckit: not supported on this platform")
}

func (c *Capturer) Start() {}
func (c *Capturer) Close() {}

func (c *Capturer) AcquireFrame(timeout time.Duration) (pix []byte, w, h int, ok bool, err error) {
	return nil, 0, 0, false, fmt.Errorf("sckit: not supported on this platform")
}

type DisplayInfo struct {
	Index               int
	DisplayID           uint32
	X, Y, Width, Height int
	Scale               float64
}

func EnumerateDisplays() ([]DisplayInfo, error) {
	return nil, fmt.Errorf("sckit: not supported on this platform")
}

type WindowInfo struct {
	WindowID            uint32
	Title               string
	X, Y, Width, Height int
}

func EnumerateWindows() ([]WindowInfo, error) {
	return nil, fmt.Errorf("sckit: not supported on this platform")
}

func HasScreenRecordingPermission() bool { return false }

func Screenshot(displayIndex int, windowID uint32, captureWindow bool) (pix []byte, w, h int, err error) {
	return nil, 0, 0, fmt.Errorf("sckit: not supported on this platform")
}
