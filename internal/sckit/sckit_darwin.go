//go:build darwin

// Package sckit is a pure cgo bridge onto ScreenCaptureKit: display and
// window capture via a native SCStream, one-shot screenshots, shareable
// content enumeration, and the macOS screen-recording permission check.
// All frame pixels cross the cgo boundary as native BGRA and are
// converted to canonical RGBA on this side.
package sckit

/*
#cgo CFLAGS: -x objective-c -fobjc-arc -mmacosx-version-min=12.3
#cgo LDFLAGS: -mmacosx-version-min=12.3 -framework Foundation -framework ScreenCaptureKit -framework CoreMedia -framework CoreVideo -framework Cocoa
#include "sckit_darwin.h"
#include <stdlib.h>

extern void macVideoCallbackGo(int id, const void *data, uint32_t size, uint32_t width, uint32_t height, uint32_t stride);
*/
import "C"

import (
	"fmt"
	"sync"
	"time"
	"unsafe"

	"screencap.dev/engine/pixel"
)

var (
	streamsMu sync.Mutex
	streams   = make(map[int]*Capturer)
	nextID    = 1

	// screenshotMu serializes one-shot screenshots; the native side keeps
	// a single in-flight one-shot slot.
	screenshotMu sync.Mutex
)

// Capturer wraps one native SCStream. The latest decoded frame is held in
// a small ring of one: every callback overwrites it, and AcquireFrame
// hands back whatever is current, matching the rest of this module's
// poll-the-latest-frame backends (DXGI, X11).
type Capturer struct {
	id  int
	ctx unsafe.Pointer

	mu     sync.Mutex
	latest []byte
	width  uint32
	height uint32
	gen    uint64

	ready     chan struct{}
	readyOnce sync.Once
}

func newCapturer(displayIndex int32, windowID uint32, captureWindow bool) (*Capturer, error) {
	streamsMu.Lock()
	id := nextID
	nextID++
	c := &Capturer{id: id, ready: make(chan struct{})}
	streams[id] = c
	streamsMu.Unlock()

	cb := C.VideoFrameCallback(C.macVideoCallbackGo)
	ctx := C.InitMacCapture(C.int(id), C.int32_t(displayIndex), C.uint32_t(windowID), C.bool(captureWindow), cb)
	if ctx == nil {
		streamsMu.Lock()
		delete(streams, id)
		streamsMu.Unlock()
		return nil, fmt.Errorf("sckit: failed to initialize ScreenCaptureKit stream")
	}
	c.ctx = ctx
	return c, nil
}

// NewDisplayCapture opens a streaming capture of the display at the given
// flattened SCShareableContent.displays index.
func NewDisplayCapture(displayIndex int) (*Capturer, error) {
	return newCapturer(int32(displayIndex), 0, false)
}

// NewWindowCapture opens a streaming capture of one window by its
// CGWindowID.
func NewWindowCapture(windowID uint32) (*Capturer, error) {
	return newCapturer(-1, windowID, true)
}

func (c *Capturer) Start() {
	C.StartMacCapture(c.ctx)
}

func (c *Capturer) Close() {
	streamsMu.Lock()
	delete(streams, c.id)
	streamsMu.Unlock()

	C.StopMacCapture(c.ctx)
	C.FreeMacCapture(c.ctx)
}

// AcquireFrame waits up to timeout for the stream's first frame, then
// returns a copy of whatever frame is most recently decoded (not
// necessarily brand new if the caller polls faster than the source
// produces frames).
func (c *Capturer) AcquireFrame(timeout time.Duration) (pix []byte, w, h int, ok bool, err error) {
	select {
	case <-c.ready:
	case <-time.After(timeout):
		return nil, 0, 0, false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest == nil {
		return nil, 0, 0, false, nil
	}
	out := make([]byte, len(c.latest))
	copy(out, c.latest)
	return out, int(c.width), int(c.height), true, nil
}

//export macVideoCallbackGo
func macVideoCallbackGo(id C.int, data unsafe.Pointer, size C.uint32_t, width C.uint32_t, height C.uint32_t, stride C.uint32_t) {
	streamsMu.Lock()
	c, ok := streams[int(id)]
	streamsMu.Unlock()
	if !ok || data == nil || size == 0 {
		return
	}

	w, h, s := int(width), int(height), int(stride)
	raw := unsafe.Slice((*byte)(data), int(size))
	rgba := bgraStrideToRGBA(raw, w, h, s)

	c.mu.Lock()
	c.latest, c.width, c.height = rgba, width, height
	c.gen++
	c.mu.Unlock()

	c.readyOnce.Do(func() { close(c.ready) })
}

// bgraStrideToRGBA removes row padding (CVPixelBuffer rows are rounded up
// to a platform-chosen alignment) and swaps BGRA to canonical RGBA.
func bgraStrideToRGBA(data []byte, w, h, stride int) []byte {
	rowBytes := w * pixel.BytesPerPixel
	out := make([]byte, h*rowBytes)
	for row := 0; row < h; row++ {
		srcOff := row * stride
		if srcOff+rowBytes > len(data) {
			break
		}
		copy(out[row*rowBytes:(row+1)*rowBytes], data[srcOff:srcOff+rowBytes])
	}
	pixel.Swap(out)
	return out
}

// DisplayInfo is one entry of SCShareableContent.displays.
type DisplayInfo struct {
	Index               int
	DisplayID           uint32
	X, Y, Width, Height int
	Scale               float64
}

// EnumerateDisplays lists every display ScreenCaptureKit is willing to
// show this process, in SCShareableContent order (the same order
// NewDisplayCapture's displayIndex indexes into).
func EnumerateDisplays() ([]DisplayInfo, error) {
	const maxDisplays = 32
	buf := make([]C.MacDisplayInfo, maxDisplays)
	n := C.EnumerateMacDisplays(&buf[0], C.int(maxDisplays))
	if n < 0 {
		return nil, fmt.Errorf("sckit: failed to enumerate shareable content")
	}
	out := make([]DisplayInfo, 0, n)
	for i := 0; i < int(n); i++ {
		d := buf[i]
		out = append(out, DisplayInfo{
			Index: i, DisplayID: uint32(d.displayID),
			X: int(d.x), Y: int(d.y), Width: int(d.width), Height: int(d.height),
			Scale: float64(d.scale),
		})
	}
	return out, nil
}

// WindowInfo is one on-screen, titled entry of SCShareableContent.windows.
type WindowInfo struct {
	WindowID            uint32
	Title               string
	X, Y, Width, Height int
}

func EnumerateWindows() ([]WindowInfo, error) {
	const maxWindows = 256
	buf := make([]C.MacWindowInfo, maxWindows)
	n := C.EnumerateMacWindows(&buf[0], C.int(maxWindows))
	if n < 0 {
		return nil, fmt.Errorf("sckit: failed to enumerate shareable content")
	}
	out := make([]WindowInfo, 0, n)
	for i := 0; i < int(n); i++ {
		w := buf[i]
		out = append(out, WindowInfo{
			WindowID: uint32(w.windowID),
			Title:    C.GoString(&w.title[0]),
			X:        int(w.x), Y: int(w.y), Width: int(w.width), Height: int(w.height),
		})
	}
	return out, nil
}

// HasScreenRecordingPermission reports the result of
// CGPreflightScreenCaptureAccess, which never itself prompts the user.
func HasScreenRecordingPermission() bool {
	return C.CheckMacScreenRecordingPermission() == 0
}

// Screenshot captures exactly one frame from a throwaway SCStream and
// tears it down, rather than keeping a streaming Capturer open for a
// single image.
func Screenshot(displayIndex int, windowID uint32, captureWindow bool) (pix []byte, w, h int, err error) {
	var buf *C.uint8_t
	var size, width, height, stride C.uint32_t

	screenshotMu.Lock()
	defer screenshotMu.Unlock()
	ret := C.CaptureMacScreenshotOnce(C.int32_t(displayIndex), C.uint32_t(windowID), C.bool(captureWindow), &buf, &size, &width, &height, &stride)
	if ret != 0 {
		return nil, 0, 0, fmt.Errorf("sckit: one-shot capture failed or timed out")
	}
	defer C.FreeMacScreenshotBuffer(buf)

	raw := unsafe.Slice((*byte)(unsafe.Pointer(buf)), int(size))
	rgba := bgraStrideToRGBA(raw, int(width), int(height), int(stride))
	return rgba, int(width), int(height), nil
}
