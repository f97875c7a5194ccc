//go:build darwin

package capture

import (
	"sync"
	"time"

	"screencap.dev/engine/internal/capturelog"
	"screencap.dev/engine/internal/sckit"
)

var darwinLog = capturelog.For("capture.darwin")

type darwinBackend struct {
	stateMachine

	target Target

	mu       sync.Mutex
	region   Rect
	capturer *sckit.Capturer

	clock frameClock

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func newBackend(opts Options) (Backend, error) {
	return &darwinBackend{target: opts.Target, region: opts.Target.Region}, nil
}

func (b *darwinBackend) openCapturer() (*sckit.Capturer, error) {
	if b.target.Window != nil {
		return sckit.NewWindowCapture(uint32(b.target.Window.ID))
	}
	idx := 0
	if b.target.Monitor != nil {
		idx = b.target.Monitor.ID
	}
	return sckit.NewDisplayCapture(idx)
}

func (b *darwinBackend) Screenshot(region Rect) (Image, error) {
	const op = "screenshot"
	if region.IsUnset() {
		b.mu.Lock()
		region = b.region
		b.mu.Unlock()
	}

	windowID := uint32(0)
	captureWindow := b.target.Window != nil
	displayIndex := 0
	if captureWindow {
		windowID = uint32(b.target.Window.ID)
	} else if b.target.Monitor != nil {
		displayIndex = b.target.Monitor.ID
	}

	pix, w, h, err := sckit.Screenshot(displayIndex, windowID, captureWindow)
	if err != nil {
		return Image{}, newError(KindResource, op, "ScreenCaptureKit one-shot capture failed", err)
	}
	return cropImage(pix, w, h, region)
}

func (b *darwinBackend) Start(cb FrameCallback) error {
	const op = "start"
	if cb == nil {
		return ErrNoCallback
	}
	if !b.canStart() {
		return newError(KindConfiguration, op, "backend is already running", nil)
	}

	capturer, err := b.openCapturer()
	if err != nil {
		return newError(KindPermission, op, "failed to open ScreenCaptureKit stream", err)
	}
	capturer.Start()

	b.mu.Lock()
	b.capturer = capturer
	b.mu.Unlock()

	ready := make(chan struct{})
	b.stopCh = make(chan struct{})
	b.clock.reset()
	b.markRunning()

	b.wg.Add(1)
	go b.runLoop(cb, ready)

	return WaitForStart(op, ready, DefaultStartTimeout, func() { b.Stop() })
}

func (b *darwinBackend) runLoop(cb FrameCallback, ready chan struct{}) {
	defer b.wg.Done()

	b.mu.Lock()
	capturer := b.capturer
	b.mu.Unlock()

	pix, w, h, ok, err := capturer.AcquireFrame(DefaultStartTimeout)
	close(ready)
	if err != nil || !ok {
		darwinLog.Warn().Err(err).Msg("timed out waiting for the first ScreenCaptureKit frame")
		return
	}
	b.deliver(cb, pix, w, h)

	for {
		select {
		case <-b.stopCh:
			return
		default:
		}

		if b.isPaused() {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		pix, w, h, ok, err := capturer.AcquireFrame(2 * time.Second)
		if err != nil {
			darwinLog.Warn().Err(err).Msg("frame acquisition failed, retrying")
			time.Sleep(50 * time.Millisecond)
			continue
		}
		if !ok {
			continue
		}
		b.deliver(cb, pix, w, h)
	}
}

func (b *darwinBackend) deliver(cb FrameCallback, pix []byte, w, h int) {
	b.mu.Lock()
	region := b.region
	b.mu.Unlock()

	img, err := cropImage(pix, w, h, region)
	if err != nil || img.Width == 0 {
		return
	}
	cb(&Frame{Image: img, DurationMs: b.clock.next()})
}

func (b *darwinBackend) Stop() error {
	if !b.isRunning() {
		b.markStopped()
		return nil
	}
	close(b.stopCh)
	b.wg.Wait()

	b.mu.Lock()
	capturer := b.capturer
	b.capturer = nil
	b.mu.Unlock()
	if capturer != nil {
		capturer.Close()
	}

	b.markStopped()
	return nil
}

func (b *darwinBackend) Pause()         { b.pause() }
func (b *darwinBackend) Resume()        { b.resume() }
func (b *darwinBackend) IsPaused() bool { return b.isPaused() }

func (b *darwinBackend) SetRegion(region Rect) {
	b.mu.Lock()
	b.region = region
	b.mu.Unlock()
}

func enumerateMonitors() ([]Monitor, error) {
	displays, err := sckit.EnumerateDisplays()
	if err != nil {
		return nil, newError(KindResource, "enumerate_monitors", "ScreenCaptureKit shareable content enumeration failed", err)
	}
	out := make([]Monitor, 0, len(displays))
	for _, d := range displays {
		out = append(out, Monitor{ID: d.Index, Name: "Display", X: d.X, Y: d.Y, Width: d.Width, Height: d.Height, Scale: d.Scale})
	}
	return out, nil
}

func enumerateWindows() ([]Window, error) {
	windows, err := sckit.EnumerateWindows()
	if err != nil {
		return nil, newError(KindResource, "enumerate_windows", "ScreenCaptureKit shareable content enumeration failed", err)
	}
	out := make([]Window, 0, len(windows))
	for _, w := range windows {
		out = append(out, Window{ID: uint64(w.WindowID), Name: w.Title, X: w.X, Y: w.Y, Width: w.Width, Height: w.Height})
	}
	return out, nil
}

func checkPermissions() (PermissionReport, error) {
	if sckit.HasScreenRecordingPermission() {
		return PermissionReport{Status: PermissionOK, Summary: "screen recording permission is granted"}, nil
	}
	return PermissionReport{
		Status:  PermissionError,
		Summary: "screen recording permission is not granted",
		Details: []string{"grant this app access under System Settings > Privacy & Security > Screen Recording"},
	}, nil
}
