//go:build windows

package capture

import (
	"fmt"
	"sync"
	"time"

	"screencap.dev/engine/internal/capturelog"
	"screencap.dev/engine/internal/dxgi"
)

var winLog = capturelog.For("capture.windows")

// windowsBackend realizes Backend on top of internal/dxgi: desktop
// duplication when available, falling back to GDI BitBlt/PrintWindow on
// the secure desktop or when duplication construction fails outright.
type windowsBackend struct {
	stateMachine

	target Target

	mu       sync.Mutex
	region   Rect
	capturer *dxgi.Capturer
	hwnd     uintptr // set when target.Window is non-nil

	clock frameClock

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func newBackend(opts Options) (Backend, error) {
	b := &windowsBackend{target: opts.Target, region: opts.Target.Region}
	return b, nil
}

func (b *windowsBackend) resolveMonitorIndex() int {
	if b.target.Monitor != nil {
		return b.target.Monitor.ID
	}
	return 0
}

// Screenshot implements Backend.Screenshot.
func (b *windowsBackend) Screenshot(region Rect) (Image, error) {
	const op = "screenshot"
	if region.IsUnset() {
		b.mu.Lock()
		region = b.region
		b.mu.Unlock()
	}

	if b.target.Window != nil {
		return b.screenshotWindow(op, region)
	}
	return b.screenshotMonitor(op, region)
}

func (b *windowsBackend) screenshotWindow(op string, region Rect) (Image, error) {
	w := b.target.Window
	pix, err := dxgi.PrintWindowCapture(uintptr(w.ID), w.Width, w.Height)
	if err != nil {
		return Image{}, newError(KindResource, op, "window capture failed", err)
	}
	return cropImage(pix, w.Width, w.Height, region)
}

func (b *windowsBackend) screenshotMonitor(op string, region Rect) (Image, error) {
	idx := b.resolveMonitorIndex()
	outputs, err := dxgi.EnumerateOutputs()
	if err != nil || idx >= len(outputs) {
		return Image{}, newError(KindNotFound, op, fmt.Sprintf("monitor index %d not found", idx), err)
	}
	out := outputs[idx]

	if dxgi.IsSecureDesktopActive() {
		pix, err := dxgi.GDIScreenshot(out.X, out.Y, out.Width, out.Height)
		if err != nil {
			return Image{}, newError(KindPermission, op, "secure desktop active and GDI fallback failed", err)
		}
		return cropImage(pix, out.Width, out.Height, region)
	}

	c, err := dxgi.New(idx)
	if err != nil {
		pix, gerr := dxgi.GDIScreenshot(out.X, out.Y, out.Width, out.Height)
		if gerr != nil {
			return Image{}, newError(KindResource, op, "duplication unavailable and GDI fallback failed", gerr)
		}
		return cropImage(pix, out.Width, out.Height, region)
	}
	defer c.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		pix, w, h, ok, err := c.AcquireFrame(500)
		if err != nil {
			return Image{}, newError(KindResource, op, "acquire frame failed", err)
		}
		if ok {
			return cropImage(pix, w, h, region)
		}
	}
	return Image{}, newError(KindTimeout, op, "timed out waiting for a duplicated frame", nil)
}

// Start implements Backend.Start.
func (b *windowsBackend) Start(cb FrameCallback) error {
	const op = "start"
	if cb == nil {
		return ErrNoCallback
	}
	if !b.canStart() {
		return newError(KindConfiguration, op, "backend is already running", nil)
	}

	ready := make(chan struct{})
	b.stopCh = make(chan struct{})
	b.clock.reset()
	b.markRunning()

	var startErr error
	b.wg.Add(1)
	go b.runLoop(cb, ready, &startErr)

	if err := WaitForStart(op, ready, DefaultStartTimeout, func() { b.Stop() }); err != nil {
		return err
	}
	return startErr
}

func (b *windowsBackend) runLoop(cb FrameCallback, ready chan struct{}, startErr *error) {
	defer b.wg.Done()

	if b.target.Window == nil {
		idx := b.resolveMonitorIndex()
		if !dxgi.IsSecureDesktopActive() {
			c, err := dxgi.New(idx)
			if err == nil {
				b.mu.Lock()
				b.capturer = c
				b.mu.Unlock()
			}
		}
	}
	close(ready)

	for {
		select {
		case <-b.stopCh:
			b.mu.Lock()
			if b.capturer != nil {
				b.capturer.Close()
				b.capturer = nil
			}
			b.mu.Unlock()
			return
		default:
		}

		if b.isPaused() {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		img, err := b.captureOneFrame()
		if err != nil {
			winLog.Warn().Err(err).Msg("frame capture failed, retrying")
			time.Sleep(50 * time.Millisecond)
			continue
		}
		if img.Width == 0 || img.Height == 0 {
			continue
		}
		cb(&Frame{Image: img, DurationMs: b.clock.next()})
	}
}

func (b *windowsBackend) captureOneFrame() (Image, error) {
	b.mu.Lock()
	region := b.region
	capturer := b.capturer
	b.mu.Unlock()

	if b.target.Window != nil {
		w := b.target.Window
		pix, err := dxgi.PrintWindowCapture(uintptr(w.ID), w.Width, w.Height)
		if err != nil {
			return Image{}, err
		}
		return cropImage(pix, w.Width, w.Height, region)
	}

	if capturer == nil {
		idx := b.resolveMonitorIndex()
		outputs, err := dxgi.EnumerateOutputs()
		if err != nil || idx >= len(outputs) {
			return Image{}, fmt.Errorf("monitor index %d not found", idx)
		}
		out := outputs[idx]
		pix, err := dxgi.GDIScreenshot(out.X, out.Y, out.Width, out.Height)
		if err != nil {
			return Image{}, err
		}
		return cropImage(pix, out.Width, out.Height, region)
	}

	pix, fw, fh, ok, err := capturer.AcquireFrame(100)
	if err != nil {
		// Access lost or device removed: reacquire duplication from
		// scratch right away rather than degrading to GDI. Only surface
		// an error if the reinitialization itself fails.
		idx := b.resolveMonitorIndex()
		newCapturer, reopenErr := dxgi.New(idx)
		b.mu.Lock()
		if b.capturer != nil {
			b.capturer.Close()
		}
		if reopenErr == nil {
			b.capturer = newCapturer
		} else {
			b.capturer = nil
		}
		b.mu.Unlock()
		if reopenErr != nil {
			return Image{}, fmt.Errorf("reacquire duplication after %w: %v", err, reopenErr)
		}
		return Image{Width: 0, Height: 0}, nil
	}
	if !ok {
		return Image{Width: 0, Height: 0}, nil
	}
	return cropImage(pix, fw, fh, region)
}

// Stop implements Backend.Stop.
func (b *windowsBackend) Stop() error {
	if !b.isRunning() {
		b.markStopped()
		return nil
	}
	close(b.stopCh)
	b.wg.Wait()
	b.markStopped()
	return nil
}

func (b *windowsBackend) Pause()        { b.pause() }
func (b *windowsBackend) Resume()       { b.resume() }
func (b *windowsBackend) IsPaused() bool { return b.isPaused() }

func (b *windowsBackend) SetRegion(region Rect) {
	b.mu.Lock()
	b.region = region
	b.mu.Unlock()
}

func enumerateMonitors() ([]Monitor, error) {
	outs, err := dxgi.EnumerateOutputs()
	if err != nil {
		return nil, newError(KindResource, "enumerate_monitors", "dxgi output enumeration failed", err)
	}
	mons := make([]Monitor, 0, len(outs))
	for _, o := range outs {
		mons = append(mons, Monitor{
			ID: o.Index, Name: o.Name,
			X: o.X, Y: o.Y, Width: o.Width, Height: o.Height,
			Scale: dxgi.DPIForOutput(o.HMonitor),
		})
	}
	return mons, nil
}

func enumerateWindows() ([]Window, error) {
	wins, err := dxgi.EnumerateTopLevelWindows()
	if err != nil {
		return nil, newError(KindResource, "enumerate_windows", "window enumeration failed", err)
	}
	out := make([]Window, 0, len(wins))
	for _, w := range wins {
		out = append(out, Window{
			ID: uint64(w.Handle), Name: w.Title,
			X: w.X, Y: w.Y, Width: w.Width, Height: w.Height,
		})
	}
	return out, nil
}

func checkPermissions() (PermissionReport, error) {
	if dxgi.IsSecureDesktopActive() {
		return PermissionReport{
			Status:  PermissionWarning,
			Summary: "the active desktop is a secure desktop (UAC prompt or lock screen); duplication will fall back to GDI until it is dismissed",
		}, nil
	}
	if _, err := dxgi.EnumerateOutputs(); err != nil {
		return PermissionReport{
			Status:  PermissionError,
			Summary: "could not enumerate display outputs",
			Details: []string{err.Error()},
		}, nil
	}
	return PermissionReport{Status: PermissionOK, Summary: "desktop duplication is available"}, nil
}
