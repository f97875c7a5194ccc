//go:build linux

package capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/BurntSushi/xgb/xproto"

	"screencap.dev/engine/internal/capturelog"
	"screencap.dev/engine/internal/x11shm"
)

var x11Log = capturelog.For("capture.x11")

type x11Backend struct {
	stateMachine

	target Target

	mu     sync.Mutex
	region Rect

	clock frameClock

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func newX11Backend(opts Options) (Backend, error) {
	return &x11Backend{target: opts.Target, region: opts.Target.Region}, nil
}

func (b *x11Backend) Screenshot(region Rect) (Image, error) {
	const op = "screenshot"
	if region.IsUnset() {
		b.mu.Lock()
		region = b.region
		b.mu.Unlock()
	}

	conn, err := x11shm.Open()
	if err != nil {
		return Image{}, newError(KindConfiguration, op, "could not connect to the X server", err)
	}
	defer conn.Close()

	if b.target.Window != nil {
		w := b.target.Window
		pix, err := conn.CaptureWindow(xproto.Window(w.ID), uint16(w.Width), uint16(w.Height))
		if err != nil {
			return Image{}, newError(KindResource, op, "window capture failed", err)
		}
		return cropImage(pix, w.Width, w.Height, region)
	}

	out, srcW, srcH, err := b.resolveMonitorBounds(conn)
	if err != nil {
		return Image{}, err
	}
	pix, err := conn.Screenshot(out.X, out.Y, srcW, srcH)
	if err != nil {
		return Image{}, newError(KindResource, op, "screenshot failed", err)
	}
	return cropImage(pix, srcW, srcH, region)
}

func (b *x11Backend) resolveMonitorBounds(conn *x11shm.Conn) (x11shm.OutputGeometry, int, int, error) {
	outs, err := conn.EnumerateOutputs()
	if err != nil {
		return x11shm.OutputGeometry{}, 0, 0, newError(KindResource, "enumerate_monitors", "randr enumeration failed", err)
	}
	idx := 0
	if b.target.Monitor != nil {
		idx = b.target.Monitor.ID
	}
	if idx >= len(outs) {
		return x11shm.OutputGeometry{}, 0, 0, newError(KindNotFound, "screenshot", fmt.Sprintf("monitor index %d not found", idx), nil)
	}
	out := outs[idx]
	return out, out.Width, out.Height, nil
}

func (b *x11Backend) Start(cb FrameCallback) error {
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

	b.wg.Add(1)
	go b.runLoop(cb, ready)

	return WaitForStart(op, ready, DefaultStartTimeout, func() { b.Stop() })
}

func (b *x11Backend) runLoop(cb FrameCallback, ready chan struct{}) {
	defer b.wg.Done()

	conn, err := x11shm.Open()
	if err != nil {
		x11Log.Error().Err(err).Msg("could not connect to X server for streaming")
		close(ready)
		return
	}
	defer conn.Close()
	close(ready)

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

		img, err := b.captureOneFrame(conn)
		if err != nil {
			x11Log.Warn().Err(err).Msg("frame capture failed, retrying")
			time.Sleep(50 * time.Millisecond)
			continue
		}
		if img.Width == 0 || img.Height == 0 {
			continue
		}
		cb(&Frame{Image: img, DurationMs: b.clock.next()})
	}
}

func (b *x11Backend) captureOneFrame(conn *x11shm.Conn) (Image, error) {
	b.mu.Lock()
	region := b.region
	b.mu.Unlock()

	if b.target.Window != nil {
		w := b.target.Window
		pix, err := conn.CaptureWindow(xproto.Window(w.ID), uint16(w.Width), uint16(w.Height))
		if err != nil {
			return Image{}, err
		}
		return cropImage(pix, w.Width, w.Height, region)
	}

	out, srcW, srcH, cerr := b.resolveMonitorBounds(conn)
	if cerr != nil {
		return Image{}, cerr
	}
	pix, err := conn.Screenshot(out.X, out.Y, srcW, srcH)
	if err != nil {
		return Image{}, err
	}
	return cropImage(pix, srcW, srcH, region)
}

func (b *x11Backend) Stop() error {
	if !b.isRunning() {
		b.markStopped()
		return nil
	}
	close(b.stopCh)
	b.wg.Wait()
	b.markStopped()
	return nil
}

func (b *x11Backend) Pause()         { b.pause() }
func (b *x11Backend) Resume()        { b.resume() }
func (b *x11Backend) IsPaused() bool { return b.isPaused() }

func (b *x11Backend) SetRegion(region Rect) {
	b.mu.Lock()
	b.region = region
	b.mu.Unlock()
}

func enumerateMonitorsX11() ([]Monitor, error) {
	conn, err := x11shm.Open()
	if err != nil {
		return nil, newError(KindConfiguration, "enumerate_monitors", "could not connect to the X server", err)
	}
	defer conn.Close()

	outs, err := conn.EnumerateOutputs()
	if err != nil {
		return nil, newError(KindResource, "enumerate_monitors", "randr enumeration failed", err)
	}
	mons := make([]Monitor, 0, len(outs))
	for _, o := range outs {
		mons = append(mons, Monitor{ID: o.Index, Name: o.Name, X: o.X, Y: o.Y, Width: o.Width, Height: o.Height, Scale: 1.0})
	}
	return mons, nil
}

func enumerateWindowsX11() ([]Window, error) {
	conn, err := x11shm.Open()
	if err != nil {
		return nil, newError(KindConfiguration, "enumerate_windows", "could not connect to the X server", err)
	}
	defer conn.Close()

	wins, err := conn.EnumerateTopLevelWindows()
	if err != nil {
		return nil, newError(KindResource, "enumerate_windows", "window enumeration failed", err)
	}
	out := make([]Window, 0, len(wins))
	for _, w := range wins {
		out = append(out, Window{ID: uint64(w.ID), Name: w.Title, X: w.X, Y: w.Y, Width: w.Width, Height: w.Height})
	}
	return out, nil
}

func checkPermissionsX11() (PermissionReport, error) {
	conn, err := x11shm.Open()
	if err != nil {
		return PermissionReport{
			Status:  PermissionError,
			Summary: "could not connect to the X server",
			Details: []string{err.Error()},
		}, nil
	}
	defer conn.Close()

	if protoErr := x11shm.LastProtocolError(); protoErr != nil {
		return PermissionReport{
			Status:  PermissionWarning,
			Summary: "connected, but a prior X protocol error was recorded",
			Details: []string{protoErr.Error()},
		}, nil
	}
	return PermissionReport{Status: PermissionOK, Summary: "X11 screen capture is available"}, nil
}
