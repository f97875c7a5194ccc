package capture

import (
	"fmt"
	"time"
)

// DefaultStartTimeout bounds how long Start() waits for a backend's
// native stream to confirm it has actually begun producing frames
// (DXGI/ScreenCaptureKit/PipeWire all signal this asynchronously).
// Mirrors the teacher's defaultFirstFrameTimeout (capture/open_helpers.go).
const DefaultStartTimeout = 8 * time.Second

// WaitForStart blocks until ready fires or timeout elapses. On timeout it
// invokes onTimeout (typically a teardown of whatever was partially
// started) and returns a KindTimeout *Error naming op.
func WaitForStart(op string, ready <-chan struct{}, timeout time.Duration, onTimeout func()) error {
	select {
	case <-ready:
		return nil
	case <-time.After(timeout):
		if onTimeout != nil {
			onTimeout()
		}
		return newError(KindTimeout, op, fmt.Sprintf("timed out waiting for stream to start after %s", timeout), nil)
	}
}
