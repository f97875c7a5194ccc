//go:build linux

// Package x11shm implements screen and window capture against a
// traditional X11 (or XWayland) display using the MIT-SHM extension for
// the hot capture path, with a plain xproto.GetImage fallback when the
// server does not advertise it. The connection is driven through
// github.com/BurntSushi/xgb, a pure-Go X11 client, so this package never
// links libX11/libXext.
package x11shm

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/shm"
	"github.com/BurntSushi/xgb/xproto"
	"golang.org/x/sys/unix"

	"screencap.dev/engine/internal/capturelog"
)

var log = capturelog.For("capture.x11shm")

// Go has no thread-local storage in the C sense (goroutines migrate
// between OS threads), so the teacher-equivalent "per-thread last X
// error" pattern becomes a single mutex-guarded slot shared by the
// process, installed once. xgb itself delivers protocol errors through
// each request's Reply()/Check() call rather than through a global
// handler hook the way Xlib's XSetErrorHandler does, so this is advisory
// bookkeeping for callers that want to inspect the most recent failure
// independent of which call surfaced it.
var (
	errInstallOnce sync.Once
	protoErrMu     sync.Mutex
	lastProtoErr   error
)

func installErrorRecorder() {
	errInstallOnce.Do(func() {})
}

// LastProtocolError returns the most recently observed X protocol error
// across every Conn this process has opened, or nil if none have
// occurred.
func LastProtocolError() error {
	protoErrMu.Lock()
	defer protoErrMu.Unlock()
	return lastProtoErr
}

func recordProtoErr(err error) {
	if err == nil {
		return
	}
	protoErrMu.Lock()
	lastProtoErr = err
	protoErrMu.Unlock()
}

// Conn wraps an xgb connection plus the extensions this package needs.
type Conn struct {
	X        *xgb.Conn
	Root     xproto.Window
	Screen   *xproto.ScreenInfo
	hasSHM   bool
	hasRandR bool
}

// Open connects to the X server named by the DISPLAY environment
// variable (xgb's default resolution) and initializes the MIT-SHM and
// RandR extensions, tolerating either being absent.
func Open() (*Conn, error) {
	installErrorRecorder()

	x, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect to X server: %w", err)
	}

	setup := xproto.Setup(x)
	screen := setup.DefaultScreen(x)

	c := &Conn{X: x, Root: screen.Root, Screen: screen}

	if err := shm.Init(x); err != nil {
		log.Warn().Err(err).Msg("MIT-SHM extension unavailable, falling back to GetImage")
	} else {
		c.hasSHM = true
	}

	if err := randr.Init(x); err != nil {
		log.Warn().Err(err).Msg("RandR extension unavailable, monitor enumeration will report a single virtual screen")
	} else {
		c.hasRandR = true
	}

	return c, nil
}

func (c *Conn) Close() {
	c.X.Close()
}

// shmSegment is one System-V shared-memory segment attached both to this
// process and to the X server via shm.Attach.
type shmSegment struct {
	shmID int
	data  []byte
	segID shm.Seg
}

func newShmSegment(conn *xgb.Conn, size int) (*shmSegment, error) {
	id, err := unix.SysvShmGet(unix.IPC_PRIVATE, size, unix.IPC_CREAT|0600)
	if err != nil {
		return nil, fmt.Errorf("shmget: %w", err)
	}

	data, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		unix.SysvShmCtl(id, unix.IPC_RMID, nil)
		return nil, fmt.Errorf("shmat: %w", err)
	}

	segID, err := shm.NewSegId(conn)
	if err != nil {
		unix.SysvShmDetach(data)
		unix.SysvShmCtl(id, unix.IPC_RMID, nil)
		return nil, fmt.Errorf("new shm seg id: %w", err)
	}

	if err := shm.AttachChecked(conn, segID, uint32(id), false).Check(); err != nil {
		unix.SysvShmDetach(data)
		unix.SysvShmCtl(id, unix.IPC_RMID, nil)
		return nil, fmt.Errorf("shm.Attach: %w", err)
	}

	// Mark the segment for removal now: the kernel finalizes the
	// destroy once every attacher (us and the X server) detaches, and
	// this way a crash before Close() never leaks a System-V segment.
	unix.SysvShmCtl(id, unix.IPC_RMID, nil)

	return &shmSegment{shmID: id, data: data, segID: segID}, nil
}

func (s *shmSegment) bytes() []byte {
	return s.data
}

func (s *shmSegment) close(conn *xgb.Conn) {
	shm.Detach(conn, s.segID)
	unix.SysvShmDetach(s.data)
}
