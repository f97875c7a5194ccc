//go:build !linux

package x11shm

import "fmt"

type Conn struct{}

func Open() (*Conn, error) { return nil, fmt.Errorf("x11shm: not supported on this platform") }

func (c *Conn) Close() {}

func (c *Conn) Screenshot(x, y, w, h int) ([]byte, error) {
	return nil, fmt.Errorf("x11shm: not supported on this platform")
}

func (c *Conn) CaptureWindow(win uint32, w, h uint16) ([]byte, error) {
	return nil, fmt.Errorf("x11shm: not supported on this platform")
}

type OutputGeometry struct {
	Index               int
	Name                string
	X, Y, Width, Height int
}

func (c *Conn) EnumerateOutputs() ([]OutputGeometry, error) {
	return nil, fmt.Errorf("x11shm: not supported on this platform")
}

type WindowInfo struct {
	ID                  uint32
	Title               string
	X, Y, Width, Height int
}

func (c *Conn) EnumerateTopLevelWindows() ([]WindowInfo, error) {
	return nil, fmt.Errorf("x11shm: not supported on this platform")
}

func LastProtocolError() error { return nil }
