//go:build !linux || !cgo

package pipewire

import (
	"errors"
	"io"
)

var ErrLibraryNotLoaded = errors.New("pipewire capture backend is only available on linux")

type VideoFormat uint32

const (
	FormatUnknown VideoFormat = 0
	FormatRGB     VideoFormat = 15
	FormatBGR     VideoFormat = 16
	FormatRGBA    VideoFormat = 11
	FormatBGRA    VideoFormat = 12
	FormatRGBx    VideoFormat = 7
	FormatBGRx    VideoFormat = 8
)

type Stream struct{}

func IsAvailable() bool {
	return false
}

func NewStream(fd int, nodeID uint32, width, height uint32) (*Stream, error) {
	return nil, ErrLibraryNotLoaded
}

func (s *Stream) Format() (format VideoFormat, width, height, stride int, ok bool) {
	return FormatUnknown, 0, 0, 0, false
}

func (s *Stream) Start() {}

func (s *Stream) Stop() {}

func (s *Stream) Read(p []byte) (int, error) {
	return 0, io.EOF
}

func (s *Stream) Close() error {
	return nil
}
