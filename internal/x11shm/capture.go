//go:build linux

package x11shm

import (
	"fmt"

	"github.com/BurntSushi/xgb/shm"
	"github.com/BurntSushi/xgb/xproto"

	"screencap.dev/engine/pixel"
)

// GetImage captures the rectangle (x,y,w,h) of drawable, preferring the
// MIT-SHM path when the connection advertises it (one round trip instead
// of shipping the whole pixel buffer back over the X11 socket) and
// falling back to plain xproto.GetImage otherwise. The result is
// canonical top-down RGBA.
func (c *Conn) GetImage(drawable xproto.Drawable, x, y int16, w, h uint16) ([]byte, error) {
	if w == 0 || h == 0 {
		return nil, nil
	}

	if c.hasSHM {
		pix, err := c.getImageSHM(drawable, x, y, w, h)
		if err == nil {
			return pix, nil
		}
		log.Warn().Err(err).Msg("shm GetImage failed, falling back to plain GetImage")
	}
	return c.getImagePlain(drawable, x, y, w, h)
}

func (c *Conn) getImagePlain(drawable xproto.Drawable, x, y int16, w, h uint16) ([]byte, error) {
	reply, err := xproto.GetImage(
		c.X, xproto.ImageFormatZPixmap, drawable, x, y, w, h, 0xffffffff,
	).Reply()
	if err != nil {
		recordProtoErr(err)
		return nil, fmt.Errorf("GetImage: %w", err)
	}
	return bgrxToRGBA(reply.Data, int(w), int(h)), nil
}

func (c *Conn) getImageSHM(drawable xproto.Drawable, x, y int16, w, h uint16) ([]byte, error) {
	size := int(w) * int(h) * pixel.BytesPerPixel
	seg, err := newShmSegment(c.X, size)
	if err != nil {
		return nil, err
	}
	defer seg.close(c.X)

	reply, err := shm.GetImage(
		c.X, drawable, x, y, w, h, 0xffffffff, xproto.ImageFormatZPixmap,
		seg.segID, 0,
	).Reply()
	if err != nil {
		recordProtoErr(err)
		return nil, fmt.Errorf("shm.GetImage: %w", err)
	}
	_ = reply

	out := make([]byte, size)
	copy(out, seg.bytes()[:size])
	return bgrxToRGBA(out, int(w), int(h)), nil
}

// bgrxToRGBA converts X11's native ZPixmap depth-24/32 layout (BGRx, one
// padding/alpha byte per pixel that this module treats as fully opaque)
// into canonical RGBA, reusing the data buffer in place.
func bgrxToRGBA(data []byte, w, h int) []byte {
	need := w * h * pixel.BytesPerPixel
	if len(data) < need {
		buf := make([]byte, need)
		copy(buf, data)
		data = buf
	} else {
		data = data[:need]
	}
	pixel.Swap(data)
	for i := 3; i < len(data); i += 4 {
		data[i] = 255
	}
	return data
}

// Screenshot captures the root window region (x,y,w,h) directly — used
// for monitor screenshots and as the backing loop for streaming.
func (c *Conn) Screenshot(x, y int, w, h int) ([]byte, error) {
	return c.GetImage(xproto.Drawable(c.Root), int16(x), int16(y), uint16(w), uint16(h))
}

// CaptureWindow captures one top-level window's current contents. It does
// not use the Composite extension (not required by anything in this
// package's scope); obscured regions of the window will read back
// whatever the server last composited, same as a plain GetImage against
// an IO window always has.
func (c *Conn) CaptureWindow(win xproto.Window, w, h uint16) ([]byte, error) {
	return c.GetImage(xproto.Drawable(win), 0, 0, w, h)
}
