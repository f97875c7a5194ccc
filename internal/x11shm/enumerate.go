//go:build linux

package x11shm

import (
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
)

// OutputGeometry describes one active CRTC/output pair, RandR's
// equivalent of a monitor.
type OutputGeometry struct {
	Index               int
	Name                string
	X, Y, Width, Height int
}

// EnumerateOutputs lists active outputs via RandR, falling back to a
// single entry spanning the whole root window when RandR is unavailable
// or every output has no active mode (common for a nested/Xvfb server).
func (c *Conn) EnumerateOutputs() ([]OutputGeometry, error) {
	if !c.hasRandR {
		return c.fallbackSingleOutput(), nil
	}

	res, err := randr.GetScreenResources(c.X, c.Root).Reply()
	if err != nil {
		recordProtoErr(err)
		return c.fallbackSingleOutput(), nil
	}

	var outs []OutputGeometry
	for _, outputID := range res.Outputs {
		info, err := randr.GetOutputInfo(c.X, outputID, res.ConfigTimestamp).Reply()
		if err != nil || info.Crtc == 0 {
			continue
		}
		crtc, err := randr.GetCrtcInfo(c.X, info.Crtc, res.ConfigTimestamp).Reply()
		if err != nil || crtc.Width == 0 || crtc.Height == 0 {
			continue
		}
		outs = append(outs, OutputGeometry{
			Index: len(outs),
			Name:  string(info.Name),
			X:     int(crtc.X), Y: int(crtc.Y),
			Width: int(crtc.Width), Height: int(crtc.Height),
		})
	}

	if len(outs) == 0 {
		return c.fallbackSingleOutput(), nil
	}
	return outs, nil
}

func (c *Conn) fallbackSingleOutput() []OutputGeometry {
	return []OutputGeometry{{
		Index: 0, Name: "X11",
		X: 0, Y: 0,
		Width: int(c.Screen.WidthInPixels), Height: int(c.Screen.HeightInPixels),
	}}
}

// WindowInfo is one top-level window reported via the window manager's
// _NET_CLIENT_LIST.
type WindowInfo struct {
	ID                  uint32
	Title               string
	X, Y, Width, Height int
}

// EnumerateTopLevelWindows reads _NET_CLIENT_LIST off the root window and
// filters to viewable windows with a non-empty title, per spec §4.4/§4.6.
// It returns an empty (not an error) list if the window manager does not
// publish _NET_CLIENT_LIST.
func (c *Conn) EnumerateTopLevelWindows() ([]WindowInfo, error) {
	clientListAtom, err := c.internAtom("_NET_CLIENT_LIST")
	if err != nil {
		return nil, err
	}

	prop, err := xproto.GetProperty(
		c.X, false, c.Root, clientListAtom, xproto.AtomWindow, 0, (1<<32)-1,
	).Reply()
	if err != nil || prop.ValueLen == 0 {
		return nil, nil
	}

	var out []WindowInfo
	ids := decodeWindowIDs(prop.Value)
	for _, id := range ids {
		win := xproto.Window(id)

		attrs, err := xproto.GetWindowAttributes(c.X, win).Reply()
		if err != nil || attrs.MapState != xproto.MapStateViewable {
			continue
		}

		geom, err := xproto.GetGeometry(c.X, xproto.Drawable(win)).Reply()
		if err != nil {
			continue
		}

		title := c.windowTitle(win)
		if title == "" {
			continue
		}

		out = append(out, WindowInfo{
			ID: id, Title: title,
			X: int(geom.X), Y: int(geom.Y),
			Width: int(geom.Width), Height: int(geom.Height),
		})
	}
	return out, nil
}

func decodeWindowIDs(data []byte) []uint32 {
	n := len(data) / 4
	ids := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		off := i * 4
		ids = append(ids, uint32(data[off])|uint32(data[off+1])<<8|uint32(data[off+2])<<16|uint32(data[off+3])<<24)
	}
	return ids
}

func (c *Conn) internAtom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(c.X, false, uint16(len(name)), name).Reply()
	if err != nil {
		recordProtoErr(err)
		return 0, err
	}
	return reply.Atom, nil
}

// windowTitle prefers _NET_WM_NAME (UTF8_STRING) and falls back to the
// classic WM_NAME (STRING, Latin-1) when a window has no EWMH name.
func (c *Conn) windowTitle(win xproto.Window) string {
	if utf8Atom, err := c.internAtom("UTF8_STRING"); err == nil {
		if netWMName, err := c.internAtom("_NET_WM_NAME"); err == nil {
			prop, err := xproto.GetProperty(c.X, false, win, netWMName, utf8Atom, 0, (1<<32)-1).Reply()
			if err == nil && prop.ValueLen > 0 {
				return string(prop.Value)
			}
		}
	}

	prop, err := xproto.GetProperty(c.X, false, win, xproto.AtomWmName, xproto.AtomString, 0, (1<<32)-1).Reply()
	if err != nil || prop.ValueLen == 0 {
		return ""
	}
	return string(prop.Value)
}
