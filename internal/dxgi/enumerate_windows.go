package dxgi

import (
	"syscall"
	"unsafe"
)

// monitorInfoEx mirrors MONITORINFOEXW's layout. The DPI lookup below does
// not use it; it queries GetDpiForMonitor with the HMONITOR directly.
type monitorInfoEx struct {
	Size      uint32
	Monitor   rect
	WorkArea  rect
	Flags     uint32
	Device    [32]uint16
}

// DPIForOutput returns the output's scale factor as a Monitor.Scale value
// (1.0 = 100%), looked up via Shcore's per-monitor DPI API keyed by the
// HMONITOR embedded in DXGI_OUTPUT_DESC.
func DPIForOutput(hmonitor uintptr) float64 {
	if hmonitor == 0 || procGetDpiForMonitor.Find() != nil {
		return 1.0
	}
	var dpiX, dpiY uint32
	const mdtEffectiveDPI = 0
	r, _, _ := procGetDpiForMonitor.Call(hmonitor, mdtEffectiveDPI,
		uintptr(unsafe.Pointer(&dpiX)), uintptr(unsafe.Pointer(&dpiY)))
	if r != 0 || dpiX == 0 {
		return 1.0
	}
	return float64(dpiX) / 96.0
}

// WindowInfo is what EnumerateTopLevelWindows collects per candidate HWND
// before the caller converts it into a capture.Window.
type WindowInfo struct {
	Handle              uintptr
	Title               string
	X, Y, Width, Height int
}

const (
	gwlStyle   = -16
	wsVisible  = 0x10000000
	wsMinimize = 0x20000000
	dwmCloaked = 14
)

// EnumerateTopLevelWindows lists visible, non-minimized, non-cloaked
// top-level windows with a non-empty title, matching spec §4.4's window
// enumeration filter.
func EnumerateTopLevelWindows() ([]WindowInfo, error) {
	var out []WindowInfo
	cb := syscall.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
		if visible, _, _ := procIsWindowVisible.Call(hwnd); visible == 0 {
			return 1
		}
		style, _, _ := procGetWindowLongPtrW.Call(hwnd, uintptr(gwlStyle))
		if style&wsMinimize != 0 {
			return 1
		}

		var cloaked uint32
		procDwmGetWindowAttribute.Call(hwnd, uintptr(dwmCloaked), uintptr(unsafe.Pointer(&cloaked)), unsafe.Sizeof(cloaked))
		if cloaked != 0 {
			return 1
		}

		buf := make([]uint16, 256)
		n, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
		if n == 0 {
			return 1
		}
		title := utf16ToString(buf[:n])

		var r rect
		procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&r)))

		out = append(out, WindowInfo{
			Handle: hwnd,
			Title:  title,
			X:      int(r.Left), Y: int(r.Top),
			Width:  int(r.Right - r.Left),
			Height: int(r.Bottom - r.Top),
		})
		return 1
	})
	procEnumWindows.Call(cb, 0)
	return out, nil
}
