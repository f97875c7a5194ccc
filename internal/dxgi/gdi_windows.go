package dxgi

import (
	"fmt"
	"unsafe"

	"screencap.dev/engine/pixel"
)

// GDI fallback: used when desktop duplication is unavailable (secure
// desktop/UAC prompt, lock screen, remote session without a WDDM driver).
// Grounded on the same dxgiCapturer.Capture() branch in
// dxgi_capture_windows.go that switches to a GDI path on repeated
// access-lost, generalized here into its own standalone capturer so
// capture_windows.go can select it independently of duplication state.

type bitmapInfoHeader struct {
	Size          uint32
	Width, Height int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

const (
	dibRGBColors = 0
	srcCopy      = 0x00CC0020
	biRGB        = 0
)

// GDIScreenshot captures the rectangle (x,y,w,h) in virtual-screen
// coordinates via BitBlt from the desktop DC, returning canonical RGBA.
func GDIScreenshot(x, y, w, h int) ([]byte, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("gdi screenshot: empty region")
	}

	hdcScreen, _, _ := procGetDC.Call(0)
	if hdcScreen == 0 {
		return nil, fmt.Errorf("gdi screenshot: GetDC failed")
	}
	defer procReleaseDC.Call(0, hdcScreen)

	hdcMem, _, _ := procCreateCompatibleDC.Call(hdcScreen)
	if hdcMem == 0 {
		return nil, fmt.Errorf("gdi screenshot: CreateCompatibleDC failed")
	}
	defer procDeleteDC.Call(hdcMem)

	hBitmap, _, _ := procCreateCompatibleBitmap.Call(hdcScreen, uintptr(w), uintptr(h))
	if hBitmap == 0 {
		return nil, fmt.Errorf("gdi screenshot: CreateCompatibleBitmap failed")
	}
	defer procDeleteObject.Call(hBitmap)

	oldObj, _, _ := procSelectObject.Call(hdcMem, hBitmap)
	defer procSelectObject.Call(hdcMem, oldObj)

	ok, _, _ := procBitBlt.Call(
		hdcMem, 0, 0, uintptr(w), uintptr(h),
		hdcScreen, uintptr(x), uintptr(y), uintptr(srcCopy))
	if ok == 0 {
		return nil, fmt.Errorf("gdi screenshot: BitBlt failed")
	}

	return readBitmapBits(hdcMem, hBitmap, w, h)
}

func readBitmapBits(hdc, hBitmap uintptr, w, h int) ([]byte, error) {
	var bi bitmapInfoHeader
	bi.Size = uint32(unsafe.Sizeof(bi))
	bi.Width = int32(w)
	bi.Height = int32(-h) // negative = top-down DIB, matching canonical layout
	bi.Planes = 1
	bi.BitCount = 32
	bi.Compression = biRGB

	buf := make([]byte, w*h*pixel.BytesPerPixel)
	r, _, _ := procGetDIBits.Call(
		hdc, hBitmap, 0, uintptr(h),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(unsafe.Pointer(&bi)), uintptr(dibRGBColors))
	if r == 0 {
		return nil, fmt.Errorf("gdi screenshot: GetDIBits failed")
	}
	pixel.Swap(buf) // GDI delivers BGRA -> RGBA
	return buf, nil
}

// PrintWindowCapture captures a single window via PrintWindow, which
// works across the secure desktop and for windows obscured by others
// (unlike a desktop BitBlt crop).
func PrintWindowCapture(hwnd uintptr, w, h int) ([]byte, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("print window capture: empty window")
	}

	hdcWindow, _, _ := procGetWindowDC.Call(hwnd)
	if hdcWindow == 0 {
		return nil, fmt.Errorf("print window capture: GetWindowDC failed")
	}
	defer procReleaseDC.Call(hwnd, hdcWindow)

	hdcMem, _, _ := procCreateCompatibleDC.Call(hdcWindow)
	if hdcMem == 0 {
		return nil, fmt.Errorf("print window capture: CreateCompatibleDC failed")
	}
	defer procDeleteDC.Call(hdcMem)

	hBitmap, _, _ := procCreateCompatibleBitmap.Call(hdcWindow, uintptr(w), uintptr(h))
	if hBitmap == 0 {
		return nil, fmt.Errorf("print window capture: CreateCompatibleBitmap failed")
	}
	defer procDeleteObject.Call(hBitmap)

	oldObj, _, _ := procSelectObject.Call(hdcMem, hBitmap)
	defer procSelectObject.Call(hdcMem, oldObj)

	const pwRenderFullContent = 0x00000002
	ok, _, _ := procPrintWindow.Call(hwnd, hdcMem, uintptr(pwRenderFullContent))
	if ok == 0 {
		// PrintWindow declines for some window classes (older GDI apps,
		// some layered windows); fall back to a direct BitBlt from the
		// window's own DC into the same DIB.
		ok, _, _ = procBitBlt.Call(
			hdcMem, 0, 0, uintptr(w), uintptr(h),
			hdcWindow, 0, 0, uintptr(srcCopy))
		if ok == 0 {
			return nil, fmt.Errorf("print window capture: PrintWindow and BitBlt fallback both failed")
		}
	}

	return readBitmapBits(hdcMem, hBitmap, w, h)
}

// IsSecureDesktopActive detects the UAC/lock-screen desktop switch that
// makes duplication fail, by comparing the input desktop (OpenInputDesktop)
// with the calling thread's desktop (GetThreadDesktop).
func IsSecureDesktopActive() bool {
	inputDesktop, _, _ := procOpenInputDesktop.Call(0, 0, 0)
	if inputDesktop == 0 {
		return true
	}
	defer procCloseDesktop.Call(inputDesktop)

	threadDesktop, _, _ := procGetThreadDesktop.Call()
	if threadDesktop == 0 {
		return true
	}

	return inputDesktop != threadDesktop
}
