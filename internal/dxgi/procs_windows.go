package dxgi

import "syscall"

var (
	modDXGI   = syscall.NewLazyDLL("dxgi.dll")
	modD3D11  = syscall.NewLazyDLL("d3d11.dll")
	modUser32 = syscall.NewLazyDLL("user32.dll")
	modGDI32  = syscall.NewLazyDLL("gdi32.dll")
	modShcore = syscall.NewLazyDLL("shcore.dll")

	procCreateDXGIFactory1    = modDXGI.NewProc("CreateDXGIFactory1")
	procD3D11CreateDevice     = modD3D11.NewProc("D3D11CreateDevice")
	procGetDpiForMonitor      = modShcore.NewProc("GetDpiForMonitor")
	procEnumDisplayMonitors   = modUser32.NewProc("EnumDisplayMonitors")
	procGetMonitorInfoW       = modUser32.NewProc("GetMonitorInfoW")
	procEnumWindows           = modUser32.NewProc("EnumWindows")
	procGetWindowTextW        = modUser32.NewProc("GetWindowTextW")
	procIsWindowVisible       = modUser32.NewProc("IsWindowVisible")
	procGetWindowRect         = modUser32.NewProc("GetWindowRect")
	procGetWindowLongPtrW     = modUser32.NewProc("GetWindowLongPtrW")
	procDwmGetWindowAttribute = syscall.NewLazyDLL("dwmapi.dll").NewProc("DwmGetWindowAttribute")

	procGetDC                 = modUser32.NewProc("GetDC")
	procReleaseDC              = modUser32.NewProc("ReleaseDC")
	procGetWindowDC            = modUser32.NewProc("GetWindowDC")
	procPrintWindow            = modUser32.NewProc("PrintWindow")
	procCreateCompatibleDC     = modGDI32.NewProc("CreateCompatibleDC")
	procDeleteDC               = modGDI32.NewProc("DeleteDC")
	procCreateCompatibleBitmap = modGDI32.NewProc("CreateCompatibleBitmap")
	procDeleteObject           = modGDI32.NewProc("DeleteObject")
	procSelectObject           = modGDI32.NewProc("SelectObject")
	procBitBlt                 = modGDI32.NewProc("BitBlt")
	procGetDIBits              = modGDI32.NewProc("GetDIBits")

	procOpenInputDesktop  = modUser32.NewProc("OpenInputDesktop")
	procSetThreadDesktop  = modUser32.NewProc("SetThreadDesktop")
	procGetThreadDesktop  = modUser32.NewProc("GetThreadDesktop")
	procCloseDesktop      = modUser32.NewProc("CloseDesktop")
	procGetCurrentThreadID = syscall.NewLazyDLL("kernel32.dll").NewProc("GetCurrentThreadId")
)
