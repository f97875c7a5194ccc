// Package dxgi implements Windows screen capture via DXGI Desktop
// Duplication, falling back to GDI BitBlt when duplication is unavailable
// (secure desktop, remote session, or a driver that refuses it). All COM
// interop is done with raw vtable calls through syscall.SyscallN, the same
// no-cgo approach LanternOps-breeze's internal/remote/desktop package uses,
// so this package carries no cgo dependency on either the Windows SDK
// headers or a C toolchain.
package dxgi

import (
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"github.com/go-ole/go-ole"
)

var comInitOnce sync.Once

// ensureCOMInitialized calls CoInitializeEx once per process. DXGI's own
// factory/device entry points (CreateDXGIFactory1, D3D11CreateDevice) are
// plain exported functions, not CoCreateInstance-created objects, but the
// duplication and texture interfaces they hand back are still COM objects
// whose lifetime rules assume an initialized apartment on the calling
// thread; skipping this is usually harmless but not guaranteed to stay
// that way across driver versions.
func ensureCOMInitialized() {
	comInitOnce.Do(func() {
		_ = ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED)
	})
}

// comGUID is the wire layout of a Windows GUID, used both to build REFIID
// arguments for QueryInterface/CoCreate-style calls and to decode the
// GUIDs embedded in DXGI descriptor structs.
type comGUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

func guid(d1 uint32, d2, d3 uint16, d4 [8]byte) comGUID {
	return comGUID{Data1: d1, Data2: d2, Data3: d3, Data4: d4}
}

// comCall invokes the method at vtable slot idx on a COM object whose
// interface pointer is obj. args are passed after the implicit `this`.
// Every DXGI/D3D11 method used in this package returns an HRESULT in rax,
// which callers convert with hresultErr.
func comCall(obj unsafe.Pointer, idx int, args ...uintptr) (uintptr, error) {
	vtbl := *(*uintptr)(obj)
	fn := *(*uintptr)(unsafe.Pointer(vtbl + uintptr(idx)*unsafe.Sizeof(uintptr(0))))
	all := make([]uintptr, 0, len(args)+1)
	all = append(all, uintptr(obj))
	all = append(all, args...)
	r, _, _ := syscall.SyscallN(fn, all...)
	return r, nil
}

// comRelease calls IUnknown::Release (vtable slot 2), ignoring the
// returned refcount. Safe to call with a nil pointer.
func comRelease(obj unsafe.Pointer) {
	if obj == nil {
		return
	}
	comCall(obj, 2)
}

const (
	comQueryInterface = 0
	comAddRef         = 1
	comRelease_       = 2
)

// hresultErr converts a raw HRESULT return value into an error, or nil for
// S_OK/S_FALSE-style non-negative codes.
func hresultErr(op string, hr uintptr) error {
	if int32(hr) >= 0 {
		return nil
	}
	return fmt.Errorf("%s failed: hresult=0x%08x", op, uint32(hr))
}

func ptrOf(p unsafe.Pointer) uintptr { return uintptr(p) }
