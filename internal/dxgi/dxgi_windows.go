package dxgi

import (
	"fmt"
	"unsafe"

	"screencap.dev/engine/pixel"
)

// OutputGeometry describes one enumerated (adapter, output) pair. Index is
// the zero-based position across every adapter's outputs in declaration
// order, which is the identifier capture.Monitor.ID exposes to callers.
type OutputGeometry struct {
	Index               int
	AdapterIndex        int
	OutputIndex         int
	Name                string
	X, Y, Width, Height int
	HMonitor            uintptr
}

func createFactory1() (unsafe.Pointer, error) {
	var factory unsafe.Pointer
	r, _, _ := procCreateDXGIFactory1.Call(
		uintptr(unsafe.Pointer(&iidIDXGIFactory1)),
		uintptr(unsafe.Pointer(&factory)),
	)
	if err := hresultErr("CreateDXGIFactory1", r); err != nil {
		return nil, err
	}
	return factory, nil
}

// enumAdapter1 returns (adapter, false, nil) once i runs past the last
// adapter (HRESULT DXGI_ERROR_NOT_FOUND), which is the normal loop
// terminator rather than an error.
func enumAdapter1(factory unsafe.Pointer, i int) (unsafe.Pointer, bool, error) {
	var adapter unsafe.Pointer
	r, _ := comCall(factory, dxgiFactoryEnumAdapters1, uintptr(i), uintptr(unsafe.Pointer(&adapter)))
	if int32(r) < 0 {
		return nil, false, nil
	}
	return adapter, true, nil
}

func enumOutput(adapter unsafe.Pointer, i int) (unsafe.Pointer, bool, error) {
	var output unsafe.Pointer
	r, _ := comCall(adapter, dxgiAdapterEnumOutputs, uintptr(i), uintptr(unsafe.Pointer(&output)))
	if int32(r) < 0 {
		return nil, false, nil
	}
	return output, true, nil
}

func queryOutput1(output unsafe.Pointer) (unsafe.Pointer, error) {
	var output1 unsafe.Pointer
	r, _ := comCall(output, comQueryInterface, uintptr(unsafe.Pointer(&iidIDXGIOutput1)), uintptr(unsafe.Pointer(&output1)))
	if err := hresultErr("IDXGIOutput::QueryInterface(IDXGIOutput1)", r); err != nil {
		return nil, err
	}
	return output1, nil
}

func getOutputDesc(output1 unsafe.Pointer) (dxgiOutputDesc, error) {
	var desc dxgiOutputDesc
	r, _ := comCall(output1, dxgiOutputGetDesc, uintptr(unsafe.Pointer(&desc)))
	if err := hresultErr("IDXGIOutput::GetDesc", r); err != nil {
		return desc, err
	}
	return desc, nil
}

// walkOutputs visits every (adapter, output) pair in declaration order,
// calling visit with the flattened index. Spec §4.4 requires the
// caller-supplied monitor identifier to be this flattened index, not an
// index scoped to a single adapter the way a GetAdapter()-from-device
// lookup would expose — so this walks IDXGIFactory1::EnumAdapters1 rather
// than asking one device for its parent adapter.
func walkOutputs(visit func(idx int, adapter, output1 unsafe.Pointer, desc dxgiOutputDesc) (stop bool, err error)) error {
	factory, err := createFactory1()
	if err != nil {
		return err
	}
	defer comRelease(factory)

	flat := 0
	for ai := 0; ; ai++ {
		adapter, ok, err := enumAdapter1(factory, ai)
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		stopOuter := false
		for oi := 0; ; oi++ {
			output, ok, err := enumOutput(adapter, oi)
			if err != nil {
				comRelease(adapter)
				return err
			}
			if !ok {
				break
			}
			output1, err := queryOutput1(output)
			comRelease(output)
			if err != nil {
				comRelease(adapter)
				return err
			}
			desc, err := getOutputDesc(output1)
			if err != nil {
				comRelease(output1)
				comRelease(adapter)
				return err
			}

			stop, verr := visit(flat, adapter, output1, desc)
			flat++
			if verr != nil {
				comRelease(output1)
				comRelease(adapter)
				return verr
			}
			if stop {
				stopOuter = true
				// visit took ownership of adapter/output1 when stopping.
				break
			}
			comRelease(output1)
		}
		if stopOuter {
			break
		}
		comRelease(adapter)
	}
	return nil
}

// EnumerateOutputs lists every display surface on the system, flattened
// across adapters in declaration order.
func EnumerateOutputs() ([]OutputGeometry, error) {
	ensureCOMInitialized()
	var out []OutputGeometry
	err := walkOutputs(func(idx int, adapter, output1 unsafe.Pointer, desc dxgiOutputDesc) (bool, error) {
		out = append(out, OutputGeometry{
			Index: idx,
			Name:  utf16ToString(desc.DeviceName[:]),
			X:     int(desc.DesktopCoordinates.Left),
			Y:     int(desc.DesktopCoordinates.Top),
			Width: int(desc.DesktopCoordinates.Right - desc.DesktopCoordinates.Left),
			Height: int(desc.DesktopCoordinates.Bottom - desc.DesktopCoordinates.Top),
			HMonitor: desc.Monitor,
		})
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func utf16ToString(buf []uint16) string {
	n := 0
	for n < len(buf) && buf[n] != 0 {
		n++
	}
	return string(utf16Decode(buf[:n]))
}

func utf16Decode(buf []uint16) []rune {
	rs := make([]rune, 0, len(buf))
	for _, b := range buf {
		rs = append(rs, rune(b))
	}
	return rs
}

func createD3D11Device() (device, context unsafe.Pointer, err error) {
	featureLevels := [1]uint32{0xb000} // D3D_FEATURE_LEVEL_11_0
	var featureLevel uint32
	r, _, _ := procD3D11CreateDevice.Call(
		0, // default adapter
		uintptr(d3dDriverTypeHardware),
		0,
		0, // no BGRA/debug flags; staging-texture readback does not need them
		uintptr(unsafe.Pointer(&featureLevels[0])),
		1,
		uintptr(d3d11SDKVersion),
		uintptr(unsafe.Pointer(&device)),
		uintptr(unsafe.Pointer(&featureLevel)),
		uintptr(unsafe.Pointer(&context)),
	)
	if err := hresultErr("D3D11CreateDevice", r); err != nil {
		return nil, nil, err
	}
	return device, context, nil
}

func duplicateOutput(output1, device unsafe.Pointer) (unsafe.Pointer, error) {
	var dupl unsafe.Pointer
	r, _ := comCall(output1, dxgiOutput1DuplicateOutput, uintptr(device), uintptr(unsafe.Pointer(&dupl)))
	if err := hresultErr("IDXGIOutput1::DuplicateOutput", r); err != nil {
		return nil, err
	}
	return dupl, nil
}

// Capturer drives one monitor's desktop duplication session. It does not
// reinitialize itself: AcquireFrame reports DXGI_ERROR_ACCESS_LOST (display
// mode change, secure desktop) as an error, and the caller opens a new
// Capturer with New.
type Capturer struct {
	monitorIndex int
	device       unsafe.Pointer
	context      unsafe.Pointer
	adapter      unsafe.Pointer
	output1      unsafe.Pointer
	dupl         unsafe.Pointer
	staging      unsafe.Pointer
	stagingW     uint32
	stagingH     uint32
	desc         dxgiOutputDesc
}

// New opens duplication on the output at flattened index monitorIndex.
func New(monitorIndex int) (*Capturer, error) {
	ensureCOMInitialized()
	c := &Capturer{monitorIndex: monitorIndex}
	if err := c.open(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Capturer) open() error {
	device, context, err := createD3D11Device()
	if err != nil {
		return fmt.Errorf("create d3d11 device: %w", err)
	}

	var found bool
	err = walkOutputs(func(idx int, adapter, output1 unsafe.Pointer, desc dxgiOutputDesc) (bool, error) {
		if idx != c.monitorIndex {
			return false, nil
		}
		found = true
		c.adapter = adapter
		c.output1 = output1
		c.desc = desc
		return true, nil
	})
	if err != nil {
		comRelease(device)
		comRelease(context)
		return err
	}
	if !found {
		comRelease(device)
		comRelease(context)
		return fmt.Errorf("monitor index %d out of range", c.monitorIndex)
	}

	dupl, err := duplicateOutput(c.output1, device)
	if err != nil {
		comRelease(c.output1)
		comRelease(c.adapter)
		comRelease(device)
		comRelease(context)
		return fmt.Errorf("duplicate output: %w", err)
	}

	c.device = device
	c.context = context
	c.dupl = dupl
	return nil
}

// Bounds reports the output's desktop-relative rectangle.
func (c *Capturer) Bounds() (x, y, w, h int) {
	d := c.desc.DesktopCoordinates
	return int(d.Left), int(d.Top), int(d.Right - d.Left), int(d.Bottom - d.Top)
}

func (c *Capturer) closeDuplication() {
	comRelease(c.staging)
	comRelease(c.dupl)
	comRelease(c.output1)
	comRelease(c.adapter)
	comRelease(c.context)
	comRelease(c.device)
	c.staging, c.dupl, c.output1, c.adapter, c.context, c.device = nil, nil, nil, nil, nil, nil
}

// Close releases every native handle. Idempotent.
func (c *Capturer) Close() {
	c.closeDuplication()
}

// reopen tears down and reacquires duplication after access loss.
func (c *Capturer) reopen() error {
	c.closeDuplication()
	return c.open()
}

func (c *Capturer) ensureStaging(w, h uint32) error {
	if c.staging != nil && c.stagingW == w && c.stagingH == h {
		return nil
	}
	comRelease(c.staging)
	c.staging = nil

	desc := d3d11Texture2DDesc{
		Width: w, Height: h,
		MipLevels: 1, ArraySize: 1,
		Format:         dxgiFormatB8G8R8A8Unorm,
		Usage:          d3d11UsageStaging,
		CPUAccessFlags: d3d11CPUAccessRead,
	}
	desc.SampleDesc.Count = 1

	var tex unsafe.Pointer
	r, _ := comCall(c.device, d3d11DeviceCreateTexture2D,
		uintptr(unsafe.Pointer(&desc)), 0, uintptr(unsafe.Pointer(&tex)))
	if err := hresultErr("ID3D11Device::CreateTexture2D(staging)", r); err != nil {
		return err
	}
	c.staging = tex
	c.stagingW, c.stagingH = w, h
	return nil
}

// AcquireFrame blocks up to timeoutMs for the next update, copies it into
// an RGBA buffer, and returns it. ok is false on a benign timeout (caller
// should retry); err is non-nil only for genuine failures. For
// access-lost/device-removed it wraps that HRESULT, which tells the caller
// to call Close+New again.
func (c *Capturer) AcquireFrame(timeoutMs uint32) (pix []byte, w, h int, ok bool, err error) {
	var frameInfo dxgiOutDuplFrameInfo
	var resource unsafe.Pointer
	r, _ := comCall(c.dupl, dxgiOutputDuplAcquireNextFrame,
		uintptr(timeoutMs), uintptr(unsafe.Pointer(&frameInfo)), uintptr(unsafe.Pointer(&resource)))

	if uint32(r) == uint32(dxgiErrorWaitTimeout) {
		return nil, 0, 0, false, nil
	}
	if uint32(r) == uint32(dxgiErrorAccessLost) || uint32(r) == uint32(dxgiErrorDeviceRemoved) {
		return nil, 0, 0, false, fmt.Errorf("dxgi access lost: %w", hresultErr("AcquireNextFrame", r))
	}
	if err := hresultErr("IDXGIOutputDuplication::AcquireNextFrame", r); err != nil {
		return nil, 0, 0, false, err
	}
	defer comCall(c.dupl, dxgiOutputDuplReleaseFrame)
	defer comRelease(resource)

	if frameInfo.AccumulatedFrames == 0 {
		// Metadata-only update (cursor move); no new image content.
		return nil, 0, 0, false, nil
	}

	var texture unsafe.Pointer
	r, _ = comCall(resource, comQueryInterface, uintptr(unsafe.Pointer(&iidID3D11Texture2D)), uintptr(unsafe.Pointer(&texture)))
	if err := hresultErr("IDXGIResource::QueryInterface(ID3D11Texture2D)", r); err != nil {
		return nil, 0, 0, false, err
	}
	defer comRelease(texture)

	width := uint32(c.desc.ModeWidth())
	height := uint32(c.desc.ModeHeight())
	if err := c.ensureStaging(width, height); err != nil {
		return nil, 0, 0, false, err
	}

	comCall(c.context, d3d11ContextCopyResource, uintptr(c.staging), uintptr(texture))

	var mapped d3d11MappedSubresource
	r, _ = comCall(c.context, d3d11ContextMap, uintptr(c.staging), 0, 0, 0, uintptr(unsafe.Pointer(&mapped)))
	if err := hresultErr("ID3D11DeviceContext::Map", r); err != nil {
		return nil, 0, 0, false, err
	}

	dst := make([]byte, int(width)*int(height)*pixel.BytesPerPixel)
	srcStride := int(mapped.RowPitch)
	dstStride := int(width) * pixel.BytesPerPixel
	srcBase := mapped.PData
	for row := 0; row < int(height); row++ {
		srcRow := unsafe.Slice((*byte)(unsafe.Pointer(srcBase+uintptr(row*srcStride))), dstStride)
		copy(dst[row*dstStride:(row+1)*dstStride], srcRow)
	}
	pixel.Swap(dst) // BGRA -> RGBA

	comCall(c.context, d3d11ContextUnmap, uintptr(c.staging), 0)

	return dst, int(width), int(height), true, nil
}

func (d dxgiOutDuplDesc) ModeWidth() uint32  { return d.ModeDesc.Width }
func (d dxgiOutDuplDesc) ModeHeight() uint32 { return d.ModeDesc.Height }

// ModeWidth/ModeHeight on dxgiOutputDesc delegate to the desktop
// coordinates, since DXGI_OUTPUT_DESC itself carries no mode size and the
// duplication's own DXGI_OUTDUPL_DESC is never queried by open().
func (d dxgiOutputDesc) ModeWidth() uint32 {
	return uint32(d.DesktopCoordinates.Right - d.DesktopCoordinates.Left)
}
func (d dxgiOutputDesc) ModeHeight() uint32 {
	return uint32(d.DesktopCoordinates.Bottom - d.DesktopCoordinates.Top)
}
