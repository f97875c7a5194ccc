package dxgi

// Vtable slot indices below are grounded on capture_dxgi_windows.go's
// constant block in LanternOps-breeze; they match the published D3D11/DXGI
// ABI. IUnknown always occupies slots 0-2 (QueryInterface/AddRef/Release);
// IDXGIObject adds SetPrivateData/SetPrivateDataInterface/GetPrivateData/
// GetParent at 3-6.
const (
	dxgiFactoryEnumAdapters1 = 12
	dxgiFactoryIsCurrent     = 13

	dxgiAdapterEnumOutputs = 7
	dxgiAdapterGetDesc     = 8

	dxgiOutputGetDesc             = 7
	dxgiOutput1DuplicateOutput    = 22
	dxgiOutputDuplAcquireNextFrame = 8
	dxgiOutputDuplReleaseFrame     = 14
	dxgiOutputDuplGetDesc          = 7

	dxgiDeviceGetAdapter = 7

	d3d11DeviceCreateTexture2D      = 5
	d3d11DeviceCreateShaderResource = 7
	d3d11DeviceCreateRenderTarget   = 9

	d3d11ContextCopyResource        = 47
	d3d11ContextMap                 = 14
	d3d11ContextUnmap               = 15
	d3d11ContextCopySubresourceRegion = 46
)

// GUIDs, reproduced verbatim from their published values (cross-checked
// against capture_dxgi_windows.go where LanternOps defines the same
// interfaces: IID_IDXGIOutput1 and IID_ID3D11Texture2D match exactly).
var (
	iidIDXGIFactory1 = guid(0x770aae78, 0xf26f, 0x4dba, [8]byte{0xa8, 0x29, 0x25, 0x3c, 0x83, 0xd1, 0xb3, 0x87})
	iidIDXGIAdapter1 = guid(0x29038f61, 0x3839, 0x4626, [8]byte{0x91, 0xfd, 0x08, 0x68, 0x79, 0x01, 0x1a, 0x05})
	iidIDXGIOutput1  = guid(0x00cddea8, 0x939b, 0x4b83, [8]byte{0xa3, 0x40, 0xa6, 0x85, 0x22, 0x66, 0x66, 0xcc})
	iidIDXGIDevice   = guid(0x54ec77fa, 0x1377, 0x44e6, [8]byte{0x8c, 0x32, 0x88, 0xfd, 0x5f, 0x44, 0xc8, 0x4c})
	iidID3D11Texture2D = guid(0x6f15aaf2, 0xd208, 0x4e89, [8]byte{0x9a, 0xb4, 0x48, 0x95, 0x35, 0xd3, 0x4f, 0x9c})
)

const (
	dxgiFormatB8G8R8A8Unorm = 87

	d3d11UsageStaging  = 3
	d3d11CPUAccessRead = 0x20000

	d3d11SDKVersion = 7

	d3dDriverTypeHardware = 1

	dxgiErrorWaitTimeout       = 0x887A0027 // cast to int32 at the compare site
	dxgiErrorAccessLost        = 0x887A0026
	dxgiErrorDeviceRemoved     = 0x887A0005
	dxgiErrorNotCurrentlyAvailable = 0x887A0022
)

// dxgiOutputDesc mirrors DXGI_OUTPUT_DESC's layout (we only read the
// fields the capturer needs: device name and desktop coordinates).
type dxgiOutputDesc struct {
	DeviceName           [32]uint16
	DesktopCoordinates   rect
	AttachedToDesktop    int32
	Rotation             uint32
	Monitor              uintptr
}

type rect struct {
	Left, Top, Right, Bottom int32
}

// dxgiOutDuplDesc mirrors DXGI_OUTDUPL_DESC.
type dxgiOutDuplDesc struct {
	ModeDesc            modeDesc
	Rotation             uint32
	DesktopImageInSystemMemory int32
}

type modeDesc struct {
	Width, Height uint32
	RefreshRate   struct{ Numerator, Denominator uint32 }
	Format        uint32
	ScanlineOrdering, Scaling uint32
}

// dxgiOutDuplFrameInfo mirrors DXGI_OUTDUPL_FRAME_INFO.
type dxgiOutDuplFrameInfo struct {
	LastPresentTime           int64
	LastMouseUpdateTime       int64
	AccumulatedFrames         uint32
	RectsCoalesced            int32
	ProtectedContentMaskedOut int32
	PointerPosition           struct {
		Position struct{ X, Y int32 }
		Visible  int32
	}
	TotalMetadataBufferSize uint32
	PointerShapeBufferSize  uint32
}

// d3d11Texture2DDesc mirrors D3D11_TEXTURE2D_DESC for staging-texture
// creation.
type d3d11Texture2DDesc struct {
	Width, Height        uint32
	MipLevels, ArraySize uint32
	Format               uint32
	SampleDesc           struct{ Count, Quality uint32 }
	Usage                uint32
	BindFlags            uint32
	CPUAccessFlags       uint32
	MiscFlags            uint32
}

// d3d11MappedSubresource mirrors D3D11_MAPPED_SUBRESOURCE.
type d3d11MappedSubresource struct {
	PData      uintptr
	RowPitch   uint32
	DepthPitch uint32
}
