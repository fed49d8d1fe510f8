//go:build windows

package gfx

import (
	"fmt"
	"image"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/lumencast/agent/internal/capture"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	gdi32    = windows.NewLazySystemDLL("gdi32.dll")
	d3d11DLL = windows.NewLazySystemDLL("d3d11.dll")

	procD3D11CreateDevice = d3d11DLL.NewProc("D3D11CreateDevice")
)

// D3D11/DXGI constants
const (
	d3dDriverTypeHardware = 1
	d3dFeatureLevel11_0   = 0xb000
	d3d11SDKVersion       = 7

	d3d11CreateDeviceBGRASupport = 0x20

	d3d11UsageStaging  = 3
	d3d11CPUAccessRead = 0x20000
	dxgiFormatB8G8R8A8 = 87

	dxgiErrWaitTimeout = 0x887A0027
	dxgiErrNotFound    = 0x887A0002

	// COM vtable indices, fixed by the ABI.
	vtblQueryInterface         = 0
	dxgiDeviceGetAdapter       = 7  // IDXGIDevice
	dxgiAdapterEnumOutputs     = 7  // IDXGIAdapter
	dxgiOutputGetDesc          = 7  // IDXGIOutput
	dxgiOutput1DuplicateOutput = 22 // IDXGIOutput1
	dxgiDuplGetDesc            = 7  // IDXGIOutputDuplication
	dxgiDuplAcquireNextFrame   = 8  // IDXGIOutputDuplication
	dxgiDuplReleaseFrame       = 14 // IDXGIOutputDuplication
	d3d11DeviceCreateTexture2D = 5  // ID3D11Device
	d3d11CtxMap                = 14 // ID3D11DeviceContext
	d3d11CtxUnmap              = 15 // ID3D11DeviceContext
	d3d11CtxCopyResource       = 47 // ID3D11DeviceContext
)

// comGUID is a COM GUID (128-bit).
type comGUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

var (
	iidIDXGIDevice     = comGUID{0x54ec77fa, 0x1377, 0x44e6, [8]byte{0x8c, 0x32, 0x88, 0xfd, 0x5f, 0x44, 0xc8, 0x4c}}
	iidIDXGIOutput1    = comGUID{0x00cddea8, 0x939b, 0x4b83, [8]byte{0xa3, 0x40, 0xa6, 0x85, 0x22, 0x66, 0x66, 0xcc}}
	iidID3D11Texture2D = comGUID{0x6f15aaf2, 0xd208, 0x4e89, [8]byte{0x9a, 0xb4, 0x48, 0x95, 0x35, 0xd3, 0x4f, 0x9c}}
)

// comCall invokes a COM vtable method at the given index.
func comCall(obj uintptr, vtableIdx int, args ...uintptr) (uintptr, error) {
	allArgs := make([]uintptr, 0, 1+len(args))
	allArgs = append(allArgs, obj)
	allArgs = append(allArgs, args...)
	ret, _, _ := syscall.SyscallN(comVtblFn(obj, vtableIdx), allArgs...)
	if int32(ret) < 0 {
		return ret, fmt.Errorf("COM vtable[%d] HRESULT 0x%08X", vtableIdx, uint32(ret))
	}
	return ret, nil
}

// comVtblFn resolves a COM vtable function pointer by index.
func comVtblFn(obj uintptr, idx int) uintptr {
	vtablePtr := *(*uintptr)(unsafe.Pointer(obj))
	return *(*uintptr)(unsafe.Pointer(vtablePtr + uintptr(idx)*unsafe.Sizeof(uintptr(0))))
}

// comRelease calls IUnknown::Release (vtable index 2).
func comRelease(obj uintptr) {
	if obj != 0 {
		syscall.SyscallN(comVtblFn(obj, 2), obj)
	}
}

// d3d11Texture2DDesc matches D3D11_TEXTURE2D_DESC.
type d3d11Texture2DDesc struct {
	Width          uint32
	Height         uint32
	MipLevels      uint32
	ArraySize      uint32
	Format         uint32
	SampleCount    uint32
	SampleQuality  uint32
	Usage          uint32
	BindFlags      uint32
	CPUAccessFlags uint32
	MiscFlags      uint32
}

// d3d11MappedSubresource matches D3D11_MAPPED_SUBRESOURCE.
type d3d11MappedSubresource struct {
	PData      uintptr
	RowPitch   uint32
	DepthPitch uint32
}

type dxgiRational struct {
	Numerator   uint32
	Denominator uint32
}

// dxgiModeDesc matches DXGI_MODE_DESC.
type dxgiModeDesc struct {
	Width            uint32
	Height           uint32
	RefreshRate      dxgiRational
	Format           uint32
	ScanlineOrdering uint32
	Scaling          uint32
}

// dxgiOutDuplDesc matches DXGI_OUTDUPL_DESC. ModeDesc carries the native
// (pre-rotation) surface size; Rotation is DXGI_MODE_ROTATION.
type dxgiOutDuplDesc struct {
	ModeDesc                   dxgiModeDesc
	Rotation                   uint32
	DesktopImageInSystemMemory int32
}

// dxgiOutDuplFrameInfo matches DXGI_OUTDUPL_FRAME_INFO.
type dxgiOutDuplFrameInfo struct {
	LastPresentTime           int64
	LastMouseUpdateTime       int64
	AccumulatedFrames         uint32
	RectsCoalesced            int32
	ProtectedContentMaskedOut int32
	PointerPositionX          int32
	PointerPositionY          int32
	PointerVisible            int32
	TotalMetadataBufferSize   uint32
	PointerShapeBufferSize    uint32
}

// dxgiOutputDesc matches DXGI_OUTPUT_DESC.
type dxgiOutputDesc struct {
	DeviceName        [32]uint16
	Left              int32
	Top               int32
	Right             int32
	Bottom            int32
	AttachedToDesktop int32
	Rotation          uint32
	Monitor           uintptr
}

// rotationDegrees converts DXGI_MODE_ROTATION to degrees.
// 1=identity, 2=rotate90, 3=rotate180, 4=rotate270; 0 is unspecified.
func rotationDegrees(mode uint32) int {
	switch mode {
	case 2:
		return 90
	case 3:
		return 180
	case 4:
		return 270
	default:
		return 0
	}
}

// dxgiSystem implements capture.System over DXGI Desktop Duplication.
type dxgiSystem struct{}

// NewDXGISystem returns the Desktop Duplication backend.
func NewDXGISystem() capture.System {
	return &dxgiSystem{}
}

// createD3DDevice creates a hardware D3D11 device with BGRA support.
func createD3DDevice() (device, context uintptr, err error) {
	featureLevel := uint32(d3dFeatureLevel11_0)
	var actualLevel uint32

	hr, _, _ := procD3D11CreateDevice.Call(
		0, // pAdapter (NULL = default)
		uintptr(d3dDriverTypeHardware),
		0, // Software
		uintptr(d3d11CreateDeviceBGRASupport),
		uintptr(unsafe.Pointer(&featureLevel)),
		1,
		uintptr(d3d11SDKVersion),
		uintptr(unsafe.Pointer(&device)),
		uintptr(unsafe.Pointer(&actualLevel)),
		uintptr(unsafe.Pointer(&context)),
	)
	if int32(hr) < 0 {
		return 0, 0, fmt.Errorf("D3D11CreateDevice failed: 0x%08X", uint32(hr))
	}
	return device, context, nil
}

// openOutput resolves the IDXGIOutput for a monitor index on the device's
// adapter. Caller releases the returned output.
func openOutput(device uintptr, monitor int) (uintptr, error) {
	var dxgiDevice uintptr
	_, err := comCall(device, vtblQueryInterface,
		uintptr(unsafe.Pointer(&iidIDXGIDevice)),
		uintptr(unsafe.Pointer(&dxgiDevice)),
	)
	if err != nil {
		return 0, fmt.Errorf("QueryInterface IDXGIDevice: %w", err)
	}
	defer comRelease(dxgiDevice)

	var adapter uintptr
	_, err = comCall(dxgiDevice, dxgiDeviceGetAdapter, uintptr(unsafe.Pointer(&adapter)))
	if err != nil {
		return 0, fmt.Errorf("IDXGIDevice::GetAdapter: %w", err)
	}
	defer comRelease(adapter)

	var output uintptr
	hr, _, _ := syscall.SyscallN(
		comVtblFn(adapter, dxgiAdapterEnumOutputs),
		adapter,
		uintptr(monitor),
		uintptr(unsafe.Pointer(&output)),
	)
	if int32(hr) < 0 {
		if uint32(hr) == dxgiErrNotFound {
			return 0, capture.ErrDisplayNotFound
		}
		return 0, fmt.Errorf("IDXGIAdapter::EnumOutputs(%d): 0x%08X", monitor, uint32(hr))
	}
	return output, nil
}

func (s *dxgiSystem) CreateDuplicator(monitor int) (capture.Duplicator, error) {
	device, context, err := createD3DDevice()
	if err != nil {
		return nil, err
	}

	output, err := openOutput(device, monitor)
	if err != nil {
		comRelease(context)
		comRelease(device)
		return nil, err
	}

	var output1 uintptr
	_, err = comCall(output, vtblQueryInterface,
		uintptr(unsafe.Pointer(&iidIDXGIOutput1)),
		uintptr(unsafe.Pointer(&output1)),
	)
	comRelease(output)
	if err != nil {
		comRelease(context)
		comRelease(device)
		return nil, fmt.Errorf("QueryInterface IDXGIOutput1: %w", err)
	}

	var duplication uintptr
	_, err = comCall(output1, dxgiOutput1DuplicateOutput,
		device,
		uintptr(unsafe.Pointer(&duplication)),
	)
	comRelease(output1)
	if err != nil {
		comRelease(context)
		comRelease(device)
		return nil, fmt.Errorf("IDXGIOutput1::DuplicateOutput: %w", err)
	}

	// Native (pre-rotation) size comes from the duplication desc, not from
	// frame probing: AcquireNextFrame can time out indefinitely on a static
	// desktop during setup.
	var duplDesc dxgiOutDuplDesc
	hr, _, _ := syscall.SyscallN(
		comVtblFn(duplication, dxgiDuplGetDesc),
		duplication,
		uintptr(unsafe.Pointer(&duplDesc)),
	)
	if int32(hr) < 0 {
		comRelease(duplication)
		comRelease(context)
		comRelease(device)
		return nil, fmt.Errorf("IDXGIOutputDuplication::GetDesc failed: 0x%08X", uint32(hr))
	}
	width := int(duplDesc.ModeDesc.Width)
	height := int(duplDesc.ModeDesc.Height)
	if width <= 0 || height <= 0 {
		comRelease(duplication)
		comRelease(context)
		comRelease(device)
		return nil, fmt.Errorf("invalid duplication dimensions: %dx%d", width, height)
	}

	stagingDesc := d3d11Texture2DDesc{
		Width:          uint32(width),
		Height:         uint32(height),
		MipLevels:      1,
		ArraySize:      1,
		Format:         dxgiFormatB8G8R8A8,
		SampleCount:    1,
		Usage:          d3d11UsageStaging,
		CPUAccessFlags: d3d11CPUAccessRead,
	}
	var staging uintptr
	_, err = comCall(device, d3d11DeviceCreateTexture2D,
		uintptr(unsafe.Pointer(&stagingDesc)),
		0,
		uintptr(unsafe.Pointer(&staging)),
	)
	if err != nil {
		comRelease(duplication)
		comRelease(context)
		comRelease(device)
		return nil, fmt.Errorf("CreateTexture2D staging: %w", err)
	}

	return &dxgiDuplicator{
		device:      device,
		context:     context,
		duplication: duplication,
		staging:     staging,
		width:       width,
		height:      height,
	}, nil
}

func (s *dxgiSystem) MonitorInfo(monitor int) (capture.MonitorInfo, error) {
	monitors, err := s.Monitors()
	if err != nil {
		return capture.MonitorInfo{}, err
	}
	for _, m := range monitors {
		if m.Index == monitor {
			return m, nil
		}
	}
	return capture.MonitorInfo{}, capture.ErrDisplayNotFound
}

// Monitors enumerates attached outputs via a throwaway D3D11 device.
func (s *dxgiSystem) Monitors() ([]capture.MonitorInfo, error) {
	device, context, err := createD3DDevice()
	if err != nil {
		return nil, err
	}
	defer comRelease(context)
	defer comRelease(device)

	var dxgiDevice uintptr
	_, err = comCall(device, vtblQueryInterface,
		uintptr(unsafe.Pointer(&iidIDXGIDevice)),
		uintptr(unsafe.Pointer(&dxgiDevice)),
	)
	if err != nil {
		return nil, fmt.Errorf("QueryInterface IDXGIDevice: %w", err)
	}
	defer comRelease(dxgiDevice)

	var adapter uintptr
	_, err = comCall(dxgiDevice, dxgiDeviceGetAdapter, uintptr(unsafe.Pointer(&adapter)))
	if err != nil {
		return nil, fmt.Errorf("IDXGIDevice::GetAdapter: %w", err)
	}
	defer comRelease(adapter)

	var monitors []capture.MonitorInfo
	for i := 0; ; i++ {
		var output uintptr
		hr, _, _ := syscall.SyscallN(
			comVtblFn(adapter, dxgiAdapterEnumOutputs),
			adapter,
			uintptr(i),
			uintptr(unsafe.Pointer(&output)),
		)
		if int32(hr) < 0 {
			break
		}

		var desc dxgiOutputDesc
		hr, _, _ = syscall.SyscallN(
			comVtblFn(output, dxgiOutputGetDesc),
			output,
			uintptr(unsafe.Pointer(&desc)),
		)
		comRelease(output)
		if int32(hr) < 0 || desc.AttachedToDesktop == 0 {
			continue
		}

		monitors = append(monitors, capture.MonitorInfo{
			Index:    i,
			Name:     syscall.UTF16ToString(desc.DeviceName[:]),
			X:        int(desc.Left),
			Y:        int(desc.Top),
			Width:    int(desc.Right - desc.Left),
			Height:   int(desc.Bottom - desc.Top),
			Rotation: rotationDegrees(desc.Rotation),
			Primary:  desc.Left == 0 && desc.Top == 0,
		})
	}

	if len(monitors) == 0 {
		return nil, fmt.Errorf("no monitors found")
	}
	return monitors, nil
}

// dxgiDuplicator is an active IDXGIOutputDuplication binding. Frames are
// copied into a CPU-readable staging texture and exposed as an RGBA image in
// native (pre-rotation) orientation; rotation is the render step's job.
type dxgiDuplicator struct {
	device      uintptr // ID3D11Device
	context     uintptr // ID3D11DeviceContext
	duplication uintptr // IDXGIOutputDuplication
	staging     uintptr // ID3D11Texture2D, CPU-readable

	width  int
	height int

	img *image.RGBA
}

// UpdateFrame pulls the next frame into the staging texture. A timeout with
// no new frame keeps the previous texture and is not an error; any other
// failure (access lost, device removed, mode change) invalidates the
// binding and is returned for the session to handle.
func (d *dxgiDuplicator) UpdateFrame() error {
	var frameInfo dxgiOutDuplFrameInfo
	var resource uintptr

	hr, _, _ := syscall.SyscallN(
		comVtblFn(d.duplication, dxgiDuplAcquireNextFrame),
		d.duplication,
		uintptr(0), // no wait: the tick cadence is the clock
		uintptr(unsafe.Pointer(&frameInfo)),
		uintptr(unsafe.Pointer(&resource)),
	)
	if uint32(hr) == dxgiErrWaitTimeout {
		return nil
	}
	if int32(hr) < 0 {
		return fmt.Errorf("AcquireNextFrame: 0x%08X", uint32(hr))
	}

	if frameInfo.AccumulatedFrames == 0 {
		comRelease(resource)
		syscall.SyscallN(comVtblFn(d.duplication, dxgiDuplReleaseFrame), d.duplication)
		return nil
	}

	var texture uintptr
	_, err := comCall(resource, vtblQueryInterface,
		uintptr(unsafe.Pointer(&iidID3D11Texture2D)),
		uintptr(unsafe.Pointer(&texture)),
	)
	comRelease(resource)
	if err != nil {
		syscall.SyscallN(comVtblFn(d.duplication, dxgiDuplReleaseFrame), d.duplication)
		return fmt.Errorf("QueryInterface ID3D11Texture2D: %w", err)
	}

	// GPU-to-GPU copy into the staging texture, then map for CPU reads.
	syscall.SyscallN(
		comVtblFn(d.context, d3d11CtxCopyResource),
		d.context,
		d.staging,
		texture,
	)
	comRelease(texture)

	var mapped d3d11MappedSubresource
	hr, _, _ = syscall.SyscallN(
		comVtblFn(d.context, d3d11CtxMap),
		d.context,
		d.staging,
		0, // Subresource
		1, // D3D11_MAP_READ
		0, // Flags
		uintptr(unsafe.Pointer(&mapped)),
	)
	if int32(hr) < 0 {
		syscall.SyscallN(comVtblFn(d.duplication, dxgiDuplReleaseFrame), d.duplication)
		return fmt.Errorf("Map staging texture: 0x%08X", uint32(hr))
	}

	if d.img == nil {
		d.img = image.NewRGBA(image.Rect(0, 0, d.width, d.height))
	}
	d.readBGRA(mapped.PData, int(mapped.RowPitch))

	syscall.SyscallN(comVtblFn(d.context, d3d11CtxUnmap), d.context, d.staging, 0)
	syscall.SyscallN(comVtblFn(d.duplication, dxgiDuplReleaseFrame), d.duplication)

	return nil
}

// readBGRA copies the mapped staging rows into d.img, swizzling BGRA to the
// RGBA byte order the software canvas expects.
func (d *dxgiDuplicator) readBGRA(pData uintptr, rowPitch int) {
	rowBytes := d.width * 4
	for y := 0; y < d.height; y++ {
		src := unsafe.Slice((*byte)(unsafe.Pointer(pData+uintptr(y*rowPitch))), rowBytes)
		dst := d.img.Pix[y*d.img.Stride : y*d.img.Stride+rowBytes]
		for x := 0; x < rowBytes; x += 4 {
			dst[x+0] = src[x+2]
			dst[x+1] = src[x+1]
			dst[x+2] = src[x+0]
			dst[x+3] = 0xFF
		}
	}
}

func (d *dxgiDuplicator) Texture() capture.Texture {
	if d.img == nil {
		return nil
	}
	return NewImageTexture(d.img)
}

func (d *dxgiDuplicator) Close() {
	comRelease(d.staging)
	comRelease(d.duplication)
	comRelease(d.context)
	comRelease(d.device)
	d.staging, d.duplication, d.context, d.device = 0, 0, 0, 0
	d.img = nil
}
