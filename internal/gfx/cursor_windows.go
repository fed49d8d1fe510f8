//go:build windows

package gfx

import (
	"image"
	"sync"
	"unsafe"
)

var (
	procGetCursorInfo = user32.NewProc("GetCursorInfo")
	procGetIconInfo   = user32.NewProc("GetIconInfo")
	procDeleteObject  = gdi32.NewProc("DeleteObject")
)

const cursorShowing = 0x00000001

type cursorInfoW struct {
	CbSize      uint32
	Flags       uint32
	HCursor     uintptr
	PtScreenPos struct{ X, Y int32 }
}

type iconInfoW struct {
	FIcon    int32
	XHotspot uint32
	YHotspot uint32
	HbmMask  uintptr
	HbmColor uintptr
}

var (
	arrowOnce   sync.Once
	arrowCached *image.RGBA
)

// sampleCursor reads the cursor position and hotspot via GetCursorInfo /
// GetIconInfo. The sprite is the standard arrow; decoding the live HCURSOR
// bitmap would need a GDI DC roundtrip per sample.
func sampleCursor() (cursorSample, bool) {
	var ci cursorInfoW
	ci.CbSize = uint32(unsafe.Sizeof(ci))
	ret, _, _ := procGetCursorInfo.Call(uintptr(unsafe.Pointer(&ci)))
	if ret == 0 || ci.Flags&cursorShowing == 0 {
		return cursorSample{}, false
	}

	var ii iconInfoW
	ret, _, _ = procGetIconInfo.Call(ci.HCursor, uintptr(unsafe.Pointer(&ii)))
	if ret != 0 {
		// GetIconInfo hands back bitmaps the caller must free.
		if ii.HbmMask != 0 {
			procDeleteObject.Call(ii.HbmMask)
		}
		if ii.HbmColor != 0 {
			procDeleteObject.Call(ii.HbmColor)
		}
	}

	arrowOnce.Do(func() { arrowCached = arrowSprite() })

	return cursorSample{
		x:      int(ci.PtScreenPos.X),
		y:      int(ci.PtScreenPos.Y),
		hotX:   int(ii.XHotspot),
		hotY:   int(ii.YHotspot),
		sprite: arrowCached,
	}, true
}
