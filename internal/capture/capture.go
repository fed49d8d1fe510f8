// Package capture implements the monitor-capture session: the lifecycle of a
// display duplication resource, tick-driven frame acquisition with time-gated
// recovery, rotation-aware geometry, and the render step that composes the
// captured texture with a cursor overlay.
//
// The low-level duplication API, the cursor bitmap source, and the drawing
// surface are external collaborators consumed through the interfaces below;
// platform implementations live in internal/gfx.
package capture

import (
	"fmt"
	"image"
	"sync"
)

// System is the display duplication API boundary. Implementations enumerate
// physical outputs and create duplicators bound to one of them.
type System interface {
	// CreateDuplicator binds a duplication resource to the given output.
	// Failure is a steady-state condition (monitor disconnected, device
	// busy), not an exceptional one; callers are expected to retry.
	CreateDuplicator(monitor int) (Duplicator, error)

	// MonitorInfo reports the geometry of one output in virtual desktop
	// coordinates. Returns ErrDisplayNotFound for an unknown index.
	MonitorInfo(monitor int) (MonitorInfo, error)

	// Monitors enumerates the currently attached outputs.
	Monitors() ([]MonitorInfo, error)
}

// Duplicator is an active binding to one monitor's frame-buffer mirror.
// It is exclusively owned by the Session that created it.
type Duplicator interface {
	// UpdateFrame pulls the next frame into the backing texture. An error
	// means the binding is no longer usable (device lost, display mode
	// change) and the duplicator must be closed and recreated.
	UpdateFrame() error

	// Texture returns the current backing texture, or nil if no frame has
	// been retrieved yet.
	Texture() Texture

	// Close releases the duplication resource. Safe to call once.
	Close()
}

// Texture is a captured frame in raw (pre-rotation) orientation.
type Texture interface {
	// Dimensions returns the raw width and height in pixels.
	Dimensions() (width, height uint32)

	// Image exposes the pixel data for software composition.
	Image() *image.RGBA
}

// MonitorInfo describes a display output's placement in the virtual desktop.
type MonitorInfo struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Rotation int    `json:"rotation"` // degrees, one of 0/90/180/270
	Primary  bool   `json:"isPrimary"`
}

// Canvas is the drawing surface the render step targets. Transform state is
// a stack; blending and the alpha write mask are modal, matching the way the
// compositing pipeline drives it.
type Canvas interface {
	PushTransform(t Transform)
	PopTransform()

	// SetBlending toggles source-over alpha blending for subsequent draws.
	SetBlending(enabled bool)

	// SetAlphaWrite toggles writing of the destination alpha channel. The
	// base capture quad writes RGB only; the cursor overlay writes RGBA.
	SetAlphaWrite(enabled bool)

	// SetClip restricts subsequent draws to the rectangle (0,0)-(w,h) in
	// post-transform coordinates. ClearClip removes the restriction.
	SetClip(w, h uint32)
	ClearClip()

	// DrawTexture draws t with its top-left corner at (x, y) under the
	// current transform, blend mode, and clip.
	DrawTexture(t Texture, x, y int)
}

// CursorOverlay samples the OS cursor and draws it onto a Canvas. Owned by
// exactly one Session and released with it.
type CursorOverlay interface {
	// Capture samples the current cursor image, hotspot, and position.
	Capture()

	// Draw renders the last captured cursor at its screen position offset
	// by (x, y), scaled by (scaleX, scaleY), clipped to (clipW, clipH).
	Draw(c Canvas, x, y int, scaleX, scaleY float64, clipW, clipH uint32)

	// Close frees any transient cursor resources. Safe to call once.
	Close()
}

// Guard serializes access to the graphics device across all capture sources
// sharing it. Duplicator creation, frame updates, and destruction must run
// inside an Enter/Leave pair.
type Guard struct {
	mu sync.Mutex
}

// Enter acquires exclusive device access.
func (g *Guard) Enter() { g.mu.Lock() }

// Leave releases exclusive device access.
func (g *Guard) Leave() { g.mu.Unlock() }

// ErrNotSupported is returned when display duplication is not supported on
// the platform.
var ErrNotSupported = fmt.Errorf("display duplication not supported on this platform")

// ErrDisplayNotFound is returned when the requested display does not exist.
var ErrDisplayNotFound = fmt.Errorf("display not found")
