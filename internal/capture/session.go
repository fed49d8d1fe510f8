package capture

import (
	"github.com/lumencast/agent/internal/logging"
)

var log = logging.L("capture")

// resetIntervalSec gates duplicator recreation after a loss. Creation is
// expensive and a missing monitor is a steady-state condition, so attempts
// are spaced by a fixed period rather than a tightening backoff.
const resetIntervalSec = 3.0

// Options are the host-facing settings of a capture session.
type Options struct {
	// Monitor selects which physical output to duplicate.
	Monitor int

	// CaptureCursor overlays the OS cursor on the rendered output.
	CaptureCursor bool
}

// DefaultOptions mirrors the host defaults: primary monitor, cursor on.
func DefaultOptions() Options {
	return Options{Monitor: 0, CaptureCursor: true}
}

// Session owns one monitor-capture instance: the duplication resource, its
// cached geometry, the retry timer, and the cursor overlay. A Session has a
// single logical owner; Tick, Configure, Render, and Close must not be
// called concurrently with each other. Device-bound work (create, update,
// destroy) runs under the shared Guard.
type Session struct {
	sys    System
	guard  *Guard
	cursor CursorOverlay

	monitor       int
	captureCursor bool

	// dup == nil means Unbound: no live duplication resource.
	dup Duplicator

	// Raw (pre-rotation) dimensions of the last retrieved texture. Zero
	// width is the sentinel for "geometry not yet sampled".
	width, height uint32

	// Monitor origin in virtual desktop coordinates, used to translate
	// the cursor into local capture space.
	x, y int

	// Display rotation in degrees, always one of 0/90/180/270.
	rot int

	// Seconds accumulated since the duplicator was lost.
	resetTimeout float64

	closed bool
}

// NewSession creates a session and performs the initial configuration. The
// first acquisition attempt happens inside Configure; its failure is
// non-fatal and NewSession still returns a usable session.
func NewSession(sys System, guard *Guard, cursor CursorOverlay, opts Options) *Session {
	s := &Session{
		sys:    sys,
		guard:  guard,
		cursor: cursor,
	}
	s.Configure(opts)
	return s
}

// Configure applies new settings. The existing duplication resource is
// always destroyed and re-acquired; geometry and the retry timer are reset
// unconditionally, so the session is in a defined state regardless of
// whether acquisition succeeded.
func (s *Session) Configure(opts Options) {
	s.monitor = opts.Monitor
	s.captureCursor = opts.CaptureCursor

	s.guard.Enter()
	defer s.guard.Leave()

	s.destroyDuplicator()
	dup, err := s.sys.CreateDuplicator(s.monitor)
	if err != nil {
		log.Debug("duplicator unavailable", "monitor", s.monitor, "error", err)
		dup = nil
	}
	s.dup = dup
	s.resetCapture()
}

// resetCapture zeroes cached geometry and the retry timer. Caller holds the
// guard.
func (s *Session) resetCapture() {
	s.width = 0
	s.height = 0
	s.x = 0
	s.y = 0
	s.rot = 0
	s.resetTimeout = 0
}

// destroyDuplicator releases the duplication resource if one is held.
// Caller holds the guard.
func (s *Session) destroyDuplicator() {
	if s.dup != nil {
		s.dup.Close()
		s.dup = nil
	}
}

// Tick advances the session by deltaSeconds of host time. When visible is
// false nothing happens at all: a hidden source must not consume duplication
// bandwidth. All failures are absorbed here; Tick never returns an error.
func (s *Session) Tick(deltaSeconds float64, visible bool) {
	if !visible {
		return
	}

	s.guard.Enter()
	defer s.guard.Leave()

	if s.dup == nil {
		s.resetTimeout += deltaSeconds

		if s.resetTimeout >= resetIntervalSec {
			dup, err := s.sys.CreateDuplicator(s.monitor)
			if err == nil {
				s.dup = dup
			}
			s.resetTimeout = 0
		}
	}

	if s.dup != nil {
		// Cursor position is independent of monitor geometry; sample it
		// even before dimensions are known.
		if s.captureCursor {
			s.cursor.Capture()
		}

		if err := s.dup.UpdateFrame(); err != nil {
			// Device lost or display reconfigured: cold restart. The
			// resource is destroyed and the whole acquire→size→render
			// pipeline re-runs from scratch.
			log.Debug("frame update failed, restarting capture",
				"monitor", s.monitor, "error", err)
			s.destroyDuplicator()
			s.resetCapture()
		} else if s.width == 0 {
			s.refreshGeometry()
		}
	}
}

// refreshGeometry samples texture dimensions and monitor placement once per
// binding. Geometry is assumed stable while the resource stays bound; a mode
// change surfaces as a later UpdateFrame failure. Caller holds the guard.
func (s *Session) refreshGeometry() {
	tex := s.dup.Texture()
	if tex == nil {
		return
	}
	info, err := s.sys.MonitorInfo(s.monitor)
	if err != nil {
		// No geometry yet; stay unsized and retry on the next tick.
		log.Debug("monitor info unavailable", "monitor", s.monitor, "error", err)
		return
	}

	s.width, s.height = tex.Dimensions()
	s.x = info.X
	s.y = info.Y
	s.rot = NormalizeRotation(info.Rotation)
}

// Render composes the captured texture and, when enabled, the cursor
// overlay onto c. Nothing is drawn while the session is unbound, the
// duplicator yields no texture, or geometry has not been sampled yet.
func (s *Session) Render(c Canvas) {
	if s.dup == nil {
		return
	}
	tex := s.dup.Texture()
	if tex == nil || s.width == 0 {
		return
	}

	// Base quad: opaque, RGB only; rotation applied as a model transform
	// so the texture is drawn in raw orientation.
	c.SetBlending(false)
	c.SetAlphaWrite(false)

	if s.rot != 0 {
		c.PushTransform(RenderTransform(s.rot, s.width, s.height))
	}
	c.DrawTexture(tex, 0, 0)
	if s.rot != 0 {
		c.PopTransform()
	}

	c.SetBlending(true)
	c.SetAlphaWrite(true)

	if s.captureCursor {
		// The cursor is clipped in display-facing orientation, so the
		// clip box uses effective (post-rotation) dimensions.
		clipW, clipH := EffectiveDimensions(s.width, s.height, s.rot)
		s.cursor.Draw(c, -s.x, -s.y, 1.0, 1.0, clipW, clipH)
	}
}

// EffectiveSize returns the post-rotation dimensions the host layout must
// use. Both are zero until geometry has been sampled.
func (s *Session) EffectiveSize() (uint32, uint32) {
	return EffectiveDimensions(s.width, s.height, s.rot)
}

// Origin returns the monitor's position in virtual desktop coordinates.
func (s *Session) Origin() (int, int) {
	return s.x, s.y
}

// CursorEnabled reports whether the cursor overlay is drawn.
func (s *Session) CursorEnabled() bool {
	return s.captureCursor
}

// Close destroys the duplication resource and the cursor overlay. Safe to
// call more than once.
func (s *Session) Close() {
	s.guard.Enter()
	defer s.guard.Leave()

	if s.closed {
		return
	}
	s.closed = true

	s.destroyDuplicator()
	s.cursor.Close()
}
