package gfx

import (
	"fmt"

	"github.com/kbinani/screenshot"

	"github.com/lumencast/agent/internal/capture"
)

// screenshotSystem implements capture.System over the portable screenshot
// library. Every frame update is a full CPU grab; rotation is always
// reported as 0 because the library exposes logical (post-rotation) bounds.
type screenshotSystem struct{}

// NewScreenshotSystem returns the portable duplication backend.
func NewScreenshotSystem() capture.System {
	return &screenshotSystem{}
}

func (s *screenshotSystem) CreateDuplicator(monitor int) (capture.Duplicator, error) {
	if monitor < 0 || monitor >= screenshot.NumActiveDisplays() {
		return nil, fmt.Errorf("create duplicator for display %d: %w", monitor, capture.ErrDisplayNotFound)
	}

	d := &screenshotDuplicator{monitor: monitor}
	// Probe once so creation fails here, not on the first tick, when the
	// display cannot be grabbed at all (e.g. no active X session).
	if err := d.UpdateFrame(); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *screenshotSystem) MonitorInfo(monitor int) (capture.MonitorInfo, error) {
	if monitor < 0 || monitor >= screenshot.NumActiveDisplays() {
		return capture.MonitorInfo{}, capture.ErrDisplayNotFound
	}
	b := screenshot.GetDisplayBounds(monitor)
	return capture.MonitorInfo{
		Index:    monitor,
		Name:     fmt.Sprintf("display-%d", monitor),
		X:        b.Min.X,
		Y:        b.Min.Y,
		Width:    b.Dx(),
		Height:   b.Dy(),
		Rotation: 0,
		Primary:  b.Min.X == 0 && b.Min.Y == 0,
	}, nil
}

func (s *screenshotSystem) Monitors() ([]capture.MonitorInfo, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, fmt.Errorf("no active displays")
	}
	monitors := make([]capture.MonitorInfo, 0, n)
	for i := 0; i < n; i++ {
		info, err := s.MonitorInfo(i)
		if err != nil {
			continue
		}
		monitors = append(monitors, info)
	}
	return monitors, nil
}

// screenshotDuplicator holds the most recent full-screen grab.
type screenshotDuplicator struct {
	monitor int
	tex     capture.Texture
}

func (d *screenshotDuplicator) UpdateFrame() error {
	img, err := screenshot.CaptureDisplay(d.monitor)
	if err != nil {
		return fmt.Errorf("capture display %d: %w", d.monitor, err)
	}
	d.tex = NewImageTexture(img)
	return nil
}

func (d *screenshotDuplicator) Texture() capture.Texture {
	return d.tex
}

func (d *screenshotDuplicator) Close() {
	d.tex = nil
}
