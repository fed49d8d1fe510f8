//go:build windows

package gfx

import (
	"github.com/lumencast/agent/internal/capture"
	"github.com/lumencast/agent/internal/logging"
)

var log = logging.L("gfx")

// NewSystem returns the duplication backend for this platform: DXGI Desktop
// Duplication when a D3D11 device can be created, otherwise the portable
// screenshot backend.
func NewSystem() capture.System {
	device, context, err := createD3DDevice()
	if err != nil {
		log.Warn("DXGI unavailable, using portable capture backend", "error", err)
		return NewScreenshotSystem()
	}
	comRelease(context)
	comRelease(device)
	return NewDXGISystem()
}
