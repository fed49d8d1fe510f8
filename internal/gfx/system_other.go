//go:build !windows

package gfx

import "github.com/lumencast/agent/internal/capture"

// NewSystem returns the duplication backend for this platform.
func NewSystem() capture.System {
	return NewScreenshotSystem()
}
