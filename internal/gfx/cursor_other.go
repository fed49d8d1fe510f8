//go:build !windows

package gfx

// sampleCursor reports no cursor: there is no portable cursor query in the
// capture stack outside Windows, so the overlay stays invisible.
func sampleCursor() (cursorSample, bool) {
	return cursorSample{}, false
}
