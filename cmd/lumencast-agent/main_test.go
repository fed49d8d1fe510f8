package main

import (
	"strings"
	"testing"

	"github.com/lumencast/agent/internal/capture"
)

type listSystem struct {
	monitors []capture.MonitorInfo
}

func (s *listSystem) CreateDuplicator(int) (capture.Duplicator, error) {
	return nil, capture.ErrNotSupported
}

func (s *listSystem) MonitorInfo(int) (capture.MonitorInfo, error) {
	return capture.MonitorInfo{}, capture.ErrDisplayNotFound
}

func (s *listSystem) Monitors() ([]capture.MonitorInfo, error) {
	return s.monitors, nil
}

func TestPrintMonitorsKeepsReportedDimensions(t *testing.T) {
	// Enumeration reports desktop-facing bounds, so a rotated monitor must
	// print exactly what the backend said, never re-swapped.
	sys := &listSystem{monitors: []capture.MonitorInfo{
		{Index: 0, Name: "DISPLAY1", X: 0, Y: 0, Width: 2560, Height: 1440, Rotation: 0, Primary: true},
		{Index: 1, Name: "DISPLAY2", X: 2560, Y: 0, Width: 1080, Height: 1920, Rotation: 90},
	}}

	var out strings.Builder
	if err := printMonitors(&out, sys); err != nil {
		t.Fatalf("printMonitors: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), out.String())
	}
	if !strings.Contains(lines[0], "2560x1440") || !strings.Contains(lines[0], "(primary)") {
		t.Errorf("primary line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "1080x1920") {
		t.Errorf("rotated monitor dimensions re-swapped: %q", lines[1])
	}
	if !strings.Contains(lines[1], "rotation 90") {
		t.Errorf("rotation missing: %q", lines[1])
	}
}
