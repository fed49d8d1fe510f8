package stream

import (
	"sync"
	"time"
)

// Metrics tracks real-time performance data for the preview pipeline.
type Metrics struct {
	mu sync.RWMutex

	FramesRendered uint64
	FramesEncoded  uint64
	FramesSent     uint64
	FramesSkipped  uint64
	FramesDropped  uint64

	LastRenderTime time.Duration
	LastEncodeTime time.Duration
	LastFrameSize  int

	TotalBytesSent uint64
	startTime      time.Time
}

func newMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

func (m *Metrics) RecordRender(d time.Duration) {
	m.mu.Lock()
	m.FramesRendered++
	m.LastRenderTime = d
	m.mu.Unlock()
}

func (m *Metrics) RecordSkip() {
	m.mu.Lock()
	m.FramesSkipped++
	m.mu.Unlock()
}

func (m *Metrics) RecordEncode(d time.Duration, size int) {
	m.mu.Lock()
	m.FramesEncoded++
	m.LastEncodeTime = d
	m.LastFrameSize = size
	m.mu.Unlock()
}

func (m *Metrics) RecordSend(size int) {
	m.mu.Lock()
	m.FramesSent++
	m.TotalBytesSent += uint64(size)
	m.mu.Unlock()
}

func (m *Metrics) RecordDrop() {
	m.mu.Lock()
	m.FramesDropped++
	m.mu.Unlock()
}

// MetricsSnapshot is a point-in-time copy of metrics for logging and the
// health endpoint.
type MetricsSnapshot struct {
	FramesRendered uint64  `json:"framesRendered"`
	FramesEncoded  uint64  `json:"framesEncoded"`
	FramesSent     uint64  `json:"framesSent"`
	FramesSkipped  uint64  `json:"framesSkipped"`
	FramesDropped  uint64  `json:"framesDropped"`
	RenderMs       float64 `json:"renderMs"`
	EncodeMs       float64 `json:"encodeMs"`
	LastFrameSize  int     `json:"lastFrameSize"`
	BandwidthKBps  float64 `json:"bandwidthKBps"`
	UptimeSec      float64 `json:"uptimeSec"`
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	uptime := time.Since(m.startTime)
	bw := float64(0)
	if uptime.Seconds() > 0 {
		bw = float64(m.TotalBytesSent) / uptime.Seconds() / 1024.0
	}

	return MetricsSnapshot{
		FramesRendered: m.FramesRendered,
		FramesEncoded:  m.FramesEncoded,
		FramesSent:     m.FramesSent,
		FramesSkipped:  m.FramesSkipped,
		FramesDropped:  m.FramesDropped,
		RenderMs:       float64(m.LastRenderTime.Microseconds()) / 1000.0,
		EncodeMs:       float64(m.LastEncodeTime.Microseconds()) / 1000.0,
		LastFrameSize:  m.LastFrameSize,
		BandwidthKBps:  bw,
		UptimeSec:      uptime.Seconds(),
	}
}
