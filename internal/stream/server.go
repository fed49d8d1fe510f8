// Package stream serves the captured monitor as a local JPEG preview
// stream over WebSocket. The server owns the tick loop: the capture
// session is only advanced while at least one viewer is connected, so an
// idle agent costs nothing.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/jpeg"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lumencast/agent/internal/capture"
	"github.com/lumencast/agent/internal/gfx"
	"github.com/lumencast/agent/internal/health"
	"github.com/lumencast/agent/internal/logging"
)

var log = logging.L("stream")

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// viewerQueueSize bounds the per-viewer send queue. A viewer that
	// falls behind has frames dropped rather than stalling the loop.
	viewerQueueSize = 8
)

// Source is the capture pipeline the server drives. *capture.Session
// satisfies it.
type Source interface {
	Tick(deltaSeconds float64, visible bool)
	Render(c capture.Canvas)
	EffectiveSize() (uint32, uint32)
}

// Config holds the preview server settings.
type Config struct {
	Addr        string
	FPS         int
	JPEGQuality int
}

// Server exposes /stream (WebSocket, binary JPEG frames) and /healthz.
type Server struct {
	cfg     Config
	source  Source
	monitor *health.Monitor
	metrics *Metrics
	differ  *frameDiffer

	framePool imagePool
	upgrader  websocket.Upgrader

	mu      sync.Mutex
	viewers map[*viewer]struct{}
}

type viewer struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// NewServer creates a preview server. The health monitor may be shared
// with other subsystems; pass nil to run without one.
func NewServer(cfg Config, source Source, monitor *health.Monitor) *Server {
	if monitor == nil {
		monitor = health.NewMonitor()
	}
	return &Server{
		cfg:     cfg,
		source:  source,
		monitor: monitor,
		metrics: newMetrics(),
		differ:  newFrameDiffer(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			// Local preview endpoint, no cross-origin story yet.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		viewers: make(map[*viewer]struct{}),
	}
}

// Metrics returns the pipeline metrics for external reporting.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Run serves HTTP and drives the capture loop until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/stream", s.handleStream)
	mux.HandleFunc("/healthz", s.handleHealthz)

	httpSrv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("preview server listening", "addr", s.cfg.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	fps := s.cfg.FPS
	if fps < 1 {
		fps = 1
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	statsTicker := time.NewTicker(30 * time.Second)
	defer statsTicker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := httpSrv.Shutdown(shutdownCtx)
			cancel()
			s.closeViewers()
			return err

		case err := <-errCh:
			s.closeViewers()
			return fmt.Errorf("preview server: %w", err)

		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			s.tick(dt)

		case <-statsTicker.C:
			if s.viewerCount() > 0 {
				snap := s.metrics.Snapshot()
				log.Debug("stream stats",
					"sent", snap.FramesSent,
					"skipped", snap.FramesSkipped,
					"dropped", snap.FramesDropped,
					"encodeMs", snap.EncodeMs,
					"bandwidthKBps", snap.BandwidthKBps,
				)
			}
		}
	}
}

func (s *Server) tick(dt float64) {
	visible := s.viewerCount() > 0
	s.source.Tick(dt, visible)

	if w, h := s.source.EffectiveSize(); w == 0 || h == 0 {
		s.monitor.Update("capture", health.Degraded, "waiting for monitor")
	} else {
		s.monitor.Update("capture", health.Healthy, "")
	}

	if visible {
		s.renderAndSend()
	}
}

func (s *Server) renderAndSend() {
	w, h := s.source.EffectiveSize()
	if w == 0 || h == 0 {
		s.metrics.RecordSkip()
		return
	}

	img := s.framePool.Get(int(w), int(h))

	t0 := time.Now()
	s.source.Render(gfx.NewImageCanvasFor(img))
	s.metrics.RecordRender(time.Since(t0))

	if !s.differ.HasChanged(img.Pix) {
		s.framePool.Put(img)
		s.metrics.RecordSkip()
		return
	}

	buf := getBuffer()
	t0 = time.Now()
	err := jpeg.Encode(buf, img, &jpeg.Options{Quality: s.cfg.JPEGQuality})
	s.framePool.Put(img)
	if err != nil {
		putBuffer(buf)
		log.Warn("jpeg encode failed", "error", err)
		return
	}
	s.metrics.RecordEncode(time.Since(t0), buf.Len())

	// The send queues outlive the pooled buffer, so broadcast a copy.
	data := make([]byte, buf.Len())
	copy(data, buf.Bytes())
	putBuffer(buf)

	s.broadcast(data)
}

func (s *Server) broadcast(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for v := range s.viewers {
		select {
		case v.send <- data:
			s.metrics.RecordSend(len(data))
		default:
			s.metrics.RecordDrop()
		}
	}
}

func (s *Server) viewerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.viewers)
}

// closeViewers drops every connection. It only closes the sockets; v.done
// stays owned by handleStream, which observes the read error and finishes
// its own teardown.
func (s *Server) closeViewers() {
	s.mu.Lock()
	viewers := make([]*viewer, 0, len(s.viewers))
	for v := range s.viewers {
		viewers = append(viewers, v)
	}
	s.viewers = make(map[*viewer]struct{})
	s.mu.Unlock()

	for _, v := range viewers {
		v.conn.Close()
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	v := &viewer{
		conn: conn,
		send: make(chan []byte, viewerQueueSize),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	s.viewers[v] = struct{}{}
	count := len(s.viewers)
	s.mu.Unlock()

	// Force the next frame through the differ so the new viewer does not
	// wait for the desktop to change.
	s.differ.Reset()

	log.Info("viewer connected", "remote", r.RemoteAddr, "viewers", count)

	go v.writePump()
	v.readPump()

	s.mu.Lock()
	delete(s.viewers, v)
	count = len(s.viewers)
	s.mu.Unlock()

	close(v.done)
	conn.Close()
	log.Info("viewer disconnected", "remote", r.RemoteAddr, "viewers", count)
}

// readPump discards incoming messages; viewers are receive-only. It
// returns when the connection drops.
func (v *viewer) readPump() {
	v.conn.SetReadLimit(1024)
	v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error {
		v.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("viewer read error", "error", err)
			}
			return
		}
	}
}

func (v *viewer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-v.done:
			return

		case frame := <-v.send:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	type healthResponse struct {
		Status  string            `json:"status"`
		Checks  map[string]string `json:"checks"`
		Viewers int               `json:"viewers"`
		Metrics MetricsSnapshot   `json:"metrics"`
	}

	checks := make(map[string]string)
	for _, c := range s.monitor.All() {
		checks[c.Name] = string(c.Status)
	}

	resp := healthResponse{
		Status:  string(s.monitor.Overall()),
		Checks:  checks,
		Viewers: s.viewerCount(),
		Metrics: s.metrics.Snapshot(),
	}

	w.Header().Set("Content-Type", "application/json")
	if s.monitor.Overall() == health.Unhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(resp)
}
