// Connection manager owning the live telemetry stream
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"falconmesh-gcs/internal/geo"
	"falconmesh-gcs/internal/metrics"
	"falconmesh-gcs/internal/mission"
	"falconmesh-gcs/internal/store"
	"falconmesh-gcs/internal/telemetry"
	"falconmesh-gcs/internal/view"
)

// DefaultReconnectDelay is the fixed wait between a close/error and the
// next connect attempt.
const DefaultReconnectDelay = 1500 * time.Millisecond

// Manager owns one live websocket connection to the control plane. It
// classifies inbound frames, routes them to the store and mission overlay,
// and drives reconnection with a fixed delay, forever. Unparseable frames
// are discarded without surfacing an error; connectivity loss is reported
// only through Status.
type Manager struct {
	url       string
	dialer    *websocket.Dialer
	store     *store.Store
	overlay   *mission.Overlay
	selection *view.Selection
	proj      *geo.Projector
	sink      Sink
	delay     time.Duration
	log       *slog.Logger

	mu       sync.Mutex
	status   Status
	attempts int
}

// NewManager creates a Manager for the given websocket URL. sink may be
// nil when no presentation layer is attached. A delay <= 0 falls back to
// DefaultReconnectDelay.
func NewManager(wsURL string, st *store.Store, ov *mission.Overlay, sel *view.Selection, proj *geo.Projector, sink Sink, delay time.Duration, log *slog.Logger) *Manager {
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		url:       wsURL,
		dialer:    websocket.DefaultDialer,
		store:     st,
		overlay:   ov,
		selection: sel,
		proj:      proj,
		sink:      sink,
		delay:     delay,
		log:       log,
		status:    StatusDisconnected,
	}
}

// TelemetryURL derives the websocket stream URL from the control API base
// URL, the way the agents do: http becomes ws, https becomes wss.
func TelemetryURL(base, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = path
	return u.String(), nil
}

// Status returns the current connection state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Attempts returns the reconnect attempt counter. It resets to zero on a
// successful open.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Run connects and processes frames until ctx is cancelled, reconnecting
// after the fixed delay on every close or error. It never returns an
// error: the reconnect loop is the universal recovery mechanism.
func (m *Manager) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			m.setStatus(StatusDisconnected)
			return
		}
		m.setStatus(StatusConnecting)
		conn, resp, err := m.dialer.DialContext(ctx, m.url, nil)
		if err != nil {
			if resp != nil {
				resp.Body.Close()
			}
			m.log.Warn("stream dial failed", "url", m.url, "error", err)
			m.setStatus(StatusError)
			if !m.scheduleReconnect(ctx) {
				return
			}
			continue
		}

		m.mu.Lock()
		m.attempts = 0
		m.mu.Unlock()
		m.setStatus(StatusOpen)
		metrics.SetConnected(true)
		m.log.Info("stream open", "url", m.url)

		err = m.readLoop(ctx, conn)
		conn.Close()
		metrics.SetConnected(false)
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			m.setStatus(StatusClosed)
		} else {
			m.setStatus(StatusError)
		}
		m.log.Info("stream closed", "error", err)

		if ctx.Err() != nil {
			m.setStatus(StatusDisconnected)
			return
		}
		if !m.scheduleReconnect(ctx) {
			return
		}
	}
}

// scheduleReconnect waits out the fixed delay. A new connection is only
// ever created after the delay elapses and the prior socket has closed, so
// concurrent connect attempts cannot happen. Returns false when ctx ended.
func (m *Manager) scheduleReconnect(ctx context.Context) bool {
	m.mu.Lock()
	m.attempts++
	m.mu.Unlock()
	metrics.IncReconnect()

	select {
	case <-ctx.Done():
		m.setStatus(StatusDisconnected)
		return false
	case <-time.After(m.delay):
		return true
	}
}

func (m *Manager) readLoop(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		m.handleFrame(data)
	}
}

// handleFrame classifies one raw frame and routes it. All mutation driven
// by the stream happens here, on the single read loop, so handlers are
// serial with respect to each other.
func (m *Manager) handleFrame(data []byte) {
	frame := telemetry.Classify(data)
	switch frame.Kind {
	case telemetry.FrameSnapshot:
		accepted := m.store.ApplySnapshot(frame.Nodes)
		for _, n := range accepted {
			m.selection.Observe(n.ID)
		}
		metrics.IncFrame("snapshot")
		metrics.SetKnownNodes(m.store.Len())
		m.emitSnapshot(accepted)
	case telemetry.FrameMission:
		ms, err := mission.Decode(frame.Mission, m.proj)
		if err != nil {
			m.log.Debug("mission frame dropped", "error", err)
			metrics.IncDroppedFrame()
			return
		}
		m.overlay.Set(ms)
		metrics.IncFrame("mission")
		m.emitMission(ms)
	case telemetry.FrameDelta:
		n, ok := m.store.ApplyDelta(frame.Node)
		if !ok {
			metrics.IncDroppedFrame()
			return
		}
		m.selection.Observe(n.ID)
		metrics.IncFrame("delta")
		metrics.SetKnownNodes(m.store.Len())
		m.emitNode(n)
	default:
		metrics.IncDroppedFrame()
	}
}

func (m *Manager) emitNode(n telemetry.Node) {
	if m.sink == nil {
		return
	}
	if err := m.sink.WriteNode(n); err != nil {
		m.log.Debug("sink write failed", "node", n.ID, "error", err)
	}
}

func (m *Manager) emitSnapshot(nodes []telemetry.Node) {
	if m.sink == nil {
		return
	}
	if ss, ok := m.sink.(snapshotSink); ok {
		if err := ss.WriteSnapshot(nodes); err != nil {
			m.log.Debug("sink snapshot write failed", "error", err)
		}
		return
	}
	for _, n := range nodes {
		m.emitNode(n)
	}
}

func (m *Manager) emitMission(ms mission.Mission) {
	if m.sink == nil {
		return
	}
	if msink, ok := m.sink.(missionSink); ok {
		if err := msink.WriteMission(ms); err != nil {
			m.log.Debug("sink mission write failed", "error", err)
		}
	}
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	changed := m.status != s
	m.status = s
	m.mu.Unlock()
	if !changed || m.sink == nil {
		return
	}
	if ssink, ok := m.sink.(statusSink); ok {
		_ = ssink.WriteStatus(s)
	}
}
