package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"falconmesh-gcs/internal/geo"
	"falconmesh-gcs/internal/mission"
	"falconmesh-gcs/internal/store"
	"falconmesh-gcs/internal/telemetry"
	"falconmesh-gcs/internal/view"
)

// mockSink records every event it receives.
type mockSink struct {
	mu        sync.Mutex
	nodes     []telemetry.Node
	snapshots [][]telemetry.Node
	missions  []mission.Mission
	statuses  []Status
}

func (m *mockSink) WriteNode(n telemetry.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = append(m.nodes, n)
	return nil
}

func (m *mockSink) WriteSnapshot(nodes []telemetry.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, nodes)
	return nil
}

func (m *mockSink) WriteMission(ms mission.Mission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.missions = append(m.missions, ms)
	return nil
}

func (m *mockSink) WriteStatus(s Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, s)
	return nil
}

func (m *mockSink) snapshotCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snapshots)
}

func (m *mockSink) missionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.missions)
}

func newTestManager(wsURL string, sink Sink, delay time.Duration) (*Manager, *store.Store, *mission.Overlay, *view.Selection) {
	proj := geo.NewProjector(geo.Point{Lat: 39.9334, Lon: 32.8597})
	st := store.New(proj, store.NewTrailBuffer(store.DefaultTrailCapacity))
	ov := mission.NewOverlay()
	sel := view.NewSelection()
	m := NewManager(wsURL, st, ov, sel, proj, sink, delay, nil)
	return m, st, ov, sel
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func wsURLFor(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestManagerRoutesFrames(t *testing.T) {
	frames := []string{
		`{"type":"snapshot","nodes":[{"node_id":"UAV1","pos":{"lat":10,"lon":20},"state":"NORMAL"}]}`,
		`{"node_id":"UAV1","pos":{"x":5,"y":5}}`,
		`{"type":"mission_update","mission":{"id":"m-1","base":{"lat":39.9,"lon":32.8,"radius_m":500}}}`,
		`this is not json`,
		`{"type":"command_ack","node_id":"UAV1"}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	sink := &mockSink{}
	m, st, ov, sel := newTestManager(wsURLFor(srv), sink, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	waitFor(t, func() bool { return sink.missionCount() == 1 }, "mission never reached the sink")

	n, ok := st.Get("UAV1")
	if !ok {
		t.Fatal("UAV1 missing from store")
	}
	if n.State != "NORMAL" {
		t.Errorf("state = %q, want NORMAL", n.State)
	}
	// The delta was planar and projected from the anchor.
	if got := st.Trails().Len("UAV1"); got != 2 {
		t.Errorf("trail length = %d, want 2", got)
	}
	if st.Len() != 1 {
		t.Errorf("store has %d nodes, want 1 (garbage and typed frames ignored)", st.Len())
	}

	if ms, ok := ov.Current(); !ok || ms.ID != "m-1" {
		t.Errorf("overlay mission = %+v ok=%v, want m-1", ms, ok)
	}
	if key, _ := sel.Current(); key != "UAV1" {
		t.Errorf("auto-selection = %q, want UAV1", key)
	}
	if sink.snapshotCount() != 1 {
		t.Errorf("snapshot sink calls = %d, want 1", sink.snapshotCount())
	}
	if m.Status() != StatusOpen {
		t.Errorf("status = %v, want open", m.Status())
	}
}

func TestManagerReconnectRespectsDelay(t *testing.T) {
	delay := 300 * time.Millisecond

	var mu sync.Mutex
	var connectTimes []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		connectTimes = append(connectTimes, time.Now())
		mu.Unlock()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	m, _, _, _ := newTestManager(wsURLFor(srv), &mockSink{}, delay)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(connectTimes) >= 2
	}, "second connection never arrived")
	cancel()

	mu.Lock()
	gap := connectTimes[1].Sub(connectTimes[0])
	mu.Unlock()
	if gap < delay {
		t.Errorf("reconnect arrived after %v, must wait at least %v", gap, delay)
	}
	if m.Attempts() == 0 {
		t.Error("attempt counter should have advanced")
	}
}

func TestManagerStatusTransitions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	sink := &mockSink{}
	m, _, _, _ := newTestManager(wsURLFor(srv), sink, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	go m.Run(ctx)

	waitFor(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		for _, s := range sink.statuses {
			if s == StatusOpen {
				return true
			}
		}
		return false
	}, "never reached open")
	cancel()
	waitFor(t, func() bool { return m.Status() == StatusDisconnected }, "never settled disconnected after cancel")

	sink.mu.Lock()
	first := sink.statuses[0]
	sink.mu.Unlock()
	if first != StatusConnecting {
		t.Errorf("first transition = %v, want connecting", first)
	}
}

func TestTelemetryURL(t *testing.T) {
	tests := []struct {
		base, want string
		wantErr    bool
	}{
		{base: "http://control-api:8000", want: "ws://control-api:8000/ws/telemetry"},
		{base: "https://gcs.example.com", want: "wss://gcs.example.com/ws/telemetry"},
		{base: "ws://control-api:8000", want: "ws://control-api:8000/ws/telemetry"},
		{base: "ftp://x", wantErr: true},
	}
	for _, tt := range tests {
		got, err := TelemetryURL(tt.base, "/ws/telemetry")
		if tt.wantErr {
			if err == nil {
				t.Errorf("TelemetryURL(%q) expected error", tt.base)
			}
			continue
		}
		if err != nil {
			t.Errorf("TelemetryURL(%q): %v", tt.base, err)
			continue
		}
		if got != tt.want {
			t.Errorf("TelemetryURL(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func TestMultiSinkFanout(t *testing.T) {
	a := &mockSink{}
	b := &mockSink{}
	ms := NewMultiSink(a, b)

	n := telemetry.Node{ID: "uav-1"}
	if err := ms.WriteNode(n); err != nil {
		t.Fatalf("WriteNode: %v", err)
	}
	if err := ms.WriteMission(mission.Mission{ID: "m-1"}); err != nil {
		t.Fatalf("WriteMission: %v", err)
	}
	if err := ms.WriteStatus(StatusOpen); err != nil {
		t.Fatalf("WriteStatus: %v", err)
	}

	for _, s := range []*mockSink{a, b} {
		if len(s.nodes) != 1 || len(s.missions) != 1 || len(s.statuses) != 1 {
			t.Errorf("sink missed events: nodes=%d missions=%d statuses=%d",
				len(s.nodes), len(s.missions), len(s.statuses))
		}
	}
}
