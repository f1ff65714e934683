// Local status server exposing the world model as JSON
package admin

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"falconmesh-gcs/internal/command"
	"falconmesh-gcs/internal/metrics"
	"falconmesh-gcs/internal/mission"
	"falconmesh-gcs/internal/store"
	"falconmesh-gcs/internal/stream"
)

//go:embed templates/index.html
var content embed.FS

// Server serves a read-only status view of the client's world model plus
// Prometheus metrics. It never mutates the store or overlay.
type Server struct {
	store   *store.Store
	overlay *mission.Overlay
	manager *stream.Manager
	monitor *command.Monitor
	tpl     *template.Template
	mux     *http.ServeMux
}

// NewServer creates a status server over the given components.
func NewServer(st *store.Store, ov *mission.Overlay, mgr *stream.Manager, mon *command.Monitor) *Server {
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	s := &Server{store: st, overlay: ov, manager: mgr, monitor: mon, tpl: tpl, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/nodes", s.handleNodes)
	s.mux.HandleFunc("/mission", s.handleMission)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.Handle("/metrics", metrics.Handler())
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	return srv.ListenAndServe()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	missionID := ""
	if m, ok := s.overlay.Current(); ok {
		missionID = m.ID
	}
	data := struct {
		Status    string
		Attempts  int
		NodeCount int
		MissionID string
	}{
		Status:    s.manager.Status().String(),
		Attempts:  s.manager.Attempts(),
		NodeCount: s.store.Len(),
		MissionID: missionID,
	}
	s.tpl.Execute(w, data)
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.store.Nodes())
}

func (s *Server) handleMission(w http.ResponseWriter, r *http.Request) {
	m, ok := s.overlay.Current()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"stream": s.manager.Status().String(),
		"nodes":  s.store.Len(),
	}
	if s.monitor != nil {
		if h, err, ok := s.monitor.Last(); ok {
			body["control_plane_ok"] = err == nil && h.OK
			if err == nil {
				body["control_plane_nodes"] = h.Nodes
				body["control_plane_rtt_ms"] = h.RTT.Milliseconds()
			}
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}
