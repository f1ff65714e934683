// Authoritative client-side node state with snapshot and delta semantics
package store

import (
	"sort"
	"sync"
	"time"

	"falconmesh-gcs/internal/geo"
	"falconmesh-gcs/internal/telemetry"
)

// Store owns the mapping from node identifier to latest known state. It is
// an observer: state labels are stored verbatim and never validated, and
// updates apply in arrival order (last write wins, no timestamp guard).
type Store struct {
	mu     sync.Mutex
	nodes  map[string]telemetry.Node
	proj   *geo.Projector
	trails *TrailBuffer
	now    func() time.Time
}

// New creates an empty Store resolving planar positions via proj and
// recording accepted positions into trails.
func New(proj *geo.Projector, trails *TrailBuffer) *Store {
	return &Store{
		nodes:  make(map[string]telemetry.Node),
		proj:   proj,
		trails: trails,
		now:    time.Now,
	}
}

// ApplySnapshot fully replaces the node set with the resolvable records in
// recs. Records without an identifier or position are skipped, never
// speculatively created. Trails are intentionally left untouched so a
// reconnect snapshot does not erase path history. Returns the accepted
// nodes in input order.
func (s *Store) ApplySnapshot(recs []telemetry.NodeRecord) []telemetry.Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]telemetry.Node, len(recs))
	accepted := make([]telemetry.Node, 0, len(recs))
	for _, rec := range recs {
		n, ok := telemetry.Resolve(rec, s.proj, s.now())
		if !ok {
			continue
		}
		next[n.ID] = n
		accepted = append(accepted, n)
		s.trails.Append(n.ID, n.Position)
	}
	s.nodes = next
	return accepted
}

// ApplyDelta upserts exactly one node. A record without a non-empty
// identifier or a resolvable position is a no-op.
func (s *Store) ApplyDelta(rec telemetry.NodeRecord) (telemetry.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := telemetry.Resolve(rec, s.proj, s.now())
	if !ok {
		return telemetry.Node{}, false
	}
	s.nodes[n.ID] = n
	s.trails.Append(n.ID, n.Position)
	return n, true
}

// Put stores an already-resolved node, appending its position to the
// trail. Used by session replay, which archives resolved state.
func (s *Store) Put(n telemetry.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.ID] = n
	s.trails.Append(n.ID, n.Position)
}

// Get returns the latest known state for a node.
func (s *Store) Get(id string) (telemetry.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	return n, ok
}

// Nodes returns all known nodes sorted by identifier.
func (s *Store) Nodes() []telemetry.Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]telemetry.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of known nodes.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}

// Trails exposes the trail buffer for readers.
func (s *Store) Trails() *TrailBuffer {
	return s.trails
}
