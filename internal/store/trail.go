package store

import (
	"sync"

	"falconmesh-gcs/internal/geo"
)

// DefaultTrailCapacity bounds per-node position history.
const DefaultTrailCapacity = 200

// TrailBuffer keeps a bounded recent-position history per node for path
// rendering. Insertion is append-only with FIFO eviction once the capacity
// is exceeded. Trails persist for the lifetime of the session: snapshots
// never clear them and there is no removal operation.
type TrailBuffer struct {
	mu     sync.Mutex
	cap    int
	trails map[string][]geo.Point
}

// NewTrailBuffer creates a TrailBuffer. A capacity <= 0 falls back to
// DefaultTrailCapacity.
func NewTrailBuffer(capacity int) *TrailBuffer {
	if capacity <= 0 {
		capacity = DefaultTrailCapacity
	}
	return &TrailBuffer{cap: capacity, trails: make(map[string][]geo.Point)}
}

// Append records a position for the given node, evicting from the front
// when the trail exceeds capacity.
func (t *TrailBuffer) Append(nodeID string, pt geo.Point) {
	t.mu.Lock()
	defer t.mu.Unlock()

	trail := append(t.trails[nodeID], pt)
	if over := len(trail) - t.cap; over > 0 {
		trail = trail[over:]
	}
	t.trails[nodeID] = trail
}

// Get returns a copy of the node's trail, oldest first. Unknown nodes
// yield an empty trail.
func (t *TrailBuffer) Get(nodeID string) []geo.Point {
	t.mu.Lock()
	defer t.mu.Unlock()

	trail := t.trails[nodeID]
	out := make([]geo.Point, len(trail))
	copy(out, trail)
	return out
}

// Len returns the current trail length for a node.
func (t *TrailBuffer) Len(nodeID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.trails[nodeID])
}
