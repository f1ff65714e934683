package mission

import "sync"

// Overlay holds the single current mission. Set replaces it wholesale:
// last write wins, no timestamp comparison, no field-level merge. A
// later-arriving stale message silently overwrites a newer one; that is an
// accepted limitation of the protocol.
type Overlay struct {
	mu  sync.Mutex
	cur *Mission
}

// NewOverlay creates an empty Overlay.
func NewOverlay() *Overlay {
	return &Overlay{}
}

// Set replaces the current mission unconditionally.
func (o *Overlay) Set(m Mission) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cur = &m
}

// Current returns the current mission, if any.
func (o *Overlay) Current() (Mission, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cur == nil {
		return Mission{}, false
	}
	return *o.cur, true
}
