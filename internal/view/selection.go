// Focused-entity tracking for the detail display
package view

import "sync"

// Selection tracks which single node is focused for detail display. It
// holds a lookup key only, never the data it refers to; a key whose node
// disappears from the store is left dangling and resolved at read time by
// the presentation layer.
type Selection struct {
	mu       sync.Mutex
	key      string
	autoUsed bool
}

// NewSelection creates an empty Selection.
func NewSelection() *Selection {
	return &Selection{}
}

// Select sets the focused node key. Idempotent, no side effects.
func (s *Selection) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = id
	s.autoUsed = true
}

// Clear removes the focus and re-arms auto-selection.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = ""
	s.autoUsed = false
}

// Current returns the focused node key, if any.
func (s *Selection) Current() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key, s.key != ""
}

// Observe notes that a node was seen by the store. The first node ever
// observed becomes the default selection if none was made; the rule fires
// at most once until Clear re-arms it.
func (s *Selection) Observe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.autoUsed {
		return
	}
	s.autoUsed = true
	s.key = id
}
