// Planar-offset to geographic projection around a mutable anchor
package geo

import (
	"math"
	"sync"
)

// Point is a geographic coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// metersPerDegree is the approximate length of one degree of latitude.
const metersPerDegree = 111320.0

// Projector converts local planar offsets (meters east/north) into
// geographic coordinates relative to an anchor point. The projection is an
// equirectangular local-tangent-plane approximation, valid for offsets small
// relative to Earth's curvature (tens of kilometers).
type Projector struct {
	mu     sync.Mutex
	anchor Point
}

// NewProjector creates a Projector around the given anchor.
func NewProjector(anchor Point) *Projector {
	return &Projector{anchor: anchor}
}

// Anchor returns the current anchor point.
func (p *Projector) Anchor() Point {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.anchor
}

// SetAnchor replaces the anchor. Only subsequent projections use the new
// anchor; previously projected points are not recomputed.
func (p *Projector) SetAnchor(a Point) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.anchor = a
}

// Project converts a planar offset (x meters east, y meters north) into a
// geographic coordinate relative to the anchor.
func (p *Projector) Project(x, y float64) Point {
	p.mu.Lock()
	anchor := p.anchor
	p.mu.Unlock()

	return Point{
		Lat: anchor.Lat + y/metersPerDegree,
		Lon: anchor.Lon + x/(metersPerDegree*math.Cos(anchor.Lat*math.Pi/180)),
	}
}
