package telemetry

import (
	"encoding/json"
	"time"

	"falconmesh-gcs/internal/geo"
)

// FrameKind classifies an inbound stream frame.
type FrameKind int

const (
	FrameUnknown FrameKind = iota
	FrameSnapshot
	FrameMission
	FrameDelta
)

func (k FrameKind) String() string {
	switch k {
	case FrameSnapshot:
		return "snapshot"
	case FrameMission:
		return "mission"
	case FrameDelta:
		return "delta"
	default:
		return "unknown"
	}
}

// Frame is a classified stream frame. Exactly one payload field is set
// depending on Kind.
type Frame struct {
	Kind    FrameKind
	Nodes   []NodeRecord    // FrameSnapshot
	Mission json.RawMessage // FrameMission
	Node    NodeRecord      // FrameDelta
}

// envelope covers the discriminated message shapes on the wire.
type envelope struct {
	Type    string          `json:"type"`
	Nodes   []NodeRecord    `json:"nodes"`
	Mission json.RawMessage `json:"mission"`
}

// Classify parses a raw frame and decides how it should be routed. The
// order is significant: the type discriminator is checked before falling
// back to identifier-based delta routing, so an unrelated typed object that
// happens to carry a node_id is not mistaken for a delta. Frames that fail
// to parse classify as FrameUnknown.
func Classify(data []byte) Frame {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Frame{Kind: FrameUnknown}
	}

	switch env.Type {
	case "snapshot":
		return Frame{Kind: FrameSnapshot, Nodes: env.Nodes}
	case "mission_update":
		if len(env.Mission) == 0 {
			return Frame{Kind: FrameUnknown}
		}
		return Frame{Kind: FrameMission, Mission: env.Mission}
	case "":
		var rec NodeRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return Frame{Kind: FrameUnknown}
		}
		if rec.NodeID == "" {
			return Frame{Kind: FrameUnknown}
		}
		return Frame{Kind: FrameDelta, Node: rec}
	default:
		return Frame{Kind: FrameUnknown}
	}
}

// Resolve turns a wire record into a Node, projecting planar positions via
// proj. It reports false when the record has no identifier or no resolvable
// position; such records must not be stored. Resolution order: structured
// geographic lat/lon, structured planar x/y, bare top-level x/y.
func Resolve(rec NodeRecord, proj *geo.Projector, now time.Time) (Node, bool) {
	if rec.NodeID == "" {
		return Node{}, false
	}

	n := Node{
		ID:         rec.NodeID,
		Role:       rec.Role,
		State:      rec.State,
		ReportedTS: rec.TS,
		Observed:   now,
	}
	if n.State == "" {
		n.State = StateUnknown
	}

	switch {
	case rec.Pos != nil && rec.Pos.Lat != nil && rec.Pos.Lon != nil:
		n.Position = geo.Point{Lat: *rec.Pos.Lat, Lon: *rec.Pos.Lon}
		n.Source = SourceGeographic
		if rec.Pos.AltM != nil {
			n.AltM = *rec.Pos.AltM
		}
	case rec.Pos != nil && rec.Pos.X != nil && rec.Pos.Y != nil:
		n.Position = proj.Project(*rec.Pos.X, *rec.Pos.Y)
		n.Source = SourcePlanar
	case rec.X != nil && rec.Y != nil:
		n.Position = proj.Project(*rec.X, *rec.Y)
		n.Source = SourcePlanar
	default:
		return Node{}, false
	}

	// Heading priority: nested velocity block, then top level, then 0.
	switch {
	case rec.Velocity != nil && rec.Velocity.HeadingDeg != nil:
		n.HeadingDeg = *rec.Velocity.HeadingDeg
	case rec.HeadingDeg != nil:
		n.HeadingDeg = *rec.HeadingDeg
	}
	switch {
	case rec.Velocity != nil && rec.Velocity.SpeedMPS != nil:
		n.SpeedMPS = *rec.Velocity.SpeedMPS
	case rec.SpeedMPS != nil:
		n.SpeedMPS = *rec.SpeedMPS
	}

	switch {
	case rec.Battery != nil && rec.Battery.Pct != nil:
		n.BatteryPct = rec.Battery.Pct
	case rec.BatteryPct != nil:
		n.BatteryPct = rec.BatteryPct
	}

	if rec.Nav != nil {
		n.ActiveGoal = rec.Nav.ActiveGoal
		n.DistToBaseM = rec.Nav.DistToBaseM
	}

	return n, true
}
