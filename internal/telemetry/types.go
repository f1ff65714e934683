// Telemetry wire types and the resolved node model
package telemetry

import (
	"time"

	"falconmesh-gcs/internal/geo"
)

// Node lifecycle state labels reported by the swarm. The client stores
// whatever the upstream asserts; these constants only cover the labels the
// dashboard knows how to color.
const (
	StateNormal   = "NORMAL"
	StateHold     = "HOLD"
	StateFormUp   = "FORM_UP"
	StateRTB      = "RTB"
	StateCharging = "CHARGING"
	StateUnknown  = "UNKNOWN"
)

// WirePosition is the position block of an inbound record. All fields are
// optional; presence decides which representation is authoritative.
type WirePosition struct {
	Lat  *float64 `json:"lat,omitempty"`
	Lon  *float64 `json:"lon,omitempty"`
	AltM *float64 `json:"alt_m,omitempty"`
	X    *float64 `json:"x,omitempty"`
	Y    *float64 `json:"y,omitempty"`
}

// WireVelocity is the nested velocity block.
type WireVelocity struct {
	HeadingDeg *float64 `json:"heading_deg,omitempty"`
	SpeedMPS   *float64 `json:"speed_mps,omitempty"`
}

// WireBattery is the nested battery block.
type WireBattery struct {
	Pct *float64 `json:"pct,omitempty"`
}

// WireNav is the nested navigation block.
type WireNav struct {
	ActiveGoal  string   `json:"active_goal,omitempty"`
	DistToBaseM *float64 `json:"dist_to_base_m,omitempty"`
}

// NodeRecord is one inbound entity record as it appears on the wire,
// either inside a snapshot or as a bare delta. Every field except NodeID
// is optional.
type NodeRecord struct {
	NodeID     string        `json:"node_id"`
	Role       string        `json:"role,omitempty"`
	State      string        `json:"state,omitempty"`
	Pos        *WirePosition `json:"pos,omitempty"`
	X          *float64      `json:"x,omitempty"`
	Y          *float64      `json:"y,omitempty"`
	Velocity   *WireVelocity `json:"velocity,omitempty"`
	HeadingDeg *float64      `json:"heading_deg,omitempty"`
	SpeedMPS   *float64      `json:"speed_mps,omitempty"`
	Battery    *WireBattery  `json:"battery,omitempty"`
	BatteryPct *float64      `json:"battery_pct,omitempty"`
	Nav        *WireNav      `json:"nav,omitempty"`
	TS         string        `json:"ts,omitempty"`
}

// PositionSource tags which wire representation produced a node's position.
type PositionSource int

const (
	SourceGeographic PositionSource = iota
	SourcePlanar
)

// Node is the resolved, renderable state of one entity. Exactly one
// position representation was authoritative at ingestion; Position always
// holds the geographic result.
type Node struct {
	ID          string         `json:"node_id"`
	Role        string         `json:"role,omitempty"`
	State       string         `json:"state"`
	Position    geo.Point      `json:"pos"`
	Source      PositionSource `json:"-"`
	AltM        float64        `json:"alt_m,omitempty"`
	HeadingDeg  float64        `json:"heading_deg"`
	SpeedMPS    float64        `json:"speed_mps"`
	BatteryPct  *float64       `json:"battery_pct,omitempty"`
	ActiveGoal  string         `json:"active_goal,omitempty"`
	DistToBaseM *float64       `json:"dist_to_base_m,omitempty"`
	ReportedTS  string         `json:"ts,omitempty"`
	Observed    time.Time      `json:"observed"`
}
