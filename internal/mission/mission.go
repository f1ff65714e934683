// Mission geometry model with dual-schema normalization
package mission

import (
	"encoding/json"
	"fmt"

	"falconmesh-gcs/internal/geo"
)

// WireRegion is a region as transmitted: either geographic (lat/lon) or a
// planar offset (x/y), with an optional task label on target regions.
type WireRegion struct {
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
	X       *float64 `json:"x,omitempty"`
	Y       *float64 `json:"y,omitempty"`
	RadiusM float64  `json:"radius_m"`
	Task    string   `json:"task,omitempty"`
}

// wireMission covers both protocol versions of the mission object.
type wireMission struct {
	ID            string       `json:"id"`
	MissionID     string       `json:"mission_id,omitempty"`
	CreatedTS     string       `json:"created_ts,omitempty"`
	UpdatedTS     string       `json:"updated_ts,omitempty"`
	Base          *WireRegion  `json:"base,omitempty"`
	Target        *WireRegion  `json:"target,omitempty"`
	StagingPoints []WireRegion `json:"staging_points,omitempty"`
	Staging       []WireRegion `json:"staging,omitempty"`
	BatteryPolicy *struct {
		RTBThresholdPct float64 `json:"rtb_threshold_pct"`
		ChargeToPct     float64 `json:"charge_to_pct"`
	} `json:"battery_policy,omitempty"`
}

// Region is a normalized mission region. Resolved is false when the wire
// form carried no recognizable coordinates; such a region is kept but
// treated as absent for rendering. Geographic reports whether the center
// came straight off the wire rather than being projected.
type Region struct {
	Center     geo.Point `json:"center"`
	RadiusM    float64   `json:"radius_m"`
	Task       string    `json:"task,omitempty"`
	Resolved   bool      `json:"resolved"`
	Geographic bool      `json:"-"`
}

// BatteryPolicy holds the mission's battery thresholds.
type BatteryPolicy struct {
	RTBThresholdPct float64 `json:"rtb_threshold_pct"`
	ChargeToPct     float64 `json:"charge_to_pct"`
}

// Mission is the normalized current-mission view exposed to consumers,
// independent of which wire schema produced it.
type Mission struct {
	ID        string        `json:"id"`
	CreatedTS string        `json:"created_ts,omitempty"`
	UpdatedTS string        `json:"updated_ts,omitempty"`
	Base      Region        `json:"base"`
	Target    Region        `json:"target"`
	Staging   []Region      `json:"staging"`
	Battery   BatteryPolicy `json:"battery_policy"`
}

// Decode parses a mission payload and normalizes its geometry, projecting
// planar regions via proj. A geographic base region re-anchors the
// projector before the remaining regions are normalized, so planar staging
// and target offsets are relative to the authoritative base.
func Decode(raw []byte, proj *geo.Projector) (Mission, error) {
	var w wireMission
	if err := json.Unmarshal(raw, &w); err != nil {
		return Mission{}, fmt.Errorf("decode mission: %w", err)
	}

	m := Mission{
		ID:        w.ID,
		CreatedTS: w.CreatedTS,
		UpdatedTS: w.UpdatedTS,
	}
	if m.ID == "" {
		m.ID = w.MissionID
	}

	m.Base = normalizeRegion(w.Base, proj)
	if m.Base.Resolved && m.Base.Geographic {
		proj.SetAnchor(m.Base.Center)
	}

	m.Target = normalizeRegion(w.Target, proj)

	staging := w.StagingPoints
	if len(staging) == 0 {
		staging = w.Staging
	}
	for _, sr := range staging {
		r := sr
		m.Staging = append(m.Staging, normalizeRegion(&r, proj))
	}

	if w.BatteryPolicy != nil {
		m.Battery = BatteryPolicy{
			RTBThresholdPct: w.BatteryPolicy.RTBThresholdPct,
			ChargeToPct:     w.BatteryPolicy.ChargeToPct,
		}
	}
	return m, nil
}

func normalizeRegion(w *WireRegion, proj *geo.Projector) Region {
	if w == nil {
		return Region{}
	}
	r := Region{RadiusM: w.RadiusM, Task: w.Task}
	switch {
	case w.Lat != nil && w.Lon != nil:
		r.Center = geo.Point{Lat: *w.Lat, Lon: *w.Lon}
		r.Resolved = true
		r.Geographic = true
	case w.X != nil && w.Y != nil:
		r.Center = proj.Project(*w.X, *w.Y)
		r.Resolved = true
	}
	return r
}
