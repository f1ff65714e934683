// Session recording to JSONL files
package archive

import (
	"encoding/json"
	"os"
	"time"

	"falconmesh-gcs/internal/geo"
	"falconmesh-gcs/internal/mission"
	"falconmesh-gcs/internal/telemetry"
)

// Record is one archived node update, flattened for JSONL and GreptimeDB.
type Record struct {
	SessionID   string    `json:"session_id"`
	NodeID      string    `json:"node_id"`
	Role        string    `json:"role,omitempty"`
	State       string    `json:"state"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	AltM        float64   `json:"alt_m,omitempty"`
	HeadingDeg  float64   `json:"heading_deg"`
	SpeedMPS    float64   `json:"speed_mps"`
	BatteryPct  *float64  `json:"battery_pct,omitempty"`
	ActiveGoal  string    `json:"active_goal,omitempty"`
	DistToBaseM *float64  `json:"dist_to_base_m,omitempty"`
	ReportedTS  string    `json:"reported_ts,omitempty"`
	Timestamp   time.Time `json:"ts"`
}

// RecordFromNode flattens a resolved node into an archive record.
func RecordFromNode(sessionID string, n telemetry.Node) Record {
	return Record{
		SessionID:   sessionID,
		NodeID:      n.ID,
		Role:        n.Role,
		State:       n.State,
		Lat:         n.Position.Lat,
		Lon:         n.Position.Lon,
		AltM:        n.AltM,
		HeadingDeg:  n.HeadingDeg,
		SpeedMPS:    n.SpeedMPS,
		BatteryPct:  n.BatteryPct,
		ActiveGoal:  n.ActiveGoal,
		DistToBaseM: n.DistToBaseM,
		ReportedTS:  n.ReportedTS,
		Timestamp:   n.Observed,
	}
}

// Node reconstructs the resolved node for replay.
func (r Record) Node() telemetry.Node {
	return telemetry.Node{
		ID:          r.NodeID,
		Role:        r.Role,
		State:       r.State,
		Position:    geo.Point{Lat: r.Lat, Lon: r.Lon},
		AltM:        r.AltM,
		HeadingDeg:  r.HeadingDeg,
		SpeedMPS:    r.SpeedMPS,
		BatteryPct:  r.BatteryPct,
		ActiveGoal:  r.ActiveGoal,
		DistToBaseM: r.DistToBaseM,
		ReportedTS:  r.ReportedTS,
		Observed:    r.Timestamp,
	}
}

// FileRecorder writes node updates and mission replacements to JSONL files.
type FileRecorder struct {
	sessionID  string
	nodeFile   *os.File
	missFile   *os.File
	nodeEnc    *json.Encoder
	missionEnc *json.Encoder
}

// NewFileRecorder creates a FileRecorder. missionsPath may be empty to
// skip the mission log.
func NewFileRecorder(sessionID, nodesPath, missionsPath string) (*FileRecorder, error) {
	nf, err := os.Create(nodesPath)
	if err != nil {
		return nil, err
	}
	fr := &FileRecorder{sessionID: sessionID, nodeFile: nf, nodeEnc: json.NewEncoder(nf)}
	if missionsPath != "" {
		mf, err := os.Create(missionsPath)
		if err != nil {
			nf.Close()
			return nil, err
		}
		fr.missFile = mf
		fr.missionEnc = json.NewEncoder(mf)
	}
	return fr, nil
}

// WriteNode appends one node update to the log.
func (fr *FileRecorder) WriteNode(n telemetry.Node) error {
	return fr.nodeEnc.Encode(RecordFromNode(fr.sessionID, n))
}

// WriteSnapshot appends every node of a snapshot.
func (fr *FileRecorder) WriteSnapshot(nodes []telemetry.Node) error {
	for _, n := range nodes {
		if err := fr.WriteNode(n); err != nil {
			return err
		}
	}
	return nil
}

// WriteMission appends a mission replacement to the mission log, if one
// was configured.
func (fr *FileRecorder) WriteMission(m mission.Mission) error {
	if fr.missionEnc == nil {
		return nil
	}
	return fr.missionEnc.Encode(m)
}

// Close flushes and closes the underlying files.
func (fr *FileRecorder) Close() error {
	err := fr.nodeFile.Close()
	if fr.missFile != nil {
		if cerr := fr.missFile.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
