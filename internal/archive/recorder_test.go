package archive

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"falconmesh-gcs/internal/geo"
	"falconmesh-gcs/internal/mission"
	"falconmesh-gcs/internal/telemetry"
)

func testNode(id string, lat float64) telemetry.Node {
	pct := 80.0
	return telemetry.Node{
		ID:         id,
		State:      telemetry.StateNormal,
		Position:   geo.Point{Lat: lat, Lon: 20},
		HeadingDeg: 90,
		SpeedMPS:   12,
		BatteryPct: &pct,
		Observed:   time.Unix(1000, 0).UTC(),
	}
}

func TestFileRecorderWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	nodesPath := filepath.Join(dir, "nodes.jsonl")
	missionsPath := filepath.Join(dir, "missions.jsonl")

	fr, err := NewFileRecorder("session-1", nodesPath, missionsPath)
	if err != nil {
		t.Fatalf("NewFileRecorder: %v", err)
	}
	if err := fr.WriteNode(testNode("uav-1", 10)); err != nil {
		t.Fatalf("WriteNode: %v", err)
	}
	if err := fr.WriteSnapshot([]telemetry.Node{testNode("uav-2", 11), testNode("uav-3", 12)}); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if err := fr.WriteMission(mission.Mission{ID: "m-1"}); err != nil {
		t.Fatalf("WriteMission: %v", err)
	}
	if err := fr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(nodesPath)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var recs []Record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("bad JSONL line: %v", err)
		}
		recs = append(recs, r)
	}
	if len(recs) != 3 {
		t.Fatalf("recorded %d rows, want 3", len(recs))
	}
	if recs[0].SessionID != "session-1" || recs[0].NodeID != "uav-1" {
		t.Errorf("first record = %+v", recs[0])
	}

	mdata, err := os.ReadFile(missionsPath)
	if err != nil || len(mdata) == 0 {
		t.Errorf("mission log empty (err %v)", err)
	}
}

func TestRecordRoundTripToNode(t *testing.T) {
	n := testNode("uav-1", 10)
	got := RecordFromNode("s", n).Node()
	if got.ID != n.ID || got.Position != n.Position || got.State != n.State {
		t.Errorf("round trip mismatch: %+v vs %+v", got, n)
	}
	if got.BatteryPct == nil || *got.BatteryPct != 80 {
		t.Errorf("battery lost in round trip: %v", got.BatteryPct)
	}
}
