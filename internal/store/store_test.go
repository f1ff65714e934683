package store

import (
	"testing"

	"falconmesh-gcs/internal/geo"
	"falconmesh-gcs/internal/telemetry"
)

func f(v float64) *float64 { return &v }

func newTestStore() *Store {
	proj := geo.NewProjector(geo.Point{Lat: 39.9334, Lon: 32.8597})
	return New(proj, NewTrailBuffer(DefaultTrailCapacity))
}

func geoRec(id string, lat, lon float64) telemetry.NodeRecord {
	return telemetry.NodeRecord{
		NodeID: id,
		State:  telemetry.StateNormal,
		Pos:    &telemetry.WirePosition{Lat: f(lat), Lon: f(lon)},
	}
}

func TestApplySnapshotReplacesNodeSet(t *testing.T) {
	s := newTestStore()
	s.ApplySnapshot([]telemetry.NodeRecord{geoRec("uav-1", 1, 1), geoRec("uav-2", 2, 2)})
	s.ApplySnapshot([]telemetry.NodeRecord{geoRec("uav-3", 3, 3)})

	if s.Len() != 1 {
		t.Fatalf("store has %d nodes, want 1", s.Len())
	}
	if _, ok := s.Get("uav-1"); ok {
		t.Error("uav-1 should have been dropped by the snapshot")
	}
	if _, ok := s.Get("uav-3"); !ok {
		t.Error("uav-3 missing after snapshot")
	}
}

func TestApplySnapshotSkipsUnresolvableRecords(t *testing.T) {
	s := newTestStore()
	accepted := s.ApplySnapshot([]telemetry.NodeRecord{
		geoRec("uav-1", 1, 1),
		{NodeID: "uav-2"},           // no position
		{State: "NORMAL", X: f(1)},  // no identifier
	})
	if len(accepted) != 1 || accepted[0].ID != "uav-1" {
		t.Errorf("accepted = %+v, want only uav-1", accepted)
	}
	if s.Len() != 1 {
		t.Errorf("store has %d nodes, want 1", s.Len())
	}
}

func TestApplySnapshotKeepsTrails(t *testing.T) {
	s := newTestStore()
	s.ApplySnapshot([]telemetry.NodeRecord{geoRec("uav-1", 1, 1)})
	s.ApplySnapshot([]telemetry.NodeRecord{geoRec("uav-2", 2, 2)})

	if got := s.Trails().Len("uav-1"); got != 1 {
		t.Errorf("uav-1 trail length = %d, want 1 (trails persist across snapshots)", got)
	}
}

func TestApplyDeltaUpsertsOneNode(t *testing.T) {
	s := newTestStore()
	s.ApplySnapshot([]telemetry.NodeRecord{geoRec("uav-1", 1, 1), geoRec("uav-2", 2, 2)})
	before, _ := s.Get("uav-2")

	n, ok := s.ApplyDelta(geoRec("uav-1", 9, 9))
	if !ok {
		t.Fatal("delta should apply")
	}
	if n.Position.Lat != 9 {
		t.Errorf("updated lat = %f, want 9", n.Position.Lat)
	}
	after, _ := s.Get("uav-2")
	if before.Position != after.Position || before.State != after.State {
		t.Error("delta for uav-1 must not touch uav-2")
	}
}

func TestApplyDeltaWithoutPositionIsNoOp(t *testing.T) {
	s := newTestStore()
	s.ApplySnapshot([]telemetry.NodeRecord{geoRec("uav-1", 1, 1)})

	if _, ok := s.ApplyDelta(telemetry.NodeRecord{NodeID: "uav-1", State: "HOLD"}); ok {
		t.Fatal("delta without resolvable position must be a no-op")
	}
	n, _ := s.Get("uav-1")
	if n.State != telemetry.StateNormal {
		t.Errorf("state = %q, want untouched NORMAL", n.State)
	}
	if got := s.Trails().Len("uav-1"); got != 1 {
		t.Errorf("trail length = %d, want 1", got)
	}
}

func TestApplyDeltaProjectsBareXY(t *testing.T) {
	s := newTestStore()
	s.ApplySnapshot([]telemetry.NodeRecord{
		{NodeID: "UAV1", State: "NORMAL", Pos: &telemetry.WirePosition{Lat: f(10), Lon: f(20)}},
	})
	if got := s.Trails().Len("UAV1"); got != 1 {
		t.Fatalf("trail length after snapshot = %d, want 1", got)
	}

	n, ok := s.ApplyDelta(telemetry.NodeRecord{
		NodeID: "UAV1",
		Pos:    &telemetry.WirePosition{X: f(5), Y: f(5)},
	})
	if !ok {
		t.Fatal("planar delta should apply")
	}
	// Projected from the anchor, not from the previous geographic fix.
	anchor := geo.Point{Lat: 39.9334, Lon: 32.8597}
	if n.Position.Lat <= anchor.Lat || n.Position.Lat > anchor.Lat+0.001 {
		t.Errorf("projected lat = %f, want just above anchor %f", n.Position.Lat, anchor.Lat)
	}
	if got := s.Trails().Len("UAV1"); got != 2 {
		t.Errorf("trail length = %d, want 2", got)
	}
}

func TestNodesSortedByID(t *testing.T) {
	s := newTestStore()
	s.ApplySnapshot([]telemetry.NodeRecord{geoRec("uav-2", 2, 2), geoRec("uav-1", 1, 1)})

	nodes := s.Nodes()
	if len(nodes) != 2 || nodes[0].ID != "uav-1" || nodes[1].ID != "uav-2" {
		t.Errorf("Nodes() = %+v, want sorted by ID", nodes)
	}
}

func TestPutStoresResolvedNode(t *testing.T) {
	s := newTestStore()
	s.Put(telemetry.Node{ID: "uav-7", State: "RTB", Position: geo.Point{Lat: 5, Lon: 6}})

	n, ok := s.Get("uav-7")
	if !ok || n.State != "RTB" {
		t.Fatalf("Put did not store node: %+v ok=%v", n, ok)
	}
	if s.Trails().Len("uav-7") != 1 {
		t.Error("Put should append to the trail")
	}
}
