package stream

import (
	"falconmesh-gcs/internal/mission"
	"falconmesh-gcs/internal/telemetry"
)

// Sink receives accepted node updates from the connection manager. Sinks
// may optionally implement snapshotSink, missionSink, or statusSink to
// receive the other event kinds; capabilities are discovered by type
// assertion.
type Sink interface {
	WriteNode(telemetry.Node) error
}

// Optional: sinks can handle a full snapshot in one call.
type snapshotSink interface {
	WriteSnapshot([]telemetry.Node) error
}

// Optional: sinks can receive mission replacements.
type missionSink interface {
	WriteMission(mission.Mission) error
}

// Optional: sinks can observe connection status transitions.
type statusSink interface {
	WriteStatus(Status) error
}

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a MultiSink over the given sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// WriteNode sends a node update to all sinks.
func (m *MultiSink) WriteNode(n telemetry.Node) error {
	for _, s := range m.sinks {
		if err := s.WriteNode(n); err != nil {
			return err
		}
	}
	return nil
}

// WriteSnapshot sends a snapshot to all sinks, using the batch form where
// supported.
func (m *MultiSink) WriteSnapshot(nodes []telemetry.Node) error {
	for _, s := range m.sinks {
		if ss, ok := s.(snapshotSink); ok {
			if err := ss.WriteSnapshot(nodes); err != nil {
				return err
			}
			continue
		}
		for _, n := range nodes {
			if err := s.WriteNode(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteMission sends a mission replacement to all mission-capable sinks.
func (m *MultiSink) WriteMission(ms mission.Mission) error {
	for _, s := range m.sinks {
		if msink, ok := s.(missionSink); ok {
			if err := msink.WriteMission(ms); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteStatus sends a status transition to all status-capable sinks.
func (m *MultiSink) WriteStatus(st Status) error {
	for _, s := range m.sinks {
		if ssink, ok := s.(statusSink); ok {
			if err := ssink.WriteStatus(st); err != nil {
				return err
			}
		}
	}
	return nil
}
