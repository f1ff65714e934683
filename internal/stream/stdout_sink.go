// Sink implementation printing updates to STDOUT
package stream

import (
	"encoding/json"
	"fmt"

	"falconmesh-gcs/internal/mission"
	"falconmesh-gcs/internal/telemetry"
)

// StdoutSink prints accepted updates as JSON lines, for headless runs.
type StdoutSink struct{}

// WriteNode outputs a single node update.
func (s *StdoutSink) WriteNode(n telemetry.Node) error {
	data, _ := json.Marshal(n)
	fmt.Println(string(data))
	return nil
}

// WriteSnapshot outputs every node of a snapshot.
func (s *StdoutSink) WriteSnapshot(nodes []telemetry.Node) error {
	for _, n := range nodes {
		_ = s.WriteNode(n)
	}
	return nil
}

// WriteMission outputs a mission replacement.
func (s *StdoutSink) WriteMission(m mission.Mission) error {
	data, _ := json.Marshal(m)
	fmt.Println(string(data))
	return nil
}
