package archive

import (
	"encoding/json"
	"io"
	"os"
	"time"
)

// ReplayLog replays archived records from r through apply, preserving the
// recorded inter-arrival gaps scaled by speed. A speed <= 0 inserts no
// artificial delay.
func ReplayLog(r io.Reader, apply func(Record) error, speed float64) error {
	dec := json.NewDecoder(r)
	var prev time.Time
	for {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if !prev.IsZero() && speed > 0 {
			diff := rec.Timestamp.Sub(prev)
			if speed != 1 {
				diff = time.Duration(float64(diff) / speed)
			}
			if diff > 0 {
				time.Sleep(diff)
			}
		}
		if err := apply(rec); err != nil {
			return err
		}
		prev = rec.Timestamp
	}
}

// ReplayLogFile opens a session log and replays its records.
func ReplayLogFile(path string, apply func(Record) error, speed float64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ReplayLog(f, apply, speed)
}
