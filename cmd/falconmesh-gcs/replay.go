package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"falconmesh-gcs/internal/archive"
	"falconmesh-gcs/internal/geo"
	"falconmesh-gcs/internal/store"
	"falconmesh-gcs/internal/stream"
)

var (
	replayInput string
	replaySpeed float64
	replayJSON  bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded session log",
	Long:  "replay feeds archived node updates from a session log back through the world model and prints them to STDOUT.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}

		// Records carry resolved geographic positions, so the anchor is
		// irrelevant here.
		proj := geo.NewProjector(geo.Point{})
		st := store.New(proj, store.NewTrailBuffer(store.DefaultTrailCapacity))
		var sink stream.Sink = stream.NewColorSink()
		if replayJSON {
			sink = &stream.StdoutSink{}
		}

		return archive.ReplayLogFile(replayInput, func(r archive.Record) error {
			n := r.Node()
			st.Put(n)
			return sink.WriteNode(n)
		}, replaySpeed)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to session log file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier")
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "Emit replayed updates as JSON lines instead of colored text")
	replayCmd.MarkFlagRequired("input")
}
