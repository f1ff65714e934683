package main

import (
	"log/slog"
	"os"

	"falconmesh-gcs/internal/archive"
	"falconmesh-gcs/internal/command"
	"falconmesh-gcs/internal/config"
	"falconmesh-gcs/internal/dashboard"
	"falconmesh-gcs/internal/geo"
	"falconmesh-gcs/internal/mission"
	"falconmesh-gcs/internal/store"
	"falconmesh-gcs/internal/stream"
	"falconmesh-gcs/internal/view"
)

// newSinks assembles the sink stack: the dashboard or a feed on STDOUT,
// plus the optional JSONL recorder from config and the GreptimeDB archive
// from env. It returns a cleanup function closing any resources.
func newSinks(cfg *config.ClientConfig, interactive, jsonFeed bool, sessionID string, st *store.Store, sel *view.Selection, ov *mission.Overlay, proj *geo.Projector, disp *command.Dispatcher, mon *command.Monitor, log *slog.Logger) (stream.Sink, func(), error) {
	var sinks []stream.Sink
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch {
	case interactive:
		w := dashboard.NewWriter(st, sel, ov, proj, disp, mon)
		sinks = append(sinks, w)
		closers = append(closers, func() { _ = w.Close() })
	case jsonFeed:
		sinks = append(sinks, &stream.StdoutSink{})
	default:
		sinks = append(sinks, stream.NewColorSink())
	}

	if cfg.Archive.NodesPath != "" {
		fr, err := archive.NewFileRecorder(sessionID, cfg.Archive.NodesPath, cfg.Archive.MissionsPath)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		sinks = append(sinks, fr)
		closers = append(closers, func() { _ = fr.Close() })
	}

	if endpoint := os.Getenv("GCS_GREPTIMEDB_ENDPOINT"); endpoint != "" {
		gw, err := archive.NewGreptimeWriter(endpoint, "public", sessionID, log)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		sinks = append(sinks, gw)
	}

	if len(sinks) == 1 {
		return sinks[0], cleanup, nil
	}
	return stream.NewMultiSink(sinks...), cleanup, nil
}
