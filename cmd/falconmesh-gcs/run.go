package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"falconmesh-gcs/internal/admin"
	"falconmesh-gcs/internal/command"
	"falconmesh-gcs/internal/config"
	"falconmesh-gcs/internal/geo"
	"falconmesh-gcs/internal/logging"
	"falconmesh-gcs/internal/mission"
	"falconmesh-gcs/internal/store"
	"falconmesh-gcs/internal/stream"
	"falconmesh-gcs/internal/view"
)

var (
	runConfigPath string
	runSchemaPath string
	runHeadless   bool
	runJSONFeed   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to the control plane and mirror swarm state",
	Long:  "run maintains the live telemetry stream, keeps the local world model current, and serves the operator dashboard plus a local status endpoint.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(runConfigPath, runSchemaPath)
		if err != nil {
			return err
		}

		interactive := !runHeadless && term.IsTerminal(int(os.Stdout.Fd()))

		// The TUI owns the terminal, so logging is muted in interactive
		// mode; headless runs log to STDERR and feed STDOUT.
		var log *slog.Logger
		if interactive {
			log = logging.NewWriter(io.Discard)
		} else {
			log = logging.New()
		}

		proj := geo.NewProjector(geo.Point{Lat: cfg.Anchor.Lat, Lon: cfg.Anchor.Lon})
		st := store.New(proj, store.NewTrailBuffer(cfg.TrailCapacity))
		ov := mission.NewOverlay()
		sel := view.NewSelection()
		disp := command.NewDispatcher(cfg.ServerURL, log)
		mon := command.NewMonitor(disp, cfg.HealthInterval(), log)

		sessionID := uuid.New().String()
		sink, cleanup, err := newSinks(cfg, interactive, runJSONFeed, sessionID, st, sel, ov, proj, disp, mon, log)
		if err != nil {
			return err
		}
		defer cleanup()

		wsURL, err := stream.TelemetryURL(cfg.ServerURL, cfg.StreamPath)
		if err != nil {
			return err
		}
		mgr := stream.NewManager(wsURL, st, ov, sel, proj, sink, cfg.ReconnectDelay(), log)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		ctx = logging.NewContext(ctx, log)

		// Seed the mission panel before the stream delivers anything.
		if raw, err := disp.FetchMission(ctx); err == nil && raw != nil {
			if ms, err := mission.Decode(raw, proj); err == nil {
				ov.Set(ms)
			} else {
				log.Warn("initial mission ignored", "error", err)
			}
		} else if err != nil {
			log.Warn("initial mission fetch failed", "error", err)
		}

		go mon.Run(ctx)

		srv := admin.NewServer(st, ov, mgr, mon)
		go func() {
			log.Info("status server listening", "addr", cfg.AdminAddr)
			if err := srv.Start(ctx, cfg.AdminAddr); err != nil && err != http.ErrServerClosed {
				log.Error("status server failed", "error", err)
			}
		}()

		go mgr.Run(ctx)

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs

		cancel()
		log.Info("ground-control client stopped", "session", sessionID)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "config/client.yaml", "Path to client configuration YAML")
	runCmd.Flags().StringVar(&runSchemaPath, "schema", "schemas/client.cue", "Path to CUE schema file")
	runCmd.Flags().BoolVar(&runHeadless, "headless", false, "Print the feed to STDOUT instead of the dashboard")
	runCmd.Flags().BoolVar(&runJSONFeed, "json", false, "Emit the headless feed as JSON lines instead of colored text")
}
