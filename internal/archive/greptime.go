// GreptimeDB archive sink for node updates
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"falconmesh-gcs/internal/telemetry"
)

// NodeTableName holds the table name used when archiving to GreptimeDB.
// It defaults to "gcs_node_updates" but can be overridden via the
// GCS_GREPTIMEDB_TABLE environment variable.
var NodeTableName = func() string {
	if env := os.Getenv("GCS_GREPTIMEDB_TABLE"); env != "" {
		return env
	}
	return "gcs_node_updates"
}()

// greptimeClient abstracts the ingester client for testing.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeWriter archives accepted node updates to GreptimeDB.
type GreptimeWriter struct {
	client    greptimeClient
	sessionID string
	table     string
	log       *slog.Logger
}

// NewGreptimeWriter connects to a GreptimeDB endpoint (host only; the
// ingester uses its default gRPC port) and returns an archive sink.
func NewGreptimeWriter(host, database, sessionID string, log *slog.Logger) (*GreptimeWriter, error) {
	if log == nil {
		log = slog.Default()
	}
	cfg := greptime.NewConfig(host).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	return &GreptimeWriter{client: client, sessionID: sessionID, table: NodeTableName, log: log}, nil
}

// WriteNode archives a single node update.
func (w *GreptimeWriter) WriteNode(n telemetry.Node) error {
	return w.WriteSnapshot([]telemetry.Node{n})
}

// WriteSnapshot archives multiple node updates in one write.
func (w *GreptimeWriter) WriteSnapshot(nodes []telemetry.Node) error {
	if len(nodes) == 0 {
		return nil
	}

	tbl, err := table.New(w.table)
	if err != nil {
		return err
	}
	if err := tbl.AddTagColumn("session_id", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddTagColumn("node_id", types.STRING); err != nil {
		return err
	}
	tbl.AddFieldColumn("state", types.STRING)
	tbl.AddFieldColumn("lat", types.FLOAT)
	tbl.AddFieldColumn("lon", types.FLOAT)
	tbl.AddFieldColumn("heading_deg", types.FLOAT)
	tbl.AddFieldColumn("speed_mps", types.FLOAT)
	tbl.AddFieldColumn("battery_pct", types.FLOAT)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	for _, n := range nodes {
		battery := -1.0
		if n.BatteryPct != nil {
			battery = *n.BatteryPct
		}
		if err := tbl.AddRow(w.sessionID, n.ID, n.State,
			n.Position.Lat, n.Position.Lon, n.HeadingDeg, n.SpeedMPS,
			battery, n.Observed); err != nil {
			return err
		}
	}

	if _, err := w.client.Write(context.Background(), tbl); err != nil {
		w.log.Warn("greptime archive write failed", "rows", len(nodes), "error", err)
		return err
	}
	return nil
}
