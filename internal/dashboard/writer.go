// Operator terminal UI rendered with bubbletea
package dashboard

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"falconmesh-gcs/internal/command"
	"falconmesh-gcs/internal/geo"
	"falconmesh-gcs/internal/mission"
	"falconmesh-gcs/internal/store"
	"falconmesh-gcs/internal/stream"
	"falconmesh-gcs/internal/telemetry"
	"falconmesh-gcs/internal/view"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries one event-log line for the viewport.
type logMsg struct{ line string }

// nodeMsg carries a single accepted node update.
type nodeMsg struct{ node telemetry.Node }

// snapshotMsg carries a full node-set replacement.
type snapshotMsg struct{ nodes []telemetry.Node }

// missionMsg carries a mission overlay replacement.
type missionMsg struct{ mission.Mission }

// statusMsg carries a connection status transition.
type statusMsg struct{ status stream.Status }

// cmdResultMsg reports the outcome of a dispatched command.
type cmdResultMsg struct {
	line   string
	failed bool
}

// missionPatchedMsg reports a successful mission patch with the resulting
// full mission.
type missionPatchedMsg struct{ ms mission.Mission }

// healthTickMsg drives the periodic header refresh.
type healthTickMsg struct{}

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

// Writer renders the world model in a bubbletea TUI. It implements the
// stream sink capabilities; all rendering state lives in the model, Writer
// only translates sink calls into program messages.
type Writer struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewWriter starts a bubbletea program over the given components.
func NewWriter(st *store.Store, sel *view.Selection, ov *mission.Overlay, proj *geo.Projector, disp *command.Dispatcher, mon *command.Monitor) *Writer {
	w := &Writer{done: make(chan struct{})}
	w.sendSignal.Store(true)
	m := newModel(st, sel, ov, proj, disp, mon)
	p := tea.NewProgram(m, tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

func stateColor(state string) string {
	switch state {
	case telemetry.StateNormal:
		return colorGreen
	case telemetry.StateHold:
		return colorYellow
	case telemetry.StateFormUp:
		return colorCyan
	case telemetry.StateRTB:
		return colorMagenta
	case telemetry.StateCharging:
		return colorBlue
	default:
		return colorGray
	}
}

func formatNodeLine(n telemetry.Node) string {
	batt := "-"
	if n.BatteryPct != nil {
		batt = fmt.Sprintf("%.1f", *n.BatteryPct)
	}
	line := fmt.Sprintf("%s[%s]%s %snode=%s%s %sstate=%s%s %slat=%.5f%s %slon=%.5f%s %shdg=%.1f%s %sspd=%.1f%s %sbatt=%s%s",
		colorGray, n.Observed.Format(time.RFC3339), colorReset,
		colorBlue, n.ID, colorReset,
		stateColor(n.State), n.State, colorReset,
		colorGreen, n.Position.Lat, colorReset,
		colorYellow, n.Position.Lon, colorReset,
		colorCyan, n.HeadingDeg, colorReset,
		colorYellow, n.SpeedMPS, colorReset,
		colorCyan, batt, colorReset)
	if n.ActiveGoal != "" {
		line += fmt.Sprintf(" %sgoal=%s%s", colorMagenta, n.ActiveGoal, colorReset)
	}
	return line
}

// WriteNode implements stream.Sink.
func (w *Writer) WriteNode(n telemetry.Node) error {
	w.program.Send(logMsg{line: formatNodeLine(n)})
	w.program.Send(nodeMsg{node: n})
	return nil
}

// WriteSnapshot replaces the rendered node set in one step.
func (w *Writer) WriteSnapshot(nodes []telemetry.Node) error {
	w.program.Send(logMsg{line: fmt.Sprintf("%sSNAPSHOT%s %d nodes", colorBlue, colorReset, len(nodes))})
	w.program.Send(snapshotMsg{nodes: nodes})
	return nil
}

// WriteMission replaces the mission panel.
func (w *Writer) WriteMission(ms mission.Mission) error {
	w.program.Send(logMsg{line: fmt.Sprintf("%sMISSION%s id=%s", colorMagenta, colorReset, ms.ID)})
	w.program.Send(missionMsg{Mission: ms})
	return nil
}

// WriteStatus reflects a connection status transition.
func (w *Writer) WriteStatus(st stream.Status) error {
	c := colorRed
	if st == stream.StatusOpen {
		c = colorGreen
	}
	w.program.Send(logMsg{line: fmt.Sprintf("%sSTREAM%s %s", c, colorReset, st)})
	w.program.Send(statusMsg{status: st})
	return nil
}

// Close shuts down the TUI program and waits for cleanup.
func (w *Writer) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}
