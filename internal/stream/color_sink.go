// Sink implementation printing a colorized feed to STDOUT
package stream

import (
	"fmt"
	"io"
	"os"
	"time"

	"falconmesh-gcs/internal/mission"
	"falconmesh-gcs/internal/telemetry"
)

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

// ColorSink prints accepted updates as human-friendly colored lines, for
// headless runs on a terminal.
type ColorSink struct {
	out io.Writer
}

// NewColorSink creates a ColorSink writing to os.Stdout.
func NewColorSink() *ColorSink {
	return &ColorSink{out: os.Stdout}
}

func feedStateColor(state string) string {
	switch state {
	case telemetry.StateNormal:
		return colorGreen
	case telemetry.StateHold:
		return colorYellow
	case telemetry.StateRTB:
		return colorMagenta
	case telemetry.StateFormUp:
		return colorCyan
	case telemetry.StateCharging:
		return colorBlue
	default:
		return colorGray
	}
}

// WriteNode outputs a single node update.
func (s *ColorSink) WriteNode(n telemetry.Node) error {
	batt := "-"
	if n.BatteryPct != nil {
		batt = fmt.Sprintf("%.1f", *n.BatteryPct)
	}
	line := fmt.Sprintf("%s[%s]%s %snode=%s%s %sstate=%s%s %slat=%.5f%s %slon=%.5f%s %shdg=%.1f%s %sspd=%.1f%s %sbatt=%s%s",
		colorGray, n.Observed.Format(time.RFC3339), colorReset,
		colorBlue, n.ID, colorReset,
		feedStateColor(n.State), n.State, colorReset,
		colorGreen, n.Position.Lat, colorReset,
		colorYellow, n.Position.Lon, colorReset,
		colorCyan, n.HeadingDeg, colorReset,
		colorYellow, n.SpeedMPS, colorReset,
		colorCyan, batt, colorReset)
	if n.ActiveGoal != "" {
		line += fmt.Sprintf(" %sgoal=%s%s", colorMagenta, n.ActiveGoal, colorReset)
	}
	fmt.Fprintln(s.out, line)
	return nil
}

// WriteSnapshot outputs every node of a snapshot behind a marker line.
func (s *ColorSink) WriteSnapshot(nodes []telemetry.Node) error {
	fmt.Fprintf(s.out, "%sSNAPSHOT%s %d nodes\n", colorBlue, colorReset, len(nodes))
	for _, n := range nodes {
		_ = s.WriteNode(n)
	}
	return nil
}

// WriteMission outputs a mission replacement.
func (s *ColorSink) WriteMission(m mission.Mission) error {
	fmt.Fprintf(s.out, "%sMISSION%s id=%s staging=%d\n", colorMagenta, colorReset, m.ID, len(m.Staging))
	return nil
}

// WriteStatus outputs a connection status transition.
func (s *ColorSink) WriteStatus(st Status) error {
	c := colorRed
	if st == StatusOpen {
		c = colorGreen
	}
	fmt.Fprintf(s.out, "%sSTREAM%s %s\n", c, colorReset, st)
	return nil
}
