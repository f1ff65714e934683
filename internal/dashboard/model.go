package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"falconmesh-gcs/internal/command"
	"falconmesh-gcs/internal/geo"
	"falconmesh-gcs/internal/mission"
	"falconmesh-gcs/internal/store"
	"falconmesh-gcs/internal/stream"
	"falconmesh-gcs/internal/telemetry"
	"falconmesh-gcs/internal/view"
)

const (
	maxLogLines   = 1000
	headerRefresh = time.Second
	sendTimeout   = 5 * time.Second
)

type dialogKind int

const (
	dialogNone dialogKind = iota
	dialogCommand
	dialogPatch
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	upStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	downStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	faintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type model struct {
	st   *store.Store
	sel  *view.Selection
	ov   *mission.Overlay
	proj *geo.Projector
	disp *command.Dispatcher
	mon  *command.Monitor

	table  table.Model
	vp     viewport.Model
	input  textinput.Model
	dialog dialogKind

	nodes     map[string]telemetry.Node
	mission   *mission.Mission
	status    stream.Status
	broadcast bool
	wrap      bool
	logs      []string
	lastCmd   string

	width  int
	height int
}

func newModel(st *store.Store, sel *view.Selection, ov *mission.Overlay, proj *geo.Projector, disp *command.Dispatcher, mon *command.Monitor) model {
	cols := []table.Column{
		{Title: "ID", Width: 10},
		{Title: "Role", Width: 8},
		{Title: "State", Width: 9},
		{Title: "Lat", Width: 10},
		{Title: "Lon", Width: 10},
		{Title: "Hdg", Width: 6},
		{Title: "Spd", Width: 6},
		{Title: "Batt", Width: 6},
		{Title: "Goal", Width: 14},
	}
	t := table.New(table.WithColumns(cols), table.WithHeight(8))
	t.Focus()
	return model{
		st:    st,
		sel:   sel,
		ov:    ov,
		proj:  proj,
		disp:  disp,
		mon:   mon,
		table: t,
		vp:    viewport.New(0, 0),
		nodes: make(map[string]telemetry.Node),
	}
}

func headerTick() tea.Cmd {
	return tea.Tick(headerRefresh, func(time.Time) tea.Msg { return healthTickMsg{} })
}

func (m model) Init() tea.Cmd { return headerTick() }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.layout()
		m.refreshViewport()
	case tea.KeyMsg:
		return m.handleKey(msg)
	case nodeMsg:
		m.nodes[msg.node.ID] = msg.node
		m.refreshRows()
	case snapshotMsg:
		m.nodes = make(map[string]telemetry.Node, len(msg.nodes))
		for _, n := range msg.nodes {
			m.nodes[n.ID] = n
		}
		m.refreshRows()
	case missionMsg:
		ms := msg.Mission
		m.mission = &ms
		m.layout()
	case statusMsg:
		m.status = msg.status
	case logMsg:
		m.appendLog(msg.line)
	case cmdResultMsg:
		c := upStyle
		if msg.failed {
			c = downStyle
		}
		m.lastCmd = c.Render(msg.line)
		m.appendLog(msg.line)
	case missionPatchedMsg:
		ms := msg.ms
		m.mission = &ms
		m.lastCmd = upStyle.Render("mission patch applied")
		m.appendLog(fmt.Sprintf("%sMISSION%s patched id=%s", colorMagenta, colorReset, ms.ID))
		m.layout()
	case healthTickMsg:
		return m, headerTick()
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.dialog != dialogNone {
		switch msg.Type {
		case tea.KeyEnter:
			val := strings.TrimSpace(m.input.Value())
			kind := m.dialog
			m.dialog = dialogNone
			m.layout()
			if val == "" {
				return m, nil
			}
			if kind == dialogPatch {
				return m, m.patchMission(val)
			}
			name, target, params, err := parseCommandInput(val, m.target())
			if err != nil {
				m.appendLog(fmt.Sprintf("%scommand input:%s %v", colorRed, colorReset, err))
				return m, nil
			}
			return m, m.send(name, target, params)
		case tea.KeyEsc:
			m.dialog = dialogNone
			m.layout()
		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k", "down", "j":
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		if row := m.table.SelectedRow(); row != nil {
			m.sel.Select(row[0])
		}
		return m, cmd
	case "a":
		m.broadcast = !m.broadcast
	case "c":
		m.sel.Clear()
	case "h":
		return m, m.send("HOLD", m.target(), nil)
	case "r":
		return m, m.send("RTB", m.target(), nil)
	case "f":
		return m, m.send("FORM_UP", m.target(), nil)
	case "u":
		return m, m.send("RESUME", m.target(), nil)
	case ":":
		m.openDialog(dialogCommand, "COMMAND [target] [json params]")
	case "p":
		m.openDialog(dialogPatch, `{"target":{"x":120,"y":-45,"radius_m":30}}`)
	case "w":
		m.wrap = !m.wrap
		m.refreshViewport()
	}
	return m, nil
}

func (m *model) openDialog(kind dialogKind, placeholder string) {
	m.input = textinput.New()
	m.input.Placeholder = placeholder
	m.input.Focus()
	m.dialog = kind
	m.layout()
}

// target resolves the addressee for hotkey commands: broadcast mode wins,
// then the current selection, then everyone.
func (m model) target() string {
	if m.broadcast {
		return command.TargetAll
	}
	if key, ok := m.sel.Current(); ok {
		return key
	}
	return command.TargetAll
}

func (m model) send(name, target string, params map[string]any) tea.Cmd {
	disp := m.disp
	if disp == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		res, err := disp.Send(ctx, target, name, params)
		if err != nil {
			return cmdResultMsg{line: fmt.Sprintf("%s -> %s: %v", name, target, err), failed: true}
		}
		return cmdResultMsg{line: fmt.Sprintf("%s -> %s delivered=%d", name, target, res.Delivered)}
	}
}

// patchMission submits a partial mission update and applies the resulting
// full mission to the overlay on success. The server re-broadcasts the
// same mission on the stream afterwards, which is an idempotent replace.
func (m model) patchMission(val string) tea.Cmd {
	disp, ov, proj := m.disp, m.ov, m.proj
	if disp == nil {
		return nil
	}
	var patch map[string]any
	if err := json.Unmarshal([]byte(val), &patch); err != nil {
		line := fmt.Sprintf("mission patch: %v", err)
		return func() tea.Msg { return cmdResultMsg{line: line, failed: true} }
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		raw, err := disp.PatchMission(ctx, patch)
		if err != nil {
			return cmdResultMsg{line: fmt.Sprintf("mission patch: %v", err), failed: true}
		}
		ms, err := mission.Decode(raw, proj)
		if err != nil {
			return cmdResultMsg{line: fmt.Sprintf("mission patch response: %v", err), failed: true}
		}
		if ov != nil {
			ov.Set(ms)
		}
		return missionPatchedMsg{ms: ms}
	}
}

// parseCommandInput splits a free-form command entry. The first token is
// the command name, an optional second token is the target, and any
// remainder is a JSON params object.
func parseCommandInput(val, fallbackTarget string) (string, string, map[string]any, error) {
	fields := strings.Fields(val)
	if len(fields) == 0 {
		return "", "", nil, fmt.Errorf("expected COMMAND [target] [params]")
	}
	name := strings.ToUpper(fields[0])
	target := fallbackTarget
	rest := fields[1:]
	if len(rest) > 0 && !strings.HasPrefix(rest[0], "{") {
		target = rest[0]
		rest = rest[1:]
	}
	var params map[string]any
	if len(rest) > 0 {
		if err := json.Unmarshal([]byte(strings.Join(rest, " ")), &params); err != nil {
			return "", "", nil, fmt.Errorf("params: %w", err)
		}
	}
	return name, target, params, nil
}

func (m *model) refreshRows() {
	ids := make([]string, 0, len(m.nodes))
	for id := range m.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	rows := make([]table.Row, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, nodeRow(m.nodes[id]))
	}
	m.table.SetRows(rows)
}

func nodeRow(n telemetry.Node) table.Row {
	batt := "-"
	if n.BatteryPct != nil {
		batt = fmt.Sprintf("%.0f%%", *n.BatteryPct)
	}
	return table.Row{
		n.ID,
		n.Role,
		n.State,
		fmt.Sprintf("%.5f", n.Position.Lat),
		fmt.Sprintf("%.5f", n.Position.Lon),
		fmt.Sprintf("%.0f", n.HeadingDeg),
		fmt.Sprintf("%.1f", n.SpeedMPS),
		batt,
		n.ActiveGoal,
	}
}

func (m *model) appendLog(line string) {
	m.logs = append(m.logs, line)
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
	m.refreshViewport()
}

func (m *model) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.wrap && m.vp.Width > 0 {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	m.vp.GotoBottom()
}

func (m *model) layout() {
	fixed := lipgloss.Height(m.renderHeader()) +
		lipgloss.Height(m.table.View()) +
		lipgloss.Height(m.renderDetail()) +
		lipgloss.Height(m.renderMission()) +
		lipgloss.Height(m.renderFooter()) + 4
	if m.dialog != dialogNone {
		fixed += lipgloss.Height(m.renderDialog()) + 1
	}
	h := m.height - fixed
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	m.vp.GotoBottom()
}

func (m model) View() string {
	divider := faintStyle.Render(strings.Repeat("─", max(m.width, 1)))
	sections := []string{
		m.renderHeader(),
		divider,
		m.table.View(),
		divider,
		m.renderDetail(),
		m.renderMission(),
		divider,
		m.vp.View(),
		divider,
		m.renderFooter(),
	}
	if m.dialog != dialogNone {
		sections = append(sections, m.renderDialog())
	}
	return strings.Join(sections, "\n")
}

func (m model) renderHeader() string {
	st := downStyle
	if m.status == stream.StatusOpen {
		st = upStyle
	}
	parts := []string{
		titleStyle.Render("FalconMesh GCS"),
		"stream " + st.Render(m.status.String()),
		fmt.Sprintf("nodes %d", len(m.nodes)),
	}
	if m.mission != nil {
		parts = append(parts, "mission "+m.mission.ID)
	}
	if m.mon != nil {
		if h, err, ok := m.mon.Last(); ok {
			if err != nil || !h.OK {
				parts = append(parts, downStyle.Render("api down"))
			} else {
				parts = append(parts, fmt.Sprintf("api ok rtt=%dms", h.RTT.Milliseconds()))
			}
		}
	}
	target := "selected"
	if m.broadcast {
		target = "ALL"
	}
	parts = append(parts, faintStyle.Render("target "+target))
	return strings.Join(parts, "  |  ")
}

func (m model) renderDetail() string {
	key, ok := m.sel.Current()
	if !ok {
		return "Detail: none selected"
	}
	n, known := m.nodes[key]
	if !known {
		return fmt.Sprintf("Detail: %s (no longer reported)", key)
	}
	batt := "-"
	if n.BatteryPct != nil {
		batt = fmt.Sprintf("%.1f%%", *n.BatteryPct)
	}
	dist := "-"
	if n.DistToBaseM != nil {
		dist = fmt.Sprintf("%.0fm", *n.DistToBaseM)
	}
	trail := 0
	if m.st != nil {
		trail = m.st.Trails().Len(n.ID)
	}
	return fmt.Sprintf("Detail: %s role=%s state=%s pos=(%.5f, %.5f) alt=%.1f hdg=%.1f spd=%.1f batt=%s goal=%s dist_to_base=%s trail=%d ts=%s",
		n.ID, n.Role, n.State, n.Position.Lat, n.Position.Lon, n.AltM, n.HeadingDeg, n.SpeedMPS, batt, n.ActiveGoal, dist, trail, n.ReportedTS)
}

func (m model) renderMission() string {
	if m.mission == nil {
		return "Mission: none"
	}
	ms := m.mission
	var b strings.Builder
	fmt.Fprintf(&b, "Mission %s", ms.ID)
	if ms.UpdatedTS != "" {
		fmt.Fprintf(&b, " updated=%s", ms.UpdatedTS)
	}
	b.WriteString("\n " + regionLine("base", ms.Base))
	b.WriteString("\n " + regionLine("target", ms.Target))
	for i, r := range ms.Staging {
		b.WriteString("\n " + regionLine(fmt.Sprintf("staging[%d]", i), r))
	}
	if ms.Battery.RTBThresholdPct > 0 {
		fmt.Fprintf(&b, "\n rtb_below=%.0f%% charge_to=%.0f%%", ms.Battery.RTBThresholdPct, ms.Battery.ChargeToPct)
	}
	return b.String()
}

func regionLine(name string, r mission.Region) string {
	if !r.Resolved {
		return name + ": unresolved"
	}
	line := fmt.Sprintf("%s: (%.5f, %.5f) r=%.0fm", name, r.Center.Lat, r.Center.Lon, r.RadiusM)
	if r.Task != "" {
		line += " task=" + r.Task
	}
	return line
}

func (m model) renderFooter() string {
	help := "up/down select | h hold | r rtb | f form up | u resume | a toggle all | c clear | : command | p patch mission | w wrap | q quit"
	if m.width > 0 {
		help = wordwrap.String(help, m.width)
	}
	if m.lastCmd != "" {
		return m.lastCmd + "\n" + faintStyle.Render(help)
	}
	return faintStyle.Render(help)
}

func (m model) renderDialog() string {
	label := "Command (COMMAND [target] [json]) - Enter to send, Esc to cancel: "
	if m.dialog == dialogPatch {
		label = "Mission patch (JSON) - Enter to submit, Esc to cancel: "
	}
	return label + m.input.View()
}
