// Package gui is the live `procwatch top` dashboard. It shows what the
// watcher would do and never signals anything.
package gui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/7c/procwatch/internal/display"
	"github.com/7c/procwatch/internal/watch"
)

// Pane identifies the active pane in the TUI.
type Pane int

const (
	ProcessList Pane = iota
	LogViewer
)

type model struct {
	opts       Options
	last       sampleMsg
	loaded     bool
	selected   int
	activePane Pane
	showDetail bool

	width  int
	height int
}

// tickMsg fires on every refresh interval.
type tickMsg time.Time

// Run starts the dashboard and blocks until the user quits.
func Run(o Options) error {
	if o.Refresh <= 0 {
		o.Refresh = time.Second
	}
	p := tea.NewProgram(newModel(o), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func newModel(o Options) model {
	return model{opts: o}
}

func (m model) Init() tea.Cmd {
	return m.sampleCmd()
}

func (m model) sampleCmd() tea.Cmd {
	o := m.opts
	return func() tea.Msg { return collect(o) }
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		return m, m.sampleCmd()

	case sampleMsg:
		m.last = msg
		m.loaded = true
		if m.selected >= len(msg.rows) {
			m.selected = max(0, len(msg.rows)-1)
		}
		return m, tickCmd(m.opts.Refresh)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "q" || key == "ctrl+c" {
		return m, tea.Quit
	}

	if m.showDetail {
		if key == "esc" || key == "enter" {
			m.showDetail = false
		}
		return m, nil
	}

	switch key {
	case "up", "k":
		if m.activePane == ProcessList && m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.activePane == ProcessList && m.selected < len(m.last.rows)-1 {
			m.selected++
		}
	case "tab", "l":
		if m.activePane == ProcessList {
			m.activePane = LogViewer
		} else {
			m.activePane = ProcessList
		}
	case "enter":
		if len(m.last.rows) > 0 {
			m.showDetail = true
		}
	}
	return m, nil
}

func (m model) View() string {
	if m.width == 0 || !m.loaded {
		return "Sampling..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderTable())
	b.WriteString("\n")

	if m.opts.LogFile != "" {
		indicator := ""
		if m.activePane == LogViewer {
			indicator = " *"
		}
		b.WriteString(titleStyle.Render(" Daemon log"+indicator) + "\n")
		h := m.logViewHeight()
		b.WriteString(logStyle.Width(max(m.width-4, 20)).Height(h).Render(m.renderLogs(h)))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("[↑↓] nav  [enter] detail  [tab] pane  [q] quit   (read-only: nothing is killed)"))

	if m.showDetail {
		return m.overlayCenter(b.String(), m.renderDetail())
	}
	return b.String()
}

func (m model) renderHeader() string {
	daemon := "daemon not running"
	if m.last.daemonPID > 0 {
		daemon = "daemon pid " + strconv.Itoa(m.last.daemonPID)
	}
	title := titleStyle.Render("procwatch top") + "  " + helpStyle.Render(daemon)

	var sys string
	if m.last.metricErr != nil {
		sys = killStyle.Render("system metrics unavailable: " + m.last.metricErr.Error())
	} else {
		sys = fmt.Sprintf("system  mem %s  cpu %s  %s",
			pressure(m.last.sysMem), pressure(m.last.sysCPU),
			helpStyle.Render(fmt.Sprintf("(evictions need > %.0f%%, limits mem %.0f%% cpu %.0f%%)",
				watch.PressureThreshold, m.opts.MemLimit, m.opts.CPULimit)))
	}
	return title + "\n" + sys
}

func pressure(p float64) string {
	s := fmt.Sprintf("%5.1f%%", p)
	switch {
	case p > watch.PressureThreshold:
		return killStyle.Render(s)
	case p > watch.PressureThreshold*0.8:
		return warnStyle.Render(s)
	default:
		return keepStyle.Render(s)
	}
}

var tableHeaders = []string{"Name", "PID", "User", "CPU", "Mem", "RSS", "Verdict", "Command"}

func (m model) renderTable() string {
	cells := make([][]string, 0, len(m.last.rows))
	for _, r := range m.last.rows {
		cells = append(cells, rowCells(r))
	}

	widths := make([]int, len(tableHeaders))
	for i, h := range tableHeaders {
		widths[i] = len(h)
	}
	for _, c := range cells {
		for i, v := range c {
			widths[i] = max(widths[i], lipgloss.Width(v))
		}
	}
	join := func(cols []string) string {
		parts := make([]string, len(cols))
		for i, c := range cols {
			parts[i] = c + strings.Repeat(" ", max(0, widths[i]-lipgloss.Width(c)))
		}
		return strings.Join(parts, "  ")
	}

	indicator := ""
	if m.activePane == ProcessList {
		indicator = " *"
	}
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(" Watched processes"+indicator) + "\n")
	sb.WriteString(" " + headerStyle.Render(join(tableHeaders)) + "\n")
	total := 2 * (len(widths) - 1)
	for _, w := range widths {
		total += w
	}
	sb.WriteString(" " + ruleStyle.Render(strings.Repeat("─", total)) + "\n")

	for i, c := range cells {
		line := join(c)
		if i == m.selected {
			line = selectedStyle.Render(line)
		}
		sb.WriteString(" " + line + "\n")
	}
	if len(cells) == 0 {
		sb.WriteString(helpStyle.Render("  No processes configured") + "\n")
	}
	return sb.String()
}

func rowCells(r row) []string {
	name := r.target.Name
	pid := strconv.Itoa(r.target.PID)
	if r.err != nil {
		return []string{name, pid, "-", "-", "-", "-", warnStyle.Render("gone"), helpStyle.Render(display.Truncate(r.err.Error(), 40))}
	}
	verdict := keepStyle.Render("keep")
	if r.decision.Verdict == watch.Kill {
		verdict = killStyle.Render("KILL " + strings.Join(r.decision.Reasons(), "+"))
	}
	return []string{
		name,
		pid,
		r.snap.User,
		fmt.Sprintf("%.1f%%", r.snap.CPU),
		fmt.Sprintf("%.1f%%", r.snap.Mem),
		display.FormatKiB(r.snap.RSS),
		verdict,
		display.Truncate(r.snap.Command, 40),
	}
}

func (m model) logViewHeight() int {
	// header(3) + table title/header/rule(3) + blank(1) + log title(1) + help(1) + border(2)
	rows := max(len(m.last.rows), 1)
	return max(m.height-11-rows, 3)
}

func (m model) renderLogs(height int) string {
	lines := m.last.logLines
	if len(lines) == 0 {
		return helpStyle.Render("No log data")
	}
	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	width := max(m.width-6, 20)
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = display.Truncate(l, width)
	}
	return strings.Join(out, "\n")
}

func (m model) renderDetail() string {
	r := m.last.rows[m.selected]
	var sb strings.Builder
	kv := func(key, val string) {
		sb.WriteString(fmt.Sprintf("  %-10s %s\n", key+":", val))
	}

	sb.WriteString(titleStyle.Render("  "+r.target.Name) + "\n")
	sb.WriteString(strings.Repeat("─", 44) + "\n")
	kv("PID", strconv.Itoa(r.target.PID))
	if r.err != nil {
		kv("Error", r.err.Error())
	} else {
		s := r.snap
		kv("User", s.User)
		kv("CPU", fmt.Sprintf("%.1f%% (limit %.0f%%)", s.CPU, m.opts.CPULimit))
		kv("Memory", fmt.Sprintf("%.1f%% (limit %.0f%%)", s.Mem, m.opts.MemLimit))
		kv("VSZ", display.FormatKiB(s.VSZ))
		kv("RSS", display.FormatKiB(s.RSS))
		kv("TTY", s.TTY)
		kv("Stat", s.Stat)
		kv("Start", s.Start)
		kv("Time", s.Time)
		kv("Command", s.Command)
		kv("Verdict", r.decision.Verdict.String())
	}
	sb.WriteString(strings.Repeat("─", 44) + "\n")
	sb.WriteString(helpStyle.Render("  Press [esc] or [enter] to close"))
	return sb.String()
}

// overlayCenter places an overlay panel in the center of the base view.
func (m model) overlayCenter(base, overlay string) string {
	box := boxStyle.Width(lipgloss.Width(overlay) + 4).Render(overlay)
	boxLines := strings.Split(box, "\n")
	startY := max((m.height-len(boxLines))/2, 0)
	startX := max((m.width-lipgloss.Width(box))/2, 0)

	baseLines := strings.Split(base, "\n")
	for len(baseLines) < startY+len(boxLines) {
		baseLines = append(baseLines, "")
	}
	for i, boxLine := range boxLines {
		y := startY + i
		line := baseLines[y]
		if w := lipgloss.Width(line); w < startX {
			line += strings.Repeat(" ", startX-w)
		} else {
			line = truncateVisual(line, startX)
		}
		baseLines[y] = line + boxLine
	}
	if m.height > 0 && len(baseLines) > m.height {
		baseLines = baseLines[:m.height]
	}
	return strings.Join(baseLines, "\n")
}

// truncateVisual cuts s to n runes. ANSI sequences count as runes, which
// is close enough for an overlay edge.
func truncateVisual(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
