// Package ui provides a TUI dashboard for mini-lop.
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mini-lop/minilop/pkg/types"
)

// LogEntry represents a log message
type LogEntry struct {
	Time    time.Time
	Level   string
	Message string
}

// StatsFunc returns the current run stats. The dashboard only ever
// reads through it; it never mutates fuzzing state, matching spec.md
// §5's rule that the main loop is the sole owner of mutable state.
type StatsFunc func() types.RunStats

// Dashboard is the main TUI model. It is a pure renderer over
// whatever StatsFunc reports; quitting the dashboard ('q') does not
// stop the fuzzer by itself — cmd/minilop wires the TUI's quit command
// to the same context cancellation SIGINT uses.
type Dashboard struct {
	width  int
	height int

	statsFn   StatsFunc
	statsView *StatsView
	progress  *ProgressView
	spinner   *SpinnerProgress

	logs    []LogEntry
	maxLogs int

	targetBinary string
	tickCount    int
}

// NewDashboard creates a new dashboard instance.
func NewDashboard(statsFn StatsFunc) *Dashboard {
	return &Dashboard{
		width:     80,
		height:    24,
		statsFn:   statsFn,
		statsView: NewStatsView(40, 15),
		progress:  NewProgressView(70),
		spinner:   NewSpinnerProgress(),
		logs:      make([]LogEntry, 0, 100),
		maxLogs:   50,
	}
}

// SetTarget sets the target binary path to display in the header.
func (d *Dashboard) SetTarget(binary string) {
	d.targetBinary = binary
}

// AddLog adds a log entry, trimming the oldest once maxLogs is exceeded.
func (d *Dashboard) AddLog(level, message string) {
	d.logs = append(d.logs, LogEntry{Time: time.Now(), Level: level, Message: message})
	if len(d.logs) > d.maxLogs {
		d.logs = d.logs[len(d.logs)-d.maxLogs:]
	}
}

// --- Bubbletea Model interface ---

// TickMsg is sent on each animation tick.
type TickMsg time.Time

func (d *Dashboard) Init() tea.Cmd {
	d.spinner.Start()
	return tea.Batch(tickCmd(), tea.EnterAltScreen)
}

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return d, tea.Quit
		}

	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		d.statsView.SetSize(d.width/3, d.height-10)
		d.progress.SetSize(d.width - 4)

	case TickMsg:
		d.tickCount++
		d.spinner.Tick()
		return d, tickCmd()
	}

	return d, nil
}

func (d *Dashboard) View() string {
	if d.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(d.renderHeader())
	b.WriteString("\n")

	mainContent := lipgloss.JoinHorizontal(
		lipgloss.Top,
		d.renderStatsPanel(),
		d.renderLogPanel(),
	)
	b.WriteString(mainContent)
	b.WriteString("\n")
	b.WriteString(d.renderProgressPanel())
	b.WriteString("\n")
	b.WriteString(d.renderFooter())

	return b.String()
}

func (d *Dashboard) renderHeader() string {
	title := TitleStyle.Render("⚡ mini-lop")
	statusText := RunningStyle.Render("● FUZZING ") + d.spinner.Render()

	target := ""
	if d.targetBinary != "" {
		target = LabelStyle.Render("Target: ") + InfoStyle.Render(d.targetBinary)
	}

	leftSide := title + "  " + statusText
	padding := d.width - lipgloss.Width(leftSide) - lipgloss.Width(target) - 2
	if padding < 0 {
		padding = 0
	}

	return BoxStyle.Width(d.width - 2).Render(leftSide + strings.Repeat(" ", padding) + target)
}

func (d *Dashboard) renderStatsPanel() string {
	return d.statsView.Render(d.statsFn())
}

// renderProgressPanel renders how far the scheduler has worked through
// the current cycle's queue (spec.md §4.4's used set against the full
// seed count) — not an overall completion percentage, since fuzzing has
// no natural endpoint.
func (d *Dashboard) renderProgressPanel() string {
	stats := d.statsFn()
	d.progress.SetTitle(fmt.Sprintf("Cycle %d Progress", stats.Cycle))
	d.progress.Update(int64(stats.CycleUsed), int64(stats.Seeds), "")
	return d.progress.Render()
}

func (d *Dashboard) renderLogPanel() string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render("📝 Activity Log"))
	b.WriteString("\n\n")

	startIdx := 0
	if len(d.logs) > 8 {
		startIdx = len(d.logs) - 8
	}

	for i := startIdx; i < len(d.logs); i++ {
		log := d.logs[i]
		timeStr := log.Time.Format("15:04:05")

		var levelStyle lipgloss.Style
		switch log.Level {
		case "ERROR":
			levelStyle = ErrorStyle
		case "WARN":
			levelStyle = WarningStyle
		case "INFO":
			levelStyle = InfoStyle
		default:
			levelStyle = HelpStyle
		}

		line := fmt.Sprintf("%s %s %s",
			HelpStyle.Render(timeStr),
			levelStyle.Render(fmt.Sprintf("%-5s", log.Level)),
			log.Message,
		)
		if len(line) > d.width/2-10 {
			line = line[:d.width/2-13] + "..."
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return LogPanelStyle.Width(d.width/2 - 4).Render(b.String())
}

func (d *Dashboard) renderFooter() string {
	help := RenderHelp("q", "quit")
	return FooterStyle.Render(help)
}

// Run starts the TUI application, blocking until the user quits.
func Run(d *Dashboard) error {
	p := tea.NewProgram(d, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
