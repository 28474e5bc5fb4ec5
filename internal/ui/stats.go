// Package ui provides statistics display components.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/mini-lop/minilop/pkg/types"
)

// StatsView renders the fuzzing statistics panel from a types.RunStats
// snapshot. Unlike the engine's own state, StatsView is purely a
// renderer: it never mutates or feeds back into fuzzing state.
type StatsView struct {
	width  int
	height int
}

// NewStatsView creates a new stats view.
func NewStatsView(width, height int) *StatsView {
	return &StatsView{width: width, height: height}
}

// SetSize updates the view size.
func (v *StatsView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

// Render renders the stats view for one RunStats snapshot.
func (v *StatsView) Render(s types.RunStats) string {
	var b strings.Builder

	b.WriteString(HeaderStyle.Render("📊 Run"))
	b.WriteString("\n\n")

	b.WriteString(RenderLabelValue("Executions", formatNumber(s.Executions)))
	b.WriteString("\n")
	b.WriteString(RenderLabelValue("Execs/sec", fmt.Sprintf("%.1f", s.ExecsPerSec)))
	b.WriteString("\n")
	b.WriteString(RenderLabelValue("Avg exec time", formatDuration(time.Duration(s.AvgExecTimeNs))))
	b.WriteString("\n")
	b.WriteString(RenderLabelValue("Cycle", fmt.Sprintf("%d", s.Cycle)))
	b.WriteString("\n\n")

	b.WriteString(HeaderStyle.Render("🧬 Corpus"))
	b.WriteString("\n\n")

	b.WriteString(RenderLabelValue("Seeds", formatNumber(int64(s.Seeds))))
	b.WriteString("\n")
	b.WriteString(RenderLabelValue("Edges covered", formatNumber(int64(s.EdgesCovered))))
	b.WriteString("\n")
	if !s.LastNewCoverage.IsZero() {
		b.WriteString(RenderLabelValue("Last new edge", formatDuration(time.Since(s.LastNewCoverage))+" ago"))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(HeaderStyle.Render("🔥 Findings"))
	b.WriteString("\n\n")

	b.WriteString(RenderLabel("Crashes"))
	b.WriteString(" ")
	if s.Crashes > 0 {
		b.WriteString(ErrorStyle.Render(formatNumber(s.Crashes)))
	} else {
		b.WriteString(RenderValue("0"))
	}
	b.WriteString(" | ")
	b.WriteString(RenderLabel("Timeouts"))
	b.WriteString(" ")
	b.WriteString(WarningStyle.Render(formatNumber(s.Timeouts)))
	b.WriteString("\n\n")

	b.WriteString(HeaderStyle.Render("🎲 Bandit"))
	b.WriteString("\n\n")
	b.WriteString(RenderLabelValue("Havoc uses", formatNumber(s.HavocUses)))
	b.WriteString("\n")
	b.WriteString(RenderLabelValue("Splice uses", formatNumber(s.SpliceUses)))
	b.WriteString("\n")

	return StatsPanelStyle.Width(v.width).Render(b.String())
}

func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
