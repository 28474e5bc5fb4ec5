package ui

import (
	"testing"
	"time"

	"github.com/mini-lop/minilop/pkg/types"
)

func staticStats() types.RunStats {
	return types.RunStats{
		Executions:   100,
		Seeds:        5,
		EdgesCovered: 12,
		Crashes:      1,
		Timeouts:     2,
	}
}

func TestNewDashboard(t *testing.T) {
	d := NewDashboard(staticStats)
	if d == nil {
		t.Fatal("NewDashboard returned nil")
	}
	if d.statsFn == nil {
		t.Error("statsFn should not be nil")
	}
}

func TestDashboard_AddLog(t *testing.T) {
	d := NewDashboard(staticStats)

	d.AddLog("INFO", "Test message 1")
	d.AddLog("ERROR", "Test message 2")

	if len(d.logs) != 2 {
		t.Errorf("Expected 2 logs, got %d", len(d.logs))
	}
	if d.logs[0].Level != "INFO" {
		t.Errorf("Expected first log level INFO, got %s", d.logs[0].Level)
	}
	if d.logs[1].Message != "Test message 2" {
		t.Errorf("Expected second log message 'Test message 2', got %s", d.logs[1].Message)
	}
}

func TestDashboard_LogTrimming(t *testing.T) {
	d := NewDashboard(staticStats)
	d.maxLogs = 5

	for i := 0; i < 10; i++ {
		d.AddLog("INFO", "Message")
	}

	if len(d.logs) != 5 {
		t.Errorf("Expected %d logs after trimming, got %d", d.maxLogs, len(d.logs))
	}
}

func TestDashboard_ViewRendersStats(t *testing.T) {
	d := NewDashboard(staticStats)
	d.width = 120
	d.height = 40

	out := d.View()
	if out == "" {
		t.Fatal("expected non-empty view")
	}
}

func TestDashboard_RenderProgressPanelReflectsCycleUsed(t *testing.T) {
	d := NewDashboard(func() types.RunStats {
		return types.RunStats{Seeds: 10, Cycle: 2, CycleUsed: 4}
	})
	out := d.renderProgressPanel()
	if out == "" {
		t.Fatal("expected non-empty progress panel render")
	}
	if d.progress.completed != 4 || d.progress.total != 10 {
		t.Errorf("expected progress view updated to completed=4 total=10, got completed=%d total=%d",
			d.progress.completed, d.progress.total)
	}
}

func TestProgressView_Render(t *testing.T) {
	v := NewProgressView(60)
	v.Update(3, 10, "")
	out := v.Render()
	if out == "" {
		t.Fatal("expected non-empty render")
	}
}

func TestStatsView_Render(t *testing.T) {
	v := NewStatsView(60, 20)
	out := v.Render(staticStats())
	if out == "" {
		t.Fatal("expected non-empty render")
	}
}

func TestProgressBar(t *testing.T) {
	p := NewProgressBar(50)
	p.SetProgress(0.5)
	p.SetETA("5m30s")

	rendered := p.Render()
	if rendered == "" {
		t.Error("ProgressBar Render returned empty string")
	}
	if len(rendered) < 10 {
		t.Error("ProgressBar Render output too short")
	}
}

func TestProgressBar_Bounds(t *testing.T) {
	p := NewProgressBar(50)

	p.SetProgress(-0.5)
	if p.percentage != 0 {
		t.Errorf("Expected percentage clamped to 0, got %f", p.percentage)
	}

	p.SetProgress(1.5)
	if p.percentage != 1 {
		t.Errorf("Expected percentage clamped to 1, got %f", p.percentage)
	}
}

func TestSpinnerProgress(t *testing.T) {
	s := NewSpinnerProgress()
	s.SetText("Loading data...")

	if !s.running {
		t.Error("Spinner should be running by default")
	}

	initialFrame := s.frame
	s.Tick()
	s.Tick()
	if s.frame == initialFrame {
		t.Error("Spinner frame should change after Tick")
	}

	s.Stop()
	if s.running {
		t.Error("Spinner should not be running after Stop")
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1.0K"},
		{1500, "1.5K"},
		{1000000, "1.0M"},
		{1500000, "1.5M"},
	}

	for _, tt := range tests {
		result := formatNumber(tt.input)
		if result != tt.expected {
			t.Errorf("formatNumber(%d): expected %s, got %s", tt.input, tt.expected, result)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		input    time.Duration
		expected string
	}{
		{500 * time.Microsecond, "500µs"},
		{50 * time.Millisecond, "50ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m30s"},
		{90 * time.Minute, "1h30m"},
	}

	for _, tt := range tests {
		result := formatDuration(tt.input)
		if result != tt.expected {
			t.Errorf("formatDuration(%v): expected %s, got %s", tt.input, tt.expected, result)
		}
	}
}

func BenchmarkDashboard_View(b *testing.B) {
	d := NewDashboard(staticStats)
	d.width = 120
	d.height = 40

	for i := 0; i < 20; i++ {
		d.AddLog("INFO", "Test message")
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.View()
	}
}
