package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mini-lop/minilop/pkg/types"
)

func TestWriteRead_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stats.json")

	want := types.RunStats{
		StartTime:    time.Now().Truncate(time.Second),
		Executions:   12345,
		Seeds:        42,
		Crashes:      2,
		Timeouts:     5,
		EdgesCovered: 900,
		Cycle:        3,
		ExecsPerSec:  123.4,
		HavocUses:    100,
		SpliceUses:   50,
	}

	if err := Write(path, want); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if got.Executions != want.Executions || got.Seeds != want.Seeds ||
		got.Crashes != want.Crashes || got.Timeouts != want.Timeouts ||
		got.EdgesCovered != want.EdgesCovered || got.Cycle != want.Cycle {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stats.json")

	stats := types.RunStats{Crashes: 7, EdgesCovered: 500}
	if err := Write(path, stats); err != nil {
		t.Fatalf("Write: %v", err)
	}

	result, err := Field(path, "crashes")
	if err != nil {
		t.Fatalf("Field: %v", err)
	}
	if result.Int() != 7 {
		t.Errorf("crashes: got %d, want 7", result.Int())
	}

	result, err = Field(path, "edges_covered")
	if err != nil {
		t.Fatalf("Field: %v", err)
	}
	if result.Int() != 500 {
		t.Errorf("edges_covered: got %d, want 500", result.Int())
	}
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read("/nonexistent/path/stats.json")
	if err == nil {
		t.Fatal("expected an error reading a missing file")
	}
}
