package feedback

import (
	"testing"

	"github.com/mini-lop/minilop/pkg/types"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   types.Status
	}{
		{"ok_zero", 0, types.StatusOK},
		{"timeout_synthetic", 9, types.StatusTimeout},
		{"core_dumped_flag", 0x80 | 5, types.StatusCrash},
		{"sigsegv", 11, types.StatusCrash},
		{"sigabrt", 6, types.StatusCrash},
		{"sigterm", 15, types.StatusCrash},
		{"sighup", 1, types.StatusCrash},
		{"unrelated_signal_ok", 5, types.StatusOK},
		{"ok_nonzero_exit", 1 << 8, types.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyStatus(tt.status)
			if got != tt.want {
				t.Fatalf("ClassifyStatus(%d) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestClassifyStatus_FullSignalSet(t *testing.T) {
	signals := []int{1, 2, 3, 4, 6, 7, 8, 9, 11, 13, 14, 15, 24, 25, 31}
	for _, s := range signals {
		if s == 9 {
			continue // status 9 without 0x80 is the reserved timeout code
		}
		if got := ClassifyStatus(s); got != types.StatusCrash {
			t.Errorf("ClassifyStatus(%d) = %v, want crash", s, got)
		}
	}
	if got := ClassifyStatus(9); got != types.StatusTimeout {
		t.Errorf("ClassifyStatus(9) = %v, want timeout", got)
	}
}

func TestObserveCoverage(t *testing.T) {
	global := types.NewEdgeSet(1, 2, 3)

	newFound, edges := ObserveCoverage(types.NewEdgeSet(1, 2), global)
	if newFound {
		t.Fatal("expected no new edges for a subset of global coverage")
	}
	if len(edges) != 2 {
		t.Fatalf("expected edges to be the current set, got %d entries", len(edges))
	}

	newFound, _ = ObserveCoverage(types.NewEdgeSet(1, 2, 4), global)
	if !newFound {
		t.Fatal("expected new edge 4 to be detected")
	}
}

func TestNewEdges(t *testing.T) {
	global := types.NewEdgeSet(1, 2, 3)
	current := types.NewEdgeSet(2, 3, 4, 5)

	fresh := NewEdges(current, global)
	if len(fresh) != 2 {
		t.Fatalf("expected 2 fresh edges, got %d", len(fresh))
	}
	if _, ok := fresh[4]; !ok {
		t.Error("expected edge 4 to be fresh")
	}
	if _, ok := fresh[5]; !ok {
		t.Error("expected edge 5 to be fresh")
	}
}
