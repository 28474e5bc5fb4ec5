package seedstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mini-lop/minilop/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "queue"), filepath.Join(dir, "crashes"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestAdmit_AssignsDenseIDs(t *testing.T) {
	s := newTestStore(t)

	id0, ok, err := s.Admit([]byte("a"), types.NewEdgeSet(1, 2), 0.01)
	if err != nil || !ok {
		t.Fatalf("Admit seed 0: ok=%v err=%v", ok, err)
	}
	if id0 != 0 {
		t.Fatalf("expected id 0, got %d", id0)
	}

	id1, ok, err := s.Admit([]byte("b"), types.NewEdgeSet(3), 0.01)
	if err != nil || !ok {
		t.Fatalf("Admit seed 1: ok=%v err=%v", ok, err)
	}
	if id1 != 1 {
		t.Fatalf("expected id 1, got %d", id1)
	}
	if s.Get(1).ID != 1 {
		t.Fatalf("seed.ID must equal its index")
	}
}

func TestAdmit_GuardRejectsSubsetCoverage(t *testing.T) {
	s := newTestStore(t)

	if _, ok, _ := s.Admit([]byte("a"), types.NewEdgeSet(1, 2, 3), 0.01); !ok {
		t.Fatal("expected first seed to be admitted")
	}

	before := s.Size()
	_, ok, err := s.Admit([]byte("b"), types.NewEdgeSet(1, 2), 0.01)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if ok {
		t.Fatal("expected subset-coverage seed to be rejected")
	}
	if s.Size() != before {
		t.Fatalf("queue size changed on a rejected admission: %d -> %d", before, s.Size())
	}
}

func TestGlobalCoverage_Monotonic(t *testing.T) {
	s := newTestStore(t)

	s.Admit([]byte("a"), types.NewEdgeSet(1, 2), 0.01)
	sizeAfterFirst := len(s.GlobalCoverage())

	s.Admit([]byte("b"), types.NewEdgeSet(2, 3), 0.01)
	sizeAfterSecond := len(s.GlobalCoverage())

	if sizeAfterSecond < sizeAfterFirst {
		t.Fatalf("global coverage shrank: %d -> %d", sizeAfterFirst, sizeAfterSecond)
	}
	for _, e := range []uint32{1, 2, 3} {
		if _, ok := s.GlobalCoverage()[e]; !ok {
			t.Errorf("expected edge %d in global coverage", e)
		}
	}
}

func TestEdgeToSeedsIndex_Consistent(t *testing.T) {
	s := newTestStore(t)
	s.Admit([]byte("a"), types.NewEdgeSet(1, 2), 0.01)
	s.Admit([]byte("b"), types.NewEdgeSet(2, 3), 0.01)

	for _, seed := range s.All() {
		for e := range seed.Coverage {
			found := false
			for _, id := range s.SeedsForEdge(e) {
				if id == seed.ID {
					found = true
				}
			}
			if !found {
				t.Errorf("seed %d covers edge %d but is absent from edge_to_seeds[%d]", seed.ID, e, e)
			}
		}
	}
	for _, id := range s.SeedsForEdge(2) {
		seed := s.Get(id)
		if _, ok := seed.Coverage[2]; !ok {
			t.Errorf("edge_to_seeds[2] lists seed %d which doesn't cover edge 2", id)
		}
	}
}

func TestSaveCrash_NoDedup(t *testing.T) {
	s := newTestStore(t)

	p1, err := s.SaveCrash([]byte("boom"), "id_0")
	if err != nil {
		t.Fatalf("SaveCrash: %v", err)
	}
	// Distinct origin basenames guarantee distinct filenames even if
	// both saves land within the same wall-clock second.
	p2, err := s.SaveCrash([]byte("boom"), "id_1")
	if err != nil {
		t.Fatalf("SaveCrash: %v", err)
	}
	if p1 == p2 {
		t.Fatal("expected distinct filenames for two crash saves even with identical bytes")
	}
	if _, err := os.Stat(p1); err != nil {
		t.Errorf("expected %s to exist: %v", p1, err)
	}
	if _, err := os.Stat(p2); err != nil {
		t.Errorf("expected %s to exist: %v", p2, err)
	}
}
