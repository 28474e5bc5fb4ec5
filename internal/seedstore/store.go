// Package seedstore implements the on-disk queue and crash folders plus
// the in-memory seed records, edge→seeds reverse index, and global
// coverage set of spec.md §4.3.
//
// The store is owned exclusively by the main loop (spec.md §5) and is
// not safe for concurrent use; unlike the teacher's mutex-guarded
// Corpus, nothing here needs a lock because there is exactly one
// fuzzing goroutine by design.
package seedstore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mini-lop/minilop/pkg/types"
)

// Store holds the seed queue, the crash folder, and the coverage
// bookkeeping spec.md §3 describes.
type Store struct {
	queueDir   string
	crashesDir string

	seeds          []*types.Seed
	globalCoverage types.EdgeSet
	edgeToSeeds    map[uint32][]int
}

// New creates the queue and crash folders (if absent) and returns an
// empty Store.
func New(queueDir, crashesDir string) (*Store, error) {
	if err := os.MkdirAll(queueDir, 0755); err != nil {
		return nil, fmt.Errorf("seedstore: create queue folder: %w", err)
	}
	if err := os.MkdirAll(crashesDir, 0755); err != nil {
		return nil, fmt.Errorf("seedstore: create crashes folder: %w", err)
	}
	return &Store{
		queueDir:       queueDir,
		crashesDir:     crashesDir,
		globalCoverage: make(types.EdgeSet),
		edgeToSeeds:    make(map[uint32][]int),
	}, nil
}

// Admit implements spec.md §4.3's admit, including the admission guard
// of §3/§8#3: the seed is written and recorded only if its coverage is
// not already a subset of the global coverage set. Returns the new
// seed's id and true if admitted.
func (s *Store) Admit(data []byte, edges types.EdgeSet, execTime float64) (id int, admitted bool, err error) {
	if edges.SubsetOf(s.globalCoverage) {
		return -1, false, nil
	}

	id = len(s.seeds)
	path := filepath.Join(s.queueDir, fmt.Sprintf("id_%d", id))
	if err := writeFileAtomic(path, data); err != nil {
		return -1, false, fmt.Errorf("seedstore: write seed %d: %w", id, err)
	}

	seed := &types.Seed{
		ID:       id,
		Path:     path,
		Coverage: edges.Clone(),
		ExecTime: execTime,
		Size:     len(data),
	}
	s.seeds = append(s.seeds, seed)
	s.globalCoverage.Union(edges)
	for e := range edges {
		s.edgeToSeeds[e] = append(s.edgeToSeeds[e], id)
	}
	return id, true, nil
}

// SaveCrash persists a crash-inducing input. No deduplication beyond
// filename uniqueness (spec.md §3, §4.3): the unix timestamp plus the
// origin seed's basename is all that distinguishes crashes.
func (s *Store) SaveCrash(data []byte, originPath string) (string, error) {
	name := fmt.Sprintf("crash_%d", time.Now().Unix())
	if originPath != "" {
		name += "_" + filepath.Base(originPath)
	}
	path := filepath.Join(s.crashesDir, name)
	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("seedstore: write crash: %w", err)
	}
	return path, nil
}

// Size returns the number of admitted seeds.
func (s *Store) Size() int { return len(s.seeds) }

// Get returns the seed with the given id. Panics if id is out of range,
// matching the spec's invariant that ids are dense and gapless — a
// caller passing an invalid id is a programming error, not a runtime
// condition to recover from.
func (s *Store) Get(id int) *types.Seed { return s.seeds[id] }

// All returns every admitted seed, in insertion (id) order.
func (s *Store) All() []*types.Seed { return s.seeds }

// GlobalCoverage returns the live global coverage set. Callers must
// treat it as read-only; Admit is the only mutator.
func (s *Store) GlobalCoverage() types.EdgeSet { return s.globalCoverage }

// SeedsForEdge returns the ids of every seed whose coverage contains e.
func (s *Store) SeedsForEdge(e uint32) []int { return s.edgeToSeeds[e] }

// writeFileAtomic writes data to a temp file in the same directory as
// path and renames it into place, so a mid-write crash or SIGINT never
// leaves a partial file at the final name (spec.md §5).
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
