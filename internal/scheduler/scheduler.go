// Package scheduler implements favoured-seed marking, cycle-aware next
// -seed selection, and the per-seed power schedule of spec.md §4.4.
package scheduler

import (
	"math"
	"math/rand"

	"github.com/mini-lop/minilop/internal/seedstore"
	"github.com/mini-lop/minilop/pkg/types"
)

// favouredProbability is the probability of preferring a favoured seed
// over any unused seed when one is available (spec.md §4.4).
const favouredProbability = 0.9

// Scheduler holds the cycle state of spec.md §3: the set of seed ids
// already selected in the current cycle, plus the cycle counter. Like
// seedstore.Store, it is owned by the single fuzzing goroutine and
// needs no internal locking (spec.md §5).
type Scheduler struct {
	store *seedstore.Store
	rng   *rand.Rand

	used  map[int]struct{}
	cycle int
}

// New builds a Scheduler over store. rng should be seeded by the
// caller; a fixed seed is what makes scenario S3 of spec.md §8
// reproducible.
func New(store *seedstore.Store, rng *rand.Rand) *Scheduler {
	return &Scheduler{
		store: store,
		rng:   rng,
		used:  make(map[int]struct{}),
	}
}

// Cycle returns the current cycle counter.
func (s *Scheduler) Cycle() int { return s.cycle }

// UsedCount returns how many seeds have already been selected in the
// current cycle, for progress display against the total queue size.
func (s *Scheduler) UsedCount() int { return len(s.used) }

// RefreshFavoured implements spec.md §4.4's refresh_favoured: for every
// edge with a non-empty edge_to_seeds entry, the seed minimising
// size*exec_time among its covering seeds is marked favoured; every
// other seed is cleared first.
func (s *Scheduler) RefreshFavoured() {
	seeds := s.store.All()
	for _, seed := range seeds {
		seed.Favoured = false
	}

	seenEdges := make(map[uint32]struct{})
	for _, seed := range seeds {
		for e := range seed.Coverage {
			seenEdges[e] = struct{}{}
		}
	}

	for e := range seenEdges {
		candidates := s.store.SeedsForEdge(e)
		if len(candidates) == 0 {
			continue
		}
		best := -1
		var bestVal float64
		for _, id := range candidates {
			seed := s.store.Get(id)
			val := float64(seed.Size) * seed.ExecTime
			if best == -1 || val < bestVal {
				best = id
				bestVal = val
			}
		}
		s.store.Get(best).Favoured = true
	}
}

// SelectNext implements spec.md §4.4's select_next, including the
// cycle-rollover rule: when every seed has been used this cycle, the
// used set clears, the cycle counter increments, and every seed becomes
// eligible again.
func (s *Scheduler) SelectNext() *types.Seed {
	seeds := s.store.All()
	if len(seeds) == 0 {
		return nil
	}

	unused := s.unusedSeeds(seeds)
	if len(unused) == 0 {
		s.used = make(map[int]struct{})
		s.cycle++
		unused = seeds
	}

	var favouredUnused []*types.Seed
	for _, seed := range unused {
		if seed.Favoured {
			favouredUnused = append(favouredUnused, seed)
		}
	}

	var pool []*types.Seed
	if len(favouredUnused) > 0 && s.rng.Float64() < favouredProbability {
		pool = favouredUnused
	} else {
		pool = unused
	}

	chosen := pool[s.rng.Intn(len(pool))]
	s.used[chosen.ID] = struct{}{}
	return chosen
}

func (s *Scheduler) unusedSeeds(seeds []*types.Seed) []*types.Seed {
	var unused []*types.Seed
	for _, seed := range seeds {
		if _, ok := s.used[seed.ID]; !ok {
			unused = append(unused, seed)
		}
	}
	return unused
}

// Energy implements spec.md §4.4's power schedule: the number of
// mutated children to derive from seed on this visit, given the running
// average execution time across all harness runs so far.
func Energy(seed *types.Seed, avgExecTime float64) int {
	perf := 100.0

	if seed.ExecTime > 0 && avgExecTime > 0 {
		t := avgExecTime / seed.ExecTime
		perf *= clamp(t, 0.1, 3.0)
	}

	c := 1.0 + float64(len(seed.Coverage))/100.0
	perf *= c

	return int(clamp(math.Round(perf), 1, 1000))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
