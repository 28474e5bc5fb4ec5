// Package engine composes the harness, feedback, seed store, scheduler
// and mutation engine into spec.md §4.6's main loop. It is the one
// place that owns the fuzzer-state value spec.md §5 requires all
// mutable state to live inside — queue, coverage set, edge index,
// bandit stats, and cycle state all hang off the Engine or the
// sub-components it holds, never behind package-level globals.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/mini-lop/minilop/internal/asyncio"
	"github.com/mini-lop/minilop/internal/config"
	"github.com/mini-lop/minilop/internal/errs"
	"github.com/mini-lop/minilop/internal/feedback"
	"github.com/mini-lop/minilop/internal/harness"
	"github.com/mini-lop/minilop/internal/mutator"
	"github.com/mini-lop/minilop/internal/scheduler"
	"github.com/mini-lop/minilop/internal/seedstore"
	"github.com/mini-lop/minilop/pkg/types"
)

// Engine holds every piece of mutable fuzzing state for one run.
type Engine struct {
	cfg     *config.Config
	harness *harness.Harness
	store   *seedstore.Store
	sched   *scheduler.Scheduler
	bandit  *mutator.Bandit
	rng     *rand.Rand
	dict    mutator.Dictionary

	// persist runs crash-file writes off the hot path: spec.md §5
	// allows exactly one target execution in flight, but saving a
	// crashing input to disk is ordinary I/O, not execution, and
	// shouldn't stall the next round behind a slow disk.
	persist *asyncio.Pool

	avgExecTime float64 // seconds, running mean across all executions
	execCount   int64

	// Stats mirrors ambient, externally-observable counters for the
	// TUI/web/report surfaces. Nothing reads it back into the
	// algorithms above.
	Stats types.RunStats
}

// New allocates the shared-memory bitmap, spawns the forkserver, and
// builds every sub-component. It does not run the dry run; call DryRun
// before Run.
func New(cfg *config.Config) (*Engine, error) {
	seed := cfg.Engine.RNGSeed
	if seed == 0 {
		seed = 1
	}
	rng := rand.New(rand.NewSource(seed))

	h, err := harness.New(harness.Config{
		Binary:       cfg.Target.Binary,
		Args:         cfg.Target.Args,
		CurrentInput: cfg.Target.CurrentInput,
		Timeout:      cfg.Timeout(),
	})
	if err != nil {
		return nil, err // already an *errs.InitError
	}

	store, err := seedstore.New(cfg.Target.QueueFolder, cfg.Target.CrashesFolder)
	if err != nil {
		h.Close()
		return nil, errs.NewInit("create seed store", err)
	}

	persist, err := asyncio.New(asyncio.DefaultOptions())
	if err != nil {
		h.Close()
		return nil, errs.NewInit("create persistence pool", err)
	}

	e := &Engine{
		cfg:     cfg,
		harness: h,
		store:   store,
		sched:   scheduler.New(store, rng),
		bandit:  mutator.NewBandit(rng),
		rng:     rng,
		dict:    mutator.LoadDictionary(cfg.Target.Dictionary),
		persist: persist,
		Stats:   types.RunStats{StartTime: time.Now()},
	}
	return e, nil
}

// Close releases the harness's resources (shared memory, pipes, child
// process) and waits for any in-flight crash saves to finish, on every
// exit path.
func (e *Engine) Close() error {
	e.persist.Wait()
	e.persist.Shutdown()
	return e.harness.Close()
}

// DryRun implements spec.md §4.3's dry run: every file under
// seeds_folder is staged and executed once; timeouts and crashes are
// ignored, and any input whose coverage is not already a subset of the
// global coverage set is admitted. Zero admissions is an InitError.
func (e *Engine) DryRun() error {
	entries, err := os.ReadDir(e.cfg.Target.SeedsFolder)
	if err != nil {
		return errs.NewInit("read seeds folder", err)
	}

	admitted := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(e.cfg.Target.SeedsFolder, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return errs.NewInit(fmt.Sprintf("read seed file %s", path), err)
		}

		status, elapsed, err := e.execute(data)
		if err != nil {
			return errs.NewInit(fmt.Sprintf("dry run on %s", path), err)
		}
		if status == types.StatusTimeout || status == types.StatusCrash {
			continue
		}

		edges := e.harness.Bitmap.Edges()
		newFound, cur := feedback.ObserveCoverage(edges, e.store.GlobalCoverage())
		if !newFound {
			continue
		}
		if _, ok, err := e.store.Admit(data, cur, elapsed.Seconds()); err != nil {
			return errs.NewInit(fmt.Sprintf("admit seed file %s", path), err)
		} else if ok {
			admitted++
		}
	}

	if admitted == 0 {
		return errs.NewInit("dry run admitted zero seeds", nil)
	}
	e.sched.RefreshFavoured()
	e.Stats.Seeds = e.store.Size()
	return nil
}

// Run executes spec.md §4.6's main loop until ctx is cancelled. A
// cancelled context is checked between rounds and between individual
// mutated executions within a round; the loop never aborts mid
// harness-execution, since that execution already has its own bounded
// timeout.
func (e *Engine) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		seed := e.sched.SelectNext()
		if seed == nil {
			return errs.NewFatal("no seeds available to schedule", nil)
		}
		energy := scheduler.Energy(seed, e.avgExecTime)

		for i := 0; i < energy; i++ {
			if ctx.Err() != nil {
				return nil
			}
			if err := e.round(seed); err != nil {
				return err
			}
		}
	}
}

// round performs one mutate-execute-observe cycle for seed, per
// spec.md §4.6 steps b-e.
func (e *Engine) round(seed *types.Seed) error {
	data, err := os.ReadFile(seed.Path)
	if err != nil {
		return errs.NewFatal(fmt.Sprintf("read seed %s", seed.Path), err)
	}

	op := e.bandit.SelectOperator()
	mutated := e.applyOperator(op, seed, data)

	status, elapsed, err := e.execute(mutated)
	if err != nil {
		return err
	}
	e.observeStats(status)
	defer func() {
		e.Stats.HavocUses = e.bandit.Stats(types.Havoc).Uses
		e.Stats.SpliceUses = e.bandit.Stats(types.Splice).Uses
	}()

	switch status {
	case types.StatusTimeout:
		e.bandit.UpdateRewards(op, 0, false)
	case types.StatusCrash:
		originPath := seed.Path
		if err := e.persist.SaveCrash(func() (string, error) {
			return e.store.SaveCrash(mutated, originPath)
		}); err != nil {
			fmt.Fprintf(os.Stderr, "[!] failed to queue crash save: %v\n", err)
		}
		e.bandit.UpdateRewards(op, 0, true)
	default:
		edges := e.harness.Bitmap.Edges()
		global := e.store.GlobalCoverage()
		newFound, cur := feedback.ObserveCoverage(edges, global)
		if newFound {
			fresh := feedback.NewEdges(cur, global)
			if _, ok, err := e.store.Admit(mutated, cur, elapsed.Seconds()); err != nil {
				return errs.NewFatal("admit mutated input", err)
			} else if ok {
				e.Stats.Seeds = e.store.Size()
				e.Stats.LastNewCoverage = time.Now()
			}
			e.bandit.UpdateRewards(op, len(fresh), false)
			e.sched.RefreshFavoured()
		} else {
			e.bandit.UpdateRewards(op, 0, false)
		}
	}
	return nil
}

// applyOperator runs the bandit's chosen top-level operator against
// seed, reading the rest of the queue fresh from disk for splice.
func (e *Engine) applyOperator(op types.Operator, seed *types.Seed, data []byte) []byte {
	if op == types.Havoc {
		return mutator.Havoc(e.rng, data, e.dict)
	}
	return mutator.Splice(e.rng, e.queueBuffers(), seed.ID, e.dict)
}

// queueBuffers reads every admitted seed's bytes fresh from disk, for
// the splice operator's second-parent draw.
func (e *Engine) queueBuffers() [][]byte {
	seeds := e.store.All()
	bufs := make([][]byte, len(seeds))
	for i, s := range seeds {
		data, err := os.ReadFile(s.Path)
		if err != nil {
			// A seed file disappearing mid-run is not expected per
			// spec.md §5's resource discipline; fall back to an empty
			// buffer so splice's length-2 guard falls back to a havoc
			// pass on the current seed.
			bufs[i] = nil
			continue
		}
		bufs[i] = data
	}
	return bufs
}

// execute stages data and runs the target once, transparently
// respawning the forkserver a single time on a HarnessError per
// spec.md §7; a second consecutive failure escalates to FatalError.
func (e *Engine) execute(data []byte) (types.Status, time.Duration, error) {
	if err := os.WriteFile(e.cfg.Target.CurrentInput, data, 0644); err != nil {
		return 0, 0, errs.NewFatal("stage input", err)
	}

	status, elapsed, err := e.harness.RunOnce()
	if err != nil {
		var herr *errs.HarnessError
		if !errors.As(err, &herr) {
			return 0, 0, errs.NewFatal("harness run", err)
		}
		if respawnErr := e.harness.Respawn(); respawnErr != nil {
			return 0, 0, errs.NewFatal("respawn after harness error", respawnErr)
		}
		status, elapsed, err = e.harness.RunOnce()
		if err != nil {
			return 0, 0, errs.NewFatal("harness run after respawn", err)
		}
	}

	e.execCount++
	e.avgExecTime += (elapsed.Seconds() - e.avgExecTime) / float64(e.execCount)

	return feedback.ClassifyStatus(status), elapsed, nil
}

// observeStats updates the ambient RunStats counters; none of this
// feeds back into the algorithms above.
func (e *Engine) observeStats(status types.Status) {
	e.Stats.Executions++
	e.Stats.Cycle = e.sched.Cycle()
	e.Stats.CycleUsed = e.sched.UsedCount()
	e.Stats.AvgExecTimeNs = int64(e.avgExecTime * float64(time.Second))
	e.Stats.EdgesCovered = len(e.store.GlobalCoverage())
	if elapsed := time.Since(e.Stats.StartTime).Seconds(); elapsed > 0 {
		e.Stats.ExecsPerSec = float64(e.Stats.Executions) / elapsed
	}
	switch status {
	case types.StatusCrash:
		e.Stats.Crashes++
	case types.StatusTimeout:
		e.Stats.Timeouts++
	}
}
