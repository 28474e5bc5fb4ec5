// Package harness owns the target child process across repeated
// executions via the AFL-style forkserver protocol (spec.md §4.1, §6)
// and the shared-memory trace bitmap both sides observe.
package harness

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/mini-lop/minilop/pkg/types"
)

// MapSize is the fixed trace bitmap size the target's instrumentation
// writes into; spec.md §3 and §6 both fix this at 65536.
const MapSize = 65536

// TraceBitmap is the shared-memory segment the target's instrumentation
// writes edge hit-counts into. The harness attaches it once at startup
// and clears it before every execution (spec.md §5, "exactly once per
// execution, before the fork request is sent").
type TraceBitmap struct {
	shmID int
	data  []byte
}

// NewTraceBitmap allocates a MapSize-byte SysV shared-memory segment and
// attaches it into this process's address space. The returned ShmID is
// passed to the target via __AFL_SHM_ID (spec.md §6); on platforms
// without SysV shm this is where a functionally-equivalent anonymous
// mapping plus inherited fd would be substituted (spec.md §9).
func NewTraceBitmap() (*TraceBitmap, error) {
	id, err := unix.SysvShmGet(unix.IPC_PRIVATE, MapSize, unix.IPC_CREAT|0600)
	if err != nil {
		return nil, fmt.Errorf("shmget: %w", err)
	}
	data, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("shmat: %w", err)
	}
	return &TraceBitmap{shmID: id, data: data}, nil
}

// ShmID returns the SysV shared memory identifier; the harness passes it
// to the target in __AFL_SHM_ID as a decimal string (spec.md §6).
func (b *TraceBitmap) ShmID() int { return b.shmID }

// Clear zeroes the bitmap. Must be called exactly once per execution,
// before the fork request is written (spec.md §5).
func (b *TraceBitmap) Clear() {
	for i := range b.data {
		b.data[i] = 0
	}
}

// Edges returns the set of edges the target traversed since the last
// Clear: byte i is nonzero iff edge i was hit (spec.md §3). This is a
// pure read of shared-memory state; classification of what it means is
// left to the feedback package.
func (b *TraceBitmap) Edges() types.EdgeSet {
	edges := make(types.EdgeSet)
	for i, v := range b.data {
		if v != 0 {
			edges[uint32(i)] = struct{}{}
		}
	}
	return edges
}

// Close detaches and removes the shared-memory segment. Safe to call
// once on every exit path.
func (b *TraceBitmap) Close() error {
	if b.data == nil {
		return nil
	}
	err := unix.SysvShmDetach(b.data)
	b.data = nil
	// IPC_RMID marks the segment for destruction once the last process
	// detaches; harmless if it was already removed.
	unix.SysvShmCtl(b.shmID, unix.IPC_RMID, nil)
	return err
}
