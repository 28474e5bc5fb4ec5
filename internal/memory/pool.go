// Package memory provides a small byte-slice scratch pool so the
// havoc chunk-copy primitive doesn't allocate a fresh chunk buffer on
// every call.
package memory

import "sync"

// scratchSizes are the pooled slice capacities, chosen to cover
// chunkCopy's bounded chunk length (spec.md §4.5.1 #4 clamps it to
// 32 bytes).
var scratchSizes = []int{8, 16, 32}

// ScratchPool hands out byte slices from a small set of fixed-size
// sync.Pools, falling back to a direct allocation for anything larger
// than the biggest pooled size.
type ScratchPool struct {
	pools []*sync.Pool
	sizes []int
}

// NewScratchPool builds a pool over scratchSizes.
func NewScratchPool() *ScratchPool {
	sp := &ScratchPool{sizes: scratchSizes}
	sp.pools = make([]*sync.Pool, len(scratchSizes))
	for i, size := range scratchSizes {
		s := size
		sp.pools[i] = &sync.Pool{
			New: func() interface{} { return make([]byte, s) },
		}
	}
	return sp
}

// Get returns a slice of exactly size bytes, drawn from the smallest
// pool that fits.
func (sp *ScratchPool) Get(size int) []byte {
	for i, poolSize := range sp.sizes {
		if size <= poolSize {
			slice := sp.pools[i].Get().([]byte)
			return slice[:size]
		}
	}
	return make([]byte, size)
}

// Put returns slice to the pool matching its capacity; a slice whose
// capacity doesn't match a pooled size is simply dropped.
func (sp *ScratchPool) Put(slice []byte) {
	if slice == nil {
		return
	}
	c := cap(slice)
	for i, poolSize := range sp.sizes {
		if c == poolSize {
			sp.pools[i].Put(slice[:c])
			return
		}
	}
}

var (
	global     *ScratchPool
	globalOnce sync.Once
)

func initGlobal() {
	globalOnce.Do(func() { global = NewScratchPool() })
}

// GetBytes retrieves a scratch slice of size bytes from the global pool.
func GetBytes(size int) []byte {
	initGlobal()
	return global.Get(size)
}

// PutBytes returns a scratch slice to the global pool.
func PutBytes(slice []byte) {
	initGlobal()
	global.Put(slice)
}
