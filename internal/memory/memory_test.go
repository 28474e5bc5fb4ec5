package memory

import "testing"

func TestScratchPool_ReturnsRequestedLength(t *testing.T) {
	pool := NewScratchPool()

	for _, size := range []int{1, 8, 17, 32} {
		slice := pool.Get(size)
		if len(slice) != size {
			t.Errorf("Get(%d): expected len %d, got %d", size, size, len(slice))
		}
		pool.Put(slice)
	}
}

func TestScratchPool_OversizedFallsBackToDirectAllocation(t *testing.T) {
	pool := NewScratchPool()

	slice := pool.Get(1024)
	if len(slice) != 1024 {
		t.Fatalf("expected 1024-byte slice, got %d", len(slice))
	}
	// Not a pooled size: Put should simply drop it rather than panic.
	pool.Put(slice)
}

func TestScratchPool_RoundTripReusesCapacity(t *testing.T) {
	pool := NewScratchPool()

	first := pool.Get(16)
	cap16 := cap(first)
	pool.Put(first)

	second := pool.Get(16)
	if cap(second) != cap16 {
		t.Errorf("expected reused capacity %d, got %d", cap16, cap(second))
	}
}

func TestGetBytes_PutBytes_GlobalPool(t *testing.T) {
	slice := GetBytes(32)
	if len(slice) != 32 {
		t.Errorf("expected 32 bytes, got %d", len(slice))
	}
	PutBytes(slice)
}

func BenchmarkScratchPool(b *testing.B) {
	pool := NewScratchPool()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			slice := pool.Get(32)
			copy(slice, []byte("benchmark"))
			pool.Put(slice)
		}
	})
}
