package mutator

import (
	"math/rand"
	"testing"
)

func TestSplice_FallsBackToHavocWithSmallQueue(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	seed := make([]byte, 16)
	queue := [][]byte{seed}

	got := Splice(rng, queue, 0, nil)
	if len(got) != len(seed) {
		t.Fatalf("expected havoc fallback to preserve length without a dictionary, got %d", len(got))
	}
}

func TestSplice_FallsBackToHavocWhenSharedPrefixTooShort(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	a := make([]byte, 16)
	b := []byte{0x01}
	queue := [][]byte{a, b}

	got := Splice(rng, queue, 0, nil)
	if len(got) != len(a) {
		t.Fatalf("expected havoc fallback on seed a when L < 2, got length %d", len(got))
	}
}

func TestSplice_CombinesTwoDistinctParents(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	a := make([]byte, 32)
	for i := range a {
		a[i] = 0xAA
	}
	b := make([]byte, 32)
	for i := range b {
		b[i] = 0xBB
	}
	queue := [][]byte{a, b}

	result := Splice(rng, queue, 0, nil)
	if len(result) == 0 {
		t.Fatal("expected a non-empty spliced result")
	}
}

func TestSplice_NeverPicksCurrentAsOther(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	const n = 5

	for current := 0; current < n; current++ {
		for i := 0; i < 50; i++ {
			other := pickOther(rng, n, current)
			if other == current {
				t.Fatalf("pickOther(n=%d, current=%d) returned current", n, current)
			}
			if other < 0 || other >= n {
				t.Fatalf("pickOther(n=%d, current=%d) returned out-of-range index %d", n, current, other)
			}
		}
	}
}
