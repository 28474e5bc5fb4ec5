package mutator

import "math/rand"

// Splice applies spec.md §4.5.2's splice operator. queue holds every
// admitted seed's bytes; current is the index of the seed being
// mutated. It picks a second, distinct index uniformly, forms a
// crossover of the two buffers, and applies a havoc pass to the
// result. Falls back to a plain havoc pass on queue[current] when the
// queue has fewer than two entries, or when the shorter of the two
// buffers is under 2 bytes long.
func Splice(rng *rand.Rand, queue [][]byte, current int, dict Dictionary) []byte {
	a := queue[current]
	if len(queue) < 2 {
		return Havoc(rng, a, dict)
	}

	other := pickOther(rng, len(queue), current)
	b := queue[other]

	l := len(a)
	if len(b) < l {
		l = len(b)
	}
	if l < 2 {
		return Havoc(rng, a, dict)
	}

	p := 1 + rng.Intn(l-1)
	spliced := make([]byte, 0, p+len(b)-p)
	spliced = append(spliced, a[:p]...)
	spliced = append(spliced, b[p:]...)

	return Havoc(rng, spliced, dict)
}

// pickOther draws a uniform index in [0, n) distinct from current, by
// drawing from [0, n-1) and shifting indices at or past current up by
// one. Callers must ensure n >= 2.
func pickOther(rng *rand.Rand, n, current int) int {
	other := rng.Intn(n - 1)
	if other >= current {
		other++
	}
	return other
}
