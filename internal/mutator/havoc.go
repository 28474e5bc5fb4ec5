// Package mutator implements the havoc and splice operators of
// spec.md §4.5, and the epsilon-greedy bandit that chooses between
// them.
package mutator

import (
	"encoding/binary"
	"math/rand"

	"github.com/mini-lop/minilop/internal/memory"
)

// primitiveCount is the number of havoc primitives in spec.md §4.5.1.
const primitiveCount = 7

// Dictionary is the optional set of byte tokens the dictionary-insert
// and dictionary-overwrite primitives draw from (spec.md §4.5.1 #5-6).
type Dictionary [][]byte

// Havoc applies spec.md §4.5.1's havoc operator to a copy of seed: if
// |seed| < 8 the buffer is returned unchanged, otherwise it performs
// k = rand(1, max(4, |d|/100)) random primitive mutations, each drawn
// uniformly from the seven kinds, no-op'ing any primitive the current
// buffer is too short for.
func Havoc(rng *rand.Rand, seed []byte, dict Dictionary) []byte {
	d := make([]byte, len(seed))
	copy(d, seed)
	if len(d) < 8 {
		return d
	}

	kMax := len(d) / 100
	if kMax < 4 {
		kMax = 4
	}
	k := 1 + rng.Intn(kMax)

	for i := 0; i < k; i++ {
		d = applyPrimitive(rng, d, rng.Intn(primitiveCount), dict)
	}
	return d
}

// applyPrimitive dispatches to one of the seven havoc primitives. Each
// primitive no-ops (returns d unchanged) if d is too short for it.
func applyPrimitive(rng *rand.Rand, d []byte, which int, dict Dictionary) []byte {
	switch which {
	case 0:
		return bitFlip(rng, d)
	case 1:
		return integerOverwrite(rng, d)
	case 2:
		return interestingOverwrite(rng, d)
	case 3:
		return chunkCopy(rng, d)
	case 4:
		return dictionaryInsert(rng, d, dict)
	case 5:
		return dictionaryOverwrite(rng, d, dict)
	default:
		return arithmetic(rng, d)
	}
}

// bitFlip is havoc primitive 1: pick byte p, bit b, d[p] ^= 1<<b.
func bitFlip(rng *rand.Rand, d []byte) []byte {
	if len(d) == 0 {
		return d
	}
	p := rng.Intn(len(d))
	b := rng.Intn(8)
	d[p] ^= 1 << uint(b)
	return d
}

// fieldSizes are the byte widths havoc primitives 2, 3, and 7 draw
// from (spec.md §4.5.1: s ∈ {2,4,8}).
var fieldSizes = [3]int{2, 4, 8}

// integerOverwrite is havoc primitive 2: pick size s ∈ {2,4,8}, write a
// uniformly random signed s-byte integer at a random offset.
func integerOverwrite(rng *rand.Rand, d []byte) []byte {
	s := fieldSizes[rng.Intn(len(fieldSizes))]
	if len(d) < s {
		return d
	}
	p := rng.Intn(len(d) - s + 1)
	var v int64
	switch s {
	case 2:
		v = int64(int16(rng.Uint32()))
	case 4:
		v = int64(int32(rng.Uint32()))
	default:
		v = rng.Int63()
		if rng.Intn(2) == 0 {
			v = -v
		}
	}
	putSigned(d[p:p+s], v, s)
	return d
}

// interestingOverwrite is havoc primitive 3: pick size s ∈ {2,4,8},
// write a value drawn uniformly from the interesting set for that size.
func interestingOverwrite(rng *rand.Rand, d []byte) []byte {
	s := fieldSizes[rng.Intn(len(fieldSizes))]
	if len(d) < s {
		return d
	}
	p := rng.Intn(len(d) - s + 1)
	var table []int64
	switch s {
	case 2:
		table = interesting16
	case 4:
		table = interesting32
	default:
		table = interesting64
	}
	v := table[rng.Intn(len(table))]
	putSigned(d[p:p+s], v, s)
	return d
}

// chunkCopy is havoc primitive 4: pick len ∈ [2, min(32, |d|/2)],
// source p1, destination p2; d[p2..p2+len] = d[p1..p1+len].
func chunkCopy(rng *rand.Rand, d []byte) []byte {
	maxLen := len(d) / 2
	if maxLen > 32 {
		maxLen = 32
	}
	if maxLen < 2 {
		return d
	}
	length := 2 + rng.Intn(maxLen-2+1)
	p1 := rng.Intn(len(d) - length + 1)
	p2 := rng.Intn(len(d) - length + 1)

	chunk := memory.GetBytes(length)
	defer memory.PutBytes(chunk)
	copy(chunk, d[p1:p1+length])
	copy(d[p2:p2+length], chunk)
	return d
}

// dictionaryInsert is havoc primitive 5: if dict is non-empty, pick a
// token t and offset p, insert t at p (grows the buffer).
func dictionaryInsert(rng *rand.Rand, d []byte, dict Dictionary) []byte {
	if len(dict) == 0 {
		return d
	}
	t := dict[rng.Intn(len(dict))]
	p := rng.Intn(len(d) + 1)

	out := make([]byte, 0, len(d)+len(t))
	out = append(out, d[:p]...)
	out = append(out, t...)
	out = append(out, d[p:]...)
	return out
}

// dictionaryOverwrite is havoc primitive 6: if a token t with |t| ≤ |d|
// exists, pick one and an offset p ∈ [0, |d|-|t|], d[p..p+|t|] = t.
func dictionaryOverwrite(rng *rand.Rand, d []byte, dict Dictionary) []byte {
	var candidates [][]byte
	for _, t := range dict {
		if len(t) <= len(d) {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return d
	}
	t := candidates[rng.Intn(len(candidates))]
	p := rng.Intn(len(d) - len(t) + 1)
	copy(d[p:p+len(t)], t)
	return d
}

// arithmeticWindows maps field size to the spec's per-size delta window
// (spec.md §4.5.1 #7: ±256, ±65536, ±2³²).
var arithmeticWindows = map[int]int64{
	2: 256,
	4: 65536,
	8: 1 << 32,
}

// arithmetic is havoc primitive 7: pick size s ∈ {2,4,8}, offset; treat
// the field as a signed s-byte integer; add a delta drawn uniformly
// from the size's window, saturating to the opposite extreme of the
// window on wraparound.
func arithmetic(rng *rand.Rand, d []byte) []byte {
	s := fieldSizes[rng.Intn(len(fieldSizes))]
	if len(d) < s {
		return d
	}
	p := rng.Intn(len(d) - s + 1)
	window := arithmeticWindows[s]
	delta := rng.Int63n(2*window+1) - window

	v := getSigned(d[p:p+s], s)
	lo, hi := signedRange(s)
	result := v + delta
	if result < lo {
		result = hi
	} else if result > hi {
		result = lo
	}
	putSigned(d[p:p+s], result, s)
	return d
}

// signedRange returns the [lo, hi] representable range of a signed
// s-byte integer.
func signedRange(s int) (lo, hi int64) {
	bits := uint(s * 8)
	hi = 1<<(bits-1) - 1
	lo = -(hi + 1)
	return lo, hi
}

// putSigned writes v's two's-complement representation into buf as s
// little-endian bytes.
func putSigned(buf []byte, v int64, s int) {
	switch s {
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	default:
		binary.LittleEndian.PutUint64(buf, uint64(v))
	}
}

// getSigned reads s little-endian bytes from buf as a signed integer.
func getSigned(buf []byte, s int) int64 {
	switch s {
	case 2:
		return int64(int16(binary.LittleEndian.Uint16(buf)))
	case 4:
		return int64(int32(binary.LittleEndian.Uint32(buf)))
	default:
		return int64(binary.LittleEndian.Uint64(buf))
	}
}
