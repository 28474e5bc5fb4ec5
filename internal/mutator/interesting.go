package mutator

// Interesting value sets for the interesting-value-overwrite primitive
// (spec.md §4.5.1, §6). Values are stored as int64 regardless of target
// width — some entries (e.g. 65535 in the 16-bit set) are the bit
// pattern of a value that doesn't fit a signed interpretation at that
// width, so truncation to the field's byte width happens at write time,
// not at table-definition time. These are the spec's own tables, not
// the teacher's interesting8/16/32 lists: the magic 32-bit values
// (-100663046, 100663046) are specific literals to preserve exactly,
// not boundary heuristics.
var (
	interesting16 = []int64{0, -32768, 32767, -1, 1, -128, 128, 255, -256, 256, 65535}
	interesting32 = []int64{0, -2147483648, 2147483647, -1, 1, -32768, 32767, -65536, 65535, -100663046, 100663046}
	interesting64 = []int64{0, -1, 1, -4294967296, 4294967296, -2147483648, 2147483647, 9223372036854775807, -9223372036854775808}
)
