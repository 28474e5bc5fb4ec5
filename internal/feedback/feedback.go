// Package feedback implements the pure, stateless observation functions
// of spec.md §4.2: classifying a wait-style status code, and diffing a
// bitmap's covered edges against the global coverage set.
package feedback

import "github.com/mini-lop/minilop/pkg/types"

// timeoutStatus is the harness-injected synthetic status for a
// fuzzer-induced timeout (spec.md §4.1, §6).
const timeoutStatus = 9

// crashSignals is the POSIX wait-style signal set spec.md §4.2 and §6
// classify as a crash when present in the low 7 bits of status.
var crashSignals = map[int]struct{}{
	1: {}, 2: {}, 3: {}, 4: {}, 6: {}, 7: {}, 8: {}, 9: {},
	11: {}, 13: {}, 14: {}, 15: {}, 24: {}, 25: {}, 31: {},
}

// ClassifyStatus implements spec.md §4.2's classify_status.
func ClassifyStatus(status int) types.Status {
	if status == timeoutStatus {
		return types.StatusTimeout
	}
	if status&0x80 != 0 {
		return types.StatusCrash
	}
	if _, ok := crashSignals[status&0x7f]; ok {
		return types.StatusCrash
	}
	return types.StatusOK
}

// ObserveCoverage implements spec.md §4.2's observe_coverage: it reports
// whether the bitmap's currently-covered edges are not already a subset
// of the global coverage set, and returns those current edges.
func ObserveCoverage(currentEdges, globalCoverage types.EdgeSet) (newEdgeFound bool, edges types.EdgeSet) {
	return !currentEdges.SubsetOf(globalCoverage), currentEdges
}

// NewEdges returns the edges in current that are not yet in global,
// measured before global is updated — this is exactly the quantity
// spec.md §4.5.3 calls new_edges_count when used with len().
func NewEdges(current, global types.EdgeSet) types.EdgeSet {
	fresh := make(types.EdgeSet)
	for e := range current {
		if _, ok := global[e]; !ok {
			fresh[e] = struct{}{}
		}
	}
	return fresh
}
