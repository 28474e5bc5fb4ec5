package mutator

import (
	"math/rand"

	"github.com/mini-lop/minilop/pkg/types"
)

// epsilon is the bandit's explore probability (spec.md §4.5.3).
const epsilon = 0.1

// crashWeight is the weight each crash carries against one unit of
// coverage reward when ranking an operator (spec.md §4.5.3:
// reward + 10·crashes).
const crashWeight = 10

// operators is the fixed two-armed operator set of spec.md §4.5.3, in
// the order ties are broken: havoc first.
var operators = [2]types.Operator{types.Havoc, types.Splice}

// Bandit implements spec.md §4.5.3's epsilon-greedy operator selection
// over the two top-level mutation operators. Like the scheduler and
// seed store, it carries no lock: it is owned by the single fuzzing
// goroutine (spec.md §5).
type Bandit struct {
	rng   *rand.Rand
	stats map[types.Operator]*types.OperatorStats
}

// NewBandit returns a Bandit with zeroed stats for both operators.
func NewBandit(rng *rand.Rand) *Bandit {
	stats := make(map[types.Operator]*types.OperatorStats, len(operators))
	for _, op := range operators {
		stats[op] = &types.OperatorStats{}
	}
	return &Bandit{rng: rng, stats: stats}
}

// SelectOperator implements select_operator: with probability epsilon
// a uniformly random operator, otherwise the operator maximising
// (coverage_reward + 10·crashes) / max(1, uses), ties favouring havoc.
func (b *Bandit) SelectOperator() types.Operator {
	if b.rng.Float64() < epsilon {
		return operators[b.rng.Intn(len(operators))]
	}
	return b.selectExploit()
}

// selectExploit returns the operator maximising score, ties favouring
// havoc (operators[0]) since the loop only replaces best on a strict
// improvement.
func (b *Bandit) selectExploit() types.Operator {
	best := operators[0]
	bestScore := b.score(best)
	for _, op := range operators[1:] {
		if s := b.score(op); s > bestScore {
			best = op
			bestScore = s
		}
	}
	return best
}

func (b *Bandit) score(op types.Operator) float64 {
	s := b.stats[op]
	uses := s.Uses
	if uses < 1 {
		uses = 1
	}
	return float64(s.CoverageReward+crashWeight*s.Crashes) / float64(uses)
}

// UpdateRewards implements update_rewards: increments uses, adds
// newEdgesCount to the coverage reward, and increments crashes if
// crashed. newEdgesCount must be measured before the global coverage
// set is updated (spec.md §4.5.3).
func (b *Bandit) UpdateRewards(op types.Operator, newEdgesCount int, crashed bool) {
	s := b.stats[op]
	s.Uses++
	s.CoverageReward += int64(newEdgesCount)
	if crashed {
		s.Crashes++
	}
}

// Stats returns the operator's current stat snapshot.
func (b *Bandit) Stats(op types.Operator) types.OperatorStats {
	return *b.stats[op]
}
