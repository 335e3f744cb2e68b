package reachability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/9uanhuo/decodetree/internal/builder"
	"github.com/9uanhuo/decodetree/internal/condition"
	"github.com/9uanhuo/decodetree/internal/dtree"
	"github.com/9uanhuo/decodetree/internal/ruleset"
	"github.com/9uanhuo/decodetree/internal/spec"
	"github.com/9uanhuo/decodetree/internal/tristate"
)

func decodeCond(nBits int, bits map[int]int) condition.Condition {
	d := tristate.New(nBits)
	for i, v := range bits {
		d.SetBit(i, v)
	}
	return condition.New(d, tristate.New(1))
}

func newSpec(nBits int, rules []spec.Rule) *spec.Specification {
	s := spec.New(nBits)
	s.Config = spec.DefaultConfig()
	for _, r := range rules {
		s.AddRule(r)
	}
	return s
}

func rootRuleSet(s *spec.Specification) *ruleset.RuleSet {
	initial := condition.New(tristate.New(s.NBits), tristate.New(s.NumFlags()))
	return ruleset.New(s.Rules, initial)
}

func TestAllReachableWhenEveryRuleSelectable(t *testing.T) {
	s := newSpec(4, []spec.Rule{
		{Condition: decodeCond(4, map[int]int{0: 0})},
		{Condition: decodeCond(4, map[int]int{0: 1})},
	})
	n := builder.BuildTree(s, rootRuleSet(s))

	report := Analyze(s, n)
	assert.True(t, report.Reachable())
	assert.Empty(t, report.Unreachable)
	assert.Equal(t, "all rules reachable", report.String())
}

func TestUnreachableRuleAfterUnconditionalPredecessor(t *testing.T) {
	s := newSpec(4, []spec.Rule{
		{Condition: condition.New(tristate.New(4), tristate.New(1))},
		{Condition: decodeCond(4, map[int]int{0: 1})},
	})
	rs := rootRuleSet(s)
	require.Len(t, rs.Entries, 1, "the ruleset itself prunes the unreachable successor")

	n := builder.BuildTree(s, rs)
	report := Analyze(s, n)

	require.Len(t, report.Unreachable, 1)
	assert.Same(t, &s.Rules[1], report.Unreachable[0])
	assert.Contains(t, report.String(), "unreachable")
}

func TestChildReferenceTargetCountsAsReachingBothRules(t *testing.T) {
	// Mirrors builder's TestSwitchChildReferenceDedup scenario: rule0's
	// only live representation in the tree is the literal case at index
	// 0; a ChildReference(0) in another case still exercises it via the
	// original node, which Analyze must follow to mark rule0.
	s := newSpec(2, []spec.Rule{
		{Condition: decodeCond(2, map[int]int{0: 0})},
		{Condition: decodeCond(2, map[int]int{0: 1, 1: 0})},
		{Condition: decodeCond(2, map[int]int{0: 1, 1: 1})},
	})
	s.Config.MinSwitchRules = 3

	n := builder.BuildTree(s, rootRuleSet(s))
	require.Equal(t, dtree.KindSwitch, n.Kind)

	report := Analyze(s, n)
	assert.True(t, report.Reachable())
}

func TestRepeatedAnalyzeDoesNotAccumulateStaleMarks(t *testing.T) {
	s := newSpec(4, []spec.Rule{
		{Condition: decodeCond(4, map[int]int{0: 0})},
		{Condition: decodeCond(4, map[int]int{0: 1})},
	})
	n := builder.BuildTree(s, rootRuleSet(s))

	first := Analyze(s, n)
	require.True(t, first.Reachable())

	// Drop the second rule's only path by hand-building a tree that
	// never selects it, then re-analyze: Mark from the first call must
	// not leak through.
	onlyFirst := dtree.NewRule(&s.Rules[0])
	second := Analyze(s, onlyFirst)
	require.Len(t, second.Unreachable, 1)
	assert.Same(t, &s.Rules[1], second.Unreachable[0])
}
