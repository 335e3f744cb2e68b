// Package ruleset implements the RuleSet / RuleSetEntry projection
// described in spec.md §3/§4.3: rules narrowed under an accumulating
// condition, preserving the first-exact-match-prunes invariant that
// keeps the rule list a sound priority list at every depth of the
// decoder tree.
package ruleset

import (
	"github.com/9uanhuo/decodetree/internal/condition"
	"github.com/9uanhuo/decodetree/internal/spec"
)

// Entry wraps a rule together with its effective condition: the
// portion of the rule's condition not yet established by the path
// taken through the tree.
type Entry struct {
	Rule      *spec.Rule
	Effective condition.Condition
}

// RuleSet is an accumulating condition plus the list of entries it
// admits.
type RuleSet struct {
	Condition condition.Condition
	Entries   []Entry
}

// NumRules is the number of admitted entries.
func (rs *RuleSet) NumRules() int { return len(rs.Entries) }

// New builds the root rule set from every rule in rules whose
// condition is compatible with initial (an empty decode mask plus the
// caller-supplied fixed-flag mask).
func New(rules []spec.Rule, initial condition.Condition) *RuleSet {
	rs := &RuleSet{Condition: initial}
	for i := range rules {
		r := &rules[i]
		if !r.Condition.IsCompatible(initial) {
			continue
		}
		eff := r.Condition.SubtractIntersection(initial)
		rs.Entries = append(rs.Entries, Entry{Rule: r, Effective: eff})
		if eff.IsEmpty() {
			break
		}
	}
	return rs
}

// Derive builds a child RuleSet whose condition is
// union(parent.Condition, childCond), populated by filtering parent
// entries: keep each entry whose underlying rule condition is
// compatible with the child condition, stopping immediately after
// admitting any entry whose effective condition under the child is
// empty (an unconditional match — later rules are unreachable in this
// branch).
func (rs *RuleSet) Derive(childCond condition.Condition) *RuleSet {
	newCond := rs.Condition.Union(childCond)
	child := &RuleSet{Condition: newCond}
	for _, e := range rs.Entries {
		if !e.Rule.Condition.IsCompatible(newCond) {
			continue
		}
		eff := e.Rule.Condition.SubtractIntersection(newCond)
		child.Entries = append(child.Entries, Entry{Rule: e.Rule, Effective: eff})
		if eff.IsEmpty() {
			break
		}
	}
	return child
}

// DeriveExcludingLast produces a child with the same condition but
// omitting the parent's last entry; used by the fallback-sequence
// optimisation.
func (rs *RuleSet) DeriveExcludingLast() *RuleSet {
	child := &RuleSet{Condition: rs.Condition}
	if len(rs.Entries) > 0 {
		child.Entries = append(child.Entries, rs.Entries[:len(rs.Entries)-1]...)
	}
	return child
}
