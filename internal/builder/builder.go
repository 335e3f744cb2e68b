// Package builder implements the ordered strategy cascade (spec.md
// §4.7) that turns a RuleSet into a decoder tree.
package builder

import (
	"github.com/9uanhuo/decodetree/internal/bitfield"
	"github.com/9uanhuo/decodetree/internal/condition"
	"github.com/9uanhuo/decodetree/internal/dtree"
	"github.com/9uanhuo/decodetree/internal/logx"
	"github.com/9uanhuo/decodetree/internal/ruleset"
	"github.com/9uanhuo/decodetree/internal/spec"
	"github.com/9uanhuo/decodetree/internal/tristate"
)

// Builder holds everything the strategy cascade needs: the
// specification (for NBits and Config) and an optional logger.
type Builder struct {
	Spec *spec.Specification
	Logf logx.Func
}

// New returns a Builder over spec, with a logger that is verbose when
// s.Config.Verbose is set and a no-op otherwise.
func New(s *spec.Specification) *Builder {
	return &Builder{Spec: s, Logf: logx.New(s.Config.Verbose)}
}

// state threads the counters inherited from the parent builder call:
// switchNestingDepth and totalSwitchBits, both zero at the root.
type state struct {
	switchNestingDepth int
	totalSwitchBits    int
}

// BuildTree is the package's external entry point (spec.md §6): it
// consumes a RuleSet already narrowed by any externally fixed flags
// and returns the decoder tree root.
func BuildTree(s *spec.Specification, rs *ruleset.RuleSet) *dtree.Node {
	b := New(s)
	return b.build(rs, state{})
}

func (b *Builder) cfg() spec.Config { return b.Spec.Config }

func (b *Builder) build(rs *ruleset.RuleSet, st state) *dtree.Node {
	b.Logf("build: %d candidate rule(s) at depth %d", rs.NumRules(), st.switchNestingDepth)
	if n := b.tryEmpty(rs); n != nil {
		b.Logf("  -> empty")
		return n
	}
	if n := b.tryFallbackSequence(rs, st); n != nil {
		b.Logf("  -> fallback sequence")
		return n
	}
	if n := b.tryLiftFlags(rs, st); n != nil {
		b.Logf("  -> lifted flags")
		return n
	}
	if n := b.tryLiftDecodeBits(rs, st); n != nil {
		b.Logf("  -> lifted decode bits")
		return n
	}
	if n := b.tryInvertedPair(rs); n != nil {
		b.Logf("  -> inverted pair")
		return n
	}
	if n := b.trySwitch(rs, st); n != nil {
		b.Logf("  -> switch over %d bit(s)", n.Expr.NumBits())
		return n
	}
	if n := b.trySequence(rs); n != nil {
		b.Logf("  -> sequence")
		return n
	}
	b.Logf("  -> if-chain")
	return b.ifChain(rs)
}

// 1. Empty.
func (b *Builder) tryEmpty(rs *ruleset.RuleSet) *dtree.Node {
	if rs.NumRules() == 0 {
		return dtree.Empty()
	}
	return nil
}

// 2. Fallback sequence.
func (b *Builder) tryFallbackSequence(rs *ruleset.RuleSet, st state) *dtree.Node {
	if !b.cfg().AllowSequence || rs.NumRules() < 2 {
		return nil
	}
	last := rs.Entries[len(rs.Entries)-1]
	if !last.Effective.IsEmpty() {
		return nil
	}

	sub := rs.DeriveExcludingLast()
	subtree := b.build(sub, st)
	if subtree.Kind != dtree.KindSequence {
		subtree = dtree.NewSequence(subtree)
	}
	subtree.Children = append(subtree.Children, dtree.NewRule(last.Rule))
	return subtree
}

// 3. Lift flags.
func (b *Builder) tryLiftFlags(rs *ruleset.RuleSet, st state) *dtree.Node {
	if rs.NumRules() == 0 {
		return nil
	}
	first := rs.Entries[0].Effective.Flags
	if first.IsEmpty() {
		return nil
	}
	for _, e := range rs.Entries[1:] {
		if !e.Effective.Flags.Equal(first) {
			return nil
		}
	}

	cond := condition.New(tristate.New(b.Spec.NBits), first)
	child := rs.Derive(cond)
	subtree := b.build(child, st)
	return dtree.NewIfElse(cond, subtree, dtree.Empty())
}

// 4. Lift decode bits.
func (b *Builder) tryLiftDecodeBits(rs *ruleset.RuleSet, st state) *dtree.Node {
	if rs.NumRules() == 0 {
		return nil
	}
	first := rs.Entries[0].Effective.Decode
	if first.IsEmpty() {
		return nil
	}
	for _, e := range rs.Entries[1:] {
		if !e.Effective.Decode.Equal(first) {
			return nil
		}
	}

	cond := condition.New(first, tristate.New(b.Spec.NumFlags()))
	child := rs.Derive(cond)
	subtree := b.build(child, st)
	return dtree.NewIfElse(cond, subtree, dtree.Empty())
}

// 5. Inverted pair.
func (b *Builder) tryInvertedPair(rs *ruleset.RuleSet) *dtree.Node {
	if rs.NumRules() != 2 {
		return nil
	}
	e0, e1 := rs.Entries[0], rs.Entries[1]
	if !e0.Effective.Flags.IsEmpty() || !e1.Effective.Flags.IsEmpty() {
		return nil
	}
	bit0, ok0 := onlyDefinedBit(e0.Effective.Decode)
	bit1, ok1 := onlyDefinedBit(e1.Effective.Decode)
	if !ok0 || !ok1 || bit0 != bit1 {
		return nil
	}
	return dtree.NewIfElse(e0.Effective, dtree.NewRule(e0.Rule), dtree.NewRule(e1.Rule))
}

func onlyDefinedBit(a tristate.Array) (int, bool) {
	if a.NumSignificantBits() != 1 {
		return 0, false
	}
	for i := 0; i < a.Len(); i++ {
		if a.IsDefined(i) {
			return i, true
		}
	}
	return 0, false
}

// 6. Switch.
func (b *Builder) trySwitch(rs *ruleset.RuleSet, st state) *dtree.Node {
	if !b.isSwitchPermitted(rs, st) {
		return nil
	}

	cfg := b.cfg()
	maxBits := cfg.MaxSwitchBits
	if budget := cfg.MaxTotalSwitchBits - st.totalSwitchBits; budget < maxBits {
		maxBits = budget
	}
	if maxBits < cfg.MinSwitchBits {
		return nil
	}

	nBits := b.Spec.NBits
	analyser := bitfield.NewAnalyser(rs, nBits, cfg.BitFlagCoef)
	ideal := bitfield.IdealWidth(rs.NumRules())

	single, singleOK := analyser.FindBestBitfield(cfg.MinSwitchBits, maxBits, ideal, rs.Condition.Decode, cfg.BitfieldLengthDeltaPower)
	set, setOK := analyser.FindBestBitfieldSet(cfg.MinSwitchBits, maxBits, ideal, cfg.MaxSwitchSplits, cfg.BitfieldSetCoef, cfg.BitfieldSetLengthDeltaPower)

	var expr bitfield.Switchable
	switch {
	case singleOK && setOK:
		if set.Quality() > single.Quality() {
			expr = set
		} else {
			expr = single
		}
	case singleOK:
		expr = single
	case setOK:
		expr = set
	default:
		return nil
	}

	sw := dtree.NewSwitch(expr)
	childState := state{
		switchNestingDepth: st.switchNestingDepth + 1,
		totalSwitchBits:    st.totalSwitchBits + expr.NumBits(),
	}

	for v := 0; v < expr.NumValues(); v++ {
		bits := expr.GetBitsForValue(nBits, uint64(v))
		childCond := condition.New(bits, tristate.New(b.Spec.NumFlags()))
		child := rs.Derive(childCond)
		caseTree := b.build(child, childState)

		reused := false
		for j := 0; j < v; j++ {
			if sw.Cases[j].Equal(caseTree) {
				sw.Cases[v] = dtree.NewChildReference(j)
				reused = true
				break
			}
		}
		if !reused {
			sw.Cases[v] = caseTree
		}
	}

	return sw
}

func (b *Builder) isSwitchPermitted(rs *ruleset.RuleSet, st state) bool {
	cfg := b.cfg()
	return cfg.AllowSwitch &&
		rs.NumRules() >= cfg.MinSwitchRules &&
		st.switchNestingDepth <= cfg.MaxSwitchNestingDepth
}

// 7. Sequence.
func (b *Builder) trySequence(rs *ruleset.RuleSet) *dtree.Node {
	if !b.cfg().AllowSequence || rs.NumRules() < 2 {
		return nil
	}
	children := make([]*dtree.Node, len(rs.Entries))
	for i, e := range rs.Entries {
		children[i] = dtree.NewIfElse(e.Effective, dtree.NewRule(e.Rule), dtree.Empty())
	}
	return dtree.NewSequence(children...)
}

// 8. If-chain (always succeeds).
func (b *Builder) ifChain(rs *ruleset.RuleSet) *dtree.Node {
	noOptimise := b.cfg().NoOptimiseIfConditionNodes
	result := dtree.Empty()
	for i := len(rs.Entries) - 1; i >= 0; i-- {
		e := rs.Entries[i]
		if e.Effective.IsEmpty() {
			result = dtree.NewRule(e.Rule)
			continue
		}
		cond := e.Effective
		if noOptimise {
			cond = e.Rule.Condition
		}
		result = dtree.NewIfElse(cond, dtree.NewRule(e.Rule), result)
	}
	return result
}
