package emitter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/9uanhuo/decodetree/internal/bitfield"
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

func TestEmitRuleWithPrettyComment(t *testing.T) {
	s := newSpec(4, nil)
	rule := spec.Rule{Condition: decodeCond(4, map[int]int{0: 1}), Code: "handleIt()"}
	n := dtree.NewRule(&rule)

	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, s, n, Options{}, nil))

	out := buf.String()
	assert.Contains(t, out, "package decodetree")
	assert.Contains(t, out, "func Decode(word uint64) {")
	assert.Contains(t, out, "// ...1")
	assert.Contains(t, out, "handleIt()")
}

func TestEmitRuleWithoutCodeOmitsLine(t *testing.T) {
	s := newSpec(4, nil)
	rule := spec.Rule{Condition: decodeCond(4, map[int]int{0: 1})}
	n := dtree.NewRule(&rule)

	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, s, n, Options{}, nil))
	assert.NotContains(t, buf.String(), "\n\n\n")
}

func TestNoPrettyOutputSuppressesComment(t *testing.T) {
	s := newSpec(4, nil)
	s.Config.NoPrettyOutput = true
	rule := spec.Rule{Condition: decodeCond(4, map[int]int{0: 1}), Code: "x()"}
	n := dtree.NewRule(&rule)

	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, s, n, Options{}, nil))
	assert.NotContains(t, buf.String(), "// ...1")
}

func TestInsertReturnsAddsReturnAfterRule(t *testing.T) {
	s := newSpec(4, nil)
	s.Config.InsertReturns = true
	rule := spec.Rule{Code: "x()"}
	n := dtree.NewRule(&rule)

	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, s, n, Options{}, nil))
	assert.Contains(t, buf.String(), "x()\n\treturn")
}

func TestNoBreakAfterRuleSuppressesBlankLine(t *testing.T) {
	s := newSpec(4, nil)
	s.Config.NoBreakAfterRule = true
	rule := spec.Rule{Code: "x()"}
	n := dtree.NewSequence(dtree.NewRule(&rule), dtree.NewRule(&rule))

	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, s, n, Options{}, nil))
	assert.NotContains(t, buf.String(), "x()\n\n")
}

func TestEmitIfElse(t *testing.T) {
	s := newSpec(4, nil)
	then := dtree.NewRule(&spec.Rule{Code: "thenBranch()"})
	els := dtree.NewRule(&spec.Rule{Code: "elseBranch()"})
	n := dtree.NewIfElse(decodeCond(4, map[int]int{2: 1}), then, els)

	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, s, n, Options{}, nil))

	out := buf.String()
	assert.Contains(t, out, "if (word>>2)&1==1 {")
	assert.Contains(t, out, "thenBranch()")
	assert.Contains(t, out, "} else {")
	assert.Contains(t, out, "elseBranch()")
}

func TestEmitIfElseWithFlags(t *testing.T) {
	s := spec.New(4)
	_, err := s.AddFlag("Thumb")
	require.NoError(t, err)
	cond := condition.New(tristate.New(4), buildFlags(t, s, map[string]bool{"Thumb": false}))
	n := dtree.NewIfElse(cond, dtree.NewRule(&spec.Rule{Code: "a()"}), dtree.Empty())

	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, s, n, Options{}, nil))
	assert.Contains(t, buf.String(), "if !flags[0] {")
}

func buildFlags(t *testing.T, s *spec.Specification, vals map[string]bool) tristate.Array {
	t.Helper()
	a := tristate.New(s.NumFlags())
	for name, v := range vals {
		f, ok := s.GetFlagByName(name)
		require.True(t, ok)
		bit := 0
		if v {
			bit = 1
		}
		a.SetBit(f.Index, bit)
	}
	return a
}

func TestEmitSwitchGroupsChildReferencesIntoSharedCase(t *testing.T) {
	s := newSpec(2, []spec.Rule{
		{Condition: decodeCond(2, map[int]int{0: 0}), Code: "ra()"},
		{Condition: decodeCond(2, map[int]int{0: 1, 1: 0}), Code: "rb()"},
		{Condition: decodeCond(2, map[int]int{0: 1, 1: 1}), Code: "rc()"},
	})
	s.Config.MinSwitchRules = 3

	n := builder.BuildTree(s, rootRuleSet(s))
	require.Equal(t, dtree.KindSwitch, n.Kind)

	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, s, n, Options{}, nil))

	out := buf.String()
	assert.Contains(t, out, "switch (word>>0)&0x3 {")
	assert.Contains(t, out, "case 0, 2:")
	assert.Contains(t, out, "ra()")
	assert.Contains(t, out, "case 1:")
	assert.Contains(t, out, "rb()")
	assert.Contains(t, out, "case 3:")
	assert.Contains(t, out, "rc()")
	assert.Equal(t, 1, strings.Count(out, "ra()"))
}

func TestEmitSwitchOverBitfieldSet(t *testing.T) {
	set := bitfield.NewBitfieldSet([]bitfield.Bitfield{
		bitfield.NewBitfield(0, 0, 1),
		bitfield.NewBitfield(4, 4, 1),
	}, 1)
	n := dtree.NewSwitch(set)
	for i := range n.Cases {
		n.Cases[i] = dtree.NewRule(&spec.Rule{Code: "x()"})
	}

	s := newSpec(8, nil)
	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, s, n, Options{}, nil))
	assert.Contains(t, buf.String(), "switch (((word>>0)&0x1)<<0)|(((word>>4)&0x1)<<1) {")
}

func TestFileStartAndEndPassThroughVerbatim(t *testing.T) {
	s := newSpec(4, nil)
	s.FileStart = "//go:build ignore"
	s.FileEnd = "// trailer"
	n := dtree.Empty()

	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, s, n, Options{}, nil))

	out := buf.String()
	assert.Contains(t, out, "//go:build ignore")
	assert.Contains(t, out, "// trailer")
}

func TestFetchWordAndFlagsEmittedBeforeBody(t *testing.T) {
	s := newSpec(4, nil)
	s.FetchWord = "word = nextWord()"
	s.FetchFlags = "flags = currentFlags()"
	n := dtree.Empty()

	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, s, n, Options{}, nil))

	out := buf.String()
	assert.Contains(t, out, "word = nextWord()")
	assert.Contains(t, out, "flags = currentFlags()")
}

func TestEnumFragmentsEmittedWhenPresent(t *testing.T) {
	s := newSpec(4, []spec.Rule{
		{Condition: decodeCond(4, map[int]int{0: 1})},
	})
	s.EnumStart = "const ("
	s.EnumEnd = ")"
	n := dtree.Empty()

	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, s, n, Options{}, nil))

	out := buf.String()
	assert.Contains(t, out, "const (")
	assert.Contains(t, out, ")")
}

func TestOptionsOverridePackageAndFuncName(t *testing.T) {
	s := newSpec(4, nil)
	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, s, dtree.Empty(), Options{Package: "foo", FuncName: "Match"}, nil))
	out := buf.String()
	assert.Contains(t, out, "package foo")
	assert.Contains(t, out, "func Match(word uint64) {")
}

func TestEmptyNodeWithInsertReturnsEmitsBareReturn(t *testing.T) {
	s := newSpec(4, nil)
	s.Config.InsertReturns = true
	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, s, dtree.Empty(), Options{}, nil))
	assert.Contains(t, buf.String(), "return")
}
