// Package emitter renders a built decoder tree (internal/dtree) to Go
// source: a stand-in for the "source text in a C-family language" the
// specification describes (spec.md §1/§6). Its emit/indent/withIndent
// closures and its ChildReference-as-shared-case handling are
// adaptations of compiler.Compile / wizcompiler.Compile.
package emitter

import (
	"fmt"
	"io"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/9uanhuo/decodetree/internal/bitfield"
	"github.com/9uanhuo/decodetree/internal/condition"
	"github.com/9uanhuo/decodetree/internal/dtree"
	"github.com/9uanhuo/decodetree/internal/logx"
	"github.com/9uanhuo/decodetree/internal/spec"
)

// Options controls the shape of the emitted file.
type Options struct {
	Package  string // defaults to "decodetree"
	FuncName string // defaults to "Decode"
}

func (o Options) withDefaults() Options {
	if o.Package == "" {
		o.Package = "decodetree"
	}
	if o.FuncName == "" {
		o.FuncName = "Decode"
	}
	return o
}

type indentCallback func()

// Emit walks root and writes a complete Go source file to w: package
// clause, the spec's file/enum prologues and epilogues passed through
// verbatim, and a single decode function built from the tree. Counts
// and timing are reported the way compiler.Compile reports them.
func Emit(w io.Writer, s *spec.Specification, root *dtree.Node, opts Options, logf logx.Func) error {
	if logf == nil {
		logf = logx.Noop
	}
	opts = opts.withDefaults()
	cfg := s.Config
	startTime := time.Now()

	indentLevel := s.RootIndentation
	oneIndent := "\t"

	indent := func() { indentLevel++ }
	outdent := func() { indentLevel-- }

	var writeErr error
	var fSize uint64
	emit := func(format string, args ...interface{}) {
		if writeErr != nil {
			return
		}
		var line strings.Builder
		if format != "" {
			for i := 0; i < indentLevel; i++ {
				line.WriteString(oneIndent)
			}
			fmt.Fprintf(&line, format, args...)
		}
		line.WriteByte('\n')
		n, err := io.WriteString(w, line.String())
		fSize += uint64(n)
		if err != nil {
			writeErr = err
		}
	}

	withIndent := func(f indentCallback) {
		indent()
		f()
		outdent()
	}

	emit("// Code generated by decodetree; DO NOT EDIT.")
	emit("")
	if s.FileStart != "" {
		emit("%s", s.FileStart)
	}
	emit("package %s", opts.Package)
	emit("")

	if s.EnumStart != "" || s.EnumEnd != "" {
		emitEnum(emit, withIndent, s)
	}

	emitDecodeFunc(emit, withIndent, s, root, opts, cfg)

	if s.FileEnd != "" {
		emit("%s", s.FileEnd)
	}

	if writeErr != nil {
		return errors.Wrap(writeErr, "writing generated source")
	}

	logf("emitted %d rule(s) in %s, %s generated", len(s.Rules), time.Since(startTime), humanize.IBytes(fSize))
	return nil
}

func emitEnum(emit func(string, ...interface{}), withIndent func(indentCallback), s *spec.Specification) {
	if s.EnumStart != "" {
		emit("%s", s.EnumStart)
	}
	for i, r := range s.Rules {
		withIndent(func() {
			emit("// rule %d: %s", i, r.Condition.Raw())
		})
	}
	if s.EnumEnd != "" {
		emit("%s", s.EnumEnd)
	}
	emit("")
}

func emitDecodeFunc(emit func(string, ...interface{}), withIndent func(indentCallback), s *spec.Specification, root *dtree.Node, opts Options, cfg spec.Config) {
	emit("func %s(word uint64) {", opts.FuncName)
	withIndent(func() {
		if s.FetchWord != "" {
			emit("%s", s.FetchWord)
		}
		if s.HasFlags() {
			emit("var flags [%d]bool", s.NumFlags())
		}
		if s.FetchFlags != "" {
			emit("%s", s.FetchFlags)
		}
		emit("")
		emitNode(emit, withIndent, s, cfg, root)
	})
	emit("}")
	emit("")
}

func emitNode(emit func(string, ...interface{}), withIndent func(indentCallback), s *spec.Specification, cfg spec.Config, n *dtree.Node) {
	switch n.Kind {
	case dtree.KindEmpty:
		if cfg.InsertReturns {
			emit("return")
		}

	case dtree.KindRule:
		if !cfg.NoPrettyOutput {
			if pretty := n.Rule.Condition.Pretty(s); pretty != "" {
				emit("// %s", pretty)
			}
		}
		if n.Rule.Code != "" {
			emit("%s", n.Rule.Code)
		}
		if cfg.InsertReturns {
			emit("return")
		}
		if !cfg.NoBreakAfterRule {
			emit("")
		}

	case dtree.KindSequence:
		for _, c := range n.Children {
			emitNode(emit, withIndent, s, cfg, c)
		}

	case dtree.KindIfElse:
		pred := renderPredicate(n.IfCond, s)
		emit("if %s {", pred)
		withIndent(func() { emitNode(emit, withIndent, s, cfg, n.Then) })
		if n.Else.Kind != dtree.KindEmpty {
			emit("} else {")
			withIndent(func() { emitNode(emit, withIndent, s, cfg, n.Else) })
		}
		emit("}")

	case dtree.KindSwitch:
		emitSwitch(emit, withIndent, s, cfg, n)

	case dtree.KindChildReference:
		panic("emitter: bare ChildReference outside a switch")

	default:
		panic(fmt.Sprintf("emitter: unhandled node kind %d", n.Kind))
	}
}

// emitSwitch groups switch-case values whose body is literally the
// same subtree (a ChildReference collapses to its target's owning
// group) into one Go "case a, b, c:" clause, emitting the shared body
// exactly once — the Go-idiomatic analogue of the goto-based
// fallthrough the teacher's compiler used for its own target.
func emitSwitch(emit func(string, ...interface{}), withIndent func(indentCallback), s *spec.Specification, cfg spec.Config, n *dtree.Node) {
	owner := make([]int, len(n.Cases))
	for i, c := range n.Cases {
		if c.Kind == dtree.KindChildReference {
			owner[i] = c.RefIndex
		} else {
			owner[i] = i
		}
	}
	groups := make(map[int][]int)
	var order []int
	for i := range n.Cases {
		o := owner[i]
		if _, seen := groups[o]; !seen {
			order = append(order, o)
		}
		groups[o] = append(groups[o], i)
	}

	expr, err := renderSwitchExpr(n.Expr)
	if err != nil {
		panic(err)
	}
	emit("switch %s {", expr)
	withIndent(func() {
		for _, o := range order {
			values := groups[o]
			strs := make([]string, len(values))
			for i, v := range values {
				strs[i] = fmt.Sprintf("%d", v)
			}
			emit("case %s:", strings.Join(strs, ", "))
			withIndent(func() { emitNode(emit, withIndent, s, cfg, n.Cases[o]) })
		}
	})
	emit("}")
}

func renderPredicate(c condition.Condition, s *spec.Specification) string {
	var terms []string
	for i := 0; i < c.Decode.Len(); i++ {
		if !c.Decode.IsDefined(i) {
			continue
		}
		terms = append(terms, fmt.Sprintf("(word>>%d)&1==%d", i, c.Decode.GetValueBit(i)))
	}
	for i := 0; i < c.Flags.Len(); i++ {
		if !c.Flags.IsDefined(i) {
			continue
		}
		if c.Flags.GetValueBit(i) == 1 {
			terms = append(terms, fmt.Sprintf("flags[%d]", i))
		} else {
			terms = append(terms, fmt.Sprintf("!flags[%d]", i))
		}
	}
	if len(terms) == 0 {
		return "true"
	}
	return strings.Join(terms, " && ")
}

// renderSwitchExpr builds the Go expression that extracts expr's value
// from word: a single shift-and-mask for a Bitfield, or an OR of
// independently shifted chunks — one per field, shifted to the offset
// GetBitsForValue would have placed it at — for a BitfieldSet.
func renderSwitchExpr(expr bitfield.Switchable) (string, error) {
	switch e := expr.(type) {
	case bitfield.Bitfield:
		mask := uint64(1)<<uint(e.Width()) - 1
		return fmt.Sprintf("(word>>%d)&0x%x", e.Start, mask), nil
	case bitfield.BitfieldSet:
		var parts []string
		shift := 0
		for _, f := range e.Fields {
			mask := uint64(1)<<uint(f.Width()) - 1
			parts = append(parts, fmt.Sprintf("(((word>>%d)&0x%x)<<%d)", f.Start, mask, shift))
			shift += f.Width()
		}
		return strings.Join(parts, "|"), nil
	default:
		return "", errors.Errorf("emitter: unsupported switchable type %T", expr)
	}
}
