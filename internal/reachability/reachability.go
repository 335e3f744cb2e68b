// Package reachability implements the external reachability pass
// spec.md §9 describes: a post-build check that every rule the
// specification declares is actually selected by some path through
// the built tree. It is deliberately outside the tree-building core
// (spec.md §1's "out of scope" list) and never affects a build's
// outcome — only the driver's warnings.
package reachability

import (
	"fmt"
	"strings"

	"github.com/9uanhuo/decodetree/internal/dtree"
	"github.com/9uanhuo/decodetree/internal/spec"
)

// Report is the result of one Analyze call: the rules, in declaration
// order, that no path through the tree ever selects.
type Report struct {
	Unreachable []*spec.Rule
}

// Reachable reports whether the pass found every rule reachable.
func (r Report) Reachable() bool { return len(r.Unreachable) == 0 }

// String renders one warning line per unreachable rule, in the style
// the driver prints to stderr: the source line number, since Rule.Line
// exists exactly for this diagnostic purpose.
func (r Report) String() string {
	if r.Reachable() {
		return "all rules reachable"
	}
	var b strings.Builder
	for _, rule := range r.Unreachable {
		fmt.Fprintf(&b, "warning: rule at line %d is unreachable (%s)\n", rule.Line, rule.Condition.Raw())
	}
	return strings.TrimRight(b.String(), "\n")
}

// Analyze walks root pre-order, setting Mark on every rule a KindRule
// node references, then reports every rule in s.Rules left unmarked.
// It resets every rule's Mark first, so repeated calls over a
// rebuilt tree don't accumulate stale marks.
func Analyze(s *spec.Specification, root *dtree.Node) Report {
	for i := range s.Rules {
		s.Rules[i].Mark = false
	}
	dtree.Touch(root, func(n *dtree.Node) {
		if n.Kind == dtree.KindRule && n.Rule != nil {
			n.Rule.Mark = true
		}
	})

	var unreachable []*spec.Rule
	for i := range s.Rules {
		if !s.Rules[i].Mark {
			unreachable = append(unreachable, &s.Rules[i])
		}
	}
	return Report{Unreachable: unreachable}
}
