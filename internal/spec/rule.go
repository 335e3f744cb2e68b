package spec

import "github.com/9uanhuo/decodetree/internal/condition"

// Rule is one pattern-rule of a specification: a condition to match, a
// code fragment to emit, a relative weight, and the line it was parsed
// from (diagnostic only). Mark is a side-channel used exclusively by
// reachability analysis; the core never reads it.
type Rule struct {
	Condition condition.Condition
	Code      string
	Weight    int
	Line      int

	Mark bool
}

// DefaultWeight is used when a rule omits the "$weight" suffix.
const DefaultWeight = 1
