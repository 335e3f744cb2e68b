// Package condition implements the pairing of instruction-bit and
// context-flag tristate constraints that a rule, or a path through a
// decoder tree, imposes on a candidate input.
package condition

import (
	"fmt"
	"strings"

	"github.com/9uanhuo/decodetree/internal/tristate"
)

// Condition is a pair of tristate arrays: decode bits over the
// instruction word, and flag bits over the declared context flags.
type Condition struct {
	Decode tristate.Array
	Flags  tristate.Array
}

// New builds a Condition from its two components.
func New(decode, flags tristate.Array) Condition {
	return Condition{Decode: decode, Flags: flags}
}

// IsEmpty reports whether neither component constrains anything.
func (c Condition) IsEmpty() bool {
	return c.Decode.IsEmpty() && c.Flags.IsEmpty()
}

// Equal reports whether c and d constrain identically.
func (c Condition) Equal(d Condition) bool {
	return c.Decode.Equal(d.Decode) && c.Flags.Equal(d.Flags)
}

// IsCompatible reports whether c and d could both be satisfied by some
// input (componentwise compatibility). Symmetric.
func (c Condition) IsCompatible(d Condition) bool {
	return c.Decode.IsCompatible(d.Decode) && c.Flags.IsCompatible(d.Flags)
}

// Union returns the componentwise union of c and d. Panics if the
// components disagree (see tristate.Array.Union).
func (c Condition) Union(d Condition) Condition {
	return Condition{Decode: c.Decode.Union(d.Decode), Flags: c.Flags.Union(d.Flags)}
}

// Intersection returns the componentwise intersection of c and d.
func (c Condition) Intersection(d Condition) Condition {
	return Condition{Decode: c.Decode.Intersection(d.Decode), Flags: c.Flags.Intersection(d.Flags)}
}

// Subtract clears every position d defines, in both components.
func (c Condition) Subtract(d Condition) Condition {
	return Condition{Decode: c.Decode.Subtract(d.Decode), Flags: c.Flags.Subtract(d.Flags)}
}

// SubtractIntersection is c.Subtract(c.Intersection(d)).
func (c Condition) SubtractIntersection(d Condition) Condition {
	return c.Subtract(c.Intersection(d))
}

// Raw renders a diagnostic form: decode bits then flag bits, each in
// brackets, omitted when empty.
func (c Condition) Raw() string {
	var parts []string
	if !c.Decode.IsEmpty() {
		parts = append(parts, fmt.Sprintf("bits[%s]", c.Decode.String()))
	}
	if !c.Flags.IsEmpty() {
		parts = append(parts, fmt.Sprintf("flags[%s]", c.Flags.String()))
	}
	return strings.Join(parts, " ")
}

// FlagNamer resolves a flag index to its declared name, for Pretty.
type FlagNamer interface {
	FlagName(index int) string
}

// Pretty renders the inline-comment form used in emitted code: the
// decode bits, a space, then "[f1,!f2,...]" listing defined flags in
// index order with '!' prefixing zero-valued (negated) flags. Either
// part is omitted if its component is empty.
func (c Condition) Pretty(names FlagNamer) string {
	var parts []string
	if !c.Decode.IsEmpty() {
		parts = append(parts, c.Decode.String())
	}
	if !c.Flags.IsEmpty() {
		var flagParts []string
		for i := 0; i < c.Flags.Len(); i++ {
			if !c.Flags.IsDefined(i) {
				continue
			}
			name := names.FlagName(i)
			if c.Flags.GetValueBit(i) == 0 {
				flagParts = append(flagParts, "!"+name)
			} else {
				flagParts = append(flagParts, name)
			}
		}
		parts = append(parts, "["+strings.Join(flagParts, ",")+"]")
	}
	return strings.Join(parts, " ")
}
