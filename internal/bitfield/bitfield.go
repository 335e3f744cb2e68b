// Package bitfield implements switchable expressions over contiguous
// or split instruction-bit ranges, their quality scores (spec.md
// §4.5), and the per-bit/per-bitfield analyser (§4.6).
package bitfield

import (
	"math"

	"github.com/9uanhuo/decodetree/internal/tristate"
)

// Switchable is either a single Bitfield or a BitfieldSet: an
// expression a Switch node can dispatch on.
type Switchable interface {
	NumBits() int
	NumValues() int
	GetBitsForValue(total int, v uint64) tristate.Array
	Equal(other Switchable) bool
	Quality() float64
}

// Bitfield is a contiguous, inclusive bit range [Start, End], width
// 1..64, End < instruction width.
type Bitfield struct {
	Start, End int
	quality    float64
}

// NewBitfield builds a Bitfield of the given quality (computed by the
// caller via ComputeBitfieldQuality).
func NewBitfield(start, end int, quality float64) Bitfield {
	if start < 0 || end < start {
		panic("bitfield: invalid range")
	}
	width := end - start + 1
	if width < 1 || width > 64 {
		panic("bitfield: width out of range")
	}
	return Bitfield{Start: start, End: end, quality: quality}
}

// Width is end-start+1.
func (b Bitfield) Width() int { return b.End - b.Start + 1 }

// NumBits implements Switchable.
func (b Bitfield) NumBits() int { return b.Width() }

// NumValues implements Switchable.
func (b Bitfield) NumValues() int { return 1 << uint(b.Width()) }

// Quality implements Switchable.
func (b Bitfield) Quality() float64 { return b.quality }

// GetBitsForValue implements Switchable: returns a tristate array of
// length total with exactly [Start, End] set to the bits of v.
func (b Bitfield) GetBitsForValue(total int, v uint64) tristate.Array {
	return tristate.LoadBitfieldValue(total, b.Start, b.End, v)
}

// SameRange reports whether b and o cover the same range.
func (b Bitfield) SameRange(o Bitfield) bool {
	return b.Start == o.Start && b.End == o.End
}

// Overlaps reports whether b and o share any bit position.
func (b Bitfield) Overlaps(o Bitfield) bool {
	return b.Start <= o.End && o.Start <= b.End
}

// Equal implements Switchable.
func (b Bitfield) Equal(other Switchable) bool {
	ob, ok := other.(Bitfield)
	if !ok {
		return false
	}
	return b.SameRange(ob)
}

// BitfieldSet is an ordered list of disjoint Bitfields, enumerated by
// concatenating low-to-high child values: the first field supplies the
// low bits of the switch-case value, later fields the higher bits.
type BitfieldSet struct {
	Fields  []Bitfield
	quality float64
}

// NewBitfieldSet builds a set from fields (assumed pairwise disjoint,
// not validated here — callers search only disjoint candidates) with
// the given total quality.
func NewBitfieldSet(fields []Bitfield, quality float64) BitfieldSet {
	cp := make([]Bitfield, len(fields))
	copy(cp, fields)
	return BitfieldSet{Fields: cp, quality: quality}
}

// NumBits is the sum of child widths.
func (s BitfieldSet) NumBits() int {
	total := 0
	for _, f := range s.Fields {
		total += f.Width()
	}
	return total
}

// NumValues is 2^NumBits.
func (s BitfieldSet) NumValues() int { return 1 << uint(s.NumBits()) }

// Quality implements Switchable.
func (s BitfieldSet) Quality() float64 { return s.quality }

// GetBitsForValue implements Switchable: concatenates v's bits,
// low-to-high, into the set's fields in order.
func (s BitfieldSet) GetBitsForValue(total int, v uint64) tristate.Array {
	out := tristate.New(total)
	shift := uint(0)
	for _, f := range s.Fields {
		width := uint(f.Width())
		mask := uint64(1)<<width - 1
		chunk := (v >> shift) & mask
		field := tristate.LoadBitfieldValue(total, f.Start, f.End, chunk)
		out = out.Union(field)
		shift += width
	}
	return out
}

// Equal reports the intended semantics: pairwise equality of bitfields
// at matching indices. (The source this was distilled from compared a
// field to itself in this loop; that is a bug, not the semantics to
// preserve — see DESIGN.md open question 2.)
func (s BitfieldSet) Equal(other Switchable) bool {
	os, ok := other.(BitfieldSet)
	if !ok {
		return false
	}
	if len(s.Fields) != len(os.Fields) {
		return false
	}
	for i := range s.Fields {
		if !s.Fields[i].SameRange(os.Fields[i]) {
			return false
		}
	}
	return true
}

// ComputeBitfieldQuality implements spec.md §4.5:
//
//	quality = Q / (1 + |ideal - w|)^pBf
func ComputeBitfieldQuality(q float64, width, ideal int, pBf float64) float64 {
	delta := math.Abs(float64(ideal - width))
	return q / math.Pow(1+delta, pBf)
}

// ComputeSetQuality implements spec.md §4.5:
//
//	quality = coef * Qtotal / (1 + |ideal - W|)^pBfs
func ComputeSetQuality(qTotal float64, width, ideal int, coef, pBfs float64) float64 {
	delta := math.Abs(float64(ideal - width))
	return coef * qTotal / math.Pow(1+delta, pBfs)
}
