package bitfield

import (
	"math"

	"github.com/9uanhuo/decodetree/internal/ruleset"
	"github.com/9uanhuo/decodetree/internal/tristate"
)

// Analyser precomputes, for every instruction bit, the statistics
// spec.md §4.6 defines, and searches for the best single Bitfield or
// BitfieldSet to switch upon.
type Analyser struct {
	nBits int

	total    []int
	totalOne []int
	score    []float64
	quality  []float64

	minSignificant, maxSignificant int
	hasSignificant                 bool
}

// NewAnalyser builds an Analyser over rs, using bitFlagCoef to
// discount rules whose effective condition constrains any flag.
func NewAnalyser(rs *ruleset.RuleSet, nBits int, bitFlagCoef float64) *Analyser {
	a := &Analyser{
		nBits:    nBits,
		total:    make([]int, nBits),
		totalOne: make([]int, nBits),
		score:    make([]float64, nBits),
		quality:  make([]float64, nBits),
	}

	for _, e := range rs.Entries {
		w := float64(e.Rule.Weight)
		if !e.Effective.Flags.IsEmpty() {
			w *= bitFlagCoef
		}
		for i := 0; i < nBits; i++ {
			if !e.Effective.Decode.IsDefined(i) {
				continue
			}
			a.total[i]++
			if e.Effective.Decode.GetValueBit(i) == 1 {
				a.totalOne[i]++
			}
			a.score[i] += w
		}
	}

	scoreSum := 0.0
	for _, s := range a.score {
		scoreSum += s
	}

	a.minSignificant = -1
	a.maxSignificant = -1
	for i := 0; i < nBits; i++ {
		if a.total[i] == 0 || a.score[i] == 0 || scoreSum == 0 {
			a.quality[i] = 0
			continue
		}
		zeros := a.total[i] - a.totalOne[i]
		minSplit := a.totalOne[i]
		if zeros < minSplit {
			minSplit = zeros
		}
		balance := 2 * float64(minSplit) / float64(a.total[i])
		a.quality[i] = balance * a.score[i] / scoreSum
		if a.quality[i] > 0 {
			if a.minSignificant == -1 {
				a.minSignificant = i
			}
			a.maxSignificant = i
			a.hasSignificant = true
		}
	}

	return a
}

// BitQuality returns the precomputed quality of bit i.
func (a *Analyser) BitQuality(i int) float64 { return a.quality[i] }

// MinSignificantBit / MaxSignificantBit are the extreme indices with
// quality > 0. ok is false if no bit has positive quality.
func (a *Analyser) MinSignificantBit() (int, bool) { return a.minSignificant, a.hasSignificant }
func (a *Analyser) MaxSignificantBit() (int, bool) { return a.maxSignificant, a.hasSignificant }

// IdealWidth is ceil(log2(ruleCount)), or 1 when ruleCount <= 1.
func IdealWidth(ruleCount int) int {
	if ruleCount <= 1 {
		return 1
	}
	return int(math.Ceil(math.Log2(float64(ruleCount))))
}

// rangeQuality sums bit_quality over [start, end]; ok is false if any
// bit in the range has quality 0 (the range cannot discriminate and is
// rejected per spec.md §4.6).
func (a *Analyser) rangeQuality(start, end int) (q float64, ok bool) {
	for i := start; i <= end; i++ {
		if a.quality[i] == 0 {
			return 0, false
		}
		q += a.quality[i]
	}
	return q, true
}

// FindBestBitfield enumerates all (start, end) with
// minSignificant <= start, end <= maxSignificant, width in [min, max],
// disjoint from exclusion, and no zero-quality bit in range; it scores
// each candidate and keeps the highest, ties preferring the earlier
// candidate (start ascending, then end ascending).
func (a *Analyser) FindBestBitfield(min, max, ideal int, exclusion tristate.Array, pBf float64) (Bitfield, bool) {
	lo, hi, ok := a.significantRange()
	if !ok {
		return Bitfield{}, false
	}

	var best Bitfield
	found := false
	var bestQuality float64

	for start := lo; start <= hi; start++ {
		if start < 0 {
			continue
		}
		for end := start; end <= hi && end < a.nBits; end++ {
			width := end - start + 1
			if width < min || width > max {
				continue
			}
			if rangeIntersects(exclusion, start, end) {
				continue
			}
			q, ok := a.rangeQuality(start, end)
			if !ok {
				continue
			}
			quality := ComputeBitfieldQuality(q, width, ideal, pBf)
			if !found || quality > bestQuality {
				found = true
				bestQuality = quality
				best = NewBitfield(start, end, quality)
			}
		}
	}
	return best, found
}

func rangeIntersects(exclusion tristate.Array, start, end int) bool {
	for i := start; i <= end; i++ {
		if exclusion.IsDefined(i) {
			return true
		}
	}
	return false
}

func (a *Analyser) significantRange() (int, int, bool) {
	if !a.hasSignificant {
		return 0, 0, false
	}
	return a.minSignificant, a.maxSignificant, true
}

// FindBestBitfieldSet iterates field counts k from 2 through
// maxSplits+1, searching for the highest-quality disjoint union of k
// bitfields whose total width lies in [min, max]. Returns false if
// maxSplits == 0 or no valid set exists.
func (a *Analyser) FindBestBitfieldSet(min, max, ideal, maxSplits int, coef, pBfs float64) (BitfieldSet, bool) {
	if maxSplits <= 0 {
		return BitfieldSet{}, false
	}

	var best BitfieldSet
	found := false
	var bestQuality float64

	for k := 2; k <= maxSplits+1; k++ {
		fields, qTotal, ok := a.bestDisjointSet(k, min, max, tristate.New(a.nBits))
		if !ok {
			continue
		}
		width := 0
		for _, f := range fields {
			width += f.Width()
		}
		if width < min || width > max {
			continue
		}
		quality := ComputeSetQuality(qTotal, width, ideal, coef, pBfs)
		if !found || quality > bestQuality {
			found = true
			bestQuality = quality
			best = NewBitfieldSet(fields, quality)
		}
	}
	return best, found
}

// bestDisjointSet recursively picks k disjoint bitfields (excluding
// bits already in exclusion), maximising summed bit_quality, subject
// to a combined width in [min, max]. The field widths are enumerated
// ascending; the recursive call solves for k-1 remaining fields with
// the leftover width budget, then the outer loop finds the best single
// field of the chosen width excluding bits used by the recursive
// solution.
func (a *Analyser) bestDisjointSet(k, min, max int, exclusion tristate.Array) ([]Bitfield, float64, bool) {
	if k == 1 {
		bf, ok := a.FindBestBitfield(min, max, min, exclusion, 0)
		if !ok {
			return nil, 0, false
		}
		q, _ := a.rangeQuality(bf.Start, bf.End)
		return []Bitfield{bf}, q, true
	}

	var bestFields []Bitfield
	var bestQuality float64
	found := false

	maxWidthHere := max - (k - 1)
	if maxWidthHere < 1 {
		return nil, 0, false
	}

	for width := 1; width <= maxWidthHere; width++ {
		remainingMin := 1
		remainingMax := max - width
		if remainingMax < remainingMin {
			continue
		}
		restFields, restQuality, restOK := a.bestDisjointSet(k-1, remainingMin, remainingMax, exclusion)
		if !restOK {
			continue
		}
		restExclusion := exclusion
		for _, f := range restFields {
			restExclusion = restExclusion.Union(tristate.LoadBitfieldValue(a.nBits, f.Start, f.End, 0))
		}

		field, ok := a.FindBestBitfield(width, width, width, restExclusion, 0)
		if !ok {
			continue
		}
		q, _ := a.rangeQuality(field.Start, field.End)
		total := q + restQuality
		if !found || total > bestQuality {
			found = true
			bestQuality = total
			bestFields = append([]Bitfield{field}, restFields...)
		}
	}

	if !found {
		return nil, 0, false
	}
	return bestFields, bestQuality, true
}
