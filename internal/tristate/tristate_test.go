package tristate

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomArray(n int, seed int64) Array {
	r := rand.New(rand.NewSource(seed))
	a := New(n)
	for i := 0; i < n; i++ {
		switch r.Intn(3) {
		case 0:
			a.SetBit(i, 0)
		case 1:
			a.SetBit(i, 1)
		default:
			// leave undefined
		}
	}
	return a
}

// compatibleRandomArrays builds two arrays of length n that are
// guaranteed compatible: b only ever defines positions a leaves
// undefined, or sets them to a's own value.
func compatibleRandomArrays(n int, seed int64) (Array, Array) {
	a := randomArray(n, seed)
	r := rand.New(rand.NewSource(seed + 1))
	b := New(n)
	for i := 0; i < n; i++ {
		if a.IsDefined(i) {
			if r.Intn(2) == 0 {
				b.SetBit(i, a.GetValueBit(i))
			}
		} else if r.Intn(2) == 0 {
			b.SetBit(i, r.Intn(2))
		}
	}
	return a, b
}

func TestUnionIdempotent(t *testing.T) {
	a := randomArray(37, 1)
	assert.True(t, a.Union(a).Equal(a))
}

func TestUnionCommutative(t *testing.T) {
	a, b := compatibleRandomArrays(40, 2)
	assert.True(t, a.Union(b).Equal(b.Union(a)))
}

func TestUnionAssociative(t *testing.T) {
	// build three mutually compatible arrays
	n := 30
	a, b := compatibleRandomArrays(n, 3)
	c, _ := compatibleRandomArrays(n, 5)
	// make c compatible with the union of a and b by clearing disagreements
	ab := a.Union(b)
	for i := 0; i < n; i++ {
		if c.IsDefined(i) && ab.IsDefined(i) && c.GetValueBit(i) != ab.GetValueBit(i) {
			c.ClearBit(i)
		}
	}
	left := a.Union(b).Union(c)
	right := a.Union(b.Union(c))
	assert.True(t, left.Equal(right))
}

func TestIntersectionCommutative(t *testing.T) {
	a := randomArray(22, 9)
	b := randomArray(22, 10)
	assert.True(t, a.Intersection(b).Equal(b.Intersection(a)))
}

func TestSubtractIntersectionDefinition(t *testing.T) {
	a := randomArray(22, 11)
	b := randomArray(22, 12)
	assert.True(t, a.SubtractIntersection(b).Equal(a.Subtract(a.Intersection(b))))
}

func TestCompatibleSymmetric(t *testing.T) {
	a := randomArray(18, 13)
	b := randomArray(18, 14)
	assert.Equal(t, a.IsCompatible(b), b.IsCompatible(a))
}

func TestEqualImpliesCompatible(t *testing.T) {
	a := randomArray(18, 15)
	b := a.clone()
	require.True(t, a.Equal(b))
	assert.True(t, a.IsCompatible(b))
}

func TestLoadBitfieldValueSignificantBits(t *testing.T) {
	a := LoadBitfieldValue(70, 3, 66, 0x1234)
	assert.Equal(t, 64, a.NumSignificantBits())
}

func TestLoadBitfieldValueRoundTrip(t *testing.T) {
	a := LoadBitfieldValue(16, 2, 9, 0xAB)
	for i := 2; i <= 9; i++ {
		want := (0xAB >> uint(i-2)) & 1
		assert.Equal(t, int(want), a.GetValueBit(i))
		assert.Equal(t, 1, a.GetMaskBit(i))
	}
	for _, i := range []int{0, 1, 10, 15} {
		assert.Equal(t, 0, a.GetMaskBit(i))
	}
}

func TestEmptyIffNoSignificantBits(t *testing.T) {
	a := New(8)
	assert.True(t, a.IsEmpty())
	assert.Equal(t, 0, a.NumSignificantBits())
	a.SetBit(3, 1)
	assert.False(t, a.IsEmpty())
}

func TestSetGetRoundTrip(t *testing.T) {
	a := New(10)
	a.SetBit(0, 1)
	a.SetBit(5, 0)
	assert.Equal(t, 1, a.GetValueBit(0))
	assert.Equal(t, 1, a.GetMaskBit(0))
	assert.Equal(t, 0, a.GetValueBit(5))
	assert.Equal(t, 1, a.GetMaskBit(5))
	assert.Equal(t, 0, a.GetMaskBit(7))
}

func TestStringFormat(t *testing.T) {
	a := New(8)
	a.SetBit(7, 1)
	a.SetBit(6, 0)
	a.SetBit(0, 1)
	// MSB-first: bit7=1 bit6=0 bits5..1 undefined bit0=1
	got := a.String()
	assert.Equal(t, "10.. ...1", got)
}

func TestUnionPanicsOnIncompatible(t *testing.T) {
	a := New(4)
	a.SetBit(0, 1)
	b := New(4)
	b.SetBit(0, 0)
	assert.Panics(t, func() { a.Union(b) })
}

func TestLengthMismatchPanics(t *testing.T) {
	a := New(4)
	b := New(5)
	assert.Panics(t, func() { a.Union(b) })
}
