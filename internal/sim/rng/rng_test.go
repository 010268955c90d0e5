package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Deterministic(t *testing.T) {
	a, b := New(1, 2), New(1, 2)
	for i := 0; i < 16; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
		assert.Equal(t, a.IntN(100), b.IntN(100))
	}
}

func TestScripted_ReplaysThenFallsBack(t *testing.T) {
	s := &Scripted{Floats: []float64{0.1, 0.2}, Ints: []int{7}}
	assert.Equal(t, 0.1, s.Float64())
	assert.Equal(t, 0.2, s.Float64())
	assert.Equal(t, 0.99, s.Float64())
	assert.Equal(t, 4, s.IntN(5), "capped below n")
	assert.Equal(t, 0, s.IntN(5))

	s.Fallback = Fixed{F: 0.5, I: 3}
	assert.Equal(t, 0.5, s.Float64())
	assert.Equal(t, 3, s.IntN(10))
}

func TestFixed_CapsInts(t *testing.T) {
	f := Fixed{I: 9}
	assert.Equal(t, 1, f.IntN(2))
	assert.Equal(t, 9, f.IntN(10))
}
