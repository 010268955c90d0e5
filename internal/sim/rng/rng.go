// Package rng is the random source injected into the simulation engine.
package rng

import (
	"math/rand/v2"
	"time"
)

// Source is the subset of *rand.Rand the engine draws from.
type Source interface {
	Float64() float64
	IntN(n int) int
}

// New returns a seeded PCG source. Equal seeds give equal sequences.
func New(seed1, seed2 uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed1, seed2))
}

// Unseeded returns a source seeded from the wall clock, for production play.
func Unseeded() *rand.Rand {
	now := uint64(time.Now().UnixNano())
	return New(now, now>>17|now<<47)
}

// Scripted replays Floats and Ints in order and then falls back to Fallback.
// A nil Fallback yields 0.99 for floats (every roll fails) and 0 for ints.
type Scripted struct {
	Floats   []float64
	Ints     []int
	Fallback Source
}

func (s *Scripted) Float64() float64 {
	if len(s.Floats) > 0 {
		v := s.Floats[0]
		s.Floats = s.Floats[1:]
		return v
	}
	if s.Fallback != nil {
		return s.Fallback.Float64()
	}
	return 0.99
}

func (s *Scripted) IntN(n int) int {
	if len(s.Ints) > 0 {
		v := s.Ints[0]
		s.Ints = s.Ints[1:]
		if v >= n {
			v = n - 1
		}
		return v
	}
	if s.Fallback != nil {
		return s.Fallback.IntN(n)
	}
	return 0
}

// Fixed always returns F for floats and I (capped below n) for ints.
type Fixed struct {
	F float64
	I int
}

func (f Fixed) Float64() float64 { return f.F }

func (f Fixed) IntN(n int) int {
	if f.I >= n {
		return n - 1
	}
	return f.I
}
