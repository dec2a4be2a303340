package markov

import "math/rand/v2"

// sentence is the training text used throughout the package tests.
var sentence = []string{"I", "think", "that", "that", "that", "that", "that", "boy", "wrote", "is", "wrong"}

var strategies = []Strategy{StrategyAlias, StrategyCumulative}

// scriptedSource replays fixed draws and panics when it runs out, so tests
// can pin down exactly which random values a sampler consumes.
type scriptedSource struct {
	ints   []int
	floats []float64
}

func (s *scriptedSource) IntN(n int) int {
	v := s.ints[0]
	s.ints = s.ints[1:]
	if v < 0 || v >= n {
		panic("scriptedSource: value out of range")
	}
	return v
}

func (s *scriptedSource) Float64() float64 {
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

// countingSource wraps a real source and counts IntN calls.
type countingSource struct {
	src   Source
	intNs int
}

func (c *countingSource) IntN(n int) int {
	c.intNs++
	return c.src.IntN(n)
}

func (c *countingSource) Float64() float64 { return c.src.Float64() }

// randomCorpus returns n values in [0, k) from a fixed seed.
func randomCorpus(n, k int) []int {
	r := rand.New(rand.NewPCG(7, 11))
	out := make([]int, n)
	for i := range out {
		out[i] = r.IntN(k)
	}
	return out
}
