package markov

import "math/rand/v2"

// Source supplies the randomness used to walk a chain. *rand.Rand from
// math/rand/v2 satisfies it.
type Source interface {
	// IntN returns a uniform integer in [0, n). It panics if n <= 0.
	IntN(n int) int
	// Float64 returns a uniform float in [0.0, 1.0).
	Float64() float64
}

// globalSource forwards to the top-level math/rand/v2 functions, which are
// randomly seeded per process and safe for concurrent use.
type globalSource struct{}

func (globalSource) IntN(n int) int   { return rand.IntN(n) }
func (globalSource) Float64() float64 { return rand.Float64() }

// DefaultSource is the process-wide source used by Chain.Next.
var DefaultSource Source = globalSource{}

// NewSource returns a deterministic PCG-backed source. Two sources created
// with the same seed produce the same stream, which makes generation
// reproducible.
func NewSource(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
