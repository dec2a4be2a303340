package markov

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
)

// cursor is the chain's memory of the last generated state.
type cursor struct {
	index int
	set   bool
}

// Chain is a first-order Markov chain learned from an observed sequence.
//
// A Chain is not safe for concurrent use: Next advances its cursor, so
// callers sharing one chain across goroutines must serialize access.
type Chain[T cmp.Ordered] struct {
	states   []T
	index    map[T]int
	matrix   Matrix
	rows     []Sampler
	strategy Strategy
	cursor   cursor
	logger   *slog.Logger
}

// Pair is one observed transition and the number of times it was seen.
type Pair[T cmp.Ordered] struct {
	From  T
	To    T
	Count int
}

// Stats summarizes a chain.
type Stats struct {
	States         int // Number of distinct states.
	Transitions    int // Number of distinct from->to pairs with a nonzero count.
	TotalFrequency int // Sum of all counts; the number of observed transitions.
	DeadEnds       int // States with no outgoing transition.
}

// Build learns a chain from seq. The state space is the sorted set of
// distinct elements of seq, and each adjacent pair of seq counts as one
// transition.
//
// Build returns ErrEmptySequence for an empty seq and ErrAllDeadEnds when
// seq yields no transition at all (a single distinct element never
// followed by anything). A NaN element fails with ErrUnorderedState.
func Build[T cmp.Ordered](seq []T, opts ...BuildOption) (*Chain[T], error) {
	if len(seq) == 0 {
		return nil, ErrEmptySequence
	}
	if err := checkOrdered(seq); err != nil {
		return nil, err
	}
	states, index := buildStateSpace(seq)
	m := buildMatrix(seq, index)
	return assemble(states, index, m, newBuildOptions(opts))
}

// FromMatrix assembles a chain from an existing state space and count
// matrix. states must be strictly ascending and m must be len(states)
// square with no negative counts.
func FromMatrix[T cmp.Ordered](states []T, m Matrix, opts ...BuildOption) (*Chain[T], error) {
	if len(states) == 0 {
		return nil, ErrEmptySequence
	}
	if err := checkOrdered(states); err != nil {
		return nil, err
	}
	for i := 1; i < len(states); i++ {
		if states[i-1] >= states[i] {
			return nil, fmt.Errorf("%w: states not strictly ascending at %d", ErrInvalidMatrix, i)
		}
	}
	if err := m.validate(len(states)); err != nil {
		return nil, err
	}
	states = slices.Clone(states)
	return assemble(states, indexStates(states), m.Clone(), newBuildOptions(opts))
}

// FromPairs assembles a chain from a list of counted transitions. The state
// space is every value appearing on either side of a pair; repeated pairs
// are summed. Pairs with a non-positive count still contribute their states.
func FromPairs[T cmp.Ordered](pairs []Pair[T], opts ...BuildOption) (*Chain[T], error) {
	if len(pairs) == 0 {
		return nil, ErrEmptySequence
	}
	values := make([]T, 0, 2*len(pairs))
	for _, p := range pairs {
		values = append(values, p.From, p.To)
	}
	if err := checkOrdered(values); err != nil {
		return nil, err
	}
	states, index := buildStateSpace(values)
	m := NewMatrix(len(states))
	for _, p := range pairs {
		if p.Count > 0 {
			m[index[p.From]][index[p.To]] += p.Count
		}
	}
	return assemble(states, index, m, newBuildOptions(opts))
}

func assemble[T cmp.Ordered](states []T, index map[T]int, m Matrix, o *buildOptions) (*Chain[T], error) {
	rows, err := buildSamplers(o.strategy, m)
	if err != nil {
		return nil, err
	}
	live := false
	for _, r := range rows {
		if !r.Empty() {
			live = true
			break
		}
	}
	if !live {
		return nil, ErrAllDeadEnds
	}

	c := &Chain[T]{
		states:   states,
		index:    index,
		matrix:   m,
		rows:     rows,
		strategy: o.strategy,
		logger:   o.logger,
	}

	stats := c.Stats()
	c.logger.Info("Chain built",
		slog.String("strategy", string(c.strategy)),
		slog.Int("states", stats.States),
		slog.Int("transitions", stats.Transitions),
		slog.Int("dead_ends", stats.DeadEnds),
	)
	return c, nil
}

// Next returns the next state using DefaultSource.
func (c *Chain[T]) Next() T {
	return c.NextRand(DefaultSource)
}

// NextRand returns the next state, drawing randomness from src.
//
// With no previous state the row is drawn uniformly over the state space;
// otherwise the previous state's row is used. A row with no outgoing
// transitions resets the cursor and a fresh uniform row is drawn, so the
// chain restarts instead of stalling at a terminal state.
func (c *Chain[T]) NextRand(src Source) T {
	for {
		if !c.cursor.set {
			c.cursor = cursor{index: src.IntN(len(c.states)), set: true}
		}
		row := c.rows[c.cursor.index]
		if row.Empty() {
			c.logger.Debug("Dead end reached, restarting chain",
				slog.Int("row", c.cursor.index),
			)
			c.cursor = cursor{}
			continue
		}
		col := row.Sample(src)
		c.cursor.index = col
		return c.states[col]
	}
}

// Generate returns n successive states drawn from src.
func (c *Chain[T]) Generate(src Source, n int) []T {
	out := make([]T, 0, max(n, 0))
	for range n {
		out = append(out, c.NextRand(src))
	}
	return out
}

// Initialize forgets the previous state. The next call to Next draws its
// row uniformly, independent of anything generated before.
func (c *Chain[T]) Initialize() {
	c.cursor = cursor{}
}

// Seed positions the chain as if state had just been generated, so the
// next call to Next continues from it.
func (c *Chain[T]) Seed(state T) error {
	i, ok := c.index[state]
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownState, state)
	}
	c.cursor = cursor{index: i, set: true}
	return nil
}

// Cursor returns the last generated (or seeded) state. ok is false when the
// chain is uninitialized.
func (c *Chain[T]) Cursor() (state T, ok bool) {
	if !c.cursor.set {
		return state, false
	}
	return c.states[c.cursor.index], true
}

// Len returns the number of states.
func (c *Chain[T]) Len() int { return len(c.states) }

// Strategy returns the row sampling strategy the chain was built with.
func (c *Chain[T]) Strategy() Strategy { return c.strategy }

// States returns a copy of the sorted state space.
func (c *Chain[T]) States() []T { return slices.Clone(c.states) }

// Matrix returns a copy of the transition counts.
func (c *Chain[T]) Matrix() Matrix { return c.matrix.Clone() }

// Probability returns the learned probability that to follows from. It is
// 0 when either value is unknown or from has no outgoing transitions.
func (c *Chain[T]) Probability(from, to T) float64 {
	i, ok := c.index[from]
	if !ok {
		return 0
	}
	j, ok := c.index[to]
	if !ok {
		return 0
	}
	sum := c.matrix.RowSum(i)
	if sum == 0 {
		return 0
	}
	return float64(c.matrix[i][j]) / float64(sum)
}

// Pairs lists every transition with a nonzero count, in state order.
func (c *Chain[T]) Pairs() []Pair[T] {
	var pairs []Pair[T]
	for i, row := range c.matrix {
		for j, n := range row {
			if n > 0 {
				pairs = append(pairs, Pair[T]{From: c.states[i], To: c.states[j], Count: n})
			}
		}
	}
	return pairs
}

// Stats returns summary counts for the chain.
func (c *Chain[T]) Stats() Stats {
	s := Stats{States: len(c.states)}
	for _, row := range c.matrix {
		var sum int
		for _, n := range row {
			if n > 0 {
				s.Transitions++
				sum += n
			}
		}
		if sum == 0 {
			s.DeadEnds++
		}
		s.TotalFrequency += sum
	}
	return s
}
