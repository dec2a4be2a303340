package markov

import "fmt"

// Sampler draws a column index from one row of the transition matrix,
// weighted by that row's counts.
type Sampler interface {
	// Sample returns a column index in [0, n). It must only be called when
	// Empty reports false.
	Sample(src Source) int
	// Empty reports whether the row has no outgoing mass.
	Empty() bool
}

// Strategy selects how each row of a chain is turned into a Sampler.
type Strategy string

const (
	// StrategyAlias builds an AliasTable per row: O(n) setup, O(1) draws.
	StrategyAlias Strategy = "alias"
	// StrategyCumulative builds a CumulativeTable per row: O(n) setup, O(n) draws.
	StrategyCumulative Strategy = "cumulative"
)

// ParseStrategy converts a strategy name into a Strategy. An empty name
// selects StrategyAlias.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(name) {
	case "", StrategyAlias:
		return StrategyAlias, nil
	case StrategyCumulative:
		return StrategyCumulative, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// NewSampler builds the sampler for one row of counts using the given strategy.
func NewSampler(strategy Strategy, row []int) (Sampler, error) {
	switch strategy {
	case StrategyAlias:
		return NewAliasTable(row), nil
	case StrategyCumulative:
		return NewCumulativeTable(row), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
}

// buildSamplers builds one sampler per matrix row.
func buildSamplers(strategy Strategy, m Matrix) ([]Sampler, error) {
	rows := make([]Sampler, len(m))
	for i, row := range m {
		s, err := NewSampler(strategy, row)
		if err != nil {
			return nil, err
		}
		rows[i] = s
	}
	return rows, nil
}
