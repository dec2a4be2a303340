package markov

import "errors"

var (
	// ErrEmptySequence is returned when a chain is built from a sequence with
	// no elements, which would leave it with no states to generate.
	ErrEmptySequence = errors.New("markov: empty training sequence")

	// ErrAllDeadEnds is returned when no state in the chain has an outgoing
	// transition. Generation from such a chain could never pick a row.
	ErrAllDeadEnds = errors.New("markov: every state is a dead end")

	// ErrInvalidMatrix is returned by FromMatrix when the states or counts
	// handed to it are inconsistent.
	ErrInvalidMatrix = errors.New("markov: invalid transition matrix")

	// ErrUnorderedState is returned when an element is not equal to itself
	// (a floating-point NaN) and so has no place in the sorted state space.
	ErrUnorderedState = errors.New("markov: element has no ordering")

	// ErrUnknownState is returned when a value is not part of the state space.
	ErrUnknownState = errors.New("markov: unknown state")

	// ErrUnknownStrategy is returned for a sampling strategy name that is not
	// one of StrategyAlias or StrategyCumulative.
	ErrUnknownStrategy = errors.New("markov: unknown sampling strategy")

	// ErrUnknownFormat is returned for an unsupported snapshot format.
	ErrUnknownFormat = errors.New("markov: unknown snapshot format")
)
