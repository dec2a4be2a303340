package markov

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"
)

// Format names a snapshot encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat converts a format name into a Format. An empty name selects
// FormatJSON, and "yml" is accepted as FormatYAML.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "", string(FormatJSON):
		return FormatJSON, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// ExportedTransition is the serializable form of one nonzero matrix cell.
type ExportedTransition struct {
	From      int `json:"from" yaml:"from"`
	To        int `json:"to" yaml:"to"`
	Frequency int `json:"frequency" yaml:"frequency"`
}

// Snapshot is the serializable representation of a chain: its state space,
// its sparse transition counts and its cursor. Samplers are not stored; they
// are rebuilt from the counts on Restore.
type Snapshot[T cmp.Ordered] struct {
	Strategy    Strategy             `json:"strategy" yaml:"strategy"`
	States      []T                  `json:"states" yaml:"states"`
	Transitions []ExportedTransition `json:"transitions" yaml:"transitions"`
	Cursor      *int                 `json:"cursor,omitempty" yaml:"cursor,omitempty"`
}

// Snapshot captures the chain's current state.
func (c *Chain[T]) Snapshot() Snapshot[T] {
	snap := Snapshot[T]{
		Strategy: c.strategy,
		States:   c.States(),
	}
	for i, row := range c.matrix {
		for j, n := range row {
			if n > 0 {
				snap.Transitions = append(snap.Transitions, ExportedTransition{From: i, To: j, Frequency: n})
			}
		}
	}
	if c.cursor.set {
		idx := c.cursor.index
		snap.Cursor = &idx
	}
	return snap
}

// Restore rebuilds a chain from a snapshot. The snapshot's strategy is used
// unless opts override it.
func Restore[T cmp.Ordered](snap Snapshot[T], opts ...BuildOption) (*Chain[T], error) {
	strategy, err := ParseStrategy(string(snap.Strategy))
	if err != nil {
		return nil, err
	}

	n := len(snap.States)
	m := NewMatrix(n)
	for _, t := range snap.Transitions {
		if t.From < 0 || t.From >= n || t.To < 0 || t.To >= n {
			return nil, fmt.Errorf("%w: transition (%d -> %d) outside %d states", ErrInvalidMatrix, t.From, t.To, n)
		}
		m[t.From][t.To] += t.Frequency
	}

	c, err := FromMatrix(snap.States, m, append([]BuildOption{WithStrategy(strategy)}, opts...)...)
	if err != nil {
		return nil, err
	}
	if snap.Cursor != nil {
		if *snap.Cursor < 0 || *snap.Cursor >= n {
			return nil, fmt.Errorf("%w: cursor %d outside %d states", ErrInvalidMatrix, *snap.Cursor, n)
		}
		c.cursor = cursor{index: *snap.Cursor, set: true}
	}
	return c, nil
}

// Export writes the chain's snapshot to w in the given format.
func (c *Chain[T]) Export(w io.Writer, format Format) error {
	snap := c.Snapshot()
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(snap); err != nil {
			return fmt.Errorf("failed to encode json snapshot: %w", err)
		}
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(snap); err != nil {
			return fmt.Errorf("failed to encode yaml snapshot: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return fmt.Errorf("failed to flush yaml snapshot: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	c.logger.Info("Chain exported",
		slog.String("format", string(format)),
		slog.Int("states", len(snap.States)),
		slog.Int("transitions", len(snap.Transitions)),
	)
	return nil
}

// Import reads a snapshot in the given format from r and restores it.
func Import[T cmp.Ordered](r io.Reader, format Format, opts ...BuildOption) (*Chain[T], error) {
	snap, err := DecodeSnapshot[T](r, format)
	if err != nil {
		return nil, err
	}
	return Restore(snap, opts...)
}

// DecodeSnapshot reads a snapshot without rebuilding the chain.
func DecodeSnapshot[T cmp.Ordered](r io.Reader, format Format) (Snapshot[T], error) {
	var snap Snapshot[T]
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&snap); err != nil {
			return snap, fmt.Errorf("failed to decode json snapshot: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&snap); err != nil {
			return snap, fmt.Errorf("failed to decode yaml snapshot: %w", err)
		}
	default:
		return snap, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return snap, nil
}
