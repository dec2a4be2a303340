package markov

import (
	"bytes"
	"log/slog"
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(string(strategy), func(t *testing.T) {
			chain, err := Build(sentence, WithStrategy(strategy))
			require.NoError(t, err)

			assert.Equal(t, []string{"I", "boy", "is", "that", "think", "wrong", "wrote"}, chain.States())
			assert.Equal(t, 7, chain.Len())
			assert.Equal(t, strategy, chain.Strategy())
			require.Len(t, chain.rows, 7)

			m := chain.Matrix()
			that := chain.index["that"]
			assert.Equal(t, 4, m[that][that])
			assert.Equal(t, 1, m[that][chain.index["boy"]])

			_, ok := chain.Cursor()
			assert.False(t, ok, "a new chain starts uninitialized")

			assert.True(t, chain.rows[chain.index["wrong"]].Empty())
		})
	}
}

func TestBuildErrors(t *testing.T) {
	_, err := Build([]string{})
	assert.ErrorIs(t, err, ErrEmptySequence)

	_, err = Build([]int(nil))
	assert.ErrorIs(t, err, ErrEmptySequence)

	_, err = Build([]string{"alone"})
	assert.ErrorIs(t, err, ErrAllDeadEnds)

	chain, err := Build([]string{"echo", "echo"})
	require.NoError(t, err)
	assert.Equal(t, "echo", chain.Next())
}

func TestBuildRejectsNaN(t *testing.T) {
	nan := math.NaN()

	require.NotPanics(t, func() {
		_, err := Build([]float64{1, nan, 2})
		assert.ErrorIs(t, err, ErrUnorderedState)
	})

	_, err := FromPairs([]Pair[float64]{{From: 1, To: nan, Count: 1}})
	assert.ErrorIs(t, err, ErrUnorderedState)

	_, err = FromMatrix([]float64{1, nan}, Matrix{{0, 1}, {1, 0}})
	assert.ErrorIs(t, err, ErrUnorderedState)

	chain, err := Build([]float64{1, 2.5, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5}, chain.States())
}

func TestBuildLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	_, err := Build(sentence, WithLogger(logger))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Chain built")
	assert.Contains(t, buf.String(), "states=7")
}

func TestNextReturnsTrainingElement(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(string(strategy), func(t *testing.T) {
			chain, err := Build(sentence, WithStrategy(strategy))
			require.NoError(t, err)
			for range 1000 {
				assert.Contains(t, sentence, chain.Next())
			}
		})
	}
}

func TestNextFollowsObservedTransitions(t *testing.T) {
	seq := randomCorpus(500, 40)
	for _, strategy := range strategies {
		t.Run(string(strategy), func(t *testing.T) {
			chain, err := Build(seq, WithStrategy(strategy))
			require.NoError(t, err)
			m := chain.Matrix()
			src := NewSource(3)

			prev := chain.NextRand(src)
			for i := range 20_000 {
				if i%500 == 0 {
					chain.Initialize()
					prev = chain.NextRand(src)
					continue
				}
				cur := chain.NextRand(src)
				from := chain.index[prev]
				// A dead end restarts the chain, which breaks continuity.
				if m.Live(from) {
					require.Positive(t, m[from][chain.index[cur]], "unobserved transition %d -> %d", prev, cur)
				}
				prev = cur
			}
		})
	}
}

func TestNextMatchesRowDistribution(t *testing.T) {
	const draws = 100_000
	for _, strategy := range strategies {
		t.Run(string(strategy), func(t *testing.T) {
			chain, err := Build(sentence, WithStrategy(strategy))
			require.NoError(t, err)
			src := NewSource(9)

			var toThat int
			for range draws {
				require.NoError(t, chain.Seed("that"))
				if chain.NextRand(src) == "that" {
					toThat++
				}
			}
			assert.InDelta(t, 0.8, float64(toThat)/draws, 0.01)
		})
	}
}

func TestInitialize(t *testing.T) {
	chain, err := Build(sentence)
	require.NoError(t, err)

	got := chain.Next()
	cur, ok := chain.Cursor()
	require.True(t, ok)
	assert.Equal(t, got, cur)

	chain.Initialize()
	_, ok = chain.Cursor()
	assert.False(t, ok)

	once := *chain
	chain.Initialize()
	assert.Equal(t, once.cursor, chain.cursor, "Initialize must be idempotent")
}

func TestInitializeDrawsFreshRow(t *testing.T) {
	chain, err := Build(sentence, WithStrategy(StrategyCumulative))
	require.NoError(t, err)
	src := &countingSource{src: NewSource(5)}

	require.NoError(t, chain.Seed("that"))
	chain.NextRand(src)
	assert.Equal(t, 0, src.intNs, "a seeded chain must not draw a row")

	chain.Initialize()
	src.intNs = 0
	chain.NextRand(src)
	assert.GreaterOrEqual(t, src.intNs, 1, "an uninitialized chain must draw a row")
}

func TestInitializeIsUniformOverRows(t *testing.T) {
	// Every row has exactly one successor, so the element after Initialize
	// identifies the uniformly drawn row.
	seq := []string{"a", "b", "c", "a"}
	const draws = 60_000

	for _, strategy := range strategies {
		t.Run(string(strategy), func(t *testing.T) {
			chain, err := Build(seq, WithStrategy(strategy))
			require.NoError(t, err)
			src := NewSource(17)

			counts := make(map[string]int)
			for range draws {
				chain.Initialize()
				counts[chain.NextRand(src)]++
			}
			for _, s := range []string{"a", "b", "c"} {
				assert.InDelta(t, 1.0/3, float64(counts[s])/draws, 0.01, "state %q", s)
			}
		})
	}
}

func TestDeadEndRestarts(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(string(strategy), func(t *testing.T) {
			chain, err := Build([]string{"a", "b"}, WithStrategy(strategy))
			require.NoError(t, err)

			// "b" never leads anywhere, so the chain restarts and the only
			// live row ("a") always yields "b".
			src := NewSource(23)
			for range 100 {
				require.NoError(t, chain.Seed("b"))
				assert.Equal(t, "b", chain.NextRand(src))
			}
		})
	}
}

func TestDeadEndRetryDrawsUntilLiveRow(t *testing.T) {
	chain, err := Build([]string{"a", "b"}, WithStrategy(StrategyCumulative))
	require.NoError(t, err)

	// Row 1 ("b") is dead: reject it twice, then land on row 0.
	src := &scriptedSource{ints: []int{1, 1, 0}, floats: []float64{0.3}}
	assert.Equal(t, "b", chain.NextRand(src))
	assert.Empty(t, src.ints)
}

func TestSeed(t *testing.T) {
	chain, err := Build(sentence)
	require.NoError(t, err)

	err = chain.Seed("cat")
	assert.ErrorIs(t, err, ErrUnknownState)

	require.NoError(t, chain.Seed("boy"))
	cur, ok := chain.Cursor()
	require.True(t, ok)
	assert.Equal(t, "boy", cur)
	assert.Equal(t, "wrote", chain.Next())
	assert.Equal(t, "is", chain.Next())
	assert.Equal(t, "wrong", chain.Next())
}

func TestGenerate(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(string(strategy), func(t *testing.T) {
			a, err := Build(sentence, WithStrategy(strategy))
			require.NoError(t, err)
			b, err := Build(sentence, WithStrategy(strategy))
			require.NoError(t, err)

			first := a.Generate(NewSource(99), 50)
			second := b.Generate(NewSource(99), 50)
			assert.Len(t, first, 50)
			assert.Equal(t, first, second, "same seed must give the same walk")
			assert.Empty(t, a.Generate(NewSource(1), 0))
		})
	}
}

func TestProbability(t *testing.T) {
	chain, err := Build(sentence)
	require.NoError(t, err)

	assert.InDelta(t, 0.8, chain.Probability("that", "that"), 1e-12)
	assert.InDelta(t, 0.2, chain.Probability("that", "boy"), 1e-12)
	assert.Equal(t, 1.0, chain.Probability("I", "think"))
	assert.Zero(t, chain.Probability("wrong", "I"))
	assert.Zero(t, chain.Probability("cat", "I"))
	assert.Zero(t, chain.Probability("I", "cat"))
}

func TestStats(t *testing.T) {
	chain, err := Build(sentence)
	require.NoError(t, err)
	assert.Equal(t, Stats{States: 7, Transitions: 7, TotalFrequency: 10, DeadEnds: 1}, chain.Stats())
}

func TestFromPairs(t *testing.T) {
	built, err := Build(sentence)
	require.NoError(t, err)

	pairs := built.Pairs()
	require.Len(t, pairs, 7)
	assert.Contains(t, pairs, Pair[string]{From: "that", To: "that", Count: 4})

	rebuilt, err := FromPairs(pairs)
	require.NoError(t, err)
	assert.Equal(t, built.States(), rebuilt.States())
	assert.Equal(t, built.Matrix(), rebuilt.Matrix())

	summed, err := FromPairs([]Pair[int]{{From: 1, To: 2, Count: 2}, {From: 1, To: 2, Count: 3}, {From: 2, To: 3, Count: 0}})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, summed.States())
	assert.Equal(t, Matrix{{0, 5, 0}, {0, 0, 0}, {0, 0, 0}}, summed.Matrix())

	_, err = FromPairs[string](nil)
	assert.ErrorIs(t, err, ErrEmptySequence)

	_, err = FromPairs([]Pair[string]{{From: "a", To: "b", Count: 0}})
	assert.ErrorIs(t, err, ErrAllDeadEnds)
}

func TestFromMatrix(t *testing.T) {
	chain, err := FromMatrix([]int{1, 2}, Matrix{{0, 1}, {1, 0}})
	require.NoError(t, err)
	require.NoError(t, chain.Seed(1))
	assert.Equal(t, 2, chain.Next())
	assert.Equal(t, 1, chain.Next())

	testCases := []struct {
		name   string
		states []int
		m      Matrix
		want   error
	}{
		{name: "no states", states: nil, m: Matrix{}, want: ErrEmptySequence},
		{name: "unsorted", states: []int{2, 1}, m: Matrix{{0, 1}, {1, 0}}, want: ErrInvalidMatrix},
		{name: "duplicate", states: []int{1, 1}, m: Matrix{{0, 1}, {1, 0}}, want: ErrInvalidMatrix},
		{name: "wrong size", states: []int{1, 2, 3}, m: Matrix{{0, 1}, {1, 0}}, want: ErrInvalidMatrix},
		{name: "negative", states: []int{1, 2}, m: Matrix{{0, -1}, {1, 0}}, want: ErrInvalidMatrix},
		{name: "all dead", states: []int{1, 2}, m: Matrix{{0, 0}, {0, 0}}, want: ErrAllDeadEnds},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromMatrix(tc.states, tc.m)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestFromMatrixCopiesInput(t *testing.T) {
	states := []int{1, 2}
	m := Matrix{{0, 1}, {1, 0}}
	chain, err := FromMatrix(states, m)
	require.NoError(t, err)

	states[0] = 100
	m[0][1] = 50
	assert.Equal(t, []int{1, 2}, chain.States())
	assert.Equal(t, 1, chain.Matrix()[0][1])
}

func TestAccessorsReturnCopies(t *testing.T) {
	chain, err := Build(sentence)
	require.NoError(t, err)

	states := chain.States()
	states[0] = "changed"
	assert.True(t, slices.IsSorted(chain.States()))

	m := chain.Matrix()
	m[0][4] = 1000
	assert.Equal(t, 1, chain.Matrix()[0][4])
}

func BenchmarkBuild(b *testing.B) {
	corpus := randomCorpus(10_000, 1000)
	for _, strategy := range strategies {
		b.Run(string(strategy), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := Build(corpus, WithStrategy(strategy)); err != nil {
					b.Fatalf("Build() failed: %v", err)
				}
			}
		})
	}
}

func BenchmarkNext(b *testing.B) {
	corpus := randomCorpus(10_000, 1000)
	for _, strategy := range strategies {
		b.Run(string(strategy), func(b *testing.B) {
			chain, err := Build(corpus, WithStrategy(strategy))
			if err != nil {
				b.Fatalf("Build() failed: %v", err)
			}
			src := NewSource(1)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = chain.NextRand(src)
			}
		})
	}
}
