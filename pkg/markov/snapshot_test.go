package markov

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]Format{"": FormatJSON, "json": FormatJSON, "yaml": FormatYAML, "yml": FormatYAML} {
		got, err := ParseFormat(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, "format %q", name)
	}
	_, err := ParseFormat("xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestSnapshot(t *testing.T) {
	chain, err := Build(sentence, WithStrategy(StrategyCumulative))
	require.NoError(t, err)

	snap := chain.Snapshot()
	assert.Equal(t, StrategyCumulative, snap.Strategy)
	assert.Equal(t, chain.States(), snap.States)
	assert.Len(t, snap.Transitions, 7)
	assert.Contains(t, snap.Transitions, ExportedTransition{From: 3, To: 3, Frequency: 4})
	assert.Nil(t, snap.Cursor)

	require.NoError(t, chain.Seed("is"))
	snap = chain.Snapshot()
	require.NotNil(t, snap.Cursor)
	assert.Equal(t, 2, *snap.Cursor)
}

func TestExportImportRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		for _, strategy := range strategies {
			t.Run(string(format)+"/"+string(strategy), func(t *testing.T) {
				chain, err := Build(sentence, WithStrategy(strategy))
				require.NoError(t, err)
				require.NoError(t, chain.Seed("think"))

				var buf bytes.Buffer
				require.NoError(t, chain.Export(&buf, format))

				restored, err := Import[string](&buf, format)
				require.NoError(t, err)

				assert.Equal(t, chain.States(), restored.States())
				assert.Equal(t, chain.Matrix(), restored.Matrix())
				assert.Equal(t, strategy, restored.Strategy())
				cur, ok := restored.Cursor()
				require.True(t, ok)
				assert.Equal(t, "think", cur)

				// Rebuilt samplers must walk identically to the originals.
				assert.Equal(t, chain.Generate(NewSource(4), 40), restored.Generate(NewSource(4), 40))
			})
		}
	}
}

func TestExportImportIntStates(t *testing.T) {
	chain, err := Build([]int{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, chain.Export(&buf, FormatYAML))
	restored, err := Import[int](&buf, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 9}, restored.States())
	assert.Equal(t, chain.Matrix(), restored.Matrix())
}

func TestImportOverridesStrategy(t *testing.T) {
	chain, err := Build(sentence)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, chain.Export(&buf, FormatJSON))
	restored, err := Import[string](&buf, FormatJSON, WithStrategy(StrategyCumulative))
	require.NoError(t, err)
	assert.Equal(t, StrategyCumulative, restored.Strategy())
}

func TestImportRejectsBadSnapshots(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
		want error
	}{
		{
			name: "transition out of range",
			doc:  `{"strategy":"alias","states":["a","b"],"transitions":[{"from":0,"to":5,"frequency":1}]}`,
			want: ErrInvalidMatrix,
		},
		{
			name: "cursor out of range",
			doc:  `{"strategy":"alias","states":["a","b"],"transitions":[{"from":0,"to":1,"frequency":1}],"cursor":2}`,
			want: ErrInvalidMatrix,
		},
		{
			name: "unsorted states",
			doc:  `{"strategy":"alias","states":["b","a"],"transitions":[{"from":0,"to":1,"frequency":1}]}`,
			want: ErrInvalidMatrix,
		},
		{
			name: "negative frequency",
			doc:  `{"strategy":"alias","states":["a","b"],"transitions":[{"from":0,"to":1,"frequency":-3}]}`,
			want: ErrInvalidMatrix,
		},
		{
			name: "unknown strategy",
			doc:  `{"strategy":"magic","states":["a","b"],"transitions":[{"from":0,"to":1,"frequency":1}]}`,
			want: ErrUnknownStrategy,
		},
		{
			name: "no transitions",
			doc:  `{"strategy":"alias","states":["a","b"],"transitions":[]}`,
			want: ErrAllDeadEnds,
		},
		{
			name: "no states",
			doc:  `{"strategy":"alias","states":[]}`,
			want: ErrEmptySequence,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Import[string](strings.NewReader(tc.doc), FormatJSON)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestImportMalformed(t *testing.T) {
	_, err := Import[string](strings.NewReader("{not json"), FormatJSON)
	assert.ErrorContains(t, err, "failed to decode json snapshot")

	_, err = Import[string](strings.NewReader("states: [a, b"), FormatYAML)
	assert.ErrorContains(t, err, "failed to decode yaml snapshot")

	_, err = Import[string](strings.NewReader("{}"), "xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestExportUnknownFormat(t *testing.T) {
	chain, err := Build(sentence)
	require.NoError(t, err)
	assert.ErrorIs(t, chain.Export(&bytes.Buffer{}, "xml"), ErrUnknownFormat)
}
