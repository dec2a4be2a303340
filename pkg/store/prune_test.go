package store

import (
	"errors"
	"reflect"
	"testing"

	"github.com/CTAG07/markovwalk/pkg/markov"
)

func TestPruneModel(t *testing.T) {
	ctx, s, modelInfo := setupTestDBWithTraining(t)

	// Every transition except that -> that (frequency 4) occurs once.
	if err := s.PruneModel(ctx, modelInfo, 1); err != nil {
		t.Fatalf("PruneModel() failed: %v", err)
	}

	stats, err := s.GetModelStats(ctx, modelInfo)
	if err != nil {
		t.Fatalf("GetModelStats() failed: %v", err)
	}
	want := ModelStats{States: 1, Transitions: 1, TotalFrequency: 4}
	if stats != want {
		t.Errorf("expected stats %+v after pruning, got %+v", want, stats)
	}

	chain, err := Load[string](ctx, s, modelInfo)
	if err != nil {
		t.Fatalf("Load() after prune failed: %v", err)
	}
	if !reflect.DeepEqual(chain.States(), []string{"that"}) {
		t.Errorf("expected only 'that' to survive, got %v", chain.States())
	}
	for i := 0; i < 5; i++ {
		if next := chain.Next(); next != "that" {
			t.Fatalf("expected pruned chain to loop on 'that', got %q", next)
		}
	}
}

func TestPruneModelKeepsFrequentLinks(t *testing.T) {
	ctx, s, modelInfo := setupTestDBWithTraining(t)

	if err := s.PruneModel(ctx, modelInfo, 0); err != nil {
		t.Fatalf("PruneModel() failed: %v", err)
	}
	stats, _ := s.GetModelStats(ctx, modelInfo)
	want := ModelStats{States: 7, Transitions: 7, TotalFrequency: 10}
	if stats != want {
		t.Errorf("expected pruning at 0 to change nothing, got %+v", stats)
	}
}

func TestPruneModelEverything(t *testing.T) {
	ctx, s, modelInfo := setupTestDBWithTraining(t)

	if err := s.PruneModel(ctx, modelInfo, 100); err != nil {
		t.Fatalf("PruneModel() failed: %v", err)
	}
	stats, _ := s.GetModelStats(ctx, modelInfo)
	if stats != (ModelStats{}) {
		t.Errorf("expected an empty model, got %+v", stats)
	}
	if _, err := Load[string](ctx, s, modelInfo); !errors.Is(err, markov.ErrEmptySequence) {
		t.Errorf("expected ErrEmptySequence after pruning everything, got %v", err)
	}
}

func TestPruneModelDropsStaleCursor(t *testing.T) {
	ctx, s, modelInfo := setupTestDBWithTraining(t)

	chain, _ := Load[string](ctx, s, modelInfo)
	_ = chain.Seed("wrong")
	if err := SaveCursor(ctx, s, modelInfo, chain); err != nil {
		t.Fatalf("SaveCursor() failed: %v", err)
	}
	if err := s.PruneModel(ctx, modelInfo, 1); err != nil {
		t.Fatalf("PruneModel() failed: %v", err)
	}

	reloaded, err := Load[string](ctx, s, modelInfo)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if _, ok := reloaded.Cursor(); ok {
		t.Error("expected a cursor on a pruned state to be discarded")
	}
}
