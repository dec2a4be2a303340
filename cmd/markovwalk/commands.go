package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/CTAG07/markovwalk/pkg/markov"
	"github.com/CTAG07/markovwalk/pkg/store"
	"github.com/natefinch/atomic"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

// lookupModel fetches a model by name, turning a missing row into a readable error.
func (a *app) lookupModel(ctx context.Context, name string) (store.ModelInfo, error) {
	if name == "" {
		return store.ModelInfo{}, errors.New("a model name is required (-model)")
	}
	model, err := a.store.GetModelInfo(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ModelInfo{}, fmt.Errorf("model '%s' not found", name)
	}
	return model, err
}

// ensureModel returns the named model, creating it with strategy if needed.
func (a *app) ensureModel(ctx context.Context, name string, strategy markov.Strategy) (store.ModelInfo, error) {
	model, err := a.store.GetModelInfo(ctx, name)
	if err == nil {
		return model, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return store.ModelInfo{}, err
	}
	if err = a.store.InsertModel(ctx, store.ModelInfo{Name: name, Strategy: strategy}); err != nil {
		return store.ModelInfo{}, fmt.Errorf("failed to create model '%s': %w", name, err)
	}
	return a.store.GetModelInfo(ctx, name)
}

func runTrain(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("train")
	name := fs.String("model", "", "model to train")
	strategy := fs.String("strategy", a.config.Markov.Strategy, "sampling strategy for a new model")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || fs.NArg() == 0 {
		return errors.New("usage: train -model NAME [-strategy alias|cumulative] FILE...")
	}
	parsed, err := markov.ParseStrategy(*strategy)
	if err != nil {
		return err
	}
	model, err := a.ensureModel(ctx, *name, parsed)
	if err != nil {
		return err
	}

	tokenizer := a.config.tokenizer()
	for _, path := range fs.Args() {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		tokens, err := markov.Tokenize(tokenizer, f)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("failed to tokenize %s: %w", path, err)
		}
		if len(tokens) == 0 {
			a.logger.Warn("No tokens found, skipping file", "path", path)
			continue
		}
		if err = store.Train(ctx, a.store, model, tokens); err != nil {
			return fmt.Errorf("failed to train on %s: %w", path, err)
		}
	}
	return nil
}

func runGenerate(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("generate")
	name := fs.String("model", "", "model to walk")
	n := fs.Int("n", 20, "number of tokens to generate")
	seed := fs.Uint64("seed", 0, "seed for reproducible output")
	from := fs.String("from", "", "token to continue from")
	reset := fs.Bool("reset", false, "forget the stored cursor before walking")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *n < 0 || *n > a.config.Markov.MaxLength {
		return fmt.Errorf("-n must be between 0 and %d", a.config.Markov.MaxLength)
	}

	model, err := a.lookupModel(ctx, *name)
	if err != nil {
		return err
	}
	chain, err := store.Load[string](ctx, a.store, model)
	if err != nil {
		return err
	}
	if *reset {
		chain.Initialize()
	}
	if *from != "" {
		if err = chain.Seed(*from); err != nil {
			return err
		}
	}

	src := markov.DefaultSource
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			src = markov.NewSource(*seed)
		}
	})

	if _, err = markov.WriteText(ctx, a.stdout, chain, a.config.tokenizer(), src, *n); err != nil {
		return err
	}
	if _, err = fmt.Fprintln(a.stdout); err != nil {
		return err
	}
	return store.SaveCursor(ctx, a.store, model, chain)
}

func runExport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("export")
	name := fs.String("model", "", "model to export")
	formatName := fs.String("format", "json", "snapshot format (json or yaml)")
	out := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	format, err := markov.ParseFormat(*formatName)
	if err != nil {
		return err
	}
	model, err := a.lookupModel(ctx, *name)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err = store.Export[string](ctx, a.store, model, &buf, format); err != nil {
		if errors.Is(err, markov.ErrEmptySequence) || errors.Is(err, markov.ErrAllDeadEnds) {
			return fmt.Errorf("model '%s' has no transitions to export: %w", model.Name, err)
		}
		return err
	}
	if *out == "" {
		_, err = buf.WriteTo(a.stdout)
		return err
	}
	return atomic.WriteFile(*out, &buf)
}

// formatFromPath guesses a snapshot format from a file extension.
func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return string(markov.FormatYAML)
	}
	return string(markov.FormatJSON)
}

func runImport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("import")
	name := fs.String("model", "", "target model (default: file name)")
	formatName := fs.String("format", "", "snapshot format (default: from file extension)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: import [-model NAME] [-format json|yaml] FILE")
	}
	path := fs.Arg(0)
	if *formatName == "" {
		*formatName = formatFromPath(path)
	}
	format, err := markov.ParseFormat(*formatName)
	if err != nil {
		return err
	}
	if *name == "" {
		*name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	model, err := store.Import[string](ctx, a.store, *name, f, format)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.stdout, "imported into model '%s' (id %d)\n", model.Name, model.Id)
	return err
}

// sortedModelList orders models by name in place and returns them.
func sortedModelList(list []store.ModelInfo) []store.ModelInfo {
	slices.SortFunc(list, func(x, y store.ModelInfo) int { return strings.Compare(x.Name, y.Name) })
	return list
}

func sortedModels(models map[string]store.ModelInfo) []store.ModelInfo {
	list := make([]store.ModelInfo, 0, len(models))
	for _, m := range models {
		list = append(list, m)
	}
	return sortedModelList(list)
}

func runList(ctx context.Context, a *app, _ []string) error {
	models, err := a.store.GetModelInfos(ctx)
	if err != nil {
		return err
	}
	for _, m := range sortedModels(models) {
		if _, err = fmt.Fprintf(a.stdout, "%d\t%s\t%s\n", m.Id, m.Name, m.Strategy); err != nil {
			return err
		}
	}
	return nil
}

func runStats(ctx context.Context, a *app, _ []string) error {
	stats, err := a.store.GetStats(ctx)
	if err != nil {
		return err
	}
	for _, m := range sortedModelList(stats.Models) {
		ms := stats.Stats[m.Id]
		if _, err = fmt.Fprintf(a.stdout, "%s\tstates=%d\ttransitions=%d\ttotal_frequency=%d\n",
			m.Name, ms.States, ms.Transitions, ms.TotalFrequency); err != nil {
			return err
		}
	}
	return nil
}

func runPrune(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("prune")
	name := fs.String("model", "", "model to prune")
	minFreq := fs.Int("min", 1, "remove transitions with at most this frequency")
	if err := fs.Parse(args); err != nil {
		return err
	}
	model, err := a.lookupModel(ctx, *name)
	if err != nil {
		return err
	}
	return a.store.PruneModel(ctx, model, *minFreq)
}

func runRemove(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("remove")
	name := fs.String("model", "", "model to remove")
	if err := fs.Parse(args); err != nil {
		return err
	}
	model, err := a.lookupModel(ctx, *name)
	if err != nil {
		return err
	}
	return a.store.RemoveModel(ctx, model)
}
