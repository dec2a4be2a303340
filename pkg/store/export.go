package store

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/CTAG07/markovwalk/pkg/markov"
)

// Export loads model and writes its snapshot to w. This is useful for
// backups or for moving a model between databases.
func Export[T cmp.Ordered](ctx context.Context, s *Store, model ModelInfo, w io.Writer, format markov.Format) error {
	chain, err := Load[T](ctx, s, model)
	if err != nil {
		return err
	}
	if err = chain.Export(w, format); err != nil {
		return err
	}

	stats := chain.Stats()
	s.logger.InfoContext(ctx, "Model exported",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.Id),
		slog.String("format", string(format)),
		slog.Int("states_exported", stats.States),
		slog.Int("transitions_exported", stats.Transitions),
	)
	return nil
}

// Import reads a snapshot from r and merges it into the model called name.
// If the model exists its frequencies are added to the imported ones;
// otherwise it is created with the snapshot's strategy. A cursor in the
// snapshot replaces the stored one. The operation is transactional.
func Import[T cmp.Ordered](ctx context.Context, s *Store, name string, r io.Reader, format markov.Format) (ModelInfo, error) {
	snap, err := markov.DecodeSnapshot[T](r, format)
	if err != nil {
		return ModelInfo{}, err
	}
	// Restoring validates the snapshot before anything is written.
	chain, err := markov.Restore(snap, markov.WithLogger(s.logger))
	if err != nil {
		return ModelInfo{}, fmt.Errorf("invalid snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ModelInfo{}, fmt.Errorf("could not begin transaction for import: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	model, err := s.getOrInsertModel(ctx, tx, name, chain.Strategy())
	if err != nil {
		return ModelInfo{}, err
	}

	ids := s.newStateIDs(ctx, tx, model)
	stmtInsertLink := tx.StmtContext(ctx, s.stmtInsertLink)

	// Every state is written, including dead ends that only appear as targets.
	for _, v := range snap.States {
		text, err := encodeState(v)
		if err != nil {
			return ModelInfo{}, err
		}
		if _, err = ids.get(text); err != nil {
			return ModelInfo{}, err
		}
	}

	pairs := chain.Pairs()
	for _, p := range pairs {
		fromText, err := encodeState(p.From)
		if err != nil {
			return ModelInfo{}, err
		}
		toText, err := encodeState(p.To)
		if err != nil {
			return ModelInfo{}, err
		}
		fromID, err := ids.get(fromText)
		if err != nil {
			return ModelInfo{}, err
		}
		toID, err := ids.get(toText)
		if err != nil {
			return ModelInfo{}, err
		}
		if _, err = stmtInsertLink.ExecContext(ctx, model.Id, fromID, toID, p.Count); err != nil {
			return ModelInfo{}, fmt.Errorf("failed to insert transition (%d -> %d): %w", fromID, toID, err)
		}
	}

	if v, ok := chain.Cursor(); ok {
		text, err := encodeState(v)
		if err != nil {
			return ModelInfo{}, err
		}
		if _, err = tx.StmtContext(ctx, s.stmtSetCursor).ExecContext(ctx, text, model.Id); err != nil {
			return ModelInfo{}, fmt.Errorf("could not save cursor for model %d: %w", model.Id, err)
		}
	}

	s.logger.InfoContext(ctx, "Model imported successfully",
		slog.String("model_name", model.Name),
		slog.Int("target_model_id", model.Id),
		slog.Int("states_merged", len(snap.States)),
		slog.Int("transitions_merged", len(pairs)),
	)

	if err = tx.Commit(); err != nil {
		return ModelInfo{}, err
	}
	return model, nil
}
