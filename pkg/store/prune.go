package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// PruneModel removes every transition of model with a frequency less than or
// equal to minFreq, then drops states no remaining transition refers to.
// Pruning can leave a model with no transitions at all, after which Load
// fails with markov.ErrAllDeadEnds until it is trained again.
func (s *Store) PruneModel(ctx context.Context, model ModelInfo, minFreq int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction for pruning: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	res, err := tx.StmtContext(ctx, s.stmtPruneModel).ExecContext(ctx, model.Id, minFreq)
	if err != nil {
		return fmt.Errorf("could not prune model %d: %w", model.Id, err)
	}
	linksRemoved, _ := res.RowsAffected()

	res, err = tx.StmtContext(ctx, s.stmtPruneStates).ExecContext(ctx, model.Id)
	if err != nil {
		return fmt.Errorf("could not prune states of model %d: %w", model.Id, err)
	}
	statesRemoved, _ := res.RowsAffected()

	s.logger.InfoContext(ctx, "Model pruned",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.Id),
		slog.Int("min_frequency", minFreq),
		slog.Int64("transitions_removed", linksRemoved),
		slog.Int64("states_removed", statesRemoved),
	)
	return tx.Commit()
}
