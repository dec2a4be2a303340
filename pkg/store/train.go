package store

import (
	"cmp"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/CTAG07/markovwalk/pkg/markov"
)

// link is a buffered transition increment.
type link struct {
	fromID    int
	toID      int
	frequency int
}

// encodeState renders a state as the text stored in markov_states.
func encodeState[T cmp.Ordered](v T) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("could not encode state %v: %w", v, err)
	}
	return string(b), nil
}

func decodeState[T cmp.Ordered](text string) (T, error) {
	var v T
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return v, fmt.Errorf("could not decode state %q: %w", text, err)
	}
	return v, nil
}

// stateIDs resolves state values to their row IDs within one transaction,
// inserting unseen states and caching every lookup.
type stateIDs struct {
	ctx   context.Context
	model ModelInfo
	stmt  *sql.Stmt
	cache map[string]int
}

func (s *Store) newStateIDs(ctx context.Context, tx *sql.Tx, model ModelInfo) *stateIDs {
	return &stateIDs{
		ctx:   ctx,
		model: model,
		stmt:  tx.StmtContext(ctx, s.stmtGetOrInsertState),
		cache: make(map[string]int),
	}
}

func (ids *stateIDs) get(text string) (int, error) {
	if id, ok := ids.cache[text]; ok {
		return id, nil
	}
	var id int
	if err := ids.stmt.QueryRowContext(ids.ctx, ids.model.Id, text).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to get or insert state %s: %w", text, err)
	}
	ids.cache[text] = id
	return id, nil
}

// Train merges the transitions observed in seq into a stored model: every
// adjacent pair adds one to its frequency and every element becomes a
// state. The whole sequence is written in a single transaction.
func Train[T cmp.Ordered](ctx context.Context, s *Store, model ModelInfo, seq []T) error {
	// linkBatchSize bounds how many increments are buffered before being written.
	const linkBatchSize = 1000

	if len(seq) == 0 {
		return markov.ErrEmptySequence
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	ids := s.newStateIDs(ctx, tx, model)
	stmtInsertLink := tx.StmtContext(ctx, s.stmtInsertLink)

	batch := make([]link, 0, linkBatchSize)
	commitBatch := func() error {
		for _, l := range batch {
			if _, err := stmtInsertLink.ExecContext(ctx, model.Id, l.fromID, l.toID, l.frequency); err != nil {
				return fmt.Errorf("failed during batch insert of transition (%d -> %d): %w", l.fromID, l.toID, err)
			}
		}
		batch = batch[:0]
		return nil
	}

	prevID := -1
	var transitions int64
	for _, elem := range seq {
		text, err := encodeState(elem)
		if err != nil {
			return err
		}
		curID, err := ids.get(text)
		if err != nil {
			return err
		}
		if prevID >= 0 {
			batch = append(batch, link{fromID: prevID, toID: curID, frequency: 1})
			transitions++
			if len(batch) >= linkBatchSize {
				if err := commitBatch(); err != nil {
					return err
				}
			}
		}
		prevID = curID
	}
	if err := commitBatch(); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Training completed",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.Id),
		slog.Int("elements_processed", len(seq)),
		slog.Int64("transitions_processed", transitions),
	)

	return tx.Commit()
}

// Load rebuilds a stored model as a chain using the model's strategy, and
// restores its persisted cursor. A model with no states fails with
// markov.ErrEmptySequence and one without transitions with
// markov.ErrAllDeadEnds.
func Load[T cmp.Ordered](ctx context.Context, s *Store, model ModelInfo, opts ...markov.BuildOption) (*markov.Chain[T], error) {
	type storedState struct {
		id    int
		value T
	}

	rows, err := s.stmtGetStates.QueryContext(ctx, model.Id)
	if err != nil {
		return nil, fmt.Errorf("could not query states for model %d: %w", model.Id, err)
	}
	var stored []storedState
	for rows.Next() {
		var id int
		var text string
		if err = rows.Scan(&id, &text); err != nil {
			_ = rows.Close()
			return nil, err
		}
		v, err := decodeState[T](text)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		stored = append(stored, storedState{id: id, value: v})
	}
	_ = rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(stored, func(a, b storedState) int { return cmp.Compare(a.value, b.value) })
	states := make([]T, len(stored))
	index := make(map[int]int, len(stored))
	for i, st := range stored {
		states[i] = st.value
		index[st.id] = i
	}

	m := markov.NewMatrix(len(states))
	tRows, err := s.stmtGetTransitions.QueryContext(ctx, model.Id)
	if err != nil {
		return nil, fmt.Errorf("could not query transitions for model %d: %w", model.Id, err)
	}
	for tRows.Next() {
		var fromID, toID, frequency int
		if err = tRows.Scan(&fromID, &toID, &frequency); err != nil {
			_ = tRows.Close()
			return nil, err
		}
		from, okFrom := index[fromID]
		to, okTo := index[toID]
		if !okFrom || !okTo {
			_ = tRows.Close()
			return nil, fmt.Errorf("consistency error: transition (%d -> %d) references a missing state", fromID, toID)
		}
		m[from][to] += frequency
	}
	_ = tRows.Close()
	if err = tRows.Err(); err != nil {
		return nil, err
	}

	buildOpts := append([]markov.BuildOption{markov.WithStrategy(model.Strategy), markov.WithLogger(s.logger)}, opts...)
	chain, err := markov.FromMatrix(states, m, buildOpts...)
	if err != nil {
		return nil, fmt.Errorf("could not build model '%s': %w", model.Name, err)
	}

	var cursor sql.NullString
	if err = s.stmtGetCursor.QueryRowContext(ctx, model.Id).Scan(&cursor); err != nil {
		return nil, fmt.Errorf("could not read cursor for model %d: %w", model.Id, err)
	}
	if cursor.Valid {
		v, err := decodeState[T](cursor.String)
		if err != nil {
			return nil, err
		}
		if err = chain.Seed(v); err != nil {
			if !errors.Is(err, markov.ErrUnknownState) {
				return nil, err
			}
			// The cursor's state was pruned away; start fresh.
			s.logger.DebugContext(ctx, "Stored cursor no longer in state space",
				slog.String("model_name", model.Name),
				slog.String("cursor", cursor.String),
			)
		}
	}

	s.logger.DebugContext(ctx, "Model loaded",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.Id),
		slog.Int("states", len(states)),
	)
	return chain, nil
}

// SaveCursor persists the chain's cursor for model so that a later Load
// continues the walk where this chain left off. An uninitialized chain
// clears the stored cursor.
func SaveCursor[T cmp.Ordered](ctx context.Context, s *Store, model ModelInfo, chain *markov.Chain[T]) error {
	var cursor sql.NullString
	if v, ok := chain.Cursor(); ok {
		text, err := encodeState(v)
		if err != nil {
			return err
		}
		cursor = sql.NullString{String: text, Valid: true}
	}
	if _, err := s.stmtSetCursor.ExecContext(ctx, cursor, model.Id); err != nil {
		return fmt.Errorf("could not save cursor for model %d: %w", model.Id, err)
	}
	return nil
}
