package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/CTAG07/markovwalk/pkg/markov"
)

// ModelInfo holds the metadata of a stored chain: its unique ID, its name,
// and the sampling strategy used when it is loaded.
type ModelInfo struct {
	Id       int             `json:"id"`
	Name     string          `json:"name"`
	Strategy markov.Strategy `json:"strategy"`
}

// SetupSchema initializes the tables used by the Store. It is idempotent and
// safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaModels = `
CREATE TABLE IF NOT EXISTS markov_models (
    model_id INTEGER PRIMARY KEY,
    model_name TEXT NOT NULL UNIQUE,
    model_strategy TEXT NOT NULL,
    model_cursor TEXT
);
`
		schemaStates = `
CREATE TABLE IF NOT EXISTS markov_states (
    state_id INTEGER PRIMARY KEY,
    model_id INTEGER NOT NULL,
    state_value TEXT NOT NULL,
    UNIQUE (model_id, state_value)
);
`
		schemaTransitions = `
CREATE TABLE IF NOT EXISTS markov_transitions (
    model_id INTEGER NOT NULL,
    from_state_id INTEGER NOT NULL,
    to_state_id INTEGER NOT NULL,
    frequency INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (model_id, from_state_id, to_state_id)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	// Rollback after a successful Commit is a no-op.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaModels); err != nil {
		return fmt.Errorf("could not create models schema: %w", err)
	}
	if _, err = tx.Exec(schemaStates); err != nil {
		return fmt.Errorf("could not create states schema: %w", err)
	}
	if _, err = tx.Exec(schemaTransitions); err != nil {
		return fmt.Errorf("could not create transitions schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// Store persists named Markov chains in a SQL database. It holds the
// connection and the prepared statements used by every operation.
type Store struct {
	db                   *sql.DB
	stmtGetModelInfo     *sql.Stmt
	stmtGetModels        *sql.Stmt
	stmtAddModel         *sql.Stmt
	stmtGetCursor        *sql.Stmt
	stmtSetCursor        *sql.Stmt
	stmtGetStates        *sql.Stmt
	stmtGetTransitions   *sql.Stmt
	stmtGetOrInsertState *sql.Stmt
	stmtInsertLink       *sql.Stmt
	stmtPruneModel       *sql.Stmt
	stmtPruneStates      *sql.Stmt
	stmtModelStates      *sql.Stmt
	stmtModelTransitions *sql.Stmt
	stmtModelFreq        *sql.Stmt
	logger               *slog.Logger
}

// NewStore prepares every statement the Store needs. SetupSchema must have
// been run on db first.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	stmts := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&s.stmtGetModelInfo, `SELECT model_id, model_strategy FROM markov_models WHERE model_name = ?;`},
		{&s.stmtGetModels, `SELECT model_id, model_name, model_strategy FROM markov_models;`},
		{&s.stmtAddModel, `INSERT INTO markov_models (model_name, model_strategy) VALUES (?, ?);`},
		{&s.stmtGetCursor, `SELECT model_cursor FROM markov_models WHERE model_id = ?;`},
		{&s.stmtSetCursor, `UPDATE markov_models SET model_cursor = ? WHERE model_id = ?;`},
		{&s.stmtGetStates, `SELECT state_id, state_value FROM markov_states WHERE model_id = ?;`},
		{&s.stmtGetTransitions, `SELECT from_state_id, to_state_id, frequency FROM markov_transitions WHERE model_id = ?;`},
		{&s.stmtGetOrInsertState, `INSERT INTO markov_states (model_id, state_value) VALUES (?, ?) ON CONFLICT(model_id, state_value) DO UPDATE SET state_value=excluded.state_value RETURNING state_id;`},
		{&s.stmtInsertLink, `INSERT INTO markov_transitions (model_id, from_state_id, to_state_id, frequency) VALUES (?, ?, ?, ?) ON CONFLICT(model_id, from_state_id, to_state_id) DO UPDATE SET frequency = frequency + excluded.frequency;`},
		{&s.stmtPruneModel, `DELETE FROM markov_transitions WHERE model_id = ? AND frequency <= ?;`},
		{&s.stmtPruneStates, `DELETE FROM markov_states WHERE model_id = ?1 AND state_id NOT IN (SELECT from_state_id FROM markov_transitions WHERE model_id = ?1 UNION SELECT to_state_id FROM markov_transitions WHERE model_id = ?1);`},
		{&s.stmtModelStates, `SELECT COUNT(*) FROM markov_states WHERE model_id = ?;`},
		{&s.stmtModelTransitions, `SELECT COUNT(*) FROM markov_transitions WHERE model_id = ?;`},
		{&s.stmtModelFreq, `SELECT coalesce(SUM(frequency), 0) FROM markov_transitions WHERE model_id = ?;`},
	}

	for _, st := range stmts {
		stmt, err := db.Prepare(st.query)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("could not prepare statement %q: %w", st.query, err)
		}
		*st.dst = stmt
	}
	return s, nil
}

// Close releases all prepared statements held by the Store. The underlying
// database is left open.
func (s *Store) Close() {
	for _, stmt := range []*sql.Stmt{
		s.stmtGetModelInfo, s.stmtGetModels, s.stmtAddModel, s.stmtGetCursor,
		s.stmtSetCursor, s.stmtGetStates, s.stmtGetTransitions, s.stmtGetOrInsertState,
		s.stmtInsertLink, s.stmtPruneModel, s.stmtPruneStates, s.stmtModelStates,
		s.stmtModelTransitions, s.stmtModelFreq,
	} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}

// SetLogger sets the logger for the Store and for the chains it loads. By
// default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// GetModelInfos retrieves metadata for every stored model, keyed by name.
func (s *Store) GetModelInfos(ctx context.Context) (map[string]ModelInfo, error) {
	rows, err := s.stmtGetModels.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	models := make(map[string]ModelInfo)
	for rows.Next() {
		var model ModelInfo
		if err = rows.Scan(&model.Id, &model.Name, &model.Strategy); err != nil {
			return nil, err
		}
		models[model.Name] = model
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return models, nil
}

// GetModelInfo retrieves the metadata for a single model. It returns
// sql.ErrNoRows if no model has that name.
func (s *Store) GetModelInfo(ctx context.Context, modelName string) (ModelInfo, error) {
	model := ModelInfo{Name: modelName}
	err := s.stmtGetModelInfo.QueryRowContext(ctx, modelName).Scan(&model.Id, &model.Strategy)
	if err != nil {
		return ModelInfo{}, err
	}
	return model, nil
}

// InsertModel creates a new, empty model. An empty strategy selects
// markov.StrategyAlias.
func (s *Store) InsertModel(ctx context.Context, model ModelInfo) error {
	strategy, err := markov.ParseStrategy(string(model.Strategy))
	if err != nil {
		return err
	}
	_, err = s.stmtAddModel.ExecContext(ctx, model.Name, string(strategy))
	return err
}

// getOrInsertModel returns the named model, creating it inside tx if needed.
func (s *Store) getOrInsertModel(ctx context.Context, tx *sql.Tx, name string, strategy markov.Strategy) (ModelInfo, error) {
	model := ModelInfo{Name: name}
	err := tx.StmtContext(ctx, s.stmtGetModelInfo).QueryRowContext(ctx, name).Scan(&model.Id, &model.Strategy)
	if err == nil {
		return model, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return ModelInfo{}, fmt.Errorf("failed to query for model '%s': %w", name, err)
	}

	res, err := tx.StmtContext(ctx, s.stmtAddModel).ExecContext(ctx, name, string(strategy))
	if err != nil {
		return ModelInfo{}, fmt.Errorf("failed to insert new model '%s': %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return ModelInfo{}, err
	}
	model.Id = int(id)
	model.Strategy = strategy
	return model, nil
}

// RemoveModel deletes a model with all of its states and transitions. The
// operation is performed within a transaction.
func (s *Store) RemoveModel(ctx context.Context, model ModelInfo) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.ExecContext(ctx, "DELETE FROM markov_transitions WHERE model_id = ?", model.Id); err != nil {
		return fmt.Errorf("failed to remove transitions for model %d: %w", model.Id, err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM markov_states WHERE model_id = ?", model.Id); err != nil {
		return fmt.Errorf("failed to remove states for model %d: %w", model.Id, err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM markov_models WHERE model_id = ?", model.Id); err != nil {
		return fmt.Errorf("failed to remove model %d: %w", model.Id, err)
	}

	s.logger.InfoContext(ctx, "Model removed successfully",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.Id),
	)

	return tx.Commit()
}
