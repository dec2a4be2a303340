package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// trainingText is the tokenized sentence the store tests train on.
var trainingText = []string{"I", "think", "that", "that", "that", "that", "that", "boy", "wrote", "is", "wrong"}

// setupTestDB creates a fresh SQLite database and Store for testing.
// It uses t.Cleanup to ensure resources are released.
func setupTestDB(t *testing.T) (*sql.DB, *Store) {
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=-4000")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	s, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(s.Close)

	return db, s
}

// openBenchDB opens a database tuned for benchmarking.
func openBenchDB(path string) (*sql.DB, error) {
	return sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=OFF&_cache_size=-16000")
}

// setupTestDBWithTraining is a convenience helper that also trains a default model.
func setupTestDBWithTraining(t *testing.T) (context.Context, *Store, ModelInfo) {
	_, s := setupTestDB(t)
	ctx := context.Background()
	modelInfo := ModelInfo{Name: "test_model"}

	if err := s.InsertModel(ctx, modelInfo); err != nil {
		t.Fatalf("setup: InsertModel() failed: %v", err)
	}
	modelInfo, err := s.GetModelInfo(ctx, modelInfo.Name)
	if err != nil {
		t.Fatalf("setup: GetModelInfo() failed: %v", err)
	}
	if err := Train(ctx, s, modelInfo, trainingText); err != nil {
		t.Fatalf("setup: Train() failed: %v", err)
	}
	return ctx, s, modelInfo
}
