// Package testutil provides shared fixtures for tests that need a history
// database or realistic analyses.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/heartline/internal/model"
	"github.com/Veraticus/heartline/internal/service"
	"github.com/Veraticus/heartline/internal/storage"
)

// TestDB is a migrated in-memory history database.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// SetupTestDB creates an in-memory database, migrates it and seeds it with
// analyses. The database is closed when the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t,
//		testutil.NewAnalysis("a1").WithProbability(0.9).Build(),
//		testutil.NewAnalysis("a2").WithProbability(0.1).Labeled(0).Build(),
//	)
func SetupTestDB(t *testing.T, seed ...model.Analysis) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	if len(seed) > 0 {
		if err := store.SaveAnalyses(ctx, seed); err != nil {
			t.Fatalf("failed to seed analyses: %v", err)
		}
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// MustList returns every stored analysis matching filter or fails the test.
func (db *TestDB) MustList(filter service.AnalysisFilter) []model.Analysis {
	db.t.Helper()
	analyses, err := db.Storage.ListAnalyses(context.Background(), filter)
	if err != nil {
		db.t.Fatalf("failed to list analyses: %v", err)
	}
	return analyses
}
