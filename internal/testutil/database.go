package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/biweekly/internal/model"
	"github.com/Veraticus/biweekly/internal/period"
	"github.com/Veraticus/biweekly/internal/storage"
)

// TestDB wraps an in-memory history store.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a migrated in-memory history store and closes it when
// the test ends.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// MustRecord stores gen or fails the test.
func (db *TestDB) MustRecord(gen *model.Generation) {
	db.t.Helper()
	if err := db.Storage.RecordGeneration(context.Background(), gen); err != nil {
		db.t.Fatalf("failed to record generation %s: %v", gen.Period, err)
	}
}

// NewGeneration builds a plausible generation for p anchored at start.
// Sub-periods that run past the month are marked as not retained.
func NewGeneration(p period.Period, start time.Time, balances ...model.Balance) *model.Generation {
	gen := &model.Generation{
		ID:         "run-" + p.FileName(),
		Period:     p,
		OutputPath: "/budgets/" + p.FileName(),
		AnchorKind: model.AnchorOperator,
		AnchorDate: start,
		CreatedAt:  time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC),
		Balances:   balances,
	}
	for _, sp := range period.Chain(start) {
		gen.SubPeriods = append(gen.SubPeriods, model.SubPeriod{SubPeriod: sp, Retained: !sp.Overflows(p)})
	}
	return gen
}
