package testutil

import (
	"testing"

	"sc-go/internal/database"
	"sc-go/internal/sc"
)

// NewTestDatabase creates a migrated in-memory SQLite database whose
// timestamps come from clock (FixedClock when nil).
// The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T, clock sc.Clock) *database.SQLiteDatabase {
	t.Helper()

	if clock == nil {
		clock = FixedClock()
	}
	db, err := database.NewSQLiteDatabase(":memory:", clock)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
