package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/mentor-scheduler/internal/persistence"
	"github.com/example/mentor-scheduler/internal/persistence/sqlite"
	"github.com/example/mentor-scheduler/internal/persistence/sqlite/migration"
)

// SQLiteHarness bundles migrated repositories backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Pool     *sqlite.ConnectionPool
	Rules    persistence.AvailabilityRuleRepository
	Blocked  persistence.BlockedTimeRepository
	Sessions persistence.SessionRepository

	cleanup func()
}

// Close releases resources associated with the harness. It is registered as
// a test cleanup by NewSQLiteHarness, so calling it is optional.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens a temporary database file, applies all migrations
// and returns repositories bound to it.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "mentorscheduler.db")

	pool, err := sqlite.NewConnectionPool(migration.DefaultSQLiteConfig(path))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := pool.Migrate(context.Background()); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to apply migrations: %v", err)
	}

	harness := &SQLiteHarness{
		Pool:     pool,
		Rules:    sqlite.NewRuleRepository(pool),
		Blocked:  sqlite.NewBlockedTimeRepository(pool),
		Sessions: sqlite.NewSessionRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
