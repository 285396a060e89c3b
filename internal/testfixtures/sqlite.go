package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/cleaning-roster/internal/dates"
	"github.com/example/cleaning-roster/internal/persistence"
	"github.com/example/cleaning-roster/internal/persistence/sqlite"
)

// SQLiteHarness backs gateway tests with a migrated, temporary SQLite file.
type SQLiteHarness struct {
	Gateway persistence.Gateway
	Store   *sqlite.Store

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a harness on a temporary file that is migrated
// automatically. A cleanup callback is registered with the provided
// testing.TB, so calling Close is optional.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "roster.db")

	store, err := sqlite.Open(path)
	if err != nil {
		tb.Fatalf("failed to open store: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate store: %v", err)
	}

	harness := &SQLiteHarness{
		Gateway: store,
		Store:   store,
		cleanup: func() {
			_ = store.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedUser upserts the user and fails the test on error.
func (h *SQLiteHarness) SeedUser(tb testing.TB, user persistence.User) persistence.User {
	tb.Helper()
	result, err := h.Gateway.UpsertUser(context.Background(), user)
	if err != nil {
		tb.Fatalf("failed to seed user %s: %v", user.ExternalID, err)
	}
	return result.User
}

// SeedTemplate creates the template and fails the test on error.
func (h *SQLiteHarness) SeedTemplate(tb testing.TB, template persistence.Template) persistence.Template {
	tb.Helper()
	if _, err := h.Gateway.CreateTemplate(context.Background(), template); err != nil {
		tb.Fatalf("failed to seed template %s: %v", template.ID, err)
	}
	return template
}

// SeedInstance creates the instance and fails the test on error.
func (h *SQLiteHarness) SeedInstance(tb testing.TB, spec persistence.InstanceSpec) persistence.InstanceSpec {
	tb.Helper()
	if _, err := h.Gateway.CreateInstance(context.Background(), spec); err != nil {
		tb.Fatalf("failed to seed instance %s: %v", spec.ID, err)
	}
	return spec
}

// SeedJoin joins the user to the instance and fails the test on error. The
// join is dated at the instance start so the past-date guard never trips.
func (h *SQLiteHarness) SeedJoin(tb testing.TB, externalID, instanceID string, today dates.Date) {
	tb.Helper()
	if _, err := h.Gateway.Join(context.Background(), externalID, instanceID, today); err != nil {
		tb.Fatalf("failed to seed join of %s into %s: %v", externalID, instanceID, err)
	}
}
