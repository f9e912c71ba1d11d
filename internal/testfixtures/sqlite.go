package testfixtures

import (
	"context"
	"testing"

	"github.com/example/akiya-reservations/internal/persistence/sqlite"
	"github.com/example/akiya-reservations/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides a migrated in-memory store plus seeding helpers.
type SQLiteHarness struct {
	Store *sqlite.Store
	tb    testing.TB
}

// NewSQLiteHarness opens and migrates an in-memory database. It is closed
// automatically when the test finishes.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	store, err := sqlite.OpenWithConfig(migration.InMemoryTestSQLiteConfig())
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	if err := store.Migrate(context.Background(), nil); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	tb.Cleanup(func() { _ = store.Close() })
	return &SQLiteHarness{Store: store, tb: tb}
}

// SeedUser stores the fixture with a hashed password.
func (h *SQLiteHarness) SeedUser(fixture UserFixture) UserFixture {
	h.tb.Helper()
	row, err := fixture.Persistence()
	if err != nil {
		h.tb.Fatalf("failed to hash fixture password: %v", err)
	}
	if err := h.Store.CreateUser(context.Background(), row); err != nil {
		h.tb.Fatalf("failed to seed user: %v", err)
	}
	return fixture
}

// SeedListing stores the fixture.
func (h *SQLiteHarness) SeedListing(fixture ListingFixture) ListingFixture {
	h.tb.Helper()
	if err := h.Store.CreateListing(context.Background(), fixture.Listing); err != nil {
		h.tb.Fatalf("failed to seed listing: %v", err)
	}
	return fixture
}

// SeedReservation stores the fixture.
func (h *SQLiteHarness) SeedReservation(fixture ReservationFixture) ReservationFixture {
	h.tb.Helper()
	if err := h.Store.CreateReservation(context.Background(), fixture.Reservation); err != nil {
		h.tb.Fatalf("failed to seed reservation: %v", err)
	}
	return fixture
}
