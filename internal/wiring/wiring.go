// Package wiring assembles the application services over a persistence store.
package wiring

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/example/akiya-reservations/internal/application"
	"github.com/example/akiya-reservations/internal/drafts"
	"github.com/example/akiya-reservations/internal/persistence"
)

// Store is the union of repositories the services need.
type Store interface {
	persistence.UserRepository
	persistence.ListingRepository
	persistence.ReservationRepository
	persistence.SessionRepository
}

// Options tunes Build. Zero values select production defaults.
type Options struct {
	Now             func() time.Time
	IDGenerator     func() string
	TokenGenerator  func() string
	SessionTTL      time.Duration
	LegacyAdminCode string
	Location        *time.Location
	Drafts          application.DraftStore
	DraftTTL        time.Duration
	SnapshotTTL     time.Duration
	HashPassword    application.PasswordHasher
	Logger          *logrus.Logger
}

// Services holds every application service.
type Services struct {
	Auth         *application.AuthService
	Gate         *application.AccessGate
	Listings     *application.ListingService
	Catalog      *application.Catalog
	Reservations *application.ReservationService
	Drafts       *application.DraftService
}

// Build wires the services over store.
func Build(store Store, opts Options) Services {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	idGenerator := opts.IDGenerator
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	tokenGenerator := opts.TokenGenerator
	if tokenGenerator == nil {
		tokenGenerator = func() string { return RandomHex(32) }
	}
	draftStore := opts.Drafts
	if draftStore == nil {
		draftStore = drafts.NewMemoryStore(now)
	}

	auth := application.NewAuthService(newUserStoreAdapter(store), newSessionRepositoryAdapter(store), application.AuthOptions{
		IDGenerator:     idGenerator,
		TokenGenerator:  tokenGenerator,
		Now:             now,
		SessionTTL:      opts.SessionTTL,
		LegacyAdminCode: opts.LegacyAdminCode,
		HashPassword:    opts.HashPassword,
		Logger:          opts.Logger,
	})
	listings := application.NewListingService(newListingRepositoryAdapter(store), idGenerator, now, opts.Logger)
	reservations := application.NewReservationService(
		newReservationRepositoryAdapter(store),
		listings,
		auth,
		idGenerator,
		now,
		opts.Location,
		opts.Logger,
	)

	return Services{
		Auth:         auth,
		Gate:         application.NewAccessGate(auth, auth, opts.Logger),
		Listings:     listings,
		Catalog:      application.NewCatalog(listings, application.NewCatalogSnapshots(opts.SnapshotTTL, 0, now)),
		Reservations: reservations,
		Drafts:       application.NewDraftService(draftStore, reservations, opts.DraftTTL, opts.Logger),
	}
}

// RandomHex returns n random bytes hex encoded.
func RandomHex(n int) string {
	if n <= 0 {
		n = 16
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
