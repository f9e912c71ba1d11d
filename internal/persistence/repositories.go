package persistence

import (
	"context"
	"time"
)

// UserRepository exposes account storage.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// ListingRepository exposes CRUD operations for houses and museums.
type ListingRepository interface {
	CreateListing(ctx context.Context, listing Listing) error
	UpdateListing(ctx context.Context, listing Listing) error
	GetListing(ctx context.Context, kind, id string) (Listing, error)
	ListListings(ctx context.Context, kind string) ([]Listing, error)
	DeleteListing(ctx context.Context, kind, id string) error
}

// ReservationRepository stores reservation requests and their moderation status.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation Reservation) error
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context) ([]Reservation, error)
	UpdateReservationStatus(ctx context.Context, id, status string, updatedAt time.Time) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
