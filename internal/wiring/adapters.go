package wiring

import (
	"context"
	"time"

	"github.com/paulmach/orb"

	"github.com/example/akiya-reservations/internal/application"
	"github.com/example/akiya-reservations/internal/persistence"
)

type userStoreAdapter struct {
	repo persistence.UserRepository
}

func newUserStoreAdapter(repo persistence.UserRepository) *userStoreAdapter {
	return &userStoreAdapter{repo: repo}
}

func (a *userStoreAdapter) CreateUser(ctx context.Context, user application.User, passwordHash string) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(user, passwordHash)); err != nil {
		return application.User{}, err
	}
	stored, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userStoreAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userStoreAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{User: toApplicationUser(stored), PasswordHash: stored.PasswordHash}, nil
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, persistence.Session(session))
	if err != nil {
		return application.Session{}, err
	}
	return application.Session(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, err
	}
	return application.Session(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, err
	}
	return application.Session(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

type listingRepositoryAdapter struct {
	repo persistence.ListingRepository
}

func newListingRepositoryAdapter(repo persistence.ListingRepository) *listingRepositoryAdapter {
	return &listingRepositoryAdapter{repo: repo}
}

func (a *listingRepositoryAdapter) CreateListing(ctx context.Context, listing application.Listing) (application.Listing, error) {
	if err := a.repo.CreateListing(ctx, toPersistenceListing(listing)); err != nil {
		return application.Listing{}, err
	}
	return a.GetListing(ctx, listing.Kind, listing.ID)
}

func (a *listingRepositoryAdapter) UpdateListing(ctx context.Context, listing application.Listing) (application.Listing, error) {
	if err := a.repo.UpdateListing(ctx, toPersistenceListing(listing)); err != nil {
		return application.Listing{}, err
	}
	return a.GetListing(ctx, listing.Kind, listing.ID)
}

func (a *listingRepositoryAdapter) GetListing(ctx context.Context, kind application.ListingKind, id string) (application.Listing, error) {
	stored, err := a.repo.GetListing(ctx, string(kind), id)
	if err != nil {
		return application.Listing{}, err
	}
	return toApplicationListing(stored), nil
}

func (a *listingRepositoryAdapter) ListListings(ctx context.Context, kind application.ListingKind) ([]application.Listing, error) {
	stored, err := a.repo.ListListings(ctx, string(kind))
	if err != nil {
		return nil, err
	}
	listings := make([]application.Listing, 0, len(stored))
	for _, listing := range stored {
		listings = append(listings, toApplicationListing(listing))
	}
	return listings, nil
}

func (a *listingRepositoryAdapter) DeleteListing(ctx context.Context, kind application.ListingKind, id string) error {
	return a.repo.DeleteListing(ctx, string(kind), id)
}

type reservationRepositoryAdapter struct {
	repo persistence.ReservationRepository
}

func newReservationRepositoryAdapter(repo persistence.ReservationRepository) *reservationRepositoryAdapter {
	return &reservationRepositoryAdapter{repo: repo}
}

func (a *reservationRepositoryAdapter) CreateReservation(ctx context.Context, reservation application.Reservation) (application.Reservation, error) {
	if err := a.repo.CreateReservation(ctx, toPersistenceReservation(reservation)); err != nil {
		return application.Reservation{}, err
	}
	return a.GetReservation(ctx, reservation.ID)
}

func (a *reservationRepositoryAdapter) GetReservation(ctx context.Context, id string) (application.Reservation, error) {
	stored, err := a.repo.GetReservation(ctx, id)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored), nil
}

func (a *reservationRepositoryAdapter) ListReservations(ctx context.Context) ([]application.Reservation, error) {
	stored, err := a.repo.ListReservations(ctx)
	if err != nil {
		return nil, err
	}
	reservations := make([]application.Reservation, 0, len(stored))
	for _, reservation := range stored {
		reservations = append(reservations, toApplicationReservation(reservation))
	}
	return reservations, nil
}

func (a *reservationRepositoryAdapter) UpdateReservationStatus(ctx context.Context, id, status string, updatedAt time.Time) (application.Reservation, error) {
	if err := a.repo.UpdateReservationStatus(ctx, id, status, updatedAt); err != nil {
		return application.Reservation{}, err
	}
	return a.GetReservation(ctx, id)
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	return persistence.User{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		Phone:        user.Phone,
		PasswordHash: passwordHash,
		IsAdmin:      user.IsAdmin,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toApplicationUser(user persistence.User) application.User {
	return application.User{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Phone:     user.Phone,
		IsAdmin:   user.IsAdmin,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func toPersistenceListing(listing application.Listing) persistence.Listing {
	return persistence.Listing{
		ID:            listing.ID,
		Kind:          string(listing.Kind),
		Title:         listing.Title,
		Description:   listing.Description,
		Address:       listing.Address,
		Prefecture:    listing.Prefecture,
		AddressDetail: listing.AddressDetail,
		City:          listing.City,
		Lat:           listing.Lat(),
		Lng:           listing.Lng(),
		Price:         listing.Price,
		Size:          listing.Size,
		Images:        listing.Images,
		Period:        listing.Period,
		ImageURL:      listing.ImageURL,
		CreatedAt:     listing.CreatedAt,
		UpdatedAt:     listing.UpdatedAt,
	}
}

func toApplicationListing(listing persistence.Listing) application.Listing {
	out := application.Listing{
		ID:            listing.ID,
		Kind:          application.ListingKind(listing.Kind),
		Title:         listing.Title,
		Description:   listing.Description,
		Address:       listing.Address,
		Prefecture:    listing.Prefecture,
		City:          listing.City,
		AddressDetail: listing.AddressDetail,
		Price:         listing.Price,
		Size:          listing.Size,
		Images:        listing.Images,
		Period:        listing.Period,
		ImageURL:      listing.ImageURL,
		CreatedAt:     listing.CreatedAt,
		UpdatedAt:     listing.UpdatedAt,
	}
	if listing.Lat != nil && listing.Lng != nil {
		out.Location = &orb.Point{*listing.Lng, *listing.Lat}
	}
	return out
}

func toPersistenceReservation(reservation application.Reservation) persistence.Reservation {
	return persistence.Reservation{
		ID:        reservation.ID,
		HouseID:   optionalString(reservation.HouseID),
		MuseumID:  optionalString(reservation.MuseumID),
		UserID:    reservation.UserID,
		Name:      reservation.Name,
		Email:     reservation.Email,
		Contact:   reservation.Contact,
		Date:      reservation.Date,
		Payment:   reservation.Payment,
		Remarks:   reservation.Remarks,
		Status:    reservation.Status,
		CreatedAt: reservation.CreatedAt,
		UpdatedAt: reservation.UpdatedAt,
	}
}

func toApplicationReservation(reservation persistence.Reservation) application.Reservation {
	out := application.Reservation{
		ID:        reservation.ID,
		UserID:    reservation.UserID,
		Name:      reservation.Name,
		Email:     reservation.Email,
		Contact:   reservation.Contact,
		Date:      reservation.Date,
		Payment:   reservation.Payment,
		Remarks:   reservation.Remarks,
		Status:    reservation.Status,
		CreatedAt: reservation.CreatedAt,
		UpdatedAt: reservation.UpdatedAt,
	}
	if reservation.HouseID != nil {
		out.HouseID = *reservation.HouseID
	}
	if reservation.MuseumID != nil {
		out.MuseumID = *reservation.MuseumID
	}
	return out
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
