package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/akiya-reservations/internal/persistence"
)

// ReservationRepository captures the persistence operations needed by the reservation service.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context) ([]Reservation, error)
	UpdateReservationStatus(ctx context.Context, id, status string, updatedAt time.Time) (Reservation, error)
}

// ListingReader resolves a listing under a kind.
type ListingReader interface {
	GetListing(ctx context.Context, kind ListingKind, id string) (Listing, error)
}

// ReservationService handles visitor intake and admin moderation of reservations.
type ReservationService struct {
	reservations ReservationRepository
	listings     ListingReader
	profiles     ProfileReader
	idGenerator  func() string
	now          func() time.Time
	location     *time.Location
	logger       *logrus.Logger
}

// NewReservationService constructs a reservation service. A nil location selects DefaultLocation.
func NewReservationService(
	reservations ReservationRepository,
	listings ListingReader,
	profiles ProfileReader,
	idGenerator func() string,
	now func() time.Time,
	location *time.Location,
	logger *logrus.Logger,
) *ReservationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = DefaultLocation
	}
	return &ReservationService{
		reservations: reservations,
		listings:     listings,
		profiles:     profiles,
		idGenerator:  idGenerator,
		now:          now,
		location:     location,
		logger:       defaultLogger(logger),
	}
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, fields logrus.Fields) *logrus.Entry {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, fields)
}

// Location reports the timezone civil dates are interpreted in.
func (s *ReservationService) Location() *time.Location {
	return s.location
}

// PrepareIntake loads the selected listing and prefills the form from the visitor profile.
func (s *ReservationService) PrepareIntake(ctx context.Context, principal Principal, ref ListingRef) (form IntakeForm, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.listings == nil {
		err = fmt.Errorf("listing reader not configured")
		return
	}

	kind, id := ref.Kind()
	logger := s.loggerWith(ctx, "PrepareIntake", logrus.Fields{
		"principal_id": principal.UserID,
		"kind":         kind,
		"listing_id":   id,
	})
	defer func() {
		if err != nil {
			logger.WithError(err).WithField("error_kind", ErrorKind(err)).Warn("intake unavailable")
		}
	}()

	if kind == "" {
		err = ErrNoListingSelected
		return
	}

	var listing Listing
	listing, err = s.listings.GetListing(ctx, kind, id)
	if err != nil {
		err = mapListingRepoError(err)
		return
	}

	form = IntakeForm{
		Listing:            listing,
		MinDate:            todayIn(s.now(), s.location),
		RemarksPlaceholder: "Reservation for " + listing.DisplayTitle(),
	}

	if s.profiles != nil && principal.UserID != "" {
		profile, pErr := s.profiles.Profile(ctx, principal.UserID)
		if pErr == nil {
			form.Name = profile.Name
			form.Email = profile.Email
			form.Contact = profile.Phone
		} else {
			logger.WithError(pErr).Debug("profile prefill skipped")
		}
	}
	return
}

// Submit validates and persists a pending reservation.
func (s *ReservationService) Submit(ctx context.Context, principal Principal, input ReservationInput) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Submit", logrus.Fields{"principal_id": principal.UserID})
	defer func() {
		logOutcome(logger.WithField("reservation_id", reservation.ID), err, "failed to submit reservation", "reservation submitted")
	}()

	if principal.UserID == "" {
		err = ErrUnauthorized
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	var listing Listing
	input, listing, err = s.validateReservation(ctx, input)
	if err != nil {
		return
	}

	reservation = Reservation{
		ID:        s.idGenerator(),
		UserID:    principal.UserID,
		Name:      input.Name,
		Email:     input.Email,
		Contact:   input.Contact,
		Date:      input.Date,
		Payment:   input.Payment,
		Remarks:   input.Remarks,
		Status:    ReservationStatusPending,
		CreatedAt: s.now(),
	}
	if reservation.Remarks == "" {
		reservation.Remarks = fmt.Sprintf("Reservation for %s on %s", listing.DisplayTitle(), input.Date)
	}
	switch listing.Kind {
	case ListingKindHouse:
		reservation.HouseID = listing.ID
	case ListingKindMuseum:
		reservation.MuseumID = listing.ID
	}

	reservation, err = s.reservations.CreateReservation(ctx, reservation)
	if err != nil {
		err = mapReservationRepoError(err)
	}
	return
}

// validateReservation trims the input and checks the listing reference, the
// visit date, and the contact fields. Every problem is reported together.
func (s *ReservationService) validateReservation(ctx context.Context, input ReservationInput) (ReservationInput, Listing, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Contact = strings.TrimSpace(input.Contact)
	input.Date = strings.TrimSpace(input.Date)
	input.Payment = strings.TrimSpace(input.Payment)
	input.Remarks = strings.TrimSpace(input.Remarks)

	vErr := &ValidationError{}
	var listing Listing

	kind, id := input.Listing.Kind()
	switch {
	case kind == "" && input.Listing.Empty():
		vErr.add("listing", "listing is required")
	case kind == "":
		vErr.add("listing", "only one of houseId or museumId may be set")
	case s.listings == nil:
		return input, Listing{}, fmt.Errorf("listing reader not configured")
	default:
		var err error
		listing, err = s.listings.GetListing(ctx, kind, id)
		if err != nil {
			if !isNotFound(err) {
				return input, Listing{}, err
			}
			vErr.add("listing", string(kind)+" not found")
		}
	}

	checkVisitDate(input.Date, s.now(), s.location, vErr)
	fields := validateStruct(input)
	delete(fields.FieldErrors, "date")
	vErr.merge(fields)

	if vErr.HasErrors() {
		return input, Listing{}, vErr
	}
	return input, listing, nil
}

// SetReservationStatus records an admin decision. Repeating the current status is allowed.
func (s *ReservationService) SetReservationStatus(ctx context.Context, principal Principal, id, status string) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "SetReservationStatus", logrus.Fields{
		"principal_id":   principal.UserID,
		"reservation_id": id,
		"status":         status,
	})
	defer func() {
		logOutcome(logger, err, "failed to update reservation status", "reservation status updated")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	status = strings.ToLower(strings.TrimSpace(status))
	if status != ReservationStatusApproved && status != ReservationStatusDeclined {
		err = singleFieldError("status", "status must be one of: approved declined")
		return
	}

	reservation, err = s.reservations.UpdateReservationStatus(ctx, strings.TrimSpace(id), status, s.now())
	if err != nil {
		err = mapReservationRepoError(err)
	}
	return
}

// ListReservations returns every reservation, newest first.
func (s *ReservationService) ListReservations(ctx context.Context, principal Principal) (reservations []Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListReservations", logrus.Fields{"principal_id": principal.UserID})
	defer func() {
		if err != nil {
			logger.WithError(err).WithField("error_kind", ErrorKind(err)).Error("failed to list reservations")
			return
		}
		logger.WithField("result_count", len(reservations)).Debug("reservations listed")
	}()

	reservations, err = s.reservations.ListReservations(ctx)
	return
}

func mapReservationRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case isNotFound(err):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation):
		return singleFieldError("listing", "reservation violates a storage constraint")
	}
	return err
}
