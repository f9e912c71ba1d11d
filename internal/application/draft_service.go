package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DraftStore keeps one staged reservation per session token.
type DraftStore interface {
	Get(ctx context.Context, token string) (Draft, bool, error)
	Put(ctx context.Context, token string, draft Draft, ttl time.Duration) error
	Delete(ctx context.Context, token string) error
}

// DraftService implements the stage-then-confirm reservation flow.
type DraftService struct {
	drafts       DraftStore
	reservations *ReservationService
	ttl          time.Duration
	logger       *logrus.Logger
}

// NewDraftService constructs a draft service. Confirmed drafts are written through reservations.
func NewDraftService(drafts DraftStore, reservations *ReservationService, ttl time.Duration, logger *logrus.Logger) *DraftService {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &DraftService{drafts: drafts, reservations: reservations, ttl: ttl, logger: defaultLogger(logger)}
}

func (s *DraftService) loggerWith(ctx context.Context, operation string, fields logrus.Fields) *logrus.Entry {
	return serviceLogger(ctx, s.logger, "DraftService", operation, fields)
}

func (s *DraftService) ready() error {
	if s == nil {
		return fmt.Errorf("DraftService is nil")
	}
	if s.drafts == nil || s.reservations == nil {
		return fmt.Errorf("draft service not configured")
	}
	return nil
}

// Stage validates the input exactly like a direct submission and stores it
// as the session draft. Nothing is persisted as a reservation.
func (s *DraftService) Stage(ctx context.Context, token string, principal Principal, input ReservationInput) (draft Draft, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Stage", logrus.Fields{"principal_id": principal.UserID})
	defer func() {
		logOutcome(logger, err, "failed to stage reservation", "reservation staged")
	}()

	token = strings.TrimSpace(token)
	if token == "" || principal.UserID == "" {
		err = ErrUnauthorized
		return
	}

	input, _, err = s.reservations.validateReservation(ctx, input)
	if err != nil {
		return
	}

	var millis string
	millis, err = dateToEpochMillis(input.Date, s.reservations.location)
	if err != nil {
		return
	}

	draft = Draft{
		HouseID:  strings.TrimSpace(input.Listing.HouseID),
		MuseumID: strings.TrimSpace(input.Listing.MuseumID),
		Name:     input.Name,
		Email:    input.Email,
		Contact:  input.Contact,
		Date:     millis,
		Payment:  input.Payment,
		Remarks:  input.Remarks,
	}
	err = s.drafts.Put(ctx, token, draft, s.ttl)
	return
}

// Load returns the session draft or ErrDraftNotFound.
func (s *DraftService) Load(ctx context.Context, token string) (Draft, error) {
	if err := s.ready(); err != nil {
		return Draft{}, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return Draft{}, ErrDraftNotFound
	}
	draft, ok, err := s.drafts.Get(ctx, token)
	if err != nil {
		return Draft{}, err
	}
	if !ok {
		return Draft{}, ErrDraftNotFound
	}
	return draft, nil
}

// DraftDate decodes the draft's epoch-millis date into a civil date.
func (s *DraftService) DraftDate(draft Draft) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	return epochMillisToDate(draft.Date, s.reservations.location)
}

// Confirm writes the session draft as a reservation. The draft is removed
// only after the write succeeds.
func (s *DraftService) Confirm(ctx context.Context, token string, principal Principal) (reservation Reservation, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Confirm", logrus.Fields{"principal_id": principal.UserID})
	defer func() {
		logOutcome(logger.WithField("reservation_id", reservation.ID), err, "failed to confirm reservation", "reservation confirmed")
	}()

	if principal.UserID == "" {
		err = ErrUnauthorized
		return
	}

	var draft Draft
	draft, err = s.Load(ctx, token)
	if err != nil {
		return
	}

	var date string
	date, err = s.DraftDate(draft)
	if err != nil {
		err = singleFieldError("date", "date must be YYYY-MM-DD")
		return
	}

	reservation, err = s.reservations.Submit(ctx, principal, ReservationInput{
		Listing: ListingRef{HouseID: draft.HouseID, MuseumID: draft.MuseumID},
		Name:    draft.Name,
		Email:   draft.Email,
		Contact: draft.Contact,
		Date:    date,
		Payment: draft.Payment,
		Remarks: draft.Remarks,
	})
	if err != nil {
		return
	}

	if delErr := s.drafts.Delete(ctx, strings.TrimSpace(token)); delErr != nil {
		logger.WithError(delErr).Warn("failed to clear confirmed draft")
	}
	return
}

// Discard removes the session draft.
func (s *DraftService) Discard(ctx context.Context, token string) error {
	if err := s.ready(); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return s.drafts.Delete(ctx, token)
}
