package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"github.com/example/akiya-reservations/internal/persistence"
)

// ListingRepository captures the persistence operations needed by the listing service.
type ListingRepository interface {
	CreateListing(ctx context.Context, listing Listing) (Listing, error)
	UpdateListing(ctx context.Context, listing Listing) (Listing, error)
	GetListing(ctx context.Context, kind ListingKind, id string) (Listing, error)
	ListListings(ctx context.Context, kind ListingKind) ([]Listing, error)
	DeleteListing(ctx context.Context, kind ListingKind, id string) error
}

// ListingService orchestrates validation, authorization, and persistence for houses and museums.
type ListingService struct {
	listings    ListingRepository
	idGenerator func() string
	now         func() time.Time
	logger      *logrus.Logger
}

// NewListingService constructs a listing service with the provided dependencies.
func NewListingService(listings ListingRepository, idGenerator func() string, now func() time.Time, logger *logrus.Logger) *ListingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ListingService{listings: listings, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *ListingService) loggerWith(ctx context.Context, operation string, fields logrus.Fields) *logrus.Entry {
	return serviceLogger(ctx, s.logger, "ListingService", operation, fields)
}

// ListListings returns every listing of one kind in creation order. Records
// with missing fields are returned as stored.
func (s *ListingService) ListListings(ctx context.Context, kind ListingKind) (listings []Listing, err error) {
	if s == nil {
		err = fmt.Errorf("ListingService is nil")
		return
	}
	if s.listings == nil {
		err = fmt.Errorf("listing repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListListings", logrus.Fields{"kind": kind})
	defer func() {
		if err != nil {
			logger.WithError(err).WithField("error_kind", ErrorKind(err)).Error("failed to list listings")
			return
		}
		logger.WithField("result_count", len(listings)).Debug("listings loaded")
	}()

	if _, ok := ParseListingKind(string(kind)); !ok {
		err = singleFieldError("kind", "kind must be one of: house museum")
		return
	}

	var raw []Listing
	raw, err = s.listings.ListListings(ctx, kind)
	if err != nil {
		return
	}
	listings = make([]Listing, len(raw))
	copy(listings, raw)
	return
}

// ListListingsForAdmin is ListListings restricted to administrators.
func (s *ListingService) ListListingsForAdmin(ctx context.Context, principal Principal, kind ListingKind) ([]Listing, error) {
	if !principal.IsAdmin {
		return nil, ErrUnauthorized
	}
	return s.ListListings(ctx, kind)
}

// GetListing resolves a listing id under the given kind only.
func (s *ListingService) GetListing(ctx context.Context, kind ListingKind, id string) (Listing, error) {
	if s == nil {
		return Listing{}, fmt.Errorf("ListingService is nil")
	}
	if s.listings == nil {
		return Listing{}, fmt.Errorf("listing repository not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Listing{}, ErrNotFound
	}
	if _, ok := ParseListingKind(string(kind)); !ok {
		return Listing{}, ErrNotFound
	}

	listing, err := s.listings.GetListing(ctx, kind, id)
	if err != nil {
		return Listing{}, mapListingRepoError(err)
	}
	return listing, nil
}

// EditListingForm returns the current values of a listing for the admin edit form.
func (s *ListingService) EditListingForm(ctx context.Context, principal Principal, kind ListingKind, id string) (ListingForm, error) {
	if !principal.IsAdmin {
		return ListingForm{}, ErrUnauthorized
	}
	listing, err := s.GetListing(ctx, kind, id)
	if err != nil {
		return ListingForm{}, err
	}
	return ListingForm{EditID: listing.ID, Input: listingToInput(listing)}, nil
}

// SaveListing creates a listing when EditID is empty and otherwise replaces
// the identified listing with the supplied values.
func (s *ListingService) SaveListing(ctx context.Context, principal Principal, form ListingForm) (listing Listing, err error) {
	if s == nil {
		err = fmt.Errorf("ListingService is nil")
		return
	}

	editID := strings.TrimSpace(form.EditID)
	operation := "CreateListing"
	if editID != "" {
		operation = "UpdateListing"
	}

	logger := s.loggerWith(ctx, operation, logrus.Fields{
		"principal_id": principal.UserID,
		"kind":         form.Input.Kind,
		"listing_id":   editID,
	})
	defer func() {
		logOutcome(logger.WithField("listing_id", listing.ID), err, "failed to save listing", "listing saved")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.listings == nil {
		err = fmt.Errorf("listing repository not configured")
		return
	}

	input := normalizeListingInput(form.Input)
	if vErr := validateListingInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	candidate := buildListing(input)
	candidate.UpdatedAt = now

	if editID == "" {
		candidate.ID = s.idGenerator()
		candidate.CreatedAt = now
		listing, err = s.listings.CreateListing(ctx, candidate)
		err = mapListingRepoError(err)
		return
	}

	var existing Listing
	existing, err = s.listings.GetListing(ctx, input.Kind, editID)
	if err != nil {
		err = mapListingRepoError(err)
		return
	}

	candidate.ID = existing.ID
	candidate.CreatedAt = existing.CreatedAt
	listing, err = s.listings.UpdateListing(ctx, candidate)
	err = mapListingRepoError(err)
	return
}

// PatchListing applies a partial update. Fields left nil in the patch keep their stored values.
func (s *ListingService) PatchListing(ctx context.Context, principal Principal, kind ListingKind, id string, patch ListingPatch) (listing Listing, err error) {
	if s == nil {
		err = fmt.Errorf("ListingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "PatchListing", logrus.Fields{
		"principal_id": principal.UserID,
		"kind":         kind,
		"listing_id":   id,
	})
	defer func() {
		logOutcome(logger, err, "failed to patch listing", "listing patched")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	var existing Listing
	existing, err = s.GetListing(ctx, kind, id)
	if err != nil {
		return
	}

	input := normalizeListingInput(applyListingPatch(listingToInput(existing), patch))
	if vErr := validateListingInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	updated := buildListing(input)
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = s.now()

	listing, err = s.listings.UpdateListing(ctx, updated)
	err = mapListingRepoError(err)
	return
}

// DeleteListing hard-deletes a listing. An unconfirmed request performs no write.
func (s *ListingService) DeleteListing(ctx context.Context, principal Principal, kind ListingKind, id string, confirmed bool) error {
	if s == nil {
		return fmt.Errorf("ListingService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if !confirmed {
		return ErrConfirmationRequired
	}
	if s.listings == nil {
		return fmt.Errorf("listing repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteListing", logrus.Fields{
		"principal_id": principal.UserID,
		"kind":         kind,
		"listing_id":   id,
	})

	if err := s.listings.DeleteListing(ctx, kind, strings.TrimSpace(id)); err != nil {
		err = mapListingRepoError(err)
		logger.WithError(err).WithField("error_kind", ErrorKind(err)).Error("failed to delete listing")
		return err
	}

	logger.Info("listing deleted")
	return nil
}

func normalizeListingInput(input ListingInput) ListingInput {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Address = strings.TrimSpace(input.Address)
	input.Prefecture = strings.TrimSpace(input.Prefecture)
	input.City = strings.TrimSpace(input.City)
	input.AddressDetail = strings.TrimSpace(input.AddressDetail)
	input.Period = strings.TrimSpace(input.Period)
	input.ImageURL = strings.TrimSpace(input.ImageURL)
	input.Images = normalizeImages(input.Images)
	return input
}

func normalizeImages(images []string) []string {
	out := make([]string, 0, len(images))
	for _, image := range images {
		if trimmed := strings.TrimSpace(image); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// SplitImageList splits the comma-separated image field of the admin form.
func SplitImageList(raw string) []string {
	return normalizeImages(strings.Split(raw, ","))
}

func validateListingInput(input ListingInput) *ValidationError {
	vErr := validateStruct(input)

	if (input.Lat == nil) != (input.Lng == nil) {
		vErr.add("location", "lat and lng must be provided together")
	}

	if input.Kind == ListingKindHouse {
		if input.Description == "" {
			vErr.add("description", "description is required")
		}
		if input.Address == "" {
			vErr.add("address", "address is required")
		}
		if input.City == "" {
			vErr.add("city", "city is required")
		}
		if input.Size == nil {
			vErr.add("size", "size is required")
		}
	}

	return vErr
}

func buildListing(input ListingInput) Listing {
	listing := Listing{
		Kind:          input.Kind,
		Title:         input.Title,
		Description:   input.Description,
		Address:       input.Address,
		Prefecture:    input.Prefecture,
		City:          input.City,
		AddressDetail: input.AddressDetail,
		Price:         input.Price,
		Size:          input.Size,
		Images:        input.Images,
		Period:        input.Period,
		ImageURL:      input.ImageURL,
	}
	if input.Lat != nil && input.Lng != nil {
		listing.Location = &orb.Point{*input.Lng, *input.Lat}
	}
	return listing
}

func listingToInput(listing Listing) ListingInput {
	images := make([]string, len(listing.Images))
	copy(images, listing.Images)
	return ListingInput{
		Kind:          listing.Kind,
		Title:         listing.Title,
		Description:   listing.Description,
		Address:       listing.Address,
		Prefecture:    listing.Prefecture,
		City:          listing.City,
		AddressDetail: listing.AddressDetail,
		Lat:           listing.Lat(),
		Lng:           listing.Lng(),
		Price:         listing.Price,
		Size:          listing.Size,
		Images:        images,
		Period:        listing.Period,
		ImageURL:      listing.ImageURL,
	}
}

func applyListingPatch(input ListingInput, patch ListingPatch) ListingInput {
	assign := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	assign(&input.Title, patch.Title)
	assign(&input.Description, patch.Description)
	assign(&input.Address, patch.Address)
	assign(&input.Prefecture, patch.Prefecture)
	assign(&input.City, patch.City)
	assign(&input.AddressDetail, patch.AddressDetail)
	assign(&input.Period, patch.Period)
	assign(&input.ImageURL, patch.ImageURL)

	if patch.ClearLocation {
		input.Lat, input.Lng = nil, nil
	}
	if patch.Lat != nil {
		input.Lat = patch.Lat
	}
	if patch.Lng != nil {
		input.Lng = patch.Lng
	}
	if patch.Price != nil {
		input.Price = patch.Price
	}
	if patch.Size != nil {
		input.Size = patch.Size
	}
	if patch.Images != nil {
		input.Images = *patch.Images
	}
	return input
}

func mapListingRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case isNotFound(err):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation):
		return singleFieldError("listing", "listing violates a storage constraint")
	}
	return err
}
