package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	adminPrincipal   = Principal{UserID: "admin-1", IsAdmin: true}
	visitorPrincipal = Principal{UserID: "user-1"}
)

func validHouseInput() ListingInput {
	return ListingInput{
		Kind:        ListingKindHouse,
		Title:       " Old farmhouse ",
		Description: "Thatched roof",
		Address:     "1-2-3 Honcho",
		City:        "Nagano",
		Price:       int64Ptr(1200000),
		Size:        float64Ptr(98.5),
		Images:      []string{" https://img/1.jpg ", "", "https://img/2.jpg"},
	}
}

func TestListingService_SaveListing(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("creates listings for administrators", func(t *testing.T) {
		t.Parallel()

		repo := &listingRepositoryStub{}
		svc := NewListingService(repo, sequence("house-1"), fixedClock(now), nil)

		input := validHouseInput()
		input.Lat = float64Ptr(36.65)
		input.Lng = float64Ptr(138.18)

		listing, err := svc.SaveListing(context.Background(), adminPrincipal, ListingForm{Input: input})
		require.NoError(t, err)
		assert.Equal(t, "house-1", listing.ID)
		assert.Equal(t, "Old farmhouse", listing.Title)
		assert.Equal(t, []string{"https://img/1.jpg", "https://img/2.jpg"}, listing.Images)
		require.NotNil(t, listing.Location)
		assert.InDelta(t, 36.65, listing.Location.Lat(), 1e-9)
		assert.InDelta(t, 138.18, listing.Location.Lon(), 1e-9)
		assert.Equal(t, now, listing.CreatedAt)
	})

	t.Run("edit id replaces the existing listing", func(t *testing.T) {
		t.Parallel()

		created := now.Add(-time.Hour)
		repo := &listingRepositoryStub{listings: []Listing{{ID: "house-1", Kind: ListingKindHouse, Title: "Before", CreatedAt: created}}}
		svc := NewListingService(repo, sequence("unused"), fixedClock(now), nil)

		listing, err := svc.SaveListing(context.Background(), adminPrincipal, ListingForm{EditID: "house-1", Input: validHouseInput()})
		require.NoError(t, err)
		assert.Equal(t, "house-1", listing.ID)
		assert.Equal(t, "Old farmhouse", listing.Title)
		assert.Equal(t, created, listing.CreatedAt)
		assert.Len(t, repo.listings, 1)
	})

	t.Run("rejects non administrators", func(t *testing.T) {
		t.Parallel()

		svc := NewListingService(&listingRepositoryStub{}, nil, nil, nil)
		_, err := svc.SaveListing(context.Background(), visitorPrincipal, ListingForm{Input: validHouseInput()})
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("applies house specific rules", func(t *testing.T) {
		t.Parallel()

		svc := NewListingService(&listingRepositoryStub{}, nil, nil, nil)
		_, err := svc.SaveListing(context.Background(), adminPrincipal, ListingForm{Input: ListingInput{
			Kind:  ListingKindHouse,
			Title: "  ",
			Price: int64Ptr(-1),
			Lat:   float64Ptr(35),
		}})

		var vErr *ValidationError
		require.True(t, errors.As(err, &vErr))
		for _, field := range []string{"title", "price", "description", "address", "city", "size", "location"} {
			assert.Contains(t, vErr.FieldErrors, field)
		}
	})

	t.Run("museums only need title and price", func(t *testing.T) {
		t.Parallel()

		svc := NewListingService(&listingRepositoryStub{}, sequence("museum-1"), fixedClock(now), nil)
		listing, err := svc.SaveListing(context.Background(), adminPrincipal, ListingForm{Input: ListingInput{
			Kind:       ListingKindMuseum,
			Title:      "Folk museum",
			Prefecture: "長野県",
			City:       "松本市",
			Price:      int64Ptr(500),
		}})
		require.NoError(t, err)
		assert.Equal(t, "長野県松本市", listing.FullAddress())
		assert.Nil(t, listing.Size)
	})
}

func TestListingService_PatchListing(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := buildListing(normalizeListingInput(validHouseInput()))
	existing.ID = "house-1"
	existing.CreatedAt = created

	repo := &listingRepositoryStub{listings: []Listing{existing}}
	svc := NewListingService(repo, nil, fixedClock(created.Add(time.Hour)), nil)

	patched, err := svc.PatchListing(context.Background(), adminPrincipal, ListingKindHouse, "house-1", ListingPatch{Price: int64Ptr(150)})
	require.NoError(t, err)
	assert.Equal(t, int64(150), *patched.Price)
	assert.Equal(t, existing.Title, patched.Title)
	assert.Equal(t, existing.Images, patched.Images)
	assert.Equal(t, *existing.Size, *patched.Size)
	assert.Equal(t, created, patched.CreatedAt)

	_, err = svc.PatchListing(context.Background(), adminPrincipal, ListingKindHouse, "house-1", ListingPatch{City: stringPtr("")})
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Contains(t, vErr.FieldErrors, "city")

	_, err = svc.PatchListing(context.Background(), adminPrincipal, ListingKindMuseum, "house-1", ListingPatch{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListingService_DeleteListing(t *testing.T) {
	t.Parallel()

	repo := &listingRepositoryStub{listings: []Listing{{ID: "m-1", Kind: ListingKindMuseum, Title: "Museum"}}}
	svc := NewListingService(repo, nil, nil, nil)

	err := svc.DeleteListing(context.Background(), adminPrincipal, ListingKindMuseum, "m-1", false)
	assert.ErrorIs(t, err, ErrConfirmationRequired)
	assert.Len(t, repo.listings, 1)

	assert.ErrorIs(t, svc.DeleteListing(context.Background(), visitorPrincipal, ListingKindMuseum, "m-1", true), ErrUnauthorized)

	require.NoError(t, svc.DeleteListing(context.Background(), adminPrincipal, ListingKindMuseum, "m-1", true))
	assert.Empty(t, repo.listings)

	assert.ErrorIs(t, svc.DeleteListing(context.Background(), adminPrincipal, ListingKindMuseum, "m-1", true), ErrNotFound)
}

func TestListingService_ListAndGet(t *testing.T) {
	t.Parallel()

	repo := &listingRepositoryStub{listings: []Listing{
		{ID: "h-1", Kind: ListingKindHouse},
		{ID: "m-1", Kind: ListingKindMuseum, Title: "Museum"},
		{ID: "h-2", Kind: ListingKindHouse, Title: "Second"},
	}}
	svc := NewListingService(repo, nil, nil, nil)

	houses, err := svc.ListListings(context.Background(), ListingKindHouse)
	require.NoError(t, err)
	require.Len(t, houses, 2)
	assert.Equal(t, "Untitled", houses[0].DisplayTitle())
	assert.Equal(t, "N/A", houses[0].DisplayPrice())
	assert.Equal(t, "?", houses[0].DisplaySize())

	_, err = svc.GetListing(context.Background(), ListingKindHouse, "m-1")
	assert.ErrorIs(t, err, ErrNotFound, "a museum id never resolves as a house")

	_, err = svc.ListListingsForAdmin(context.Background(), visitorPrincipal, ListingKindHouse)
	assert.ErrorIs(t, err, ErrUnauthorized)

	form, err := svc.EditListingForm(context.Background(), adminPrincipal, ListingKindHouse, "h-2")
	require.NoError(t, err)
	assert.Equal(t, "h-2", form.EditID)
	assert.Equal(t, "Second", form.Input.Title)

	repo.listErr = errors.New("store offline")
	_, err = svc.ListListings(context.Background(), ListingKindHouse)
	assert.EqualError(t, err, "store offline")
}

func TestSplitImageList(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a.jpg", "b.jpg"}, SplitImageList(" a.jpg, ,b.jpg ,"))
	assert.Empty(t, SplitImageList(""))
}
