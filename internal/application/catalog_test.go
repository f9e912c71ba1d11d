package application

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogFixture() []Listing {
	return []Listing{
		{ID: "a", City: "Matsumoto", Price: int64Ptr(100), Size: float64Ptr(50)},
		{ID: "b", City: "Nagano", Price: int64Ptr(300), Size: float64Ptr(120)},
		{ID: "c", City: "matsumoto-shi", Price: int64Ptr(200)},
		{ID: "d", City: "Ueda"},
	}
}

func ids(listings []Listing) []string {
	out := make([]string, 0, len(listings))
	for _, listing := range listings {
		out = append(out, listing.ID)
	}
	return out
}

func TestFilterListings(t *testing.T) {
	t.Parallel()

	listings := catalogFixture()

	cases := []struct {
		name   string
		filter ListingFilter
		want   []string
	}{
		{"no predicates", ListingFilter{}, []string{"a", "b", "c", "d"}},
		{"city is case insensitive substring", ListingFilter{CityContains: " MATSUMOTO "}, []string{"a", "c"}},
		{"max price is inclusive", ListingFilter{MaxPrice: int64Ptr(200)}, []string{"a", "c"}},
		{"min size excludes missing sizes", ListingFilter{MinSize: float64Ptr(50)}, []string{"a", "b"}},
		{"predicates combine", ListingFilter{CityContains: "matsu", MinSize: float64Ptr(10)}, []string{"a"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(FilterListings(listings, tc.filter)))
		})
	}
}

func TestCatalogSnapshots(t *testing.T) {
	t.Parallel()

	current := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cache := NewCatalogSnapshots(time.Minute, 2, func() time.Time { return current })

	original := catalogFixture()
	cache.Store("tok", ListingKindHouse, original)
	original[0].City = "mutated"

	cached, ok := cache.Get("tok", ListingKindHouse)
	require.True(t, ok)
	assert.Equal(t, "Matsumoto", cached[0].City)

	_, ok = cache.Get("tok", ListingKindMuseum)
	assert.False(t, ok)

	cache.Store("", ListingKindHouse, original)
	_, ok = cache.Get("", ListingKindHouse)
	assert.False(t, ok, "anonymous loads are not snapshotted")

	cache.Store("tok", ListingKindMuseum, nil)
	cache.Store("other", ListingKindHouse, nil)
	assert.LessOrEqual(t, len(cache.entries), 2)

	cache.Forget("other")
	_, ok = cache.Get("other", ListingKindHouse)
	assert.False(t, ok)

	current = current.Add(2 * time.Minute)
	_, ok = cache.Get("tok", ListingKindMuseum)
	assert.False(t, ok)
}

func TestCatalogSnapshots_ExpiredReadKeepsConcurrentRefresh(t *testing.T) {
	t.Parallel()

	current := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var cache *CatalogSnapshots
	var interleave func()
	cache = NewCatalogSnapshots(time.Minute, 0, func() time.Time {
		if fn := interleave; fn != nil {
			interleave = nil
			fn()
		}
		return current
	})

	cache.Store("tok", ListingKindHouse, catalogFixture())
	current = current.Add(2 * time.Minute)

	// A fresh load lands between the expired read and the eviction.
	interleave = func() {
		cache.Store("tok", ListingKindHouse, []Listing{{ID: "fresh", Kind: ListingKindHouse}})
	}
	got, ok := cache.Get("tok", ListingKindHouse)
	require.True(t, ok, "the refreshed snapshot survives")
	assert.Equal(t, []string{"fresh"}, ids(got))

	current = current.Add(2 * time.Minute)
	_, ok = cache.Get("tok", ListingKindHouse)
	assert.False(t, ok)
	assert.Empty(t, cache.entries)
}

func TestCatalog_FilterUsesSnapshot(t *testing.T) {
	t.Parallel()

	repo := &listingRepositoryStub{listings: []Listing{
		{ID: "a", Kind: ListingKindHouse, City: "Matsumoto"},
		{ID: "b", Kind: ListingKindHouse, City: "Nagano"},
	}}
	catalog := NewCatalog(NewListingService(repo, nil, nil, nil), NewCatalogSnapshots(time.Minute, 0, nil))

	filtered, err := catalog.Filter(context.Background(), "tok", ListingKindHouse, ListingFilter{CityContains: "nagano"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(filtered))
	assert.Equal(t, 1, repo.calls())

	repo.listings = append(repo.listings, Listing{ID: "c", Kind: ListingKindHouse, City: "Nagano"})

	filtered, err = catalog.Filter(context.Background(), "tok", ListingKindHouse, ListingFilter{CityContains: "nagano"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(filtered), "filtering works over the last load")
	assert.Equal(t, 1, repo.calls())

	_, err = catalog.Load(context.Background(), "tok", ListingKindHouse)
	require.NoError(t, err)
	filtered, err = catalog.Filter(context.Background(), "tok", ListingKindHouse, ListingFilter{CityContains: "nagano"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ids(filtered))
}

func TestListingsFeatureCollection(t *testing.T) {
	t.Parallel()

	fc := ListingsFeatureCollection([]Listing{
		{ID: "a", Kind: ListingKindHouse, Title: "Farmhouse", City: "Nagano", Price: int64Ptr(100), Location: &orb.Point{138.18, 36.65}},
		{ID: "b", Kind: ListingKindHouse},
	})
	require.Len(t, fc.Features, 1)

	raw, err := json.Marshal(fc)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "FeatureCollection", decoded["type"])

	feature := decoded["features"].([]any)[0].(map[string]any)
	props := feature["properties"].(map[string]any)
	assert.Equal(t, "Farmhouse", props["title"])
	assert.Equal(t, "house", props["kind"])
	assert.EqualValues(t, 100, props["price"])
	coords := feature["geometry"].(map[string]any)["coordinates"].([]any)
	assert.InDelta(t, 138.18, coords[0].(float64), 1e-9)
}
