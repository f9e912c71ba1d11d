package application

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"
)

// FilterListings applies the catalog predicates with AND semantics. Listings
// without a size never satisfy a minimum size.
func FilterListings(listings []Listing, filter ListingFilter) []Listing {
	city := strings.ToLower(strings.TrimSpace(filter.CityContains))

	out := make([]Listing, 0, len(listings))
	for _, listing := range listings {
		if city != "" && !strings.Contains(strings.ToLower(listing.City), city) {
			continue
		}
		if filter.MaxPrice != nil {
			if listing.Price == nil || *listing.Price > *filter.MaxPrice {
				continue
			}
		}
		if filter.MinSize != nil {
			if listing.Size == nil || *listing.Size < *filter.MinSize {
				continue
			}
		}
		out = append(out, listing)
	}
	return out
}

// CatalogSnapshots keeps the last successful listing load per session and
// kind so that filtering does not go back to the store.
type CatalogSnapshots struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]catalogSnapshot
}

type catalogSnapshot struct {
	listings  []Listing
	expiresAt time.Time
}

// NewCatalogSnapshots builds a snapshot cache. Non-positive ttl and maxEntries select defaults.
func NewCatalogSnapshots(ttl time.Duration, maxEntries int, now func() time.Time) *CatalogSnapshots {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	if now == nil {
		now = time.Now
	}
	return &CatalogSnapshots{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]catalogSnapshot),
	}
}

// Get returns a copy of the stored snapshot.
func (c *CatalogSnapshots) Get(token string, kind ListingKind) ([]Listing, bool) {
	if c == nil || token == "" {
		return nil, false
	}
	key := snapshotKey(token, kind)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !c.now().After(entry.expiresAt) {
		return cloneListings(entry.listings), true
	}

	// A Store may have replaced the entry since the read lock was released.
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok = c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return cloneListings(entry.listings), true
}

// Store records listings as the latest successful load.
func (c *CatalogSnapshots) Store(token string, kind ListingKind, listings []Listing) {
	if c == nil || token == "" {
		return
	}
	cloned := cloneListings(listings)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[snapshotKey(token, kind)] = catalogSnapshot{listings: cloned, expiresAt: expiry}
}

// Forget drops every snapshot held for a session.
func (c *CatalogSnapshots) Forget(token string) {
	if c == nil {
		return
	}
	prefix := token + "|"
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

func (c *CatalogSnapshots) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *CatalogSnapshots) evictOneLocked() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.expiresAt.Before(oldest) {
			oldestKey, oldest = key, entry.expiresAt
		}
	}
	delete(c.entries, oldestKey)
}

func snapshotKey(token string, kind ListingKind) string {
	return token + "|" + string(kind)
}

func cloneListings(listings []Listing) []Listing {
	if len(listings) == 0 {
		return []Listing{}
	}
	out := make([]Listing, len(listings))
	copy(out, listings)
	return out
}

// Catalog serves the browse page: fresh loads that refresh the session
// snapshot, and filtering over that snapshot.
type Catalog struct {
	listings  *ListingService
	snapshots *CatalogSnapshots
}

// NewCatalog wires a catalog over the listing service and snapshot cache.
func NewCatalog(listings *ListingService, snapshots *CatalogSnapshots) *Catalog {
	return &Catalog{listings: listings, snapshots: snapshots}
}

// Load fetches the full collection of one kind and, for signed-in sessions,
// records it as the snapshot.
func (c *Catalog) Load(ctx context.Context, token string, kind ListingKind) ([]Listing, error) {
	if c == nil || c.listings == nil {
		return nil, fmt.Errorf("catalog not configured")
	}
	listings, err := c.listings.ListListings(ctx, kind)
	if err != nil {
		return nil, err
	}
	c.snapshots.Store(token, kind, listings)
	return listings, nil
}

// Filter applies filter over the session snapshot, loading once when no snapshot exists.
func (c *Catalog) Filter(ctx context.Context, token string, kind ListingKind, filter ListingFilter) ([]Listing, error) {
	if c == nil {
		return nil, fmt.Errorf("catalog not configured")
	}
	listings, ok := c.snapshots.Get(token, kind)
	if !ok {
		var err error
		listings, err = c.Load(ctx, token, kind)
		if err != nil {
			return nil, err
		}
	}
	return FilterListings(listings, filter), nil
}

// Forget drops the snapshots of a signed-out session.
func (c *Catalog) Forget(token string) {
	if c == nil {
		return
	}
	c.snapshots.Forget(token)
}

// ListingsFeatureCollection exports listings with a location as GeoJSON points.
func ListingsFeatureCollection(listings []Listing) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, listing := range listings {
		if listing.Location == nil {
			continue
		}
		feature := geojson.NewFeature(*listing.Location)
		feature.ID = listing.ID
		feature.Properties["id"] = listing.ID
		feature.Properties["kind"] = string(listing.Kind)
		feature.Properties["title"] = listing.DisplayTitle()
		feature.Properties["city"] = listing.City
		if listing.Price != nil {
			feature.Properties["price"] = *listing.Price
		} else {
			feature.Properties["price"] = nil
		}
		fc.Append(feature)
	}
	return fc
}
