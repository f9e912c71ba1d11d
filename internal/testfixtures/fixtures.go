package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/akiya-reservations/internal/application"
	"github.com/example/akiya-reservations/internal/persistence"
)

var (
	userCounter        uint64
	listingCounter     uint64
	reservationCounter uint64
)

var referenceTime = time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

// JST is the fixed Asia/Tokyo zone the fixtures assume.
var JST = time.FixedZone("JST", 9*60*60)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
// It is 09:00 on 2025-06-01 in Asia/Tokyo.
func ReferenceTime() time.Time {
	return referenceTime
}

// fastHashParams keeps argon2 cheap enough for tests.
var fastHashParams = application.Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

// HashPassword hashes password with test-sized argon2id parameters. The
// result verifies with application.VerifyPassword.
func HashPassword(password string) (string, error) {
	return application.CreatePasswordHash(password, fastHashParams)
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic account.
type UserFixture struct {
	ID        string
	Email     string
	Name      string
	Phone     string
	Password  string
	IsAdmin   bool
	CreatedAt time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	fixture := UserFixture{
		ID:        id,
		Email:     id + "@example.com",
		Name:      fmt.Sprintf("User %03d", idx),
		Phone:     fmt.Sprintf("090-0000-%04d", idx),
		Password:  "password-" + id,
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) { f.Email = email }
}

func WithUserPassword(password string) UserOption {
	return func(f *UserFixture) { f.Password = password }
}

func WithUserAdmin(isAdmin bool) UserOption {
	return func(f *UserFixture) { f.IsAdmin = isAdmin }
}

// Principal returns the principal the fixture would authenticate as.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, IsAdmin: f.IsAdmin}
}

// Persistence converts the fixture into a storable row.
func (f UserFixture) Persistence() (persistence.User, error) {
	hash, err := HashPassword(f.Password)
	if err != nil {
		return persistence.User{}, err
	}
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		Name:         f.Name,
		Phone:        f.Phone,
		PasswordHash: hash,
		IsAdmin:      f.IsAdmin,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.CreatedAt,
	}, nil
}

// ---------------------------- Listing fixtures ----------------------------

// ListingFixture represents a deterministic house or museum.
type ListingFixture struct {
	persistence.Listing
}

// ListingOption configures the generated listing fixture.
type ListingOption func(*ListingFixture)

// NewHouseFixture returns a complete house.
func NewHouseFixture(opts ...ListingOption) ListingFixture {
	idx := atomic.AddUint64(&listingCounter, 1)
	price := int64(1_000_000 + idx*100_000)
	size := 80.0 + float64(idx)
	fixture := ListingFixture{Listing: persistence.Listing{
		ID:          fmt.Sprintf("house-%03d", idx),
		Kind:        persistence.ListingKindHouse,
		Title:       fmt.Sprintf("House %03d", idx),
		Description: "Traditional house",
		Address:     fmt.Sprintf("%d Honcho", idx),
		City:        "Nagano",
		Price:       &price,
		Size:        &size,
		Images:      []string{},
		CreatedAt:   referenceTime.Add(time.Duration(idx) * time.Second),
	}}
	fixture.UpdatedAt = fixture.CreatedAt
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// NewMuseumFixture returns a museum with a structured address.
func NewMuseumFixture(opts ...ListingOption) ListingFixture {
	idx := atomic.AddUint64(&listingCounter, 1)
	price := int64(500)
	fixture := ListingFixture{Listing: persistence.Listing{
		ID:            fmt.Sprintf("museum-%03d", idx),
		Kind:          persistence.ListingKindMuseum,
		Title:         fmt.Sprintf("Museum %03d", idx),
		Prefecture:    "長野県",
		City:          "松本市",
		AddressDetail: "1-1",
		Price:         &price,
		Period:        "2025/04/01〜2025/06/30",
		Images:        []string{},
		CreatedAt:     referenceTime.Add(time.Duration(idx) * time.Second),
	}}
	fixture.UpdatedAt = fixture.CreatedAt
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithListingID(id string) ListingOption {
	return func(f *ListingFixture) { f.ID = id }
}

func WithListingTitle(title string) ListingOption {
	return func(f *ListingFixture) { f.Title = title }
}

func WithListingCity(city string) ListingOption {
	return func(f *ListingFixture) { f.City = city }
}

func WithListingPrice(price int64) ListingOption {
	return func(f *ListingFixture) { f.Price = &price }
}

func WithListingSize(size float64) ListingOption {
	return func(f *ListingFixture) { f.Size = &size }
}

func WithoutListingSize() ListingOption {
	return func(f *ListingFixture) { f.Size = nil }
}

func WithListingLocation(lat, lng float64) ListingOption {
	return func(f *ListingFixture) { f.Lat, f.Lng = &lat, &lng }
}

// ------------------------- Reservation fixtures --------------------------

// ReservationFixture represents a deterministic reservation.
type ReservationFixture struct {
	persistence.Reservation
}

// ReservationOption configures the generated reservation fixture.
type ReservationOption func(*ReservationFixture)

// NewReservationFixture returns a pending reservation for the given house.
func NewReservationFixture(userID, houseID string, opts ...ReservationOption) ReservationFixture {
	idx := atomic.AddUint64(&reservationCounter, 1)
	house := houseID
	fixture := ReservationFixture{Reservation: persistence.Reservation{
		ID:        fmt.Sprintf("reservation-%03d", idx),
		HouseID:   &house,
		UserID:    userID,
		Name:      "Taro",
		Email:     "taro@example.com",
		Contact:   "090-0000-0000",
		Date:      "2025-07-01",
		Payment:   "cash",
		Remarks:   "Reservation for fixture",
		Status:    application.ReservationStatusPending,
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Minute),
	}}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithReservationStatus(status string) ReservationOption {
	return func(f *ReservationFixture) { f.Status = status }
}

func WithReservationRemarks(remarks string) ReservationOption {
	return func(f *ReservationFixture) { f.Remarks = remarks }
}

func WithReservationCreatedAt(t time.Time) ReservationOption {
	return func(f *ReservationFixture) { f.CreatedAt = t }
}
