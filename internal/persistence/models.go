package persistence

import "time"

// User represents an account together with its stored credential.
type User struct {
	ID           string
	Email        string
	Name         string
	Phone        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Listing kinds stored in the listings table.
const (
	ListingKindHouse  = "house"
	ListingKindMuseum = "museum"
)

// Listing represents a house or museum record. Optional numeric fields are
// pointers so that incomplete records survive a round trip.
type Listing struct {
	ID            string
	Kind          string
	Title         string
	Description   string
	Address       string
	Prefecture    string
	AddressDetail string
	City          string
	Lat           *float64
	Lng           *float64
	Price         *int64
	Size          *float64
	Images        []string
	Period        string
	ImageURL      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Reservation represents a visit request for a listing.
type Reservation struct {
	ID        string
	HouseID   *string
	MuseumID  *string
	UserID    string
	Name      string
	Email     string
	Contact   string
	Date      string
	Payment   string
	Remarks   string
	Status    string
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}
