package application

import (
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// ListingKind discriminates houses from museums.
type ListingKind string

const (
	ListingKindHouse  ListingKind = "house"
	ListingKindMuseum ListingKind = "museum"
)

// ParseListingKind accepts "house"/"houses" and "museum"/"museums".
func ParseListingKind(raw string) (ListingKind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "house", "houses":
		return ListingKindHouse, true
	case "museum", "museums":
		return ListingKindMuseum, true
	}
	return "", false
}

// Listing is a house or museum available for reservation.
type Listing struct {
	ID            string
	Kind          ListingKind
	Title         string
	Description   string
	Address       string
	Prefecture    string
	City          string
	AddressDetail string
	Location      *orb.Point
	Price         *int64
	Size          *float64
	Images        []string
	Period        string
	ImageURL      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FullAddress renders the structured museum address or the free-form house address.
func (l Listing) FullAddress() string {
	if l.Kind == ListingKindMuseum {
		return l.Prefecture + l.City + l.AddressDetail
	}
	return l.Address
}

// DisplayTitle falls back to "Untitled" for records without a title.
func (l Listing) DisplayTitle() string {
	if strings.TrimSpace(l.Title) == "" {
		return "Untitled"
	}
	return l.Title
}

// DisplayPrice renders the price in yen or "N/A".
func (l Listing) DisplayPrice() string {
	if l.Price == nil {
		return "N/A"
	}
	return formatYen(*l.Price)
}

// DisplaySize renders the size in square meters or "?".
func (l Listing) DisplaySize() string {
	if l.Size == nil {
		return "?"
	}
	return strconv.FormatFloat(*l.Size, 'f', -1, 64)
}

// Lat returns the latitude when a location is set.
func (l Listing) Lat() *float64 {
	if l.Location == nil {
		return nil
	}
	lat := l.Location.Lat()
	return &lat
}

// Lng returns the longitude when a location is set.
func (l Listing) Lng() *float64 {
	if l.Location == nil {
		return nil
	}
	lng := l.Location.Lon()
	return &lng
}

func formatYen(amount int64) string {
	digits := strconv.FormatInt(amount, 10)
	negative := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if negative {
		return "¥-" + b.String()
	}
	return "¥" + b.String()
}

// ListingInput captures the administrator supplied listing fields.
type ListingInput struct {
	Kind          ListingKind `field:"kind" validate:"required,oneof=house museum"`
	Title         string      `field:"title" validate:"required"`
	Description   string      `field:"description"`
	Address       string      `field:"address"`
	Prefecture    string      `field:"prefecture"`
	City          string      `field:"city"`
	AddressDetail string      `field:"address_detail"`
	Lat           *float64    `field:"lat" validate:"omitempty,min=-90,max=90"`
	Lng           *float64    `field:"lng" validate:"omitempty,min=-180,max=180"`
	Price         *int64      `field:"price" validate:"required,min=0"`
	Size          *float64    `field:"size" validate:"omitempty,min=0"`
	Images        []string    `field:"images"`
	Period        string      `field:"period"`
	ImageURL      string      `field:"image_url"`
}

// ListingForm is the explicit edit state of the admin listing form. An empty
// EditID creates a listing; otherwise the identified listing is replaced.
type ListingForm struct {
	EditID string
	Input  ListingInput
}

// ListingPatch is a partial listing update. Nil fields are left unchanged.
type ListingPatch struct {
	Title         *string
	Description   *string
	Address       *string
	Prefecture    *string
	City          *string
	AddressDetail *string
	Lat           *float64
	Lng           *float64
	ClearLocation bool
	Price         *int64
	Size          *float64
	Images        *[]string
	Period        *string
	ImageURL      *string
}

// ListingFilter holds the optional catalog predicates. Nil or empty values impose no constraint.
type ListingFilter struct {
	CityContains string
	MaxPrice     *int64
	MinSize      *float64
}

// ListingRef selects the listing a reservation is for. Exactly one id must be set.
type ListingRef struct {
	HouseID  string
	MuseumID string
}

// Kind returns the kind selected by the reference and its id.
func (r ListingRef) Kind() (ListingKind, string) {
	house := strings.TrimSpace(r.HouseID)
	museum := strings.TrimSpace(r.MuseumID)
	switch {
	case house != "" && museum == "":
		return ListingKindHouse, house
	case museum != "" && house == "":
		return ListingKindMuseum, museum
	}
	return "", ""
}

// Empty reports whether neither id is present.
func (r ListingRef) Empty() bool {
	return strings.TrimSpace(r.HouseID) == "" && strings.TrimSpace(r.MuseumID) == ""
}

// User is an account profile.
type User struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	IsAdmin   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserCredentials pairs a user with the stored password hash.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// SignUpParams captures self-service account creation.
type SignUpParams struct {
	Name      string `field:"name"`
	Email     string `field:"email" validate:"required,email"`
	Phone     string `field:"phone"`
	Password  string `field:"password" validate:"required,min=8"`
	AdminCode string `field:"admin_code"`
}

// ProvisionAdminParams captures out-of-band administrator creation.
type ProvisionAdminParams struct {
	Name     string `field:"name"`
	Email    string `field:"email" validate:"required,email"`
	Password string `field:"password" validate:"required,min=8"`
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    User
	Session Session
}

// Reservation statuses.
const (
	ReservationStatusPending  = "pending"
	ReservationStatusApproved = "approved"
	ReservationStatusDeclined = "declined"
)

// Reservation is a visit request for a listing.
type Reservation struct {
	ID        string
	HouseID   string
	MuseumID  string
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

// ApproveDisabled reports whether the approve control should be inert.
func (r Reservation) ApproveDisabled() bool {
	return r.Status == ReservationStatusApproved
}

// DeclineDisabled reports whether the decline control should be inert.
func (r Reservation) DeclineDisabled() bool {
	return r.Status == ReservationStatusDeclined
}

// ListingRef returns the reference the reservation was made against.
func (r Reservation) ListingRef() ListingRef {
	return ListingRef{HouseID: r.HouseID, MuseumID: r.MuseumID}
}

// ReservationInput captures the visitor supplied intake fields. Date is YYYY-MM-DD.
type ReservationInput struct {
	Listing ListingRef
	Name    string `field:"name" validate:"required"`
	Email   string `field:"email" validate:"required,email"`
	Contact string `field:"contact" validate:"required"`
	Date    string `field:"date" validate:"required"`
	Payment string `field:"payment"`
	Remarks string `field:"remarks"`
}

// IntakeForm is the prefilled reservation form for one listing.
type IntakeForm struct {
	Listing            Listing
	Name               string
	Email              string
	Contact            string
	MinDate            string
	RemarksPlaceholder string
}

// Draft is a staged reservation kept per session until confirmed. Date is
// epoch milliseconds as a decimal string.
type Draft struct {
	HouseID  string `json:"houseId,omitempty"`
	MuseumID string `json:"museumId,omitempty"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Contact  string `json:"contact"`
	Date     string `json:"date"`
	Payment  string `json:"payment"`
	Remarks  string `json:"remarks"`
}
