package application

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/akiya-reservations/internal/persistence"
)

func plainHasher(password string) (string, error) { return "plain:" + password, nil }

func plainVerifier(hash, password string) error {
	if hash == "plain:"+password {
		return nil
	}
	return ErrInvalidCredentials
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func sequence(values ...string) func() string {
	var mu sync.Mutex
	i := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(values) {
			i++
			return "gen-" + strings.Repeat("x", i)
		}
		v := values[i]
		i++
		return v
	}
}

// userStoreStub keeps users keyed by id.
type userStoreStub struct {
	mu       sync.Mutex
	users    map[string]User
	hashes   map[string]string
	getErr   error
	createFn func(User) error
}

func newUserStoreStub() *userStoreStub {
	return &userStoreStub{users: map[string]User{}, hashes: map[string]string{}}
}

func (u *userStoreStub) seed(user User, hash string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.users[user.ID] = user
	u.hashes[user.ID] = hash
}

func (u *userStoreStub) CreateUser(ctx context.Context, user User, passwordHash string) (User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.createFn != nil {
		if err := u.createFn(user); err != nil {
			return User{}, err
		}
	}
	for _, existing := range u.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return User{}, persistence.ErrDuplicate
		}
	}
	u.users[user.ID] = user
	u.hashes[user.ID] = passwordHash
	return user, nil
}

func (u *userStoreStub) GetUser(ctx context.Context, id string) (User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.getErr != nil {
		return User{}, u.getErr
	}
	user, ok := u.users[id]
	if !ok {
		return User{}, persistence.ErrNotFound
	}
	return user, nil
}

func (u *userStoreStub) GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for id, user := range u.users {
		if strings.EqualFold(user.Email, email) {
			return UserCredentials{User: user, PasswordHash: u.hashes[id]}, nil
		}
	}
	return UserCredentials{}, persistence.ErrNotFound
}

// sessionRepositoryStub provides an in-memory SessionRepository.
type sessionRepositoryStub struct {
	mu          sync.Mutex
	sessions    map[string]Session
	deleteCalls []time.Time
	createErr   error
	deleteErr   error
}

func newSessionRepositoryStub() *sessionRepositoryStub {
	return &sessionRepositoryStub{sessions: map[string]Session{}}
}

func (s *sessionRepositoryStub) seed(session Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Token] = session
}

func (s *sessionRepositoryStub) CreateSession(ctx context.Context, session Session) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return Session{}, s.createErr
	}
	s.sessions[session.Token] = session
	return session, nil
}

func (s *sessionRepositoryStub) GetSession(ctx context.Context, token string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[token]
	if !ok {
		return Session{}, persistence.ErrNotFound
	}
	return session, nil
}

func (s *sessionRepositoryStub) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[token]
	if !ok {
		return Session{}, persistence.ErrNotFound
	}
	if session.RevokedAt == nil {
		at := revokedAt
		session.RevokedAt = &at
		session.UpdatedAt = revokedAt
		s.sessions[token] = session
	}
	return session, nil
}

func (s *sessionRepositoryStub) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls = append(s.deleteCalls, reference)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	for token, session := range s.sessions {
		if !session.ExpiresAt.After(reference) {
			delete(s.sessions, token)
		}
	}
	return nil
}

// listingRepositoryStub stores listings in insertion order.
type listingRepositoryStub struct {
	mu        sync.Mutex
	listings  []Listing
	listErr   error
	listCalls int
}

func (l *listingRepositoryStub) CreateListing(ctx context.Context, listing Listing) (Listing, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listings = append(l.listings, listing)
	return listing, nil
}

func (l *listingRepositoryStub) UpdateListing(ctx context.Context, listing Listing) (Listing, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, existing := range l.listings {
		if existing.ID == listing.ID && existing.Kind == listing.Kind {
			listing.CreatedAt = existing.CreatedAt
			l.listings[i] = listing
			return listing, nil
		}
	}
	return Listing{}, persistence.ErrNotFound
}

func (l *listingRepositoryStub) GetListing(ctx context.Context, kind ListingKind, id string) (Listing, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.listings {
		if existing.ID == id && existing.Kind == kind {
			return existing, nil
		}
	}
	return Listing{}, persistence.ErrNotFound
}

func (l *listingRepositoryStub) ListListings(ctx context.Context, kind ListingKind) ([]Listing, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listCalls++
	if l.listErr != nil {
		return nil, l.listErr
	}
	var out []Listing
	for _, existing := range l.listings {
		if existing.Kind == kind {
			out = append(out, existing)
		}
	}
	return out, nil
}

func (l *listingRepositoryStub) DeleteListing(ctx context.Context, kind ListingKind, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, existing := range l.listings {
		if existing.ID == id && existing.Kind == kind {
			l.listings = append(l.listings[:i], l.listings[i+1:]...)
			return nil
		}
	}
	return persistence.ErrNotFound
}

func (l *listingRepositoryStub) calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listCalls
}

// reservationRepositoryStub keeps reservations keyed by id.
type reservationRepositoryStub struct {
	mu           sync.Mutex
	reservations map[string]Reservation
	createErr    error
	creates      int
}

func newReservationRepositoryStub() *reservationRepositoryStub {
	return &reservationRepositoryStub{reservations: map[string]Reservation{}}
}

func (r *reservationRepositoryStub) CreateReservation(ctx context.Context, reservation Reservation) (Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return Reservation{}, r.createErr
	}
	r.creates++
	r.reservations[reservation.ID] = reservation
	return reservation, nil
}

func (r *reservationRepositoryStub) GetReservation(ctx context.Context, id string) (Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reservation, ok := r.reservations[id]
	if !ok {
		return Reservation{}, persistence.ErrNotFound
	}
	return reservation, nil
}

func (r *reservationRepositoryStub) ListReservations(ctx context.Context) ([]Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Reservation, 0, len(r.reservations))
	for _, reservation := range r.reservations {
		out = append(out, reservation)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *reservationRepositoryStub) UpdateReservationStatus(ctx context.Context, id, status string, updatedAt time.Time) (Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reservation, ok := r.reservations[id]
	if !ok {
		return Reservation{}, persistence.ErrNotFound
	}
	reservation.Status = status
	at := updatedAt
	reservation.UpdatedAt = &at
	r.reservations[id] = reservation
	return reservation, nil
}

func (r *reservationRepositoryStub) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creates
}

// draftStoreStub is a map-backed DraftStore.
type draftStoreStub struct {
	mu     sync.Mutex
	drafts map[string]Draft
	ttls   map[string]time.Duration
}

func newDraftStoreStub() *draftStoreStub {
	return &draftStoreStub{drafts: map[string]Draft{}, ttls: map[string]time.Duration{}}
}

func (d *draftStoreStub) Get(ctx context.Context, token string) (Draft, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	draft, ok := d.drafts[token]
	return draft, ok, nil
}

func (d *draftStoreStub) Put(ctx context.Context, token string, draft Draft, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drafts[token] = draft
	d.ttls[token] = ttl
	return nil
}

func (d *draftStoreStub) Delete(ctx context.Context, token string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.drafts, token)
	return nil
}

func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }
func stringPtr(v string) *string    { return &v }
