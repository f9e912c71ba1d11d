package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/akiya-reservations/internal/persistence"
)

// ReservationRepository implements persistence.ReservationRepository using SQLite.
type ReservationRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewReservationRepository creates a new SQLite reservation repository.
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	return &ReservationRepository{pool: pool, mapper: NewErrorMapper()}
}

type reservationRow struct {
	ID        string         `db:"id"`
	HouseID   sql.NullString `db:"house_id"`
	MuseumID  sql.NullString `db:"museum_id"`
	UserID    string         `db:"user_id"`
	Name      string         `db:"name"`
	Email     string         `db:"email"`
	Contact   string         `db:"contact"`
	Date      string         `db:"date"`
	Payment   string         `db:"payment"`
	Remarks   string         `db:"remarks"`
	Status    string         `db:"status"`
	CreatedAt string         `db:"created_at"`
	UpdatedAt sql.NullString `db:"updated_at"`
}

const reservationColumns = `id, house_id, museum_id, user_id, name, email, contact, date, payment,
	remarks, status, created_at, updated_at`

// CreateReservation inserts a reservation. Exactly one listing reference must be set.
func (r *ReservationRepository) CreateReservation(ctx context.Context, reservation persistence.Reservation) error {
	if reservation.ID == "" || reservation.UserID == "" {
		return persistence.ErrConstraintViolation
	}
	if (reservation.HouseID == nil) == (reservation.MuseumID == nil) {
		return persistence.ErrConstraintViolation
	}
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = time.Now().UTC()
	}

	row := reservationRow{
		ID:        reservation.ID,
		HouseID:   nullString(reservation.HouseID),
		MuseumID:  nullString(reservation.MuseumID),
		UserID:    reservation.UserID,
		Name:      reservation.Name,
		Email:     reservation.Email,
		Contact:   reservation.Contact,
		Date:      reservation.Date,
		Payment:   reservation.Payment,
		Remarks:   reservation.Remarks,
		Status:    reservation.Status,
		CreatedAt: formatTime(reservation.CreatedAt),
		UpdatedAt: formatNullTime(reservation.UpdatedAt),
	}

	_, err := r.pool.DB().NamedExecContext(ctx, `
		INSERT INTO reservations (`+reservationColumns+`)
		VALUES (:id, :house_id, :museum_id, :user_id, :name, :email, :contact, :date, :payment,
			:remarks, :status, :created_at, :updated_at)`, row)
	return r.mapper.MapError(err)
}

// GetReservation retrieves a reservation by ID.
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	if id == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	var row reservationRow
	if err := r.pool.DB().GetContext(ctx, &row,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id); err != nil {
		return persistence.Reservation{}, r.mapper.MapError(err)
	}
	return row.toModel()
}

// ListReservations returns every reservation, newest first.
func (r *ReservationRepository) ListReservations(ctx context.Context) ([]persistence.Reservation, error) {
	var rows []reservationRow
	if err := r.pool.DB().SelectContext(ctx, &rows,
		`SELECT `+reservationColumns+` FROM reservations ORDER BY created_at DESC, id DESC`); err != nil {
		return nil, r.mapper.MapError(err)
	}

	reservations := make([]persistence.Reservation, 0, len(rows))
	for _, row := range rows {
		reservation, err := row.toModel()
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	return reservations, nil
}

// UpdateReservationStatus sets the moderation status and stamps updated_at.
func (r *ReservationRepository) UpdateReservationStatus(ctx context.Context, id, status string, updatedAt time.Time) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.pool.DB().ExecContext(ctx,
		`UPDATE reservations SET status = ?, updated_at = ? WHERE id = ?`,
		status, formatTime(updatedAt), id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func (row reservationRow) toModel() (persistence.Reservation, error) {
	reservation := persistence.Reservation{
		ID:      row.ID,
		UserID:  row.UserID,
		Name:    row.Name,
		Email:   row.Email,
		Contact: row.Contact,
		Date:    row.Date,
		Payment: row.Payment,
		Remarks: row.Remarks,
		Status:  row.Status,
	}
	if row.HouseID.Valid {
		id := row.HouseID.String
		reservation.HouseID = &id
	}
	if row.MuseumID.Valid {
		id := row.MuseumID.String
		reservation.MuseumID = &id
	}

	var err error
	if reservation.CreatedAt, err = parseTime("created_at", row.CreatedAt); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.UpdatedAt, err = parseNullTime("updated_at", row.UpdatedAt); err != nil {
		return persistence.Reservation{}, err
	}
	return reservation, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}
