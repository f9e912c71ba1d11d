package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/akiya-reservations/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository using SQLite.
type SessionRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{pool: pool, mapper: NewErrorMapper()}
}

type sessionRow struct {
	ID        string         `db:"id"`
	UserID    string         `db:"user_id"`
	Token     string         `db:"token"`
	ExpiresAt string         `db:"expires_at"`
	RevokedAt sql.NullString `db:"revoked_at"`
	CreatedAt string         `db:"created_at"`
	UpdatedAt string         `db:"updated_at"`
}

const sessionColumns = `id, user_id, token, expires_at, revoked_at, created_at, updated_at`

// CreateSession stores a new session token for a user.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	session.Token = strings.TrimSpace(session.Token)
	if session.ID == "" || session.UserID == "" || session.Token == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.CreatedAt
	}

	row := sessionRow{
		ID:        session.ID,
		UserID:    session.UserID,
		Token:     session.Token,
		ExpiresAt: formatTime(session.ExpiresAt),
		RevokedAt: formatNullTime(session.RevokedAt),
		CreatedAt: formatTime(session.CreatedAt),
		UpdatedAt: formatTime(session.UpdatedAt),
	}

	if _, err := r.pool.DB().NamedExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (:id, :user_id, :token, :expires_at, :revoked_at, :created_at, :updated_at)`, row); err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}
	return row.toModel()
}

// GetSession retrieves a session by its token value.
func (r *SessionRepository) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	return r.getByToken(ctx, r.pool.DB(), token)
}

// RevokeSession marks a session as revoked. Revoking twice keeps the first timestamp.
func (r *SessionRepository) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	var revoked persistence.Session
	err := r.pool.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		current, err := r.getByToken(ctx, tx, token)
		if err != nil {
			return err
		}
		if current.RevokedAt != nil {
			revoked = current
			return nil
		}

		at := revokedAt.UTC()
		if _, err := tx.ExecContext(ctx,
			`UPDATE sessions SET revoked_at = ?, updated_at = ? WHERE id = ?`,
			formatTime(at), formatTime(at), current.ID,
		); err != nil {
			return r.mapper.MapError(err)
		}

		current.RevokedAt = &at
		current.UpdatedAt = at
		revoked = current
		return nil
	})
	if err != nil {
		return persistence.Session{}, err
	}
	return revoked, nil
}

// DeleteExpiredSessions removes sessions that expired on or before reference.
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	_, err := r.pool.DB().ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, formatTime(reference))
	return r.mapper.MapError(err)
}

func (r *SessionRepository) getByToken(ctx context.Context, q sqlx.QueryerContext, token string) (persistence.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}
	var row sessionRow
	if err := sqlx.GetContext(ctx, q, &row, `SELECT `+sessionColumns+` FROM sessions WHERE token = ?`, token); err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}
	return row.toModel()
}

func (row sessionRow) toModel() (persistence.Session, error) {
	session := persistence.Session{ID: row.ID, UserID: row.UserID, Token: row.Token}

	var err error
	if session.ExpiresAt, err = parseTime("expires_at", row.ExpiresAt); err != nil {
		return persistence.Session{}, err
	}
	if session.CreatedAt, err = parseTime("created_at", row.CreatedAt); err != nil {
		return persistence.Session{}, err
	}
	if session.UpdatedAt, err = parseTime("updated_at", row.UpdatedAt); err != nil {
		return persistence.Session{}, err
	}
	if session.RevokedAt, err = parseNullTime("revoked_at", row.RevokedAt); err != nil {
		return persistence.Session{}, fmt.Errorf("session %s: %w", row.ID, err)
	}
	return session, nil
}
