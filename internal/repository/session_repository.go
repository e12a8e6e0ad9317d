package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
)

// Session times are stored as unix milliseconds so both databases compare
// them the same way.
type sessionRepository struct {
	db      SQLExecutor
	dialect Dialect
	logger  *slog.Logger
}

func NewSessionRepository(db SQLExecutor, dialect Dialect, logger *slog.Logger) domain.SessionRepository {
	return &sessionRepository{
		db:      db,
		dialect: dialect,
		logger:  logger,
	}
}

func (r *sessionRepository) CreateSession(ctx context.Context, session *domain.Session) error {
	query := r.dialect.Rebind(`
		INSERT INTO sessions (session_id, user_id, issued_at, expires_at)
		VALUES (?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query,
		session.ID.String(),
		session.UserID,
		session.IssuedAt.UnixMilli(),
		session.ExpiresAt.UnixMilli(),
	)
	if err != nil {
		r.logger.Error("Failed to create session", "user_id", session.UserID, "error", err)
		return errors.Internal("failed to create session", err)
	}
	return nil
}

func (r *sessionRepository) GetSession(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	query := r.dialect.Rebind(`
		SELECT session_id, user_id, issued_at, expires_at, revoked_at
		FROM sessions WHERE session_id = ?
	`)

	var (
		rawID     string
		session   domain.Session
		issuedAt  int64
		expiresAt int64
		revokedAt sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, query, id.String()).Scan(&rawID, &session.UserID, &issuedAt, &expiresAt, &revokedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrUnauthorized
		}
		r.logger.Error("Failed to get session", "session_id", id, "error", err)
		return nil, errors.Internal("failed to get session", err)
	}

	session.ID, err = uuid.Parse(rawID)
	if err != nil {
		return nil, errors.Internal("corrupt session id", err)
	}
	session.IssuedAt = time.UnixMilli(issuedAt).UTC()
	session.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	if revokedAt.Valid {
		at := time.UnixMilli(revokedAt.Int64).UTC()
		session.RevokedAt = &at
	}
	return &session, nil
}

// RevokeSession marks the session revoked. Revoking twice keeps the first time.
func (r *sessionRepository) RevokeSession(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := r.dialect.Rebind(`
		UPDATE sessions SET revoked_at = ?
		WHERE session_id = ? AND revoked_at IS NULL
	`)

	if _, err := r.db.ExecContext(ctx, query, at.UnixMilli(), id.String()); err != nil {
		r.logger.Error("Failed to revoke session", "session_id", id, "error", err)
		return errors.Internal("failed to revoke session", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions that expired before now, revoked or not.
func (r *sessionRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM sessions WHERE expires_at <= ?`), now.UnixMilli())
	if err != nil {
		r.logger.Error("Failed to delete expired sessions", "error", err)
		return 0, errors.Internal("failed to delete expired sessions", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Internal("failed to get rows affected", err)
	}
	return deleted, nil
}
