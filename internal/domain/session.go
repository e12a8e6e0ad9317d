package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is the server-side record behind a bearer token.
type Session struct {
	ID        uuid.UUID
	UserID    int64
	IssuedAt  time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Active reports whether the session can still authenticate requests at now.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

type SessionRepository interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)
	RevokeSession(ctx context.Context, id uuid.UUID, at time.Time) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}
