package service

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"bank-ledger/internal/auth"
	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
	"bank-ledger/internal/repository"
)

const maxUsernameLength = 100

// Token is what a successful login hands back to the client.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type AuthService struct {
	store  *repository.Store
	tokens *auth.TokenIssuer
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewAuthService(store *repository.Store, tokens *auth.TokenIssuer, ttl time.Duration, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:  store,
		tokens: tokens,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Register creates a standard user. Root users are only provisioned.
func (s *AuthService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	return s.Provision(ctx, username, password, domain.RoleStandard)
}

// Provision creates a user with an explicit role.
func (s *AuthService) Provision(ctx context.Context, username, password string, role domain.Role) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, errors.NewAppErrorf(errors.InvalidInput, "unknown role %q", role)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, errors.Internal("failed to hash password", err)
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.store.User().CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", "user_id", user.ID, "username", user.Username, "role", user.Role)
	return user, nil
}

// EnsureUser provisions the user unless the username is already taken, in
// which case the existing user is returned untouched.
func (s *AuthService) EnsureUser(ctx context.Context, username, password string, role domain.Role) (*domain.User, bool, error) {
	existing, err := s.store.User().GetUserByUsername(ctx, strings.TrimSpace(username))
	if err == nil {
		if existing.Role != role {
			s.logger.Warn("Existing user has a different role", "username", existing.Username, "role", existing.Role, "wanted", role)
		}
		return existing, false, nil
	}
	if !errors.Is(err, errors.ErrUserNotFound) {
		return nil, false, err
	}

	user, err := s.Provision(ctx, username, password, role)
	if errors.Is(err, errors.ErrDuplicateUsername) {
		// Lost a race with another provisioner.
		user, err = s.store.User().GetUserByUsername(ctx, strings.TrimSpace(username))
		return user, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*Token, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errors.NewAppError(errors.InvalidInput, "username and password are required")
	}

	user, err := s.store.User().GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, errors.ErrUserNotFound) {
		return nil, err
	}

	hash := ""
	if user != nil {
		hash = user.PasswordHash
	}
	if !auth.CheckPassword(hash, password) {
		loginAttempts.WithLabelValues("rejected").Inc()
		s.logger.Warn("Login rejected", "username", username)
		return nil, errors.ErrInvalidCredentials
	}

	now := s.now().UTC().Truncate(time.Second)
	session := &domain.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Session().CreateSession(ctx, session); err != nil {
		return nil, err
	}

	raw, err := s.tokens.Issue(auth.Claims{
		UserID:    user.ID,
		SessionID: session.ID,
		IssuedAt:  session.IssuedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return nil, errors.Internal("failed to sign token", err)
	}

	loginAttempts.WithLabelValues("accepted").Inc()
	s.logger.Info("User logged in", "user_id", user.ID, "session_id", session.ID)
	return &Token{
		AccessToken: raw,
		TokenType:   "Bearer",
		ExpiresAt:   session.ExpiresAt,
	}, nil
}

// Resolve maps a bearer token to its user. It never writes.
func (s *AuthService) Resolve(ctx context.Context, token string) (*domain.User, error) {
	user, _, err := s.resolve(ctx, token, s.now().UTC())
	return user, err
}

// Logout revokes the session behind token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	now := s.now().UTC()
	user, claims, err := s.resolve(ctx, token, now)
	if err != nil {
		return err
	}

	if err := s.store.Session().RevokeSession(ctx, claims.SessionID, now); err != nil {
		return err
	}

	s.logger.Info("User logged out", "user_id", user.ID, "session_id", claims.SessionID)
	return nil
}

func (s *AuthService) resolve(ctx context.Context, token string, now time.Time) (*domain.User, *auth.Claims, error) {
	claims, err := s.tokens.Parse(token, now)
	if err != nil {
		return nil, nil, errors.ErrUnauthorized
	}

	var user *domain.User
	err = s.store.ReadSnapshot(ctx, func(tx *repository.Store) error {
		session, err := tx.Session().GetSession(ctx, claims.SessionID)
		if err != nil {
			return err
		}
		if session.UserID != claims.UserID || !session.Active(now) {
			return errors.ErrUnauthorized
		}

		user, err = tx.User().GetUserByID(ctx, claims.UserID)
		if errors.Is(err, errors.ErrUserNotFound) {
			return errors.ErrUnauthorized
		}
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return user, claims, nil
}

// SweepSessions deletes sessions that have expired.
func (s *AuthService) SweepSessions(ctx context.Context) (int64, error) {
	deleted, err := s.store.Session().DeleteExpiredSessions(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("Expired sessions removed", "count", deleted)
	}
	return deleted, nil
}

func validateCredentials(username, password string) error {
	if username == "" {
		return errors.NewAppError(errors.InvalidInput, "username is required")
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return errors.NewAppError(errors.InvalidInput, "username is too long")
	}
	if password == "" {
		return errors.NewAppError(errors.InvalidInput, "password is required")
	}
	if len(password) > auth.MaxPasswordBytes {
		return errors.NewAppError(errors.InvalidInput, "password must be at most 72 bytes")
	}
	return nil
}
