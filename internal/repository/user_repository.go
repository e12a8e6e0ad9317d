package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"bank-ledger/internal/domain"
	"bank-ledger/internal/errors"
)

type userRepository struct {
	db      SQLExecutor
	dialect Dialect
	logger  *slog.Logger
}

func NewUserRepository(db SQLExecutor, dialect Dialect, logger *slog.Logger) domain.UserRepository {
	return &userRepository{
		db:      db,
		dialect: dialect,
		logger:  logger,
	}
}

func (r *userRepository) CreateUser(ctx context.Context, user *domain.User) error {
	query := r.dialect.Rebind(`
		INSERT INTO users (username, password_hash, role, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING user_id
	`)

	now := Now()
	err := r.db.QueryRowContext(ctx, query, user.Username, user.PasswordHash, string(user.Role), now).Scan(&user.ID)
	if err != nil {
		if _, ok := r.dialect.UniqueViolation(err); ok {
			r.logger.Warn("Duplicate username", "username", user.Username)
			return errors.ErrDuplicateUsername
		}
		r.logger.Error("Failed to create user", "username", user.Username, "error", err)
		return errors.Internal("failed to create user", err)
	}

	user.CreatedAt = now
	r.logger.Info("User created", "user_id", user.ID, "role", user.Role)
	return nil
}

func (r *userRepository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getUser(ctx, "user_id", id)
}

func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getUser(ctx, "username", username)
}

func (r *userRepository) getUser(ctx context.Context, column string, value any) (*domain.User, error) {
	query := r.dialect.Rebind(`
		SELECT user_id, username, password_hash, role, created_at
		FROM users WHERE ` + column + ` = ?
	`)

	var user domain.User
	var role string
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&role,
		&user.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrUserNotFound
		}
		r.logger.Error("Failed to get user", column, value, "error", err)
		return nil, errors.Internal("failed to get user", err)
	}

	user.Role = domain.Role(role)
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}
