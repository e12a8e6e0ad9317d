package domain

import (
	"context"
	"time"
)

type Role string

const (
	RoleRoot     Role = "root"
	RoleStandard Role = "standard"
)

func (r Role) Valid() bool {
	return r == RoleRoot || r == RoleStandard
}

type User struct {
	ID           int64     `json:"user_id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasRole is the capability check shared by every gated operation.
// Root satisfies any requirement.
func (u *User) HasRole(required Role) bool {
	if u == nil {
		return false
	}
	return u.Role == RoleRoot || u.Role == required
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}
