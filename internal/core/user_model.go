package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role decides what a user may do: admins manage quotes, clients act on their own.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

// ParseRole converts an untrusted string into a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleClient:
		return r, nil
	}
	return "", &ValidationError{Field: "role", Reason: "role must be admin or client"}
}

// User is an authenticated account. PasswordHash is never serialised.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserService provides account creation, lookup and credential checks.
type UserService interface {
	// CreateUser stores a new user with a bcrypt hash of password.
	CreateUser(ctx context.Context, email, name, password string, role Role) (*User, error)

	// Authenticate returns the user when email and password match.
	// Any mismatch is reported as ErrNotFound so callers cannot enumerate emails.
	Authenticate(ctx context.Context, email, password string) (*User, error)

	// GetByID returns a user by primary key.
	GetByID(ctx context.Context, userID uuid.UUID) (*User, error)

	// ListClients returns every user with the client role, ordered by name.
	ListClients(ctx context.Context) ([]User, error)
}
