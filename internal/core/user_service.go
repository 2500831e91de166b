package core

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// bcrypt rejects passwords longer than this.
const maxPasswordBytes = 72

type userService struct {
	pool *pgxpool.Pool
}

// NewUserService constructs a UserService backed by PostgreSQL.
func NewUserService(pool *pgxpool.Pool) UserService {
	return &userService{pool: pool}
}

func (s *userService) CreateUser(ctx context.Context, email, name, password string, role Role) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, &ValidationError{Field: "email", Reason: "invalid email address"}
	}
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "name is required"}
	}
	if len(password) < minPasswordLength {
		return nil, &ValidationError{Field: "password", Reason: "password must be at least 8 characters"}
	}
	if len(password) > maxPasswordBytes {
		return nil, &ValidationError{Field: "password", Reason: "password must be at most 72 bytes"}
	}
	if _, err := ParseRole(string(role)); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, persistErr("hash password", err)
	}

	u := &User{ID: uuid.New(), Email: email, Name: name, PasswordHash: string(hash), Role: role}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, u.ID, u.Email, u.Name, u.PasswordHash, string(u.Role)).Scan(&u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &ValidationError{Field: "email", Reason: "email is already registered"}
		}
		return nil, persistErr("insert user", err)
	}
	return u, nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `
		SELECT id, email, name, password_hash, role, created_at
		FROM users
		WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "user", Key: "with these credentials"}
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, &NotFoundError{Entity: "user", Key: "with these credentials"}
	}
	return u, nil
}

func (s *userService) GetByID(ctx context.Context, userID uuid.UUID) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `
		SELECT id, email, name, password_hash, role, created_at
		FROM users
		WHERE id = $1`,
		userID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "user", Key: userID.String()}
	}
	return u, err
}

func (s *userService) ListClients(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, email, name, password_hash, role, created_at
		FROM users
		WHERE role = $1
		ORDER BY name, email
	`, string(RoleClient))
	if err != nil {
		return nil, persistErr("query clients", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate clients", err)
	}
	return users, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, persistErr("scan user", err)
	}
	u.Role = Role(role)
	return &u, nil
}
