package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type userService struct {
	pool *pgxpool.Pool
}

// NewUserService constructs a UserService backed by PostgreSQL.
func NewUserService(pool *pgxpool.Pool) UserService {
	return &userService{pool: pool}
}

const userSelect = `
	SELECT u.id, u.company_id, c.company_code, u.username, u.email, u.password_hash, u.role, u.is_active, u.created_at
	FROM users u
	JOIN companies c ON c.id = u.company_id`

func scanUser(row rowScanner, u *User) error {
	return row.Scan(&u.ID, &u.CompanyID, &u.CompanyCode, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt)
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*User, error) {
	u := &User{}
	err := scanUser(s.pool.QueryRow(ctx, userSelect+`
		WHERE u.username = $1 AND u.is_active = true
		LIMIT 1`,
		username,
	), u)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "user", ID: username}
		}
		return nil, fmt.Errorf("failed to fetch user %q: %w", username, err)
	}
	return u, nil
}

func (s *userService) GetByID(ctx context.Context, userID int) (*User, error) {
	u := &User{}
	err := scanUser(s.pool.QueryRow(ctx, userSelect+`
		WHERE u.id = $1`,
		userID,
	), u)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "user", ID: userID}
		}
		return nil, fmt.Errorf("failed to fetch user id=%d: %w", userID, err)
	}
	return u, nil
}

func (s *userService) CreateUser(ctx context.Context, companyCode, username, email, passwordHash, role string) (*User, error) {
	if username == "" {
		return nil, validationf("username", "is required")
	}
	if !ValidRole(role) {
		return nil, validationf("role", "unknown role %q", role)
	}

	var id int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (company_id, username, email, password_hash, role)
		SELECT id, $2, $3, $4, $5 FROM companies WHERE company_code = $1
		RETURNING id
	`, companyCode, username, email, passwordHash, role).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "company", ID: companyCode}
		}
		if isUniqueViolation(err) {
			return nil, validationf("username", "username %q is already taken", username)
		}
		return nil, fmt.Errorf("failed to create user %q: %w", username, err)
	}
	return s.GetByID(ctx, id)
}
