package core

import (
	"context"
	"time"
)

// User is a login scoped to one company. Role selects its capabilities.
type User struct {
	ID           int       `json:"id"`
	CompanyID    int       `json:"company_id"`
	CompanyCode  string    `json:"company_code"` // joined from companies
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Actor returns the identity the user acts as in core operations.
func (u *User) Actor() Actor {
	return Actor{UserID: u.ID, CompanyID: u.CompanyID, Role: u.Role}
}

// UserService provides user lookup and provisioning.
type UserService interface {
	// GetByUsername finds an active user by username. Usernames are globally unique.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByID returns a user by primary key.
	GetByID(ctx context.Context, userID int) (*User, error)

	// CreateUser provisions a user in the company identified by companyCode.
	// passwordHash must already be hashed.
	CreateUser(ctx context.Context, companyCode, username, email, passwordHash, role string) (*User, error)
}
