package app

import (
	"context"
	"fmt"

	"quotedesk/internal/core"

	"golang.org/x/crypto/bcrypt"
)

const invalidCredentials = "invalid username or password"

// dummyHash is compared against when the user does not exist, so unknown and
// known usernames take the same time to reject.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("quotedesk-dummy-password"), bcrypt.DefaultCost)

func (s *appService) AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if !core.IsNotFound(err) {
			return nil, err
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, &core.UnauthorizedError{Message: invalidCredentials}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.log.WithField("username", username).Info("failed login")
		return nil, &core.UnauthorizedError{Message: invalidCredentials}
	}

	return &UserSession{
		UserID:      u.ID,
		CompanyID:   u.CompanyID,
		CompanyCode: u.CompanyCode,
		Username:    u.Username,
		Role:        u.Role,
	}, nil
}

func (s *appService) CreateUser(ctx context.Context, req CreateUserRequest) (*UserResult, error) {
	if len(req.Password) < 8 {
		return nil, &core.ValidationError{Field: "password", Message: "must be at least 8 characters"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u, err := s.users.CreateUser(ctx, req.CompanyCode, req.Username, req.Email, string(hash), req.Role)
	if err != nil {
		return nil, err
	}
	s.log.WithField("username", u.Username).WithField("company", u.CompanyCode).Info("user created")
	return userResult(u), nil
}
