package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials covers unknown usernames, wrong passwords and
// deactivated accounts. Callers cannot distinguish which.
var ErrInvalidCredentials = errors.New("invalid username or password")

const minPasswordLen = 8

type Service struct {
	users Repository
}

func NewService(repo Repository) *Service {
	return &Service{users: repo}
}

func (s *Service) Create(ctx context.Context, u *User, password string) error {
	if u.Username == "" {
		return fmt.Errorf("username is required")
	}
	if !ValidRole(u.Role) {
		return fmt.Errorf("invalid role: %s", u.Role)
	}
	if len(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	u.Active = true
	return s.users.Create(ctx, u)
}

// Authenticate verifies credentials and returns the account on success.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.Active {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, limit, offset)
}

// Update changes profile fields. The password only changes when a new
// one is supplied.
func (s *Service) Update(ctx context.Context, u *User, newPassword string) (*User, error) {
	existing, err := s.users.GetByID(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	if u.Role != "" {
		if !ValidRole(u.Role) {
			return nil, fmt.Errorf("invalid role: %s", u.Role)
		}
		existing.Role = u.Role
	}
	if u.FullName != "" {
		existing.FullName = u.FullName
	}
	existing.FacilityID = u.FacilityID
	if newPassword != "" {
		if len(newPassword) < minPasswordLen {
			return nil, fmt.Errorf("password must be at least %d characters", minPasswordLen)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		existing.PasswordHash = string(hash)
	}
	if err := s.users.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return fmt.Errorf("user not found: %w", err)
	}
	return s.users.Deactivate(ctx, id)
}
