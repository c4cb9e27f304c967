package identity

import (
	"context"
	"errors"

	"classtrack/internal/clock"
	"classtrack/internal/domain"
)

// Repository persists user records.
type Repository interface {
	Create(ctx context.Context, u User) (User, error)
	ByID(ctx context.Context, id int) (User, error)
	ByEmail(ctx context.Context, email string) (User, error)
}

// Service is the identity store consumed by the course registry and both
// workflow components.
type Service struct {
	repo Repository
	clk  clock.Clock
}

func NewService(repo Repository, clk clock.Clock) *Service {
	return &Service{repo: repo, clk: clk}
}

// Register creates a user with a hashed password. Email and user number
// must be unique.
func (s *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.validate(); err != nil {
		return User{}, err
	}
	usr := User{
		FirstName:  nu.FirstName,
		LastName:   nu.LastName,
		Email:      nu.Email,
		UserNumber: nu.UserNumber,
		Role:       nu.Role,
		Major:      nu.Major,
		Department: nu.Department,
		IsActive:   true,
		CreatedAt:  s.clk.Now(),
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return s.repo.Create(ctx, usr)
}

// Authenticate verifies credentials against the stored hash. Inactive users
// and unknown emails report the same error as a bad password.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	if email == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}
	usr, err := s.repo.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if !usr.IsActive || !usr.CheckPassword(password) {
		return User{}, ErrInvalidCredentials
	}
	return usr, nil
}

// Find returns the user with the given id.
func (s *Service) Find(ctx context.Context, id int) (User, error) {
	return s.repo.ByID(ctx, id)
}
