package course

import (
	"context"
	"fmt"

	"classtrack/internal/clock"
	"classtrack/internal/domain"
	"classtrack/internal/identity"
)

// Repository persists courses.
type Repository interface {
	Create(ctx context.Context, c Course) (Course, error)
	ByID(ctx context.Context, id int) (Course, error)
	Update(ctx context.Context, c Course) (Course, error)
	SetLifecycle(ctx context.Context, id int, lc domain.Lifecycle) error
	Active(ctx context.Context) ([]Course, error)
	ByOwner(ctx context.Context, ownerID int) ([]Course, error)
}

// Directory is the slice of the identity store the registry needs.
type Directory interface {
	Find(ctx context.Context, id int) (identity.User, error)
}

// Service is the course registry. Its Owns method is the single
// authorization capability both workflows consult.
type Service struct {
	repo  Repository
	users Directory
	clk   clock.Clock
}

func NewService(repo Repository, users Directory, clk clock.Clock) *Service {
	return &Service{repo: repo, users: users, clk: clk}
}

// Create registers a course owned by actorID. Only faculty and interns may
// own courses.
func (s *Service) Create(ctx context.Context, nc NewCourse, actorID int) (Course, error) {
	if err := nc.validate(); err != nil {
		return Course{}, err
	}
	owner, err := s.users.Find(ctx, actorID)
	if err != nil {
		return Course{}, err
	}
	if !owner.CanOwnCourses() {
		return Course{}, fmt.Errorf("%w: only faculty and interns can create courses", domain.ErrUnauthorized)
	}
	now := s.clk.Now()
	credits := nc.Credits
	if credits <= 0 {
		credits = 3
	}
	return s.repo.Create(ctx, Course{
		Code:        nc.Code,
		Name:        nc.Name,
		Description: nc.Description,
		Credits:     credits,
		OwnerID:     actorID,
		Department:  nc.Department,
		Lifecycle:   domain.LifecycleActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// Get returns an active course; archived courses report ErrNotFound.
func (s *Service) Get(ctx context.Context, id int) (Course, error) {
	c, err := s.repo.ByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if c.Lifecycle != domain.LifecycleActive {
		return Course{}, domain.ErrNotFound
	}
	return c, nil
}

// Owns resolves the course and verifies actorID is its owner. This is the
// uniform ownership check for course, session, enrollment and attendance
// mutations.
func (s *Service) Owns(ctx context.Context, actorID, courseID int) (Course, error) {
	c, err := s.Get(ctx, courseID)
	if err != nil {
		return Course{}, err
	}
	if c.OwnerID != actorID {
		return Course{}, domain.ErrUnauthorized
	}
	return c, nil
}

// Update mutates owner-editable fields.
func (s *Service) Update(ctx context.Context, id int, uc UpdateCourse, actorID int) (Course, error) {
	c, err := s.Owns(ctx, actorID, id)
	if err != nil {
		return Course{}, err
	}
	if uc.Name != "" {
		c.Name = uc.Name
	}
	if uc.Description != "" {
		c.Description = uc.Description
	}
	if uc.Credits > 0 {
		c.Credits = uc.Credits
	}
	if uc.Department != "" {
		c.Department = uc.Department
	}
	c.UpdatedAt = s.clk.Now()
	return s.repo.Update(ctx, c)
}

// Archive transitions the course to the archived lifecycle state.
func (s *Service) Archive(ctx context.Context, id, actorID int) error {
	if _, err := s.Owns(ctx, actorID, id); err != nil {
		return err
	}
	return s.repo.SetLifecycle(ctx, id, domain.LifecycleArchived)
}

// ListActive returns all active courses.
func (s *Service) ListActive(ctx context.Context) ([]Course, error) {
	return s.repo.Active(ctx)
}

// ListByOwner returns the courses owned by ownerID, archived included.
func (s *Service) ListByOwner(ctx context.Context, ownerID int) ([]Course, error) {
	return s.repo.ByOwner(ctx, ownerID)
}
