package enrollment

import (
	"context"
	"fmt"

	"classtrack/internal/clock"
	"classtrack/internal/course"
	"classtrack/internal/domain"
)

// Repository persists requests and enrollments. Apply is all-or-nothing:
// the review write and the approval-path enrollment insert share one
// transaction.
type Repository interface {
	CreateRequest(ctx context.Context, req Request) (Request, error)
	RequestByID(ctx context.Context, id int) (Request, error)
	RequestsByStudent(ctx context.Context, studentID int) ([]Request, error)
	PendingByOwner(ctx context.Context, ownerID int) ([]Request, error)
	Apply(ctx context.Context, rv Review) error
	HasActive(ctx context.Context, studentID, courseID int) (bool, error)
	EnrollmentByID(ctx context.Context, id int) (Enrollment, error)
	ActiveByCourse(ctx context.Context, courseID int) ([]Enrollment, error)
	UpdateStatus(ctx context.Context, id int, status Status) error
}

// CourseRegistry is the slice of the course registry the workflow consults.
type CourseRegistry interface {
	Get(ctx context.Context, id int) (course.Course, error)
	Owns(ctx context.Context, actorID, courseID int) (course.Course, error)
}

// Service runs the enrollment workflow.
type Service struct {
	repo    Repository
	courses CourseRegistry
	clk     clock.Clock
}

func NewService(repo Repository, courses CourseRegistry, clk clock.Clock) *Service {
	return &Service{repo: repo, courses: courses, clk: clk}
}

// Request creates a pending enrollment request for (studentID, courseID).
// The unique pair constraint is the real guard against duplicate requests;
// the active-enrollment check runs first so the caller gets the more
// specific error.
func (s *Service) Request(ctx context.Context, studentID, courseID int) (Request, error) {
	if studentID <= 0 || courseID <= 0 {
		return Request{}, fmt.Errorf("%w: student_id and course_id are required", domain.ErrValidation)
	}
	if _, err := s.courses.Get(ctx, courseID); err != nil {
		return Request{}, err
	}
	enrolled, err := s.repo.HasActive(ctx, studentID, courseID)
	if err != nil {
		return Request{}, err
	}
	if enrolled {
		return Request{}, domain.ErrAlreadyEnrolled
	}
	return s.repo.CreateRequest(ctx, Request{
		StudentID:   studentID,
		CourseID:    courseID,
		Status:      RequestPending,
		RequestedAt: s.clk.Now(),
	})
}

// ReviewRequest settles a pending request. Only the owning faculty/intern
// may review; a request already reviewed reports ErrNotFound since no
// pending row remains. On approval an enrollment is created unless one
// already exists for the pair.
func (s *Service) ReviewRequest(ctx context.Context, requestID, actorID int, decision Decision, notes string) (Request, error) {
	approved, err := parseDecision(decision)
	if err != nil {
		return Request{}, err
	}
	req, err := s.repo.RequestByID(ctx, requestID)
	if err != nil {
		return Request{}, err
	}
	if req.Status != RequestPending {
		return Request{}, domain.ErrNotFound
	}
	if _, err := s.courses.Owns(ctx, actorID, req.CourseID); err != nil {
		return Request{}, err
	}
	now := s.clk.Now()
	rv := Review{
		RequestID:  requestID,
		StudentID:  req.StudentID,
		CourseID:   req.CourseID,
		ReviewerID: actorID,
		Approved:   approved,
		Notes:      notes,
		At:         now,
	}
	if err := s.repo.Apply(ctx, rv); err != nil {
		return Request{}, err
	}
	req.Status = RequestRejected
	if approved {
		req.Status = RequestApproved
	}
	req.ReviewedBy = &actorID
	req.ReviewedAt = &now
	req.Notes = notes
	return req, nil
}

// SetStatus moves an enrollment between active, completed and dropped.
func (s *Service) SetStatus(ctx context.Context, enrollmentID, actorID int, status Status) (Enrollment, error) {
	if !validStatuses[status] {
		return Enrollment{}, fmt.Errorf("%w: status must be active, completed or dropped", domain.ErrValidation)
	}
	e, err := s.repo.EnrollmentByID(ctx, enrollmentID)
	if err != nil {
		return Enrollment{}, err
	}
	if _, err := s.courses.Owns(ctx, actorID, e.CourseID); err != nil {
		return Enrollment{}, err
	}
	if err := s.repo.UpdateStatus(ctx, enrollmentID, status); err != nil {
		return Enrollment{}, err
	}
	e.Status = status
	return e, nil
}

// HasActive reports whether the student holds an active enrollment in the
// course. The attendance workflow gates every record on this.
func (s *Service) HasActive(ctx context.Context, studentID, courseID int) (bool, error) {
	return s.repo.HasActive(ctx, studentID, courseID)
}

// RequestsForStudent lists a student's requests, newest first.
func (s *Service) RequestsForStudent(ctx context.Context, studentID int) ([]Request, error) {
	return s.repo.RequestsByStudent(ctx, studentID)
}

// PendingForOwner lists pending requests across the owner's courses.
func (s *Service) PendingForOwner(ctx context.Context, ownerID int) ([]Request, error) {
	return s.repo.PendingByOwner(ctx, ownerID)
}

// ActiveForCourse lists a course's active enrollments.
func (s *Service) ActiveForCourse(ctx context.Context, courseID int) ([]Enrollment, error) {
	return s.repo.ActiveByCourse(ctx, courseID)
}
