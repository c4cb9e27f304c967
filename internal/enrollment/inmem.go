package enrollment

import (
	"context"
	"sort"
	"sync"

	"classtrack/internal/domain"
)

// InMemRepository mirrors the Postgres repository's constraint behavior in
// memory, for tests and local development. CourseOwner must be provided so
// PendingByOwner can resolve ownership without a join.
type InMemRepository struct {
	mu          sync.Mutex
	requests    map[int]Request
	enrollments map[int]Enrollment
	nextReqID   int
	nextEnrID   int

	// CourseOwner maps course id to owner id, standing in for the courses
	// table join.
	CourseOwner map[int]int
}

func NewInMemRepository() *InMemRepository {
	return &InMemRepository{
		requests:    make(map[int]Request),
		enrollments: make(map[int]Enrollment),
		nextReqID:   1,
		nextEnrID:   1,
		CourseOwner: make(map[int]int),
	}
}

func (r *InMemRepository) CreateRequest(_ context.Context, req Request) (Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.requests {
		if existing.StudentID == req.StudentID && existing.CourseID == req.CourseID {
			return Request{}, domain.ErrDuplicateRequest
		}
	}
	req.ID = r.nextReqID
	r.nextReqID++
	r.requests[req.ID] = req
	return req, nil
}

func (r *InMemRepository) RequestByID(_ context.Context, id int) (Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return Request{}, domain.ErrNotFound
	}
	return req, nil
}

func (r *InMemRepository) RequestsByStudent(_ context.Context, studentID int) ([]Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []Request
	for _, req := range r.requests {
		if req.StudentID == studentID {
			res = append(res, req)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].RequestedAt.After(res[j].RequestedAt) })
	return res, nil
}

func (r *InMemRepository) PendingByOwner(_ context.Context, ownerID int) ([]Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []Request
	for _, req := range r.requests {
		if req.Status == RequestPending && r.CourseOwner[req.CourseID] == ownerID {
			res = append(res, req)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].RequestedAt.After(res[j].RequestedAt) })
	return res, nil
}

func (r *InMemRepository) Apply(_ context.Context, rv Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[rv.RequestID]
	if !ok || req.Status != RequestPending {
		return domain.ErrNotFound
	}
	req.Status = RequestRejected
	if rv.Approved {
		req.Status = RequestApproved
	}
	reviewer, at := rv.ReviewerID, rv.At
	req.ReviewedBy = &reviewer
	req.ReviewedAt = &at
	req.Notes = rv.Notes
	r.requests[rv.RequestID] = req

	if rv.Approved && !r.pairExists(rv.StudentID, rv.CourseID) {
		e := Enrollment{
			ID:         r.nextEnrID,
			StudentID:  rv.StudentID,
			CourseID:   rv.CourseID,
			EnrolledBy: rv.ReviewerID,
			EnrolledAt: rv.At,
			Status:     StatusActive,
		}
		r.nextEnrID++
		r.enrollments[e.ID] = e
	}
	return nil
}

// pairExists mirrors the unique (student, course) constraint: any row for
// the pair blocks a new insert, whatever its status.
func (r *InMemRepository) pairExists(studentID, courseID int) bool {
	for _, e := range r.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			return true
		}
	}
	return false
}

func (r *InMemRepository) HasActive(_ context.Context, studentID, courseID int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID && e.Status == StatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (r *InMemRepository) EnrollmentByID(_ context.Context, id int) (Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollments[id]
	if !ok {
		return Enrollment{}, domain.ErrNotFound
	}
	return e, nil
}

func (r *InMemRepository) ActiveByCourse(_ context.Context, courseID int) ([]Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []Enrollment
	for _, e := range r.enrollments {
		if e.CourseID == courseID && e.Status == StatusActive {
			res = append(res, e)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *InMemRepository) UpdateStatus(_ context.Context, id int, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollments[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Status = status
	r.enrollments[id] = e
	return nil
}
