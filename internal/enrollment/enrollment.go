package enrollment

import (
	"fmt"
	"time"

	"classtrack/internal/domain"
)

// RequestStatus is the enrollment-request state. Requests are terminal once
// reviewed; only pending -> approved and pending -> rejected transitions
// exist.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// Status is the course-enrollment state.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusDropped   Status = "dropped"
)

var validStatuses = map[Status]bool{StatusActive: true, StatusCompleted: true, StatusDropped: true}

// Decision is the reviewer's verdict on a pending request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Request is a student's petition to join a course. At most one request
// exists per (student, course) pair.
type Request struct {
	ID          int           `json:"id"`
	StudentID   int           `json:"student_id"`
	CourseID    int           `json:"course_id"`
	Status      RequestStatus `json:"status"`
	RequestedAt time.Time     `json:"requested_at"`
	ReviewedBy  *int          `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time    `json:"reviewed_at,omitempty"`
	Notes       string        `json:"notes,omitempty"`
}

// Enrollment is an approved membership. At most one exists per
// (student, course) pair regardless of status.
type Enrollment struct {
	ID         int       `json:"id"`
	StudentID  int       `json:"student_id"`
	CourseID   int       `json:"course_id"`
	EnrolledBy int       `json:"enrolled_by"`
	EnrolledAt time.Time `json:"enrolled_at"`
	Status     Status    `json:"status"`
}

// Review captures the outcome applied atomically to a pending request: the
// review write plus, on approval, the insert-if-absent enrollment.
type Review struct {
	RequestID  int
	StudentID  int
	CourseID   int
	ReviewerID int
	Approved   bool
	Notes      string
	At         time.Time
}

func parseDecision(d Decision) (bool, error) {
	switch d {
	case DecisionApprove:
		return true, nil
	case DecisionReject:
		return false, nil
	default:
		return false, fmt.Errorf("%w: decision must be approve or reject", domain.ErrValidation)
	}
}
