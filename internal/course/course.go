package course

import (
	"fmt"
	"time"

	"classtrack/internal/domain"
)

var ErrCodeExists = fmt.Errorf("%w: a course with this code already exists", domain.ErrValidation)

// Course is owned by exactly one faculty or intern. Courses are archived,
// never hard-deleted.
type Course struct {
	ID          int              `json:"id"`
	Code        string           `json:"course_code"`
	Name        string           `json:"course_name"`
	Description string           `json:"description,omitempty"`
	Credits     int              `json:"credits"`
	OwnerID     int              `json:"owner_id"`
	Department  string           `json:"department,omitempty"`
	Lifecycle   domain.Lifecycle `json:"lifecycle"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// NewCourse carries a course-creation submission.
type NewCourse struct {
	Code        string `json:"course_code"`
	Name        string `json:"course_name"`
	Description string `json:"description"`
	Credits     int    `json:"credits"`
	Department  string `json:"department"`
}

func (nc NewCourse) validate() error {
	if nc.Code == "" || nc.Name == "" {
		return fmt.Errorf("%w: course_code and course_name are required", domain.ErrValidation)
	}
	return nil
}

// UpdateCourse carries the owner-mutable fields.
type UpdateCourse struct {
	Name        string `json:"course_name"`
	Description string `json:"description"`
	Credits     int    `json:"credits"`
	Department  string `json:"department"`
}
