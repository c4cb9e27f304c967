package attendance

import (
	"fmt"
	"time"

	"classtrack/internal/domain"
)

// RecordStatus classifies a student's presence at one class session.
type RecordStatus string

const (
	StatusPresent RecordStatus = "present"
	StatusAbsent  RecordStatus = "absent"
	StatusLate    RecordStatus = "late"
	StatusExcused RecordStatus = "excused"
)

var validRecordStatuses = map[RecordStatus]bool{
	StatusPresent: true, StatusAbsent: true, StatusLate: true, StatusExcused: true,
}

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// Session is a single class meeting. Its attendance code is unique across
// all sessions and only redeemable on the session's date while the session
// is active.
type Session struct {
	ID        int              `json:"id"`
	CourseID  int              `json:"course_id"`
	Date      time.Time        `json:"session_date"`
	StartTime string           `json:"start_time"`
	EndTime   string           `json:"end_time"`
	Topic     string           `json:"topic,omitempty"`
	Location  string           `json:"location,omitempty"`
	Code      string           `json:"attendance_code"`
	Lifecycle domain.Lifecycle `json:"lifecycle"`
	CreatedBy int              `json:"created_by"`
	CreatedAt time.Time        `json:"created_at"`
}

// SameDate reports whether the session is scheduled on t's calendar date.
func (s Session) SameDate(t time.Time) bool {
	return s.Date.Format(dateLayout) == t.Format(dateLayout)
}

// Record is one student's attendance at one session. The
// (session, student) pair is unique.
type Record struct {
	ID        int          `json:"id"`
	SessionID int          `json:"session_id"`
	StudentID int          `json:"student_id"`
	Status    RecordStatus `json:"status"`
	MarkedBy  *int         `json:"marked_by,omitempty"`
	MarkedAt  time.Time    `json:"marked_at"`
	CodeUsed  string       `json:"marked_with_code,omitempty"`
	Notes     string       `json:"notes,omitempty"`
}

// NewSession carries a session-creation submission. Date and times use the
// wire formats 2006-01-02 and 15:04:05.
type NewSession struct {
	CourseID  int    `json:"course_id"`
	Date      string `json:"session_date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Topic     string `json:"topic"`
	Location  string `json:"location"`
}

func (ns NewSession) parse() (date time.Time, err error) {
	if ns.CourseID <= 0 || ns.Date == "" || ns.StartTime == "" || ns.EndTime == "" {
		return time.Time{}, fmt.Errorf("%w: course_id, session_date, start_time and end_time are required", domain.ErrValidation)
	}
	date, err = time.Parse(dateLayout, ns.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: session_date must be YYYY-MM-DD", domain.ErrValidation)
	}
	for _, v := range []string{ns.StartTime, ns.EndTime} {
		if _, terr := time.Parse(timeLayout, v); terr != nil {
			return time.Time{}, fmt.Errorf("%w: times must be HH:MM:SS", domain.ErrValidation)
		}
	}
	return date, nil
}

// RateSummary is the minimal per-student, per-course rollup used by the
// self-service view. Present and late both count as attended.
type RateSummary struct {
	StudentID        int `json:"student_id"`
	CourseID         int `json:"course_id"`
	TotalSessions    int `json:"total_sessions"`
	AttendedSessions int `json:"attended_sessions"`
	Rate             int `json:"attendance_rate"`
}
