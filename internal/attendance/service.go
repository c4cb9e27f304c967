package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"classtrack/internal/clock"
	"classtrack/internal/course"
	"classtrack/internal/domain"
)

// Repository persists sessions and attendance records.
type Repository interface {
	CreateSession(ctx context.Context, s Session) (Session, error)
	SessionByID(ctx context.Context, id int) (Session, error)
	ActiveSessionByCode(ctx context.Context, code string, date time.Time) (Session, error)
	SessionsByCourse(ctx context.Context, courseID int) ([]Session, error)
	SessionsByCreator(ctx context.Context, creatorID int) ([]Session, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	SetSessionLifecycle(ctx context.Context, id int, lc domain.Lifecycle) error
	ExpiredActiveSessions(ctx context.Context, now time.Time) ([]Session, error)

	RecordByID(ctx context.Context, id int) (Record, error)
	RecordExists(ctx context.Context, sessionID, studentID int) (bool, error)
	InsertRecord(ctx context.Context, rec Record) (Record, error)
	UpsertRecord(ctx context.Context, rec Record) (Record, error)
	UpdateRecord(ctx context.Context, rec Record) (Record, error)
	RecordsBySession(ctx context.Context, sessionID int) ([]Record, error)
	EnrolledWithoutRecord(ctx context.Context, sessionID int) ([]int, error)
	CountCourseSessions(ctx context.Context, courseID int) (int, error)
	CountAttended(ctx context.Context, studentID, courseID int) (int, error)
}

// CourseRegistry is the slice of the course registry the workflow consults.
type CourseRegistry interface {
	Get(ctx context.Context, id int) (course.Course, error)
	Owns(ctx context.Context, actorID, courseID int) (course.Course, error)
}

// EnrollmentGate answers whether a student holds an active enrollment in a
// course. Every attendance record is gated on it.
type EnrollmentGate interface {
	HasActive(ctx context.Context, studentID, courseID int) (bool, error)
}

// Service runs the session and attendance workflow.
type Service struct {
	repo        Repository
	courses     CourseRegistry
	enrollments EnrollmentGate
	clk         clock.Clock
	codeLen     int
}

func NewService(repo Repository, courses CourseRegistry, enrollments EnrollmentGate, clk clock.Clock, codeLen int) *Service {
	if codeLen <= 0 {
		codeLen = 6
	}
	return &Service{repo: repo, courses: courses, enrollments: enrollments, clk: clk, codeLen: codeLen}
}

// CreateSession creates an active class session with a fresh unique
// attendance code. Only the course owner may create sessions.
func (s *Service) CreateSession(ctx context.Context, ns NewSession, actorID int) (Session, error) {
	date, err := ns.parse()
	if err != nil {
		return Session{}, err
	}
	if _, err := s.courses.Owns(ctx, actorID, ns.CourseID); err != nil {
		return Session{}, err
	}
	code, err := s.uniqueCode(ctx)
	if err != nil {
		return Session{}, err
	}
	return s.repo.CreateSession(ctx, Session{
		CourseID:  ns.CourseID,
		Date:      date,
		StartTime: ns.StartTime,
		EndTime:   ns.EndTime,
		Topic:     ns.Topic,
		Location:  ns.Location,
		Code:      code,
		Lifecycle: domain.LifecycleActive,
		CreatedBy: actorID,
		CreatedAt: s.clk.Now(),
	})
}

// MarkDirect records or overwrites a student's attendance on behalf of the
// session owner. This is the only path allowed to overwrite an existing
// record.
func (s *Service) MarkDirect(ctx context.Context, sessionID, studentID int, status RecordStatus, actorID int, notes string) (Record, error) {
	if !validRecordStatuses[status] {
		return Record{}, fmt.Errorf("%w: status must be present, absent, late or excused", domain.ErrValidation)
	}
	sess, err := s.repo.SessionByID(ctx, sessionID)
	if err != nil {
		return Record{}, err
	}
	if _, err := s.courses.Owns(ctx, actorID, sess.CourseID); err != nil {
		return Record{}, err
	}
	enrolled, err := s.enrollments.HasActive(ctx, studentID, sess.CourseID)
	if err != nil {
		return Record{}, err
	}
	if !enrolled {
		return Record{}, domain.ErrNotEnrolled
	}
	marker := actorID
	return s.repo.UpsertRecord(ctx, Record{
		SessionID: sessionID,
		StudentID: studentID,
		Status:    status,
		MarkedBy:  &marker,
		MarkedAt:  s.clk.Now(),
		Notes:     notes,
	})
}

// RedeemCode is the student self-check-in path. The code must belong to an
// active session scheduled today; the record is insert-once, and the status
// is late when the redemption instant is strictly after the session's start
// time.
func (s *Service) RedeemCode(ctx context.Context, studentID int, code string) (Record, error) {
	if studentID <= 0 || code == "" {
		return Record{}, fmt.Errorf("%w: student_id and attendance_code are required", domain.ErrValidation)
	}
	now := s.clk.Now()
	sess, err := s.repo.ActiveSessionByCode(ctx, code, now)
	if err != nil {
		return Record{}, err
	}
	enrolled, err := s.enrollments.HasActive(ctx, studentID, sess.CourseID)
	if err != nil {
		return Record{}, err
	}
	if !enrolled {
		return Record{}, domain.ErrNotEnrolled
	}
	exists, err := s.repo.RecordExists(ctx, sess.ID, studentID)
	if err != nil {
		return Record{}, err
	}
	if exists {
		return Record{}, domain.ErrAlreadyMarked
	}
	status := StatusPresent
	if now.Format(timeLayout) > sess.StartTime {
		status = StatusLate
	}
	return s.repo.InsertRecord(ctx, Record{
		SessionID: sess.ID,
		StudentID: studentID,
		Status:    status,
		MarkedAt:  now,
		CodeUsed:  code,
	})
}

// UpdateRecord rewrites an existing record's status and notes in place.
func (s *Service) UpdateRecord(ctx context.Context, recordID, actorID int, status RecordStatus, notes string) (Record, error) {
	if !validRecordStatuses[status] {
		return Record{}, fmt.Errorf("%w: status must be present, absent, late or excused", domain.ErrValidation)
	}
	rec, err := s.repo.RecordByID(ctx, recordID)
	if err != nil {
		return Record{}, err
	}
	sess, err := s.repo.SessionByID(ctx, rec.SessionID)
	if err != nil {
		return Record{}, err
	}
	if _, err := s.courses.Owns(ctx, actorID, sess.CourseID); err != nil {
		return Record{}, err
	}
	marker := actorID
	rec.Status = status
	rec.Notes = notes
	rec.MarkedBy = &marker
	rec.MarkedAt = s.clk.Now()
	return s.repo.UpdateRecord(ctx, rec)
}

// CloseSession archives a session so its code stops redeeming.
func (s *Service) CloseSession(ctx context.Context, sessionID, actorID int) (Session, error) {
	sess, err := s.repo.SessionByID(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if _, err := s.courses.Owns(ctx, actorID, sess.CourseID); err != nil {
		return Session{}, err
	}
	if err := s.repo.SetSessionLifecycle(ctx, sessionID, domain.LifecycleArchived); err != nil {
		return Session{}, err
	}
	sess.Lifecycle = domain.LifecycleArchived
	return sess, nil
}

// FinalizeAbsences marks absent every actively enrolled student who has no
// record for the session. Invoked by the worker after a session closes.
// Existing records are never touched.
func (s *Service) FinalizeAbsences(ctx context.Context, sessionID int) (int, error) {
	sess, err := s.repo.SessionByID(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	students, err := s.repo.EnrolledWithoutRecord(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	now := s.clk.Now()
	marked := 0
	for _, studentID := range students {
		marker := sess.CreatedBy
		_, err := s.repo.InsertRecord(ctx, Record{
			SessionID: sessionID,
			StudentID: studentID,
			Status:    StatusAbsent,
			MarkedBy:  &marker,
			MarkedAt:  now,
		})
		if err != nil {
			// A concurrent redemption or direct mark beat us; that record wins.
			if errors.Is(err, domain.ErrAlreadyMarked) {
				continue
			}
			return marked, err
		}
		marked++
	}
	return marked, nil
}

// SweepExpired archives active sessions whose end time has passed and
// returns them so the caller can fan out close-out events.
func (s *Service) SweepExpired(ctx context.Context) ([]Session, error) {
	expired, err := s.repo.ExpiredActiveSessions(ctx, s.clk.Now())
	if err != nil {
		return nil, err
	}
	var closed []Session
	for _, sess := range expired {
		if err := s.repo.SetSessionLifecycle(ctx, sess.ID, domain.LifecycleArchived); err != nil {
			return closed, err
		}
		sess.Lifecycle = domain.LifecycleArchived
		closed = append(closed, sess)
	}
	return closed, nil
}

// SessionRecords lists a session's records for its owner.
func (s *Service) SessionRecords(ctx context.Context, sessionID, actorID int) ([]Record, error) {
	sess, err := s.repo.SessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.courses.Owns(ctx, actorID, sess.CourseID); err != nil {
		return nil, err
	}
	return s.repo.RecordsBySession(ctx, sessionID)
}

// SessionsForCourse lists a course's sessions.
func (s *Service) SessionsForCourse(ctx context.Context, courseID int) ([]Session, error) {
	return s.repo.SessionsByCourse(ctx, courseID)
}

// SessionsForCreator lists sessions created by the given faculty/intern.
func (s *Service) SessionsForCreator(ctx context.Context, creatorID int) ([]Session, error) {
	return s.repo.SessionsByCreator(ctx, creatorID)
}

// Rate computes a student's attendance rate in a course; present and late
// both count as attended.
func (s *Service) Rate(ctx context.Context, studentID, courseID int) (RateSummary, error) {
	if _, err := s.courses.Get(ctx, courseID); err != nil {
		return RateSummary{}, err
	}
	total, err := s.repo.CountCourseSessions(ctx, courseID)
	if err != nil {
		return RateSummary{}, err
	}
	attended, err := s.repo.CountAttended(ctx, studentID, courseID)
	if err != nil {
		return RateSummary{}, err
	}
	summary := RateSummary{StudentID: studentID, CourseID: courseID, TotalSessions: total, AttendedSessions: attended}
	if total > 0 {
		summary.Rate = int(float64(attended)/float64(total)*100 + 0.5)
	}
	return summary, nil
}
