package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	"classtrack/internal/domain"
)

// InMemRepository mirrors the Postgres repository's constraint behavior in
// memory, for tests and local development. ActiveEnrollments maps course id
// to the student ids holding active enrollments, standing in for the
// course_enrollments join used by EnrolledWithoutRecord.
type InMemRepository struct {
	mu         sync.Mutex
	sessions   map[int]Session
	records    map[int]Record
	nextSessID int
	nextRecID  int

	ActiveEnrollments map[int][]int
}

func NewInMemRepository() *InMemRepository {
	return &InMemRepository{
		sessions:          make(map[int]Session),
		records:           make(map[int]Record),
		nextSessID:        1,
		nextRecID:         1,
		ActiveEnrollments: make(map[int][]int),
	}
}

func (r *InMemRepository) CreateSession(_ context.Context, s Session) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sessions {
		if existing.Code == s.Code {
			return Session{}, domain.ErrExhaustedCodeSpace
		}
	}
	s.ID = r.nextSessID
	r.nextSessID++
	r.sessions[s.ID] = s
	return s, nil
}

func (r *InMemRepository) SessionByID(_ context.Context, id int) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return Session{}, domain.ErrNotFound
	}
	return s, nil
}

func (r *InMemRepository) ActiveSessionByCode(_ context.Context, code string, date time.Time) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.Code == code && s.Lifecycle == domain.LifecycleActive && s.SameDate(date) {
			return s, nil
		}
	}
	return Session{}, domain.ErrInvalidCode
}

func (r *InMemRepository) SessionsByCourse(_ context.Context, courseID int) ([]Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []Session
	for _, s := range r.sessions {
		if s.CourseID == courseID {
			res = append(res, s)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *InMemRepository) SessionsByCreator(_ context.Context, creatorID int) ([]Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []Session
	for _, s := range r.sessions {
		if s.CreatedBy == creatorID {
			res = append(res, s)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *InMemRepository) CodeExists(_ context.Context, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *InMemRepository) SetSessionLifecycle(_ context.Context, id int, lc domain.Lifecycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Lifecycle = lc
	r.sessions[id] = s
	return nil
}

func (r *InMemRepository) ExpiredActiveSessions(_ context.Context, now time.Time) ([]Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	today := now.Format(dateLayout)
	tod := now.Format(timeLayout)
	var res []Session
	for _, s := range r.sessions {
		if s.Lifecycle != domain.LifecycleActive {
			continue
		}
		day := s.Date.Format(dateLayout)
		if day < today || (day == today && s.EndTime < tod) {
			res = append(res, s)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *InMemRepository) RecordByID(_ context.Context, id int) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return Record{}, domain.ErrNotFound
	}
	return rec, nil
}

func (r *InMemRepository) RecordExists(_ context.Context, sessionID, studentID int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findPair(sessionID, studentID) != 0, nil
}

func (r *InMemRepository) findPair(sessionID, studentID int) int {
	for id, rec := range r.records {
		if rec.SessionID == sessionID && rec.StudentID == studentID {
			return id
		}
	}
	return 0
}

func (r *InMemRepository) InsertRecord(_ context.Context, rec Record) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findPair(rec.SessionID, rec.StudentID) != 0 {
		return Record{}, domain.ErrAlreadyMarked
	}
	rec.ID = r.nextRecID
	r.nextRecID++
	r.records[rec.ID] = rec
	return rec, nil
}

func (r *InMemRepository) UpsertRecord(_ context.Context, rec Record) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id := r.findPair(rec.SessionID, rec.StudentID); id != 0 {
		existing := r.records[id]
		existing.Status = rec.Status
		existing.MarkedBy = rec.MarkedBy
		existing.MarkedAt = rec.MarkedAt
		existing.Notes = rec.Notes
		r.records[id] = existing
		return existing, nil
	}
	rec.ID = r.nextRecID
	r.nextRecID++
	r.records[rec.ID] = rec
	return rec, nil
}

func (r *InMemRepository) UpdateRecord(_ context.Context, rec Record) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.ID]; !ok {
		return Record{}, domain.ErrNotFound
	}
	r.records[rec.ID] = rec
	return rec, nil
}

func (r *InMemRepository) RecordsBySession(_ context.Context, sessionID int) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []Record
	for _, rec := range r.records {
		if rec.SessionID == sessionID {
			res = append(res, rec)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *InMemRepository) EnrolledWithoutRecord(_ context.Context, sessionID int) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	var res []int
	for _, studentID := range r.ActiveEnrollments[s.CourseID] {
		if r.findPair(sessionID, studentID) == 0 {
			res = append(res, studentID)
		}
	}
	sort.Ints(res)
	return res, nil
}

func (r *InMemRepository) CountCourseSessions(_ context.Context, courseID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sessions {
		if s.CourseID == courseID {
			n++
		}
	}
	return n, nil
}

func (r *InMemRepository) CountAttended(_ context.Context, studentID, courseID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if rec.StudentID != studentID || (rec.Status != StatusPresent && rec.Status != StatusLate) {
			continue
		}
		if s, ok := r.sessions[rec.SessionID]; ok && s.CourseID == courseID {
			n++
		}
	}
	return n, nil
}
