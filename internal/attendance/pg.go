package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"classtrack/internal/domain"
	"classtrack/internal/store"
)

// PGRepository persists sessions and records in Postgres. The unique
// (session_id, student_id) constraint serializes concurrent redemptions;
// the unique attendance_code constraint backs the generation loop.
type PGRepository struct {
	db *sql.DB
}

func NewPGRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

const sessionColumns = `id, course_id, session_date, start_time::text, end_time::text, COALESCE(topic, ''), COALESCE(location, ''), attendance_code, lifecycle, created_by, created_at`

func scanSession(scan func(dest ...any) error) (Session, error) {
	var s Session
	err := scan(&s.ID, &s.CourseID, &s.Date, &s.StartTime, &s.EndTime,
		&s.Topic, &s.Location, &s.Code, &s.Lifecycle, &s.CreatedBy, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, domain.ErrNotFound
	}
	return s, err
}

func (r *PGRepository) CreateSession(ctx context.Context, s Session) (Session, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO class_sessions (course_id, session_date, start_time, end_time, topic, location, attendance_code, lifecycle, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id
	`, s.CourseID, s.Date, s.StartTime, s.EndTime, s.Topic, s.Location, s.Code, s.Lifecycle, s.CreatedBy, s.CreatedAt)
	if err := row.Scan(&s.ID); err != nil {
		if store.IsUniqueViolation(err) {
			// Another creator won the race for this code.
			return Session{}, domain.ErrExhaustedCodeSpace
		}
		return Session{}, err
	}
	return s, nil
}

func (r *PGRepository) SessionByID(ctx context.Context, id int) (Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM class_sessions WHERE id = $1`, id)
	return scanSession(row.Scan)
}

// ActiveSessionByCode scopes the lookup to the given calendar date: a code
// from a past day's session does not match even if the session row is still
// active.
func (r *PGRepository) ActiveSessionByCode(ctx context.Context, code string, date time.Time) (Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM class_sessions
		WHERE attendance_code = $1 AND lifecycle = 'active' AND session_date = $2::date
	`, code, date.Format(dateLayout))
	s, err := scanSession(row.Scan)
	if errors.Is(err, domain.ErrNotFound) {
		return Session{}, domain.ErrInvalidCode
	}
	return s, err
}

func (r *PGRepository) SessionsByCourse(ctx context.Context, courseID int) ([]Session, error) {
	return r.querySessions(ctx, `
		SELECT `+sessionColumns+` FROM class_sessions
		WHERE course_id = $1
		ORDER BY session_date DESC, start_time DESC
	`, courseID)
}

func (r *PGRepository) SessionsByCreator(ctx context.Context, creatorID int) ([]Session, error) {
	return r.querySessions(ctx, `
		SELECT `+sessionColumns+` FROM class_sessions
		WHERE created_by = $1
		ORDER BY session_date DESC, start_time DESC
	`, creatorID)
}

func (r *PGRepository) querySessions(ctx context.Context, q string, args ...any) ([]Session, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Session
	for rows.Next() {
		s, err := scanSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r *PGRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM class_sessions WHERE attendance_code = $1)`, code).Scan(&exists)
	return exists, err
}

func (r *PGRepository) SetSessionLifecycle(ctx context.Context, id int, lc domain.Lifecycle) error {
	res, err := r.db.ExecContext(ctx, `UPDATE class_sessions SET lifecycle = $2 WHERE id = $1`, id, lc)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PGRepository) ExpiredActiveSessions(ctx context.Context, now time.Time) ([]Session, error) {
	return r.querySessions(ctx, `
		SELECT `+sessionColumns+` FROM class_sessions
		WHERE lifecycle = 'active'
		  AND (session_date < $1::date OR (session_date = $1::date AND end_time < $2::time))
		ORDER BY session_date, start_time
	`, now.Format(dateLayout), now.Format(timeLayout))
}

const recordColumns = `id, session_id, student_id, status, marked_by, marked_at, COALESCE(marked_with_code, ''), COALESCE(notes, '')`

func scanRecord(scan func(dest ...any) error) (Record, error) {
	var rec Record
	err := scan(&rec.ID, &rec.SessionID, &rec.StudentID, &rec.Status,
		&rec.MarkedBy, &rec.MarkedAt, &rec.CodeUsed, &rec.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, domain.ErrNotFound
	}
	return rec, err
}

func (r *PGRepository) RecordByID(ctx context.Context, id int) (Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM attendance_records WHERE id = $1`, id)
	return scanRecord(row.Scan)
}

func (r *PGRepository) RecordExists(ctx context.Context, sessionID, studentID int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM attendance_records WHERE session_id = $1 AND student_id = $2)
	`, sessionID, studentID).Scan(&exists)
	return exists, err
}

// InsertRecord is strictly insert-once: the pair constraint turns the
// concurrent-redemption race into ErrAlreadyMarked for the loser.
func (r *PGRepository) InsertRecord(ctx context.Context, rec Record) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (session_id, student_id, status, marked_by, marked_at, marked_with_code, notes)
		VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7)
		RETURNING id
	`, rec.SessionID, rec.StudentID, rec.Status, rec.MarkedBy, rec.MarkedAt, rec.CodeUsed, rec.Notes)
	if err := row.Scan(&rec.ID); err != nil {
		if store.IsUniqueViolation(err) {
			return Record{}, domain.ErrAlreadyMarked
		}
		return Record{}, err
	}
	return rec, nil
}

func (r *PGRepository) UpsertRecord(ctx context.Context, rec Record) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (session_id, student_id, status, marked_by, marked_at, notes)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (session_id, student_id) DO UPDATE
		SET status = EXCLUDED.status, marked_by = EXCLUDED.marked_by,
		    marked_at = EXCLUDED.marked_at, notes = EXCLUDED.notes
		RETURNING id
	`, rec.SessionID, rec.StudentID, rec.Status, rec.MarkedBy, rec.MarkedAt, rec.Notes)
	if err := row.Scan(&rec.ID); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (r *PGRepository) UpdateRecord(ctx context.Context, rec Record) (Record, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance_records
		SET status = $2, marked_by = $3, marked_at = $4, notes = $5
		WHERE id = $1
	`, rec.ID, rec.Status, rec.MarkedBy, rec.MarkedAt, rec.Notes)
	if err != nil {
		return Record{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Record{}, domain.ErrNotFound
	}
	return rec, nil
}

func (r *PGRepository) RecordsBySession(ctx context.Context, sessionID int) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM attendance_records
		WHERE session_id = $1
		ORDER BY student_id
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

func (r *PGRepository) EnrolledWithoutRecord(ctx context.Context, sessionID int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ce.student_id
		FROM course_enrollments ce
		JOIN class_sessions cs ON cs.course_id = ce.course_id
		WHERE cs.id = $1 AND ce.status = 'active'
		  AND NOT EXISTS (
			SELECT 1 FROM attendance_records ar
			WHERE ar.session_id = cs.id AND ar.student_id = ce.student_id
		  )
		ORDER BY ce.student_id
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		res = append(res, id)
	}
	return res, rows.Err()
}

func (r *PGRepository) CountCourseSessions(ctx context.Context, courseID int) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM class_sessions WHERE course_id = $1`, courseID).Scan(&n)
	return n, err
}

func (r *PGRepository) CountAttended(ctx context.Context, studentID, courseID int) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM attendance_records ar
		JOIN class_sessions cs ON cs.id = ar.session_id
		WHERE ar.student_id = $1 AND cs.course_id = $2 AND ar.status IN ('present', 'late')
	`, studentID, courseID).Scan(&n)
	return n, err
}
