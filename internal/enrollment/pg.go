package enrollment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"classtrack/internal/domain"
	"classtrack/internal/store"
)

// PGRepository persists the workflow in Postgres. Uniqueness races are
// settled by the (student_id, course_id) and (session_id, student_id)
// constraints; this layer translates them to domain errors.
type PGRepository struct {
	db *sql.DB
}

func NewPGRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

const requestColumns = `id, student_id, course_id, status, requested_at, reviewed_by, reviewed_at, COALESCE(notes, '')`

func (r *PGRepository) CreateRequest(ctx context.Context, req Request) (Request, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO enrollment_requests (student_id, course_id, status, requested_at)
		VALUES ($1,$2,$3,$4)
		RETURNING id
	`, req.StudentID, req.CourseID, req.Status, req.RequestedAt)
	if err := row.Scan(&req.ID); err != nil {
		if store.IsUniqueViolation(err) {
			return Request{}, domain.ErrDuplicateRequest
		}
		return Request{}, err
	}
	return req, nil
}

func scanRequest(scan func(dest ...any) error) (Request, error) {
	var req Request
	err := scan(&req.ID, &req.StudentID, &req.CourseID, &req.Status,
		&req.RequestedAt, &req.ReviewedBy, &req.ReviewedAt, &req.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return Request{}, domain.ErrNotFound
	}
	return req, err
}

func (r *PGRepository) RequestByID(ctx context.Context, id int) (Request, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM enrollment_requests WHERE id = $1`, id)
	return scanRequest(row.Scan)
}

func (r *PGRepository) RequestsByStudent(ctx context.Context, studentID int) ([]Request, error) {
	return r.queryRequests(ctx, `
		SELECT `+requestColumns+` FROM enrollment_requests
		WHERE student_id = $1
		ORDER BY requested_at DESC
	`, studentID)
}

func (r *PGRepository) PendingByOwner(ctx context.Context, ownerID int) ([]Request, error) {
	return r.queryRequests(ctx, `
		SELECT er.id, er.student_id, er.course_id, er.status, er.requested_at, er.reviewed_by, er.reviewed_at, COALESCE(er.notes, '')
		FROM enrollment_requests er
		JOIN courses c ON c.id = er.course_id
		WHERE c.owner_id = $1 AND er.status = 'pending'
		ORDER BY er.requested_at DESC
	`, ownerID)
}

func (r *PGRepository) queryRequests(ctx context.Context, q string, args ...any) ([]Request, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Request
	for rows.Next() {
		req, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, req)
	}
	return res, rows.Err()
}

// Apply settles a review in a single transaction. The pending-status guard
// on the UPDATE makes concurrent reviews of one request serialize: the loser
// matches zero rows and sees ErrNotFound. The ON CONFLICT clause on the
// enrollment insert absorbs the duplicate-approval race across requests for
// the same pair.
func (r *PGRepository) Apply(ctx context.Context, rv Review) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	status := RequestRejected
	if rv.Approved {
		status = RequestApproved
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE enrollment_requests
		SET status = $2, reviewed_by = $3, reviewed_at = $4, notes = $5
		WHERE id = $1 AND status = 'pending'
	`, rv.RequestID, status, rv.ReviewerID, rv.At, rv.Notes)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}

	if rv.Approved {
		var exists bool
		err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM course_enrollments
				WHERE student_id = $1 AND course_id = $2 AND status = 'active'
			)
		`, rv.StudentID, rv.CourseID).Scan(&exists)
		if err != nil {
			return err
		}
		if !exists {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO course_enrollments (student_id, course_id, enrolled_by, enrolled_at, status)
				VALUES ($1,$2,$3,$4,'active')
				ON CONFLICT (student_id, course_id) DO NOTHING
			`, rv.StudentID, rv.CourseID, rv.ReviewerID, rv.At)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit review: %w", err)
	}
	return nil
}

func (r *PGRepository) HasActive(ctx context.Context, studentID, courseID int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM course_enrollments
			WHERE student_id = $1 AND course_id = $2 AND status = 'active'
		)
	`, studentID, courseID).Scan(&exists)
	return exists, err
}

const enrollmentColumns = `id, student_id, course_id, enrolled_by, enrolled_at, status`

func (r *PGRepository) EnrollmentByID(ctx context.Context, id int) (Enrollment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+enrollmentColumns+` FROM course_enrollments WHERE id = $1`, id)
	var e Enrollment
	err := row.Scan(&e.ID, &e.StudentID, &e.CourseID, &e.EnrolledBy, &e.EnrolledAt, &e.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return Enrollment{}, domain.ErrNotFound
	}
	return e, err
}

func (r *PGRepository) ActiveByCourse(ctx context.Context, courseID int) ([]Enrollment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+enrollmentColumns+` FROM course_enrollments
		WHERE course_id = $1 AND status = 'active'
		ORDER BY enrolled_at DESC
	`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Enrollment
	for rows.Next() {
		var e Enrollment
		if err := rows.Scan(&e.ID, &e.StudentID, &e.CourseID, &e.EnrolledBy, &e.EnrolledAt, &e.Status); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r *PGRepository) UpdateStatus(ctx context.Context, id int, status Status) error {
	res, err := r.db.ExecContext(ctx, `UPDATE course_enrollments SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
