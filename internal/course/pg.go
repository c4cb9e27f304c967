package course

import (
	"context"
	"database/sql"
	"errors"

	"classtrack/internal/domain"
	"classtrack/internal/store"
)

// PGRepository persists courses in Postgres.
type PGRepository struct {
	db *sql.DB
}

func NewPGRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

const courseColumns = `id, course_code, course_name, COALESCE(description, ''), credits, owner_id, COALESCE(department, ''), lifecycle, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, c Course) (Course, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO courses (course_code, course_name, description, credits, owner_id, department, lifecycle, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id
	`, c.Code, c.Name, c.Description, c.Credits, c.OwnerID, c.Department, c.Lifecycle, c.CreatedAt, c.UpdatedAt)
	if err := row.Scan(&c.ID); err != nil {
		if store.IsUniqueViolation(err) {
			return Course{}, ErrCodeExists
		}
		return Course{}, err
	}
	return c, nil
}

func (r *PGRepository) ByID(ctx context.Context, id int) (Course, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id)
	var c Course
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Description, &c.Credits, &c.OwnerID,
		&c.Department, &c.Lifecycle, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Course{}, domain.ErrNotFound
	}
	return c, err
}

func (r *PGRepository) Update(ctx context.Context, c Course) (Course, error) {
	_, err := r.db.ExecContext(ctx, `
		UPDATE courses
		SET course_name = $2, description = $3, credits = $4, department = $5, updated_at = $6
		WHERE id = $1
	`, c.ID, c.Name, c.Description, c.Credits, c.Department, c.UpdatedAt)
	return c, err
}

func (r *PGRepository) SetLifecycle(ctx context.Context, id int, lc domain.Lifecycle) error {
	res, err := r.db.ExecContext(ctx, `UPDATE courses SET lifecycle = $2, updated_at = NOW() WHERE id = $1`, id, lc)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PGRepository) Active(ctx context.Context) ([]Course, error) {
	return r.query(ctx, `SELECT `+courseColumns+` FROM courses WHERE lifecycle = 'active' ORDER BY course_code`)
}

func (r *PGRepository) ByOwner(ctx context.Context, ownerID int) ([]Course, error) {
	return r.query(ctx, `SELECT `+courseColumns+` FROM courses WHERE owner_id = $1 ORDER BY course_code`, ownerID)
}

func (r *PGRepository) query(ctx context.Context, q string, args ...any) ([]Course, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Description, &c.Credits, &c.OwnerID,
			&c.Department, &c.Lifecycle, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}
