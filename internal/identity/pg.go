package identity

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"classtrack/internal/domain"
	"classtrack/internal/store"
)

// PGRepository persists users in Postgres.
type PGRepository struct {
	db *sql.DB
}

func NewPGRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

const userColumns = `id, first_name, last_name, email, password_hash, user_number, role, COALESCE(major, ''), COALESCE(department, ''), is_active, created_at`

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash,
		&u.UserNumber, &u.Role, &u.Major, &u.Department, &u.IsActive, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, domain.ErrNotFound
	}
	return u, err
}

func (r *PGRepository) Create(ctx context.Context, u User) (User, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (first_name, last_name, email, password_hash, user_number, role, major, department, is_active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id
	`, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.UserNumber, u.Role, u.Major, u.Department, u.IsActive, u.CreatedAt)
	if err := row.Scan(&u.ID); err != nil {
		if store.IsUniqueViolation(err) {
			if strings.Contains(err.Error(), "user_number") {
				return User{}, ErrUserNumberExists
			}
			return User{}, ErrEmailExists
		}
		return User{}, err
	}
	return u, nil
}

func (r *PGRepository) ByID(ctx context.Context, id int) (User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *PGRepository) ByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}
