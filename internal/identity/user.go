package identity

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"classtrack/internal/domain"
)

// Role tags a user record. Roles never transition within a record's lifetime.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleIntern  Role = "intern"
)

var validRoles = map[Role]bool{RoleStudent: true, RoleFaculty: true, RoleIntern: true}

var (
	ErrEmailExists        = fmt.Errorf("%w: email already registered", domain.ErrValidation)
	ErrUserNumberExists   = fmt.Errorf("%w: user number already exists", domain.ErrValidation)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)
)

// User is an identity record. Department and major are informational only;
// the workflows care about ID and Role.
type User struct {
	ID           int       `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	UserNumber   string    `json:"user_number"`
	Role         Role      `json:"role"`
	Major        string    `json:"major,omitempty"`
	Department   string    `json:"department,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// CanOwnCourses reports whether the user's role permits owning courses and
// class sessions.
func (u User) CanOwnCourses() bool {
	return u.Role == RoleFaculty || u.Role == RoleIntern
}

// SetPassword hashes and stores the given plaintext password.
func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword compares plain against the stored hash.
func (u User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}

// NewUser carries a signup submission.
type NewUser struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	UserNumber string `json:"user_number"`
	Role       Role   `json:"role"`
	Major      string `json:"major"`
	Department string `json:"department"`
}

func (nu NewUser) validate() error {
	if nu.FirstName == "" || nu.LastName == "" || nu.Email == "" || nu.Password == "" || nu.UserNumber == "" {
		return fmt.Errorf("%w: all required fields must be provided", domain.ErrValidation)
	}
	if !validRoles[nu.Role] {
		return fmt.Errorf("%w: role must be student, faculty or intern", domain.ErrValidation)
	}
	return nil
}
