package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is the Postgres DDL for the attendance workflow. Uniqueness
// invariants the services rely on live here: one enrollment request and one
// enrollment per (student, course), one attendance record per
// (session, student), and globally unique attendance codes.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    first_name VARCHAR(100) NOT NULL,
    last_name VARCHAR(100) NOT NULL,
    email VARCHAR(255) UNIQUE NOT NULL,
    password_hash VARCHAR(255) NOT NULL,
    user_number VARCHAR(50) UNIQUE NOT NULL,
    role VARCHAR(20) NOT NULL CHECK (role IN ('student', 'faculty', 'intern')),
    major VARCHAR(100),
    department VARCHAR(100),
    is_active BOOLEAN DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS courses (
    id SERIAL PRIMARY KEY,
    course_code VARCHAR(20) UNIQUE NOT NULL,
    course_name VARCHAR(200) NOT NULL,
    description TEXT,
    credits INT NOT NULL DEFAULT 3,
    owner_id INT NOT NULL REFERENCES users(id),
    department VARCHAR(100),
    lifecycle VARCHAR(20) NOT NULL DEFAULT 'active' CHECK (lifecycle IN ('active', 'archived')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS enrollment_requests (
    id SERIAL PRIMARY KEY,
    student_id INT NOT NULL REFERENCES users(id),
    course_id INT NOT NULL REFERENCES courses(id),
    status VARCHAR(20) NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
    requested_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    reviewed_by INT REFERENCES users(id),
    reviewed_at TIMESTAMPTZ,
    notes TEXT,
    UNIQUE (student_id, course_id)
);

CREATE TABLE IF NOT EXISTS course_enrollments (
    id SERIAL PRIMARY KEY,
    student_id INT NOT NULL REFERENCES users(id),
    course_id INT NOT NULL REFERENCES courses(id),
    enrolled_by INT NOT NULL REFERENCES users(id),
    enrolled_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    status VARCHAR(20) NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'completed', 'dropped')),
    UNIQUE (student_id, course_id)
);

CREATE TABLE IF NOT EXISTS class_sessions (
    id SERIAL PRIMARY KEY,
    course_id INT NOT NULL REFERENCES courses(id),
    session_date DATE NOT NULL,
    start_time TIME NOT NULL,
    end_time TIME NOT NULL,
    topic VARCHAR(200),
    location VARCHAR(100),
    attendance_code VARCHAR(10) UNIQUE,
    lifecycle VARCHAR(20) NOT NULL DEFAULT 'active' CHECK (lifecycle IN ('active', 'archived')),
    created_by INT NOT NULL REFERENCES users(id),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS attendance_records (
    id SERIAL PRIMARY KEY,
    session_id INT NOT NULL REFERENCES class_sessions(id),
    student_id INT NOT NULL REFERENCES users(id),
    status VARCHAR(20) NOT NULL CHECK (status IN ('present', 'absent', 'late', 'excused')),
    marked_by INT REFERENCES users(id),
    marked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    marked_with_code VARCHAR(10),
    notes TEXT,
    UNIQUE (session_id, student_id)
);

CREATE TABLE IF NOT EXISTS system_settings (
    id SERIAL PRIMARY KEY,
    setting_key VARCHAR(100) UNIQUE NOT NULL,
    setting_value TEXT,
    description TEXT,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
CREATE INDEX IF NOT EXISTS idx_courses_owner ON courses(owner_id);
CREATE INDEX IF NOT EXISTS idx_sessions_course_date ON class_sessions(course_id, session_date);
CREATE INDEX IF NOT EXISTS idx_attendance_session ON attendance_records(session_id);
CREATE INDEX IF NOT EXISTS idx_attendance_student ON attendance_records(student_id);
CREATE INDEX IF NOT EXISTS idx_enrollment_student ON course_enrollments(student_id);
CREATE INDEX IF NOT EXISTS idx_requests_status ON enrollment_requests(status);
`

// settingsSeed keeps the legacy settings rows around for existing callers.
// max_attendance_delay is intentionally not consulted during redemption.
const settingsSeed = `
INSERT INTO system_settings (setting_key, setting_value, description) VALUES
    ('attendance_code_length', '6', 'Length of auto-generated attendance codes'),
    ('session_duration_default', '90', 'Default session duration in minutes'),
    ('max_attendance_delay', '15', 'Maximum minutes late before marked as absent')
ON CONFLICT (setting_key) DO NOTHING
`

// EnsureSchema creates all tables, constraints and seed settings.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, settingsSeed); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	return nil
}
