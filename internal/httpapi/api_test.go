package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"classtrack/internal/attendance"
	"classtrack/internal/course"
	"classtrack/internal/enrollment"
	"classtrack/internal/identity"
	"classtrack/internal/queue"
)

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time { return c.t }

type api struct {
	router  *gin.Engine
	clk     *testClock
	enrRepo *enrollment.InMemRepository
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clk := &testClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}

	users := identity.NewService(identity.NewInMemRepository(), clk)
	courses := course.NewService(course.NewInMemRepository(), users, clk)
	enrRepo := enrollment.NewInMemRepository()
	enrollments := enrollment.NewService(enrRepo, courses, clk)
	att := attendance.NewService(attendance.NewInMemRepository(), courses, enrollments, clk, 6)

	router := gin.New()
	Register(router, Services{
		Users:         users,
		Courses:       courses,
		Enrollments:   enrollments,
		Attendance:    att,
		Events:        queue.NewInMemory(32),
		JWTIssuer:     "classtrack-test",
		JWTSigningKey: "test-signing-key",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	return &api{router: router, clk: clk, enrRepo: enrRepo}
}

func (a *api) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec.Code, out
}

func (a *api) signupAndLogin(t *testing.T, email, number string, role identity.Role) string {
	t.Helper()
	code, _ := a.do(t, http.MethodPost, "/auth/signup", "", gin.H{
		"first_name": "Test", "last_name": "User", "email": email,
		"password": "s3cret", "user_number": number, "role": role,
	})
	if code != http.StatusCreated {
		t.Fatalf("signup %s: status %d", email, code)
	}
	code, body := a.do(t, http.MethodPost, "/auth/login", "", gin.H{
		"email": email, "password": "s3cret",
	})
	if code != http.StatusOK {
		t.Fatalf("login %s: status %d", email, code)
	}
	token, _ := body["access_token"].(string)
	if token == "" {
		t.Fatalf("no access token in login response: %v", body)
	}
	return token
}

func field(t *testing.T, body map[string]any, keys ...string) any {
	t.Helper()
	var cur any = body
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			t.Fatalf("no object at %v in %v", k, body)
		}
		cur, ok = m[k]
		if !ok {
			t.Fatalf("missing %v in %v", k, m)
		}
	}
	return cur
}

func TestEnrollAndRedeemFlow(t *testing.T) {
	a := newAPI(t)
	faculty := a.signupAndLogin(t, "dana@example.edu", "F-100", identity.RoleFaculty)
	student := a.signupAndLogin(t, "omar@example.edu", "S-200", identity.RoleStudent)

	code, body := a.do(t, http.MethodPost, "/v1/courses", faculty, gin.H{
		"course_code": "CS101", "course_name": "Intro to CS",
	})
	if code != http.StatusCreated {
		t.Fatalf("create course: status %d body %v", code, body)
	}
	courseID := int(field(t, body, "course", "id").(float64))
	a.enrRepo.CourseOwner[courseID] = 1

	code, body = a.do(t, http.MethodPost, "/v1/enrollment-requests", student, gin.H{"course_id": courseID})
	if code != http.StatusCreated {
		t.Fatalf("enrollment request: status %d body %v", code, body)
	}
	requestID := int(field(t, body, "enrollment_request", "id").(float64))

	code, body = a.do(t, http.MethodPost, "/v1/enrollment-requests/"+itoa(requestID)+"/review", faculty, gin.H{
		"action": "approve",
	})
	if code != http.StatusOK {
		t.Fatalf("review: status %d body %v", code, body)
	}
	if got := field(t, body, "enrollment_request", "status"); got != "approved" {
		t.Fatalf("want approved, got %v", got)
	}

	code, body = a.do(t, http.MethodPost, "/v1/sessions", faculty, gin.H{
		"course_id": courseID, "session_date": "2026-03-02",
		"start_time": "10:00:00", "end_time": "11:00:00", "topic": "Slices",
	})
	if code != http.StatusCreated {
		t.Fatalf("create session: status %d body %v", code, body)
	}
	attCode := field(t, body, "attendance_code").(string)
	if len(attCode) != 6 {
		t.Fatalf("want 6-char attendance code, got %q", attCode)
	}

	// Five minutes past the start the redemption lands late.
	a.clk.t = time.Date(2026, 3, 2, 10, 5, 0, 0, time.UTC)
	code, body = a.do(t, http.MethodPost, "/v1/attendance/redeem", student, gin.H{"attendance_code": attCode})
	if code != http.StatusOK {
		t.Fatalf("redeem: status %d body %v", code, body)
	}
	if got := field(t, body, "record", "status"); got != "late" {
		t.Fatalf("want late, got %v", got)
	}
	if body["success"] != true {
		t.Fatalf("envelope success flag missing: %v", body)
	}

	code, body = a.do(t, http.MethodGet, "/v1/students/2/courses/"+itoa(courseID)+"/attendance-rate", student, nil)
	if code != http.StatusOK {
		t.Fatalf("rate: status %d body %v", code, body)
	}
	if got := field(t, body, "summary", "attendance_rate"); got != float64(100) {
		t.Fatalf("want 100%% rate, got %v", got)
	}
}

func TestErrorEnvelope(t *testing.T) {
	a := newAPI(t)
	student := a.signupAndLogin(t, "omar@example.edu", "S-200", identity.RoleStudent)

	code, body := a.do(t, http.MethodPost, "/v1/attendance/redeem", student, gin.H{"attendance_code": "NOPE42"})
	if code != http.StatusNotFound {
		t.Fatalf("want 404 for an unknown code, got %d", code)
	}
	if body["success"] != false || body["error"] != "invalid_code" {
		t.Fatalf("unexpected envelope: %v", body)
	}

	code, body = a.do(t, http.MethodPost, "/v1/enrollment-requests", student, gin.H{"course_id": 9999})
	if code != http.StatusNotFound || body["error"] != "not_found" {
		t.Fatalf("unknown course: want 404 not_found, got %d %v", code, body)
	}
}

func TestAuthRequired(t *testing.T) {
	a := newAPI(t)

	code, body := a.do(t, http.MethodGet, "/v1/courses", "", nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("want 401 without a token, got %d", code)
	}
	if body["success"] != false {
		t.Fatalf("unexpected envelope: %v", body)
	}

	code, _ = a.do(t, http.MethodGet, "/v1/courses", "not-a-token", nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("want 401 with a junk token, got %d", code)
	}
}

func TestDuplicateRequestConflict(t *testing.T) {
	a := newAPI(t)
	faculty := a.signupAndLogin(t, "dana@example.edu", "F-100", identity.RoleFaculty)
	student := a.signupAndLogin(t, "omar@example.edu", "S-200", identity.RoleStudent)

	code, body := a.do(t, http.MethodPost, "/v1/courses", faculty, gin.H{
		"course_code": "CS101", "course_name": "Intro to CS",
	})
	if code != http.StatusCreated {
		t.Fatalf("create course: status %d", code)
	}
	courseID := int(field(t, body, "course", "id").(float64))

	if code, _ := a.do(t, http.MethodPost, "/v1/enrollment-requests", student, gin.H{"course_id": courseID}); code != http.StatusCreated {
		t.Fatalf("first request: status %d", code)
	}
	code, body = a.do(t, http.MethodPost, "/v1/enrollment-requests", student, gin.H{"course_id": courseID})
	if code != http.StatusConflict || body["error"] != "duplicate_request" {
		t.Fatalf("duplicate request: want 409 duplicate_request, got %d %v", code, body)
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
