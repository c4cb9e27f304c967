package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"classtrack/internal/course"
	"classtrack/internal/domain"
	"classtrack/internal/enrollment"
	"classtrack/internal/identity"
)

// testClock lets tests move "now" between calls.
type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time { return c.t }

type fixture struct {
	svc     *Service
	repo    *InMemRepository
	enr     *enrollment.Service
	enrRepo *enrollment.InMemRepository
	users   *identity.Service
	clk     *testClock
	faculty identity.User
	student identity.User
	course  course.Course
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	clk := &testClock{t: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}

	users := identity.NewService(identity.NewInMemRepository(), clk)
	faculty, err := users.Register(ctx, identity.NewUser{
		FirstName: "Dana", LastName: "Reyes", Email: "dana@example.edu",
		Password: "s3cret", UserNumber: "F-100", Role: identity.RoleFaculty,
	})
	if err != nil {
		t.Fatalf("register faculty: %v", err)
	}
	student, err := users.Register(ctx, identity.NewUser{
		FirstName: "Omar", LastName: "Haddad", Email: "omar@example.edu",
		Password: "s3cret", UserNumber: "S-200", Role: identity.RoleStudent,
	})
	if err != nil {
		t.Fatalf("register student: %v", err)
	}

	courses := course.NewService(course.NewInMemRepository(), users, clk)
	crs, err := courses.Create(ctx, course.NewCourse{Code: "CS101", Name: "Intro to CS"}, faculty.ID)
	if err != nil {
		t.Fatalf("create course: %v", err)
	}

	enrRepo := enrollment.NewInMemRepository()
	enrRepo.CourseOwner[crs.ID] = faculty.ID
	enr := enrollment.NewService(enrRepo, courses, clk)

	repo := NewInMemRepository()
	return &fixture{
		svc:     NewService(repo, courses, enr, clk, 6),
		repo:    repo,
		enr:     enr,
		enrRepo: enrRepo,
		users:   users,
		clk:     clk,
		faculty: faculty,
		student: student,
		course:  crs,
	}
}

// enroll pushes a student through request and approval.
func (f *fixture) enroll(t *testing.T, studentID int) {
	t.Helper()
	ctx := context.Background()
	req, err := f.enr.Request(ctx, studentID, f.course.ID)
	if err != nil {
		t.Fatalf("request enrollment: %v", err)
	}
	if _, err := f.enr.ReviewRequest(ctx, req.ID, f.faculty.ID, enrollment.DecisionApprove, ""); err != nil {
		t.Fatalf("approve enrollment: %v", err)
	}
}

func (f *fixture) session(t *testing.T, start, end string) Session {
	t.Helper()
	sess, err := f.svc.CreateSession(context.Background(), NewSession{
		CourseID:  f.course.ID,
		Date:      "2026-03-02",
		StartTime: start,
		EndTime:   end,
		Topic:     "Pointers",
	}, f.faculty.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return sess
}

func TestCreateSession(t *testing.T) {
	f := newFixture(t)
	sess := f.session(t, "09:00:00", "10:30:00")

	if len(sess.Code) != 6 {
		t.Fatalf("want 6-char code, got %q", sess.Code)
	}
	if sess.Lifecycle != domain.LifecycleActive {
		t.Fatalf("new session must be active, got %s", sess.Lifecycle)
	}
	if sess.CreatedBy != f.faculty.ID {
		t.Fatalf("creator not recorded: %+v", sess)
	}
}

func TestCreateSessionRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	ns := NewSession{CourseID: f.course.ID, Date: "2026-03-02", StartTime: "09:00:00", EndTime: "10:00:00"}

	if _, err := f.svc.CreateSession(context.Background(), ns, f.student.ID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []NewSession{
		{CourseID: f.course.ID, Date: "03/02/2026", StartTime: "09:00:00", EndTime: "10:00:00"},
		{CourseID: f.course.ID, Date: "2026-03-02", StartTime: "9am", EndTime: "10:00:00"},
		{CourseID: f.course.ID, Date: "2026-03-02", StartTime: "09:00:00"},
	}
	for i, ns := range cases {
		if _, err := f.svc.CreateSession(ctx, ns, f.faculty.ID); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("case %d: want ErrValidation, got %v", i, err)
		}
	}
}

func TestRedeemClassification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.enroll(t, f.student.ID)

	late, _ := f.users.Register(ctx, identity.NewUser{
		FirstName: "Lena", LastName: "Park", Email: "lena@example.edu",
		Password: "s3cret", UserNumber: "S-201", Role: identity.RoleStudent,
	})
	onTime, _ := f.users.Register(ctx, identity.NewUser{
		FirstName: "Noa", LastName: "Levi", Email: "noa@example.edu",
		Password: "s3cret", UserNumber: "S-202", Role: identity.RoleStudent,
	})
	f.enroll(t, late.ID)
	f.enroll(t, onTime.ID)

	sess := f.session(t, "09:00:00", "10:30:00")

	f.clk.t = time.Date(2026, 3, 2, 8, 59, 59, 0, time.UTC)
	rec, err := f.svc.RedeemCode(ctx, f.student.ID, sess.Code)
	if err != nil {
		t.Fatalf("redeem before start: %v", err)
	}
	if rec.Status != StatusPresent {
		t.Fatalf("before start must be present, got %s", rec.Status)
	}

	// Exactly at start is still present; late means strictly after.
	f.clk.t = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	rec, err = f.svc.RedeemCode(ctx, onTime.ID, sess.Code)
	if err != nil {
		t.Fatalf("redeem at start: %v", err)
	}
	if rec.Status != StatusPresent {
		t.Fatalf("at start must be present, got %s", rec.Status)
	}

	f.clk.t = time.Date(2026, 3, 2, 9, 0, 1, 0, time.UTC)
	rec, err = f.svc.RedeemCode(ctx, late.ID, sess.Code)
	if err != nil {
		t.Fatalf("redeem after start: %v", err)
	}
	if rec.Status != StatusLate {
		t.Fatalf("after start must be late, got %s", rec.Status)
	}
	if rec.CodeUsed != sess.Code {
		t.Fatalf("redeemed code not recorded: %+v", rec)
	}
}

func TestRedeemRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.session(t, "09:00:00", "10:30:00")
	f.clk.t = time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC)

	if _, err := f.svc.RedeemCode(ctx, f.student.ID, "ZZZZZZ"); !errors.Is(err, domain.ErrInvalidCode) {
		t.Fatalf("unknown code: want ErrInvalidCode, got %v", err)
	}
	if _, err := f.svc.RedeemCode(ctx, f.student.ID, sess.Code); !errors.Is(err, domain.ErrNotEnrolled) {
		t.Fatalf("unenrolled student: want ErrNotEnrolled, got %v", err)
	}

	f.enroll(t, f.student.ID)

	// Wrong calendar date.
	f.clk.t = time.Date(2026, 3, 3, 9, 5, 0, 0, time.UTC)
	if _, err := f.svc.RedeemCode(ctx, f.student.ID, sess.Code); !errors.Is(err, domain.ErrInvalidCode) {
		t.Fatalf("wrong date: want ErrInvalidCode, got %v", err)
	}

	f.clk.t = time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC)
	if _, err := f.svc.RedeemCode(ctx, f.student.ID, sess.Code); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if _, err := f.svc.RedeemCode(ctx, f.student.ID, sess.Code); !errors.Is(err, domain.ErrAlreadyMarked) {
		t.Fatalf("second redemption: want ErrAlreadyMarked, got %v", err)
	}

	// Archived sessions stop redeeming.
	if _, err := f.svc.CloseSession(ctx, sess.ID, f.faculty.ID); err != nil {
		t.Fatalf("close session: %v", err)
	}
	late, _ := f.users.Register(ctx, identity.NewUser{
		FirstName: "Lena", LastName: "Park", Email: "lena@example.edu",
		Password: "s3cret", UserNumber: "S-201", Role: identity.RoleStudent,
	})
	f.enroll(t, late.ID)
	if _, err := f.svc.RedeemCode(ctx, late.ID, sess.Code); !errors.Is(err, domain.ErrInvalidCode) {
		t.Fatalf("archived session: want ErrInvalidCode, got %v", err)
	}
}

func TestMarkDirectOverwrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.enroll(t, f.student.ID)
	sess := f.session(t, "09:00:00", "10:30:00")

	f.clk.t = time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC)
	if _, err := f.svc.RedeemCode(ctx, f.student.ID, sess.Code); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	rec, err := f.svc.MarkDirect(ctx, sess.ID, f.student.ID, StatusExcused, f.faculty.ID, "doctor's note")
	if err != nil {
		t.Fatalf("mark direct: %v", err)
	}
	if rec.Status != StatusExcused {
		t.Fatalf("want excused, got %s", rec.Status)
	}
	if rec.MarkedBy == nil || *rec.MarkedBy != f.faculty.ID {
		t.Fatalf("marker not recorded: %+v", rec)
	}

	records, _ := f.svc.SessionRecords(ctx, sess.ID, f.faculty.ID)
	if len(records) != 1 {
		t.Fatalf("overwrite must not add a second record, got %d", len(records))
	}
}

func TestMarkDirectGates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.session(t, "09:00:00", "10:30:00")

	if _, err := f.svc.MarkDirect(ctx, sess.ID, f.student.ID, StatusPresent, f.faculty.ID, ""); !errors.Is(err, domain.ErrNotEnrolled) {
		t.Fatalf("unenrolled student: want ErrNotEnrolled, got %v", err)
	}
	f.enroll(t, f.student.ID)
	if _, err := f.svc.MarkDirect(ctx, sess.ID, f.student.ID, RecordStatus("vanished"), f.faculty.ID, ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("bad status: want ErrValidation, got %v", err)
	}
	if _, err := f.svc.MarkDirect(ctx, sess.ID, f.student.ID, StatusPresent, f.student.ID, ""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("non-owner: want ErrUnauthorized, got %v", err)
	}
}

func TestUpdateRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.enroll(t, f.student.ID)
	sess := f.session(t, "09:00:00", "10:30:00")

	rec, err := f.svc.MarkDirect(ctx, sess.ID, f.student.ID, StatusPresent, f.faculty.ID, "")
	if err != nil {
		t.Fatalf("mark: %v", err)
	}

	updated, err := f.svc.UpdateRecord(ctx, rec.ID, f.faculty.ID, StatusLate, "arrived mid-lecture")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != StatusLate || updated.Notes != "arrived mid-lecture" {
		t.Fatalf("update not applied: %+v", updated)
	}

	if _, err := f.svc.UpdateRecord(ctx, rec.ID, f.student.ID, StatusPresent, ""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("non-owner: want ErrUnauthorized, got %v", err)
	}
	if _, err := f.svc.UpdateRecord(ctx, 9999, f.faculty.ID, StatusPresent, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown record: want ErrNotFound, got %v", err)
	}
}

func TestFinalizeAbsences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.enroll(t, f.student.ID)
	sess := f.session(t, "09:00:00", "10:30:00")

	// The repo needs the enrollment roster to resolve who never checked in.
	f.repo.ActiveEnrollments[f.course.ID] = []int{f.student.ID, 77, 78}

	f.clk.t = time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC)
	if _, err := f.svc.RedeemCode(ctx, f.student.ID, sess.Code); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if _, err := f.svc.CloseSession(ctx, sess.ID, f.faculty.ID); err != nil {
		t.Fatalf("close: %v", err)
	}

	marked, err := f.svc.FinalizeAbsences(ctx, sess.ID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if marked != 2 {
		t.Fatalf("want 2 absences, got %d", marked)
	}

	records, _ := f.svc.SessionRecords(ctx, sess.ID, f.faculty.ID)
	if len(records) != 3 {
		t.Fatalf("want 3 records, got %d", len(records))
	}
	for _, rec := range records {
		if rec.StudentID == f.student.ID && rec.Status != StatusLate {
			t.Fatalf("existing record must survive finalization: %+v", rec)
		}
		if rec.StudentID != f.student.ID && rec.Status != StatusAbsent {
			t.Fatalf("missing students must be absent: %+v", rec)
		}
	}

	// Finalizing again is a no-op.
	marked, err = f.svc.FinalizeAbsences(ctx, sess.ID)
	if err != nil || marked != 0 {
		t.Fatalf("second finalize: want 0 marks, got %d err=%v", marked, err)
	}
}

func TestSweepExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ended := f.session(t, "08:00:00", "08:30:00")
	running := f.session(t, "09:00:00", "12:00:00")

	f.clk.t = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	closed, err := f.svc.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(closed) != 1 || closed[0].ID != ended.ID {
		t.Fatalf("want only the ended session swept, got %+v", closed)
	}
	if closed[0].Lifecycle != domain.LifecycleArchived {
		t.Fatalf("swept session must be archived, got %s", closed[0].Lifecycle)
	}

	still, err := f.repo.SessionByID(ctx, running.ID)
	if err != nil || still.Lifecycle != domain.LifecycleActive {
		t.Fatalf("running session must stay active: %+v err=%v", still, err)
	}
}

func TestRate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.enroll(t, f.student.ID)

	s1 := f.session(t, "09:00:00", "10:00:00")
	s2 := f.session(t, "11:00:00", "12:00:00")
	f.session(t, "13:00:00", "14:00:00")

	if _, err := f.svc.MarkDirect(ctx, s1.ID, f.student.ID, StatusPresent, f.faculty.ID, ""); err != nil {
		t.Fatalf("mark s1: %v", err)
	}
	if _, err := f.svc.MarkDirect(ctx, s2.ID, f.student.ID, StatusLate, f.faculty.ID, ""); err != nil {
		t.Fatalf("mark s2: %v", err)
	}

	summary, err := f.svc.Rate(ctx, f.student.ID, f.course.ID)
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if summary.TotalSessions != 3 || summary.AttendedSessions != 2 {
		t.Fatalf("want 2/3 attended, got %+v", summary)
	}
	if summary.Rate != 67 {
		t.Fatalf("2/3 rounds to 67, got %d", summary.Rate)
	}
}

func TestRateNoSessions(t *testing.T) {
	f := newFixture(t)
	summary, err := f.svc.Rate(context.Background(), f.student.ID, f.course.ID)
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if summary.Rate != 0 || summary.TotalSessions != 0 {
		t.Fatalf("empty course must report a zero rate, got %+v", summary)
	}
}
