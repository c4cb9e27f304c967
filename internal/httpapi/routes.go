package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"

	"classtrack/internal/attendance"
	"classtrack/internal/auth"
	"classtrack/internal/course"
	"classtrack/internal/enrollment"
	"classtrack/internal/identity"
	"classtrack/internal/queue"
)

// Services bundles everything the HTTP layer needs.
type Services struct {
	Users       *identity.Service
	Courses     *course.Service
	Enrollments *enrollment.Service
	Attendance  *attendance.Service
	Events      queue.Queue

	JWTIssuer     string
	JWTSigningKey string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Register mounts the public auth routes and the authenticated /v1 group.
func Register(r *gin.Engine, s Services) {
	authHandler := NewAuthHandler(s.Users, s.JWTIssuer, s.JWTSigningKey, s.AccessTTL, s.RefreshTTL)
	courseHandler := NewCourseHandler(s.Courses)
	enrollmentHandler := NewEnrollmentHandler(s.Enrollments, s.Events)
	attendanceHandler := NewAttendanceHandler(s.Attendance, s.Events)

	r.POST("/auth/signup", authHandler.Signup)
	r.POST("/auth/login", authHandler.Login)

	v1 := r.Group("/v1", auth.RequireUser(s.JWTSigningKey, s.JWTIssuer))

	v1.POST("/courses", courseHandler.Create)
	v1.GET("/courses", courseHandler.List)
	v1.GET("/courses/:id", courseHandler.Get)
	v1.PUT("/courses/:id", courseHandler.Update)
	v1.DELETE("/courses/:id", courseHandler.Archive)
	v1.GET("/courses/:id/enrollments", enrollmentHandler.CourseEnrollments)

	v1.POST("/enrollment-requests", enrollmentHandler.CreateRequest)
	v1.GET("/enrollment-requests", enrollmentHandler.ListRequests)
	v1.POST("/enrollment-requests/:id/review", enrollmentHandler.Review)
	v1.PUT("/enrollments/:id/status", enrollmentHandler.SetStatus)

	v1.POST("/sessions", attendanceHandler.CreateSession)
	v1.GET("/sessions", attendanceHandler.ListSessions)
	v1.POST("/sessions/:id/close", attendanceHandler.CloseSession)
	v1.GET("/sessions/:id/attendance", attendanceHandler.SessionRecords)

	v1.POST("/attendance", attendanceHandler.MarkDirect)
	v1.POST("/attendance/redeem", attendanceHandler.Redeem)
	v1.PUT("/attendance/:id", attendanceHandler.UpdateRecord)

	v1.GET("/students/:id/courses/:course_id/attendance-rate", attendanceHandler.Rate)
}
