package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	enrollmentReviews = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_enrollment_reviews_total",
		Help: "Enrollment request reviews by decision.",
	}, []string{"decision"})

	attendanceMarks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_attendance_marks_total",
		Help: "Attendance records written, by marking method and resulting status.",
	}, []string{"method", "status"})
)
