package httpapi

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"classtrack/internal/auth"
	"classtrack/internal/enrollment"
	"classtrack/internal/identity"
	"classtrack/internal/queue"
)

// EnrollmentHandler serves the enrollment workflow.
type EnrollmentHandler struct {
	enrollments *enrollment.Service
	events      queue.Queue
}

func NewEnrollmentHandler(enrollments *enrollment.Service, events queue.Queue) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, events: events}
}

// CreateRequest submits a pending enrollment request for the authenticated
// student.
func (h *EnrollmentHandler) CreateRequest(c *gin.Context) {
	actor, okID := actorID(c)
	if !okID {
		return
	}
	var req struct {
		CourseID int `json:"course_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, "course_id is required")
		return
	}
	created, err := h.enrollments.Request(c.Request.Context(), actor, req.CourseID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "Enrollment request submitted successfully", gin.H{"enrollment_request": created})
}

// ListRequests returns the caller's own requests for students and the
// pending queue across owned courses for faculty/interns.
func (h *EnrollmentHandler) ListRequests(c *gin.Context) {
	actor, okID := actorID(c)
	if !okID {
		return
	}
	claims, _ := auth.CurrentClaims(c)
	var (
		requests []enrollment.Request
		err      error
	)
	if claims.Role == string(identity.RoleStudent) {
		requests, err = h.enrollments.RequestsForStudent(c.Request.Context(), actor)
	} else {
		requests, err = h.enrollments.PendingForOwner(c.Request.Context(), actor)
	}
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", gin.H{"enrollment_requests": requests})
}

// Review settles a pending request with an approve/reject decision.
func (h *EnrollmentHandler) Review(c *gin.Context) {
	actor, okID := actorID(c)
	if !okID {
		return
	}
	id, okID := pathInt(c, "id")
	if !okID {
		return
	}
	var req struct {
		Action string `json:"action" binding:"required"`
		Notes  string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, "action is required")
		return
	}
	reviewed, err := h.enrollments.ReviewRequest(c.Request.Context(), id, actor, enrollment.Decision(req.Action), req.Notes)
	if err != nil {
		fail(c, err)
		return
	}
	enrollmentReviews.WithLabelValues(req.Action).Inc()
	h.publish(c, queue.TypeEnrollmentSettled, queue.EnrollmentSettled{
		RequestID: reviewed.ID,
		StudentID: reviewed.StudentID,
		CourseID:  reviewed.CourseID,
		Status:    string(reviewed.Status),
	})
	ok(c, http.StatusOK, "Enrollment request "+req.Action+"d successfully", gin.H{"enrollment_request": reviewed})
}

// SetStatus moves an enrollment between active, completed and dropped.
func (h *EnrollmentHandler) SetStatus(c *gin.Context) {
	actor, okID := actorID(c)
	if !okID {
		return
	}
	id, okID := pathInt(c, "id")
	if !okID {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, "status is required")
		return
	}
	updated, err := h.enrollments.SetStatus(c.Request.Context(), id, actor, enrollment.Status(req.Status))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Enrollment status updated successfully", gin.H{"enrollment": updated})
}

// CourseEnrollments lists a course's active enrollments.
func (h *EnrollmentHandler) CourseEnrollments(c *gin.Context) {
	id, okID := pathInt(c, "id")
	if !okID {
		return
	}
	enrollments, err := h.enrollments.ActiveForCourse(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", gin.H{"enrollments": enrollments})
}

func (h *EnrollmentHandler) publish(c *gin.Context, msgType string, payload any) {
	msg, err := queue.NewMessage(msgType, payload)
	if err != nil {
		log.Printf("build %s event failed: %v", msgType, err)
		return
	}
	if err := h.events.Publish(c.Request.Context(), msg); err != nil {
		log.Printf("publish %s event failed: %v", msgType, err)
	}
}
