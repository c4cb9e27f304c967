package httpapi

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"classtrack/internal/attendance"
	"classtrack/internal/queue"
)

// AttendanceHandler serves the session and attendance workflow.
type AttendanceHandler struct {
	attendance *attendance.Service
	events     queue.Queue
}

func NewAttendanceHandler(svc *attendance.Service, events queue.Queue) *AttendanceHandler {
	return &AttendanceHandler{attendance: svc, events: events}
}

// CreateSession creates a class session and returns its attendance code.
func (h *AttendanceHandler) CreateSession(c *gin.Context) {
	actor, okID := actorID(c)
	if !okID {
		return
	}
	var req attendance.NewSession
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, "invalid request body")
		return
	}
	sess, err := h.attendance.CreateSession(c.Request.Context(), req, actor)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "Session created successfully", gin.H{
		"session":         sess,
		"attendance_code": sess.Code,
	})
}

// ListSessions returns a course's sessions when course_id is given, the
// caller's own sessions otherwise.
func (h *AttendanceHandler) ListSessions(c *gin.Context) {
	actor, okID := actorID(c)
	if !okID {
		return
	}
	var (
		sessions []attendance.Session
		err      error
	)
	if courseID, has := queryInt(c, "course_id"); has {
		sessions, err = h.attendance.SessionsForCourse(c.Request.Context(), courseID)
	} else {
		sessions, err = h.attendance.SessionsForCreator(c.Request.Context(), actor)
	}
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", gin.H{"sessions": sessions})
}

// CloseSession archives the session and queues its absence finalization.
func (h *AttendanceHandler) CloseSession(c *gin.Context) {
	actor, okID := actorID(c)
	if !okID {
		return
	}
	id, okID := pathInt(c, "id")
	if !okID {
		return
	}
	sess, err := h.attendance.CloseSession(c.Request.Context(), id, actor)
	if err != nil {
		fail(c, err)
		return
	}
	h.publish(c, queue.TypeSessionClosed, queue.SessionClosed{SessionID: sess.ID})
	ok(c, http.StatusOK, "Session closed successfully", gin.H{"session": sess})
}

// SessionRecords lists a session's attendance records for its owner.
func (h *AttendanceHandler) SessionRecords(c *gin.Context) {
	actor, okID := actorID(c)
	if !okID {
		return
	}
	id, okID := pathInt(c, "id")
	if !okID {
		return
	}
	records, err := h.attendance.SessionRecords(c.Request.Context(), id, actor)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", gin.H{"attendance": records})
}

// MarkDirect is the faculty marking path; it may overwrite an existing
// record.
func (h *AttendanceHandler) MarkDirect(c *gin.Context) {
	actor, okID := actorID(c)
	if !okID {
		return
	}
	var req struct {
		SessionID int    `json:"session_id" binding:"required"`
		StudentID int    `json:"student_id" binding:"required"`
		Status    string `json:"status" binding:"required"`
		Notes     string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, "session_id, student_id and status are required")
		return
	}
	rec, err := h.attendance.MarkDirect(c.Request.Context(), req.SessionID, req.StudentID, attendance.RecordStatus(req.Status), actor, req.Notes)
	if err != nil {
		fail(c, err)
		return
	}
	attendanceMarks.WithLabelValues("direct", string(rec.Status)).Inc()
	h.publish(c, queue.TypeAttendanceMarked, queue.AttendanceMarked{
		SessionID: rec.SessionID,
		StudentID: rec.StudentID,
		Status:    string(rec.Status),
		Method:    "direct",
	})
	ok(c, http.StatusOK, "Attendance marked successfully", gin.H{"record": rec})
}

// Redeem is the student self-check-in path.
func (h *AttendanceHandler) Redeem(c *gin.Context) {
	actor, okID := actorID(c)
	if !okID {
		return
	}
	var req struct {
		Code string `json:"attendance_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, "attendance_code is required")
		return
	}
	rec, err := h.attendance.RedeemCode(c.Request.Context(), actor, req.Code)
	if err != nil {
		fail(c, err)
		return
	}
	attendanceMarks.WithLabelValues("code", string(rec.Status)).Inc()
	h.publish(c, queue.TypeAttendanceMarked, queue.AttendanceMarked{
		SessionID: rec.SessionID,
		StudentID: rec.StudentID,
		Status:    string(rec.Status),
		Method:    "code",
	})
	ok(c, http.StatusOK, "Attendance marked successfully as "+string(rec.Status), gin.H{"record": rec})
}

// UpdateRecord rewrites an existing record's status and notes.
func (h *AttendanceHandler) UpdateRecord(c *gin.Context) {
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
		Notes  string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, "status is required")
		return
	}
	rec, err := h.attendance.UpdateRecord(c.Request.Context(), id, actor, attendance.RecordStatus(req.Status), req.Notes)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Attendance updated successfully", gin.H{"record": rec})
}

// Rate reports a student's attendance rate in one course.
func (h *AttendanceHandler) Rate(c *gin.Context) {
	studentID, okID := pathInt(c, "id")
	if !okID {
		return
	}
	courseID, okID := pathInt(c, "course_id")
	if !okID {
		return
	}
	summary, err := h.attendance.Rate(c.Request.Context(), studentID, courseID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", gin.H{"summary": summary})
}

func (h *AttendanceHandler) publish(c *gin.Context, msgType string, payload any) {
	msg, err := queue.NewMessage(msgType, payload)
	if err != nil {
		log.Printf("build %s event failed: %v", msgType, err)
		return
	}
	if err := h.events.Publish(c.Request.Context(), msg); err != nil {
		log.Printf("publish %s event failed: %v", msgType, err)
	}
}
