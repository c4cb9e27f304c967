package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"classtrack/internal/course"
)

// CourseHandler serves the course registry.
type CourseHandler struct {
	courses *course.Service
}

func NewCourseHandler(courses *course.Service) *CourseHandler {
	return &CourseHandler{courses: courses}
}

func (h *CourseHandler) Create(c *gin.Context) {
	actor, okID := actorID(c)
	if !okID {
		return
	}
	var req course.NewCourse
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, "invalid request body")
		return
	}
	created, err := h.courses.Create(c.Request.Context(), req, actor)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "Course created successfully", gin.H{"course": created})
}

func (h *CourseHandler) List(c *gin.Context) {
	if ownerID, has := queryInt(c, "faculty_id"); has {
		courses, err := h.courses.ListByOwner(c.Request.Context(), ownerID)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, http.StatusOK, "", gin.H{"courses": courses})
		return
	}
	courses, err := h.courses.ListActive(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", gin.H{"courses": courses})
}

func (h *CourseHandler) Get(c *gin.Context) {
	id, okID := pathInt(c, "id")
	if !okID {
		return
	}
	found, err := h.courses.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", gin.H{"course": found})
}

func (h *CourseHandler) Update(c *gin.Context) {
	actor, okID := actorID(c)
	if !okID {
		return
	}
	id, okID := pathInt(c, "id")
	if !okID {
		return
	}
	var req course.UpdateCourse
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, "invalid request body")
		return
	}
	updated, err := h.courses.Update(c.Request.Context(), id, req, actor)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Course updated successfully", gin.H{"course": updated})
}

func (h *CourseHandler) Archive(c *gin.Context) {
	actor, okID := actorID(c)
	if !okID {
		return
	}
	id, okID := pathInt(c, "id")
	if !okID {
		return
	}
	if err := h.courses.Archive(c.Request.Context(), id, actor); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Course archived successfully", nil)
}
