package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"classtrack/internal/auth"
	"classtrack/internal/domain"
)

// The original surface signaled failures only through the
// {success, message} envelope. The envelope is preserved, with two upgrades:
// a real HTTP status code and a stable machine-readable error kind.

func ok(c *gin.Context, status int, message string, payload gin.H) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

func fail(c *gin.Context, err error) {
	kind := domain.Kind(err)
	c.JSON(statusFor(kind), gin.H{
		"success": false,
		"message": err.Error(),
		"error":   kind,
	})
}

func statusFor(kind string) int {
	switch kind {
	case "not_found", "invalid_code":
		return http.StatusNotFound
	case "unauthorized", "not_enrolled":
		return http.StatusForbidden
	case "duplicate_request", "already_enrolled", "already_marked":
		return http.StatusConflict
	case "validation_error":
		return http.StatusBadRequest
	case "store_unavailable":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func failValidation(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": msg,
		"error":   "validation_error",
	})
}

// actorID resolves the authenticated user id set by auth.RequireUser.
func actorID(c *gin.Context) (int, bool) {
	claims, ok := auth.CurrentClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "missing bearer token", "error": "unauthorized"})
		return 0, false
	}
	id, err := claims.UserID()
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid token subject", "error": "unauthorized"})
		return 0, false
	}
	return id, true
}

func pathInt(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v <= 0 {
		failValidation(c, name+" must be a positive integer")
		return 0, false
	}
	return v, true
}

func queryInt(c *gin.Context, name string) (int, bool) {
	v := c.Query(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
