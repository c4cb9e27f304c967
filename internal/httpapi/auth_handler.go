package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"classtrack/internal/auth"
	"classtrack/internal/identity"
)

// AuthHandler serves signup and login over the identity store.
type AuthHandler struct {
	users      *identity.Service
	issuer     string
	signingKey string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthHandler(users *identity.Service, issuer, signingKey string, accessTTL, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		users:      users,
		issuer:     issuer,
		signingKey: signingKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req identity.NewUser
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, "invalid request body")
		return
	}
	usr, err := h.users.Register(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "Registration successful", gin.H{"user": usr})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, "email and password are required")
		return
	}
	usr, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	tokens, err := auth.Issue(usr.ID, string(usr.Role), h.issuer, h.signingKey, h.accessTTL, h.refreshTTL)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Login successful", gin.H{
		"user":          usr,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}
