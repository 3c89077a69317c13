package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finwatch/finwatch/internal/session"
)

// SignInRequest represents the request body for signing in.
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SignUpRequest represents the request body for registering.
type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
}

// ResetRequest represents the request body for a password reset.
type ResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// SignIn handles POST /api/auth/signin
func (h *Handler) SignIn(c *gin.Context) {
	if h.auth == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "authentication is not configured"})
		return
	}

	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondAuthError(c, "sign in", err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// SignUp handles POST /api/auth/signup
func (h *Handler) SignUp(c *gin.Context) {
	if h.auth == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "authentication is not configured"})
		return
	}

	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.auth.SignUp(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		respondAuthError(c, "sign up", err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// SignOut handles POST /api/auth/signout
// The cached session is dropped even if the provider-side revocation
// fails; the token simply stops resolving here.
func (h *Handler) SignOut(c *gin.Context) {
	if h.auth == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "authentication is not configured"})
		return
	}

	token := session.BearerToken(c)
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bearer token is required"})
		return
	}

	if h.resolver != nil {
		h.resolver.Forget(c.Request.Context(), token)
	}
	if err := h.auth.SignOut(c.Request.Context(), token); err != nil {
		slog.Warn("Provider sign-out failed", "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"status": "signed out"})
}

// ResetPassword handles POST /api/auth/reset
func (h *Handler) ResetPassword(c *gin.Context) {
	if h.auth == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "authentication is not configured"})
		return
	}

	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.Email); err != nil {
		respondAuthError(c, "password reset", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset email sent"})
}

// respondAuthError relays provider-reported failures with their status and
// hides everything else behind a 502.
func respondAuthError(c *gin.Context, op string, err error) {
	var authErr *session.AuthError
	if errors.As(err, &authErr) {
		c.JSON(authErr.Status, gin.H{"error": authErr.Message})
		return
	}
	slog.Error("Auth provider call failed", "op", op, "error", err)
	c.JSON(http.StatusBadGateway, gin.H{"error": "authentication provider unavailable"})
}
