package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/grocerly/backend/internal/model"
	"github.com/grocerly/backend/internal/service"
)

type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Login issues the session cookie on valid credentials.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: []string{"invalid request body"}})
		return
	}

	token, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	h.setSessionCookie(c, token)
	c.JSON(http.StatusOK, model.MessageResponse{Message: "Login Successful"})
}

// Register creates an account when signup is enabled; 403 unconditionally
// otherwise.
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: []string{"invalid request body"}})
		return
	}

	id, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.RegisterResponse{
		Message: fmt.Sprintf("Account %s created successfully", id),
		ID:      id,
	})
}

// Logoff revokes the cookie's token and clears the cookie. Always 200, even
// with no token at all.
func (h *AuthHandler) Logoff(c *gin.Context) {
	token, _ := c.Cookie(service.CookieName)
	h.svc.Logoff(token)
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string) {
	cfg := h.svc.CookieConfig()
	c.SetSameSite(cfg.SameSite)
	c.SetCookie(cfg.Name, token, cfg.MaxAge, cfg.Path, "", cfg.Secure, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	cfg := h.svc.CookieConfig()
	c.SetSameSite(cfg.SameSite)
	c.SetCookie(cfg.Name, "", -1, cfg.Path, "", cfg.Secure, true)
}

// writeAuthError maps service errors onto the response taxonomy. Credential
// failures stay opaque; only validation reports field detail.
func writeAuthError(c *gin.Context, err error) {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: vErr.Fields})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, model.MessageResponse{Message: "Invalid credentials"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, model.MessageResponse{Message: "User already exists"})
	default:
		c.JSON(http.StatusBadRequest, model.MessageResponse{Message: "request failed"})
	}
}
