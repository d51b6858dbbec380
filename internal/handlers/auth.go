package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diewo77/sgm/internal/auth"
	"github.com/diewo77/sgm/internal/httpx"
	"github.com/diewo77/sgm/internal/roles"
	"github.com/diewo77/sgm/internal/services"
)

type AuthHandler struct {
	users  *services.UserService
	tokens *auth.Manager
}

func NewAuthHandler(users *services.UserService, tokens *auth.Manager) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Token exchanges credentials for an access/refresh pair.
func (h *AuthHandler) Token(c *gin.Context) {
	var in credentials
	if !httpx.BindJSON(c, &in) {
		return
	}
	user, err := h.users.Authenticate(c.Request.Context(), in.Username, in.Password, c.ClientIP())
	if err != nil {
		httpx.Error(c, err)
		return
	}
	pair, err := h.tokens.IssuePair(user.ID)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, pair)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var in struct {
		Refresh string `json:"refresh" binding:"required"`
	}
	if !httpx.BindJSON(c, &in) {
		return
	}
	access, uid, err := h.tokens.Refresh(in.Refresh)
	if err != nil || !h.users.Active(c.Request.Context(), uid) {
		httpx.JSONError(c, http.StatusUnauthorized, auth.ErrInvalidToken.Error(), nil)
		return
	}
	httpx.JSON(c, http.StatusOK, gin.H{"access": access})
}

// Login opens a cookie session and tells the client where the user lands.
func (h *AuthHandler) Login(c *gin.Context) {
	var in credentials
	if !httpx.BindJSON(c, &in) {
		return
	}
	user, err := h.users.Authenticate(c.Request.Context(), in.Username, in.Password, c.ClientIP())
	if err != nil {
		httpx.Error(c, err)
		return
	}
	h.tokens.CreateSession(c.Writer, user.ID)
	httpx.JSON(c, http.StatusOK, gin.H{
		"user":     user,
		"redirect": roles.LandingFor(user.Role).Path(),
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if uid, ok := auth.UserID(c); ok {
		h.users.Logout(c.Request.Context(), uid, c.ClientIP())
	}
	auth.ClearSession(c.Writer)
	httpx.JSON(c, http.StatusOK, detail{"logged out"})
}

// PasswordReset always answers the same way so callers cannot probe which
// addresses have an account.
func (h *AuthHandler) PasswordReset(c *gin.Context) {
	var in struct {
		Email string `json:"email" binding:"required"`
	}
	if !httpx.BindJSON(c, &in) {
		return
	}
	h.users.RequestPasswordReset(c.Request.Context(), in.Email)
	httpx.JSON(c, http.StatusOK, detail{"if the address is registered, a reset email has been sent"})
}

func (h *AuthHandler) PasswordResetConfirm(c *gin.Context) {
	var in struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !httpx.BindJSON(c, &in) {
		return
	}
	if err := h.users.ConfirmPasswordReset(c.Request.Context(), in.Token, in.Password); err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.JSON(c, http.StatusOK, detail{"password changed"})
}
