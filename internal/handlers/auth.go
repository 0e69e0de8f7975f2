package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cinehub/internal/apperr"
	"cinehub/internal/auth"
	"cinehub/internal/middleware"
	"cinehub/internal/models"
	"cinehub/internal/services"
)

// AuthHandler signs users up and in. Both return a bearer token and also
// start a cookie session for browser clients.
type AuthHandler struct {
	users  *services.UserService
	tokens *auth.TokenIssuer
}

func NewAuthHandler(users *services.UserService, tokens *auth.TokenIssuer) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

type registerRequest struct {
	Username     string `json:"username" binding:"notblank"`
	UserEmail    string `json:"userEmail" binding:"notblank,email"`
	UserPassword string `json:"userPassword" binding:"notblank"`
	UserTier     string `json:"userTier"`
	UserLanguage string `json:"userLanguage"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, middleware.BindingError(err))
		return
	}
	user, err := h.users.Register(c.Request.Context(), services.RegisterInput{
		Username:     req.Username,
		UserEmail:    req.UserEmail,
		UserPassword: req.UserPassword,
		UserTier:     req.UserTier,
		UserLanguage: req.UserLanguage,
	})
	if err != nil {
		fail(c, err)
		return
	}
	h.signIn(c, user)
}

type loginRequest struct {
	UserEmail    string `json:"userEmail" binding:"notblank"`
	UserPassword string `json:"userPassword" binding:"notblank"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, middleware.BindingError(err))
		return
	}
	user, err := h.users.Authenticate(c.Request.Context(), req.UserEmail, req.UserPassword)
	if err != nil {
		fail(c, err)
		return
	}
	h.signIn(c, user)
}

func (h *AuthHandler) signIn(c *gin.Context, user models.User) {
	token, err := h.tokens.Issue(user)
	if err != nil {
		fail(c, apperr.Wrap(apperr.KindInternal, "Could not issue token", err))
		return
	}
	if err := middleware.Login(c, user); err != nil {
		middleware.Log(c).WithError(err).Warn("session not saved")
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := middleware.Logout(c); err != nil {
		middleware.Log(c).WithError(err).Warn("session not cleared")
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
