package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cinehub/internal/middleware"
	"cinehub/internal/services"
	"cinehub/internal/utils"
)

// UserHandler serves the signed-in user's own profile. Routes sit behind
// middleware.AuthRequired.
type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Me(c *gin.Context) {
	caller, _ := middleware.Caller(c)
	user, err := h.users.Get(c.Request.Context(), caller.UserUID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type updateProfileRequest struct {
	Username     string            `json:"username"`
	UserUID      utils.FlexInt64   `json:"userUID"`
	UserEmail    string            `json:"userEmail"`
	UserTier     string            `json:"userTier"`
	UserLanguage string            `json:"userLanguage"`
	SearchCount  utils.FlexInt64   `json:"searchCount"`
	ViewCount    utils.FlexInt64   `json:"viewCount"`
	AllUIDs      []utils.FlexInt64 `json:"allUIDs"`
}

// Update handles POST /users. Fields left empty keep their stored value.
// The counters are always overwritten, and missing ones become 0.
func (h *UserHandler) Update(c *gin.Context) {
	var req updateProfileRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}
	caller, _ := middleware.Caller(c)

	in := services.ProfileUpdate{
		UserUID:      int64(req.UserUID),
		Username:     req.Username,
		UserEmail:    req.UserEmail,
		UserTier:     req.UserTier,
		UserLanguage: req.UserLanguage,
		SearchCount:  int(req.SearchCount),
		ViewCount:    int(req.ViewCount),
	}
	if req.AllUIDs != nil {
		in.AllUIDs = make([]int64, len(req.AllUIDs))
		for i, uid := range req.AllUIDs {
			in.AllUIDs[i] = int64(uid)
		}
	}

	user, err := h.users.Update(c.Request.Context(), caller, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
