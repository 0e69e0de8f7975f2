package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cinehub/internal/models"
	"cinehub/internal/services"
	"cinehub/internal/utils"
)

// VoteHandler records up/down votes on playlists and forum threads.
type VoteHandler struct {
	playlists *services.PlaylistService
	forum     *services.ForumService
	ids       Identities
}

func NewVoteHandler(playlists *services.PlaylistService, forum *services.ForumService, ids Identities) *VoteHandler {
	return &VoteHandler{playlists: playlists, forum: forum, ids: ids}
}

type voteRequest struct {
	UserUID utils.FlexInt64  `json:"userUID"`
	Vote    models.VoteValue `json:"vote"`
}

func (h *VoteHandler) resolve(c *gin.Context) (models.CallerIdentity, models.VoteValue, bool) {
	var req voteRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return models.CallerIdentity{}, "", false
	}
	caller, err := h.ids.caller(c, int64(req.UserUID), "")
	if err != nil {
		fail(c, err)
		return models.CallerIdentity{}, "", false
	}
	return caller, req.Vote, true
}

// Playlist handles POST /playlists/:id/vote and responds with the new score.
func (h *VoteHandler) Playlist(c *gin.Context) {
	caller, value, ok := h.resolve(c)
	if !ok {
		return
	}
	res, err := h.playlists.Vote(c.Request.Context(), caller, c.Param("id"), value)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "score": res.Score})
}

// Thread handles POST /forum/threads/:id/vote and responds with the thread.
func (h *VoteHandler) Thread(c *gin.Context) {
	caller, value, ok := h.resolve(c)
	if !ok {
		return
	}
	t, err := h.forum.VoteThread(c.Request.Context(), caller, c.Param("id"), value)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}
