package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cinehub/internal/models"
	"cinehub/internal/services"
	"cinehub/internal/utils"
)

type PlaylistHandler struct {
	svc *services.PlaylistService
	ids Identities
}

func NewPlaylistHandler(svc *services.PlaylistService, ids Identities) *PlaylistHandler {
	return &PlaylistHandler{svc: svc, ids: ids}
}

// List handles GET /playlists?owner=&sort=rank.
func (h *PlaylistHandler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), services.PlaylistFilter{
		Owner: c.Query("owner"),
		Rank:  c.Query("sort") == "rank",
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *PlaylistHandler) Get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type createPlaylistRequest struct {
	Name     string          `json:"name"`
	Desc     string          `json:"desc"`
	Owner    string          `json:"owner"`
	OwnerUID utils.FlexInt64 `json:"ownerUID"`
	UserUID  utils.FlexInt64 `json:"userUID"`
}

func (h *PlaylistHandler) Create(c *gin.Context) {
	var req createPlaylistRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}
	uid := int64(req.OwnerUID)
	if uid == 0 {
		uid = int64(req.UserUID)
	}
	caller, err := h.ids.caller(c, uid, req.Owner)
	if err != nil {
		fail(c, err)
		return
	}

	p, err := h.svc.Create(c.Request.Context(), caller, services.CreatePlaylistInput{
		Name:  req.Name,
		Desc:  req.Desc,
		Owner: req.Owner,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type renamePlaylistRequest struct {
	Name    string          `json:"name"`
	UserUID utils.FlexInt64 `json:"userUID"`
}

func (h *PlaylistHandler) Update(c *gin.Context) {
	var req renamePlaylistRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}
	caller, err := h.ids.caller(c, int64(req.UserUID), "")
	if err != nil {
		fail(c, err)
		return
	}
	p, err := h.svc.Rename(c.Request.Context(), caller, c.Param("id"), req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type ownerRequest struct {
	UserUID utils.FlexInt64 `json:"userUID"`
}

func (h *PlaylistHandler) Delete(c *gin.Context) {
	var req ownerRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}
	caller, err := h.ids.caller(c, int64(req.UserUID), "")
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.svc.Delete(c.Request.Context(), caller, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	respondOK(c, "Playlist deleted")
}

type addMovieRequest struct {
	MovieID    utils.FlexString `json:"movieId"`
	MovieTitle string           `json:"movieTitle"`
	Poster     string           `json:"poster"`
	Genre      string           `json:"genre"`
	UserUID    utils.FlexInt64  `json:"userUID"`
}

func (h *PlaylistHandler) AddMovie(c *gin.Context) {
	var req addMovieRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}
	caller, err := h.ids.caller(c, int64(req.UserUID), "")
	if err != nil {
		fail(c, err)
		return
	}

	added, err := h.svc.AddMovie(c.Request.Context(), caller, c.Param("id"), models.PlaylistMovie{
		MovieID:    string(req.MovieID),
		MovieTitle: req.MovieTitle,
		Poster:     req.Poster,
		Genre:      req.Genre,
	})
	if err != nil {
		fail(c, err)
		return
	}
	if !added {
		respondOK(c, "Already in playlist")
		return
	}
	respondOK(c, "Added")
}

func (h *PlaylistHandler) RemoveMovie(c *gin.Context) {
	var req ownerRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}
	caller, err := h.ids.caller(c, int64(req.UserUID), "")
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.svc.RemoveMovie(c.Request.Context(), caller, c.Param("id"), c.Param("movieId")); err != nil {
		fail(c, err)
		return
	}
	respondOK(c, "Removed")
}
