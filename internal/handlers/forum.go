package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cinehub/internal/services"
	"cinehub/internal/utils"
)

type ForumHandler struct {
	svc *services.ForumService
	ids Identities
}

func NewForumHandler(svc *services.ForumService, ids Identities) *ForumHandler {
	return &ForumHandler{svc: svc, ids: ids}
}

func (h *ForumHandler) ListMovies(c *gin.Context) {
	movies, err := h.svc.Movies(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, movies)
}

type addForumMovieRequest struct {
	MovieID    utils.FlexString `json:"movieId"`
	MovieTitle string           `json:"movieTitle"`
	Poster     string           `json:"poster"`
	Genre      string           `json:"genre"`
	UserUID    utils.FlexInt64  `json:"userUID"`
	Username   string           `json:"username"`
}

func (h *ForumHandler) AddMovie(c *gin.Context) {
	var req addForumMovieRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}
	caller, err := h.ids.caller(c, int64(req.UserUID), req.Username)
	if err != nil {
		fail(c, err)
		return
	}

	movie, created, err := h.svc.AddMovie(c.Request.Context(), caller, services.AddForumMovieInput{
		MovieID:    string(req.MovieID),
		MovieTitle: req.MovieTitle,
		Poster:     req.Poster,
		Genre:      req.Genre,
		Username:   req.Username,
	})
	if err != nil {
		fail(c, err)
		return
	}
	if !created {
		c.JSON(http.StatusOK, gin.H{"message": "Movie already in forum", "movie": movie})
		return
	}
	c.JSON(http.StatusOK, movie)
}

// ListThreads handles GET /forum/threads?movieId=&sort=rank.
func (h *ForumHandler) ListThreads(c *gin.Context) {
	threads, err := h.svc.Threads(c.Request.Context(), services.ThreadFilter{
		MovieID: c.Query("movieId"),
		Rank:    c.Query("sort") == "rank",
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, threads)
}

func (h *ForumHandler) GetThread(c *gin.Context) {
	t, err := h.svc.Thread(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type createThreadRequest struct {
	MovieID     utils.FlexString `json:"movieId"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Image       string           `json:"image"`
	UserUID     utils.FlexInt64  `json:"userUID"`
	Username    string           `json:"username"`
}

func (h *ForumHandler) CreateThread(c *gin.Context) {
	var req createThreadRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}
	caller, err := h.ids.caller(c, int64(req.UserUID), req.Username)
	if err != nil {
		fail(c, err)
		return
	}

	t, err := h.svc.CreateThread(c.Request.Context(), caller, services.CreateThreadInput{
		MovieID:     string(req.MovieID),
		Title:       req.Title,
		Description: req.Description,
		Image:       req.Image,
		Username:    req.Username,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *ForumHandler) DeleteThread(c *gin.Context) {
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
	if err := h.svc.DeleteThread(c.Request.Context(), caller, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	respondOK(c, "Thread deleted")
}
