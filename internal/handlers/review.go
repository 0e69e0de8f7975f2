package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cinehub/internal/services"
	"cinehub/internal/utils"
)

type ReviewHandler struct {
	svc *services.ReviewService
}

func NewReviewHandler(svc *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{svc: svc}
}

func (h *ReviewHandler) List(c *gin.Context) {
	reviews, err := h.svc.List(c.Request.Context(), c.Query("movieId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

type createReviewRequest struct {
	User       string           `json:"user"`
	Pfp        string           `json:"pfp"`
	MovieTitle string           `json:"movieTitle"`
	Movie      string           `json:"movie"`
	MovieID    utils.FlexString `json:"movieId"`
	Stars      utils.FlexInt64  `json:"stars"`
	Text       string           `json:"text"`
}

func (h *ReviewHandler) Create(c *gin.Context) {
	var req createReviewRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}
	title := req.MovieTitle
	if title == "" {
		title = req.Movie
	}
	_, err := h.svc.Create(c.Request.Context(), services.CreateReviewInput{
		User:       req.User,
		Pfp:        req.Pfp,
		MovieTitle: title,
		MovieID:    string(req.MovieID),
		Stars:      int(req.Stars),
		Text:       req.Text,
	})
	if err != nil {
		fail(c, err)
		return
	}
	respondOK(c, "Review saved!")
}
