package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"cinehub/internal/models"
	"cinehub/internal/utils"
)

// Discussion is the comment API shared by playlists and forum threads.
type Discussion interface {
	Comments(ctx context.Context, id string, top bool) ([]models.Comment, error)
	AddComment(ctx context.Context, caller models.CallerIdentity, id, username, text string) (models.Comment, error)
	UpvoteComment(ctx context.Context, caller models.CallerIdentity, id, commentID string) (int, error)
	DeleteComment(ctx context.Context, caller models.CallerIdentity, id, commentID string) error
}

// CommentHandler serves the comments of one kind of parent, found by the
// :id route parameter.
type CommentHandler struct {
	board Discussion
	ids   Identities
}

func NewCommentHandler(board Discussion, ids Identities) *CommentHandler {
	return &CommentHandler{board: board, ids: ids}
}

// List handles GET .../comments?sort=top.
func (h *CommentHandler) List(c *gin.Context) {
	comments, err := h.board.Comments(c.Request.Context(), c.Param("id"), c.Query("sort") == "top")
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

type addCommentRequest struct {
	UserUID  utils.FlexInt64 `json:"userUID"`
	Username string          `json:"username"`
	Text     string          `json:"text"`
}

func (h *CommentHandler) Add(c *gin.Context) {
	var req addCommentRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}
	caller, err := h.ids.caller(c, int64(req.UserUID), req.Username)
	if err != nil {
		fail(c, err)
		return
	}
	comment, err := h.board.AddComment(c.Request.Context(), caller, c.Param("id"), req.Username, req.Text)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (h *CommentHandler) Upvote(c *gin.Context) {
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
	upvotes, err := h.board.UpvoteComment(c.Request.Context(), caller, c.Param("id"), c.Param("commentId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upvotes": upvotes})
}

func (h *CommentHandler) Delete(c *gin.Context) {
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
	if err := h.board.DeleteComment(c.Request.Context(), caller, c.Param("id"), c.Param("commentId")); err != nil {
		fail(c, err)
		return
	}
	respondOK(c, "Comment deleted")
}
