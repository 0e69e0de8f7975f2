// Package ledger holds the vote and comment rules shared by playlists and
// forum threads. Functions mutate the entity passed in and never touch
// storage; callers persist the result.
package ledger

import (
	"strconv"
	"strings"
	"time"

	"cinehub/internal/apperr"
	"cinehub/internal/models"
)

// VoteResult reports the state of an entity's tally after ApplyVote.
type VoteResult struct {
	Score    int
	Voters   map[string]models.VoteValue
	Previous models.VoteValue
	Changed  bool
}

func voterKey(uid int64) string {
	return strconv.FormatInt(uid, 10)
}

// ApplyVote records caller's vote on e.
//
// Voting the same direction twice is a no-op. Switching direction overwrites
// the ledger entry. In every case the score is re-derived from the voters map.
func ApplyVote(e models.Votable, caller models.CallerIdentity, value models.VoteValue) (VoteResult, error) {
	if !caller.Authenticated() {
		return VoteResult{}, apperr.Unauthorized("Sign in to vote")
	}
	if e == nil {
		return VoteResult{}, apperr.NotFound("Not found")
	}
	if !value.Valid() {
		return VoteResult{}, apperr.Validation("Invalid vote")
	}

	tally := e.Votes()
	if tally.Voters == nil {
		tally.Voters = map[string]models.VoteValue{}
	}

	key := voterKey(caller.UserUID)
	prev := tally.Voters[key]
	changed := prev != value
	if changed {
		tally.Voters[key] = value
	}
	tally.Recount()

	return VoteResult{
		Score:    tally.Score,
		Voters:   tally.Voters,
		Previous: prev,
		Changed:  changed,
	}, nil
}

// RequireOwner fails unless caller created e.
func RequireOwner(e models.Votable, caller models.CallerIdentity, message string) error {
	if !caller.Authenticated() {
		return apperr.Unauthorized("Sign in first")
	}
	if e.OwnerID() != caller.UserUID {
		return apperr.Forbidden(message)
	}
	return nil
}

// NewComment carries the caller-supplied fields of a comment.
type NewComment struct {
	ID       string
	Username string
	Text     string
	At       time.Time
}

// AddComment appends a comment to e. Text is trimmed; blank text is rejected.
func AddComment(e models.Votable, caller models.CallerIdentity, in NewComment) (models.Comment, error) {
	if !caller.Authenticated() {
		return models.Comment{}, apperr.Unauthorized("Sign in to comment")
	}
	if e == nil {
		return models.Comment{}, apperr.NotFound("Not found")
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return models.Comment{}, apperr.Validation("Comment text required")
	}
	username := strings.TrimSpace(in.Username)
	if username == "" {
		username = "User"
	}

	c := models.Comment{
		ID:        in.ID,
		UserUID:   caller.UserUID,
		Username:  username,
		Text:      text,
		CreatedAt: in.At,
		Upvotes:   0,
		Voters:    map[string]bool{},
	}
	comments := e.Discussion()
	*comments = append(*comments, c)
	return c, nil
}

// FindComment returns the index of the comment with id, or -1.
func FindComment(e models.Votable, id string) int {
	for i, c := range *e.Discussion() {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// UpvoteComment adds caller's upvote to a comment. A second upvote by the same
// caller is rejected with AlreadyVoted and leaves the count untouched.
func UpvoteComment(e models.Votable, commentID string, caller models.CallerIdentity) (int, error) {
	if !caller.Authenticated() {
		return 0, apperr.Unauthorized("Sign in to vote")
	}
	if e == nil {
		return 0, apperr.NotFound("Not found")
	}
	idx := FindComment(e, commentID)
	if idx < 0 {
		return 0, apperr.NotFound("Comment not found")
	}

	c := &(*e.Discussion())[idx]
	if c.Voters == nil {
		c.Voters = map[string]bool{}
	}
	key := voterKey(caller.UserUID)
	if c.Voters[key] {
		return c.Upvotes, apperr.AlreadyVoted()
	}
	c.Voters[key] = true
	return c.Recount(), nil
}

// DeleteComment removes a comment authored by caller.
func DeleteComment(e models.Votable, commentID string, caller models.CallerIdentity) (models.Comment, error) {
	if !caller.Authenticated() {
		return models.Comment{}, apperr.Unauthorized("Sign in to delete comment")
	}
	if e == nil {
		return models.Comment{}, apperr.NotFound("Not found")
	}
	idx := FindComment(e, commentID)
	if idx < 0 {
		return models.Comment{}, apperr.NotFound("Comment not found")
	}

	comments := e.Discussion()
	removed := (*comments)[idx]
	if removed.UserUID != caller.UserUID {
		return models.Comment{}, apperr.Forbidden("You do not own this comment")
	}
	*comments = append((*comments)[:idx], (*comments)[idx+1:]...)
	return removed, nil
}
