package models

import (
	"html/template"
	"time"
)

// ForumThread is a discussion started under a forum movie. The creator is
// persisted as userUID, unlike playlists which use ownerUID.
type ForumThread struct {
	ID          string `json:"id"`
	MovieID     string `json:"movieId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Username    string `json:"username"`
	UserUID     int64  `json:"userUID"`
	Tally
	Comments  []Comment `json:"comments"`
	CreatedAt time.Time `json:"createdAt"`
}

func (t *ForumThread) Key() string            { return t.ID }
func (t *ForumThread) OwnerID() int64         { return t.UserUID }
func (t *ForumThread) Votes() *Tally          { return &t.Tally }
func (t *ForumThread) Discussion() *[]Comment { return &t.Comments }

// ThreadSummary is the list representation of a thread.
type ThreadSummary struct {
	*ForumThread
	CommentCount int `json:"commentCount"`
}

// ThreadDetail is a thread with its description rendered to HTML.
type ThreadDetail struct {
	*ForumThread
	DescriptionHTML template.HTML `json:"descriptionHtml"`
}

type ForumMovie struct {
	MovieID    string    `json:"movieId"`
	MovieTitle string    `json:"movieTitle"`
	Poster     string    `json:"poster"`
	Genre      string    `json:"genre"`
	AddedBy    string    `json:"addedBy"`
	AddedByUID int64     `json:"addedByUID"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ForumMovieSummary is a forum movie with the number of threads under it.
type ForumMovieSummary struct {
	ForumMovie
	ThreadCount int `json:"threadCount"`
}
