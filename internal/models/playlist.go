package models

import (
	"time"
)

type PlaylistMovie struct {
	MovieID    string `json:"movieId"`
	MovieTitle string `json:"movieTitle"`
	Poster     string `json:"poster"`
	Genre      string `json:"genre"`
}

type Playlist struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Desc     string `json:"desc"`
	Owner    string `json:"owner"`
	OwnerUID int64  `json:"ownerUID"`
	Tally
	Comments  []Comment       `json:"comments"`
	Movies    []PlaylistMovie `json:"movies"`
	CreatedAt time.Time       `json:"createdAt"`
}

func (p *Playlist) Key() string            { return p.ID }
func (p *Playlist) OwnerID() int64         { return p.OwnerUID }
func (p *Playlist) Votes() *Tally          { return &p.Tally }
func (p *Playlist) Discussion() *[]Comment { return &p.Comments }

// HasMovie reports whether movieID is already in the playlist.
func (p *Playlist) HasMovie(movieID string) bool {
	for _, m := range p.Movies {
		if m.MovieID == movieID {
			return true
		}
	}
	return false
}
